package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mailbox/repositories"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	limit := flag.Int("limit", 50, "Maximum number of pending messages to list")
	flag.Parse()

	// Read-only so a running mailbox keeps its lock
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	store := repositories.NewBadgerMessageStore(db, slog.Default(), repositories.DefaultTakeOptions)
	messages, err := store.List(*limit)
	if err != nil {
		log.Fatal("Error while listing messages: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Received", "Lang", "Title"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, message := range messages {
		table.Append([]string{
			message.ID,
			message.ReceivedAt.Local().Format(time.DateTime),
			message.Lang,
			message.Title,
		})
	}
	table.Render()
	fmt.Printf("\n%d pending message(s) shown\n", len(messages))
}
