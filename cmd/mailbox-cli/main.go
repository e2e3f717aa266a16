package main

import (
	"context"
	"fmt"
	"io"
	"mailbox/client"
	"net/http"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Exit codes for the command line client.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mailbox-cli: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string, out io.Writer) (int, error) {
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	flagSet := pflag.NewFlagSet("mailbox-cli", pflag.ContinueOnError)
	flagSet.StringVar(&config.URL, "url", config.URL, "mailbox base URL")
	flagSet.StringVar(&config.AccessKey, "key", config.AccessKey, "access key for take and relay")
	token := flagSet.String("token", "", "human verification token for submit")
	noColour := flagSet.Bool("no-colour", false, "disable colorized output")
	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mailbox-cli [flags] submit <text> | take | relay <text> | health")
		flagSet.PrintDefaults()
	}
	if err = flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK, nil
		}
		return exitConfig, err
	}
	if *noColour {
		config.Colours = false
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return exitConfig, fmt.Errorf("missing command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	c := client.New(config.URL, config.AccessKey, &http.Client{})
	p := printer{out: out, colours: config.Colours}

	switch command, text := rest[0], strings.Join(rest[1:], " "); command {
	case "submit":
		response, err := c.Submit(ctx, text, *token)
		if err != nil {
			return p.failure(err)
		}
		p.ok("Submitted", response.ID)
	case "take":
		response, err := c.TakeNext(ctx)
		if err != nil {
			return p.failure(err)
		}
		if response.Data == nil {
			p.info("Mailbox is empty")
			return exitOK, nil
		}
		p.ok("Taken", response.Data.ID)
		fmt.Fprintf(out, "%s\n\n%s\n", response.Data.Title, response.Data.Content)
	case "relay":
		if err = c.Relay(ctx, text); err != nil {
			return p.failure(err)
		}
		p.ok("Relayed", "")
	case "health":
		response, err := c.Health(ctx)
		if err != nil {
			return p.failure(err)
		}
		p.ok(response.Status, fmt.Sprintf("pending=%d rss=%dB", response.Pending, response.RSSBytes))
	default:
		flagSet.Usage()
		return exitConfig, fmt.Errorf("unknown command %q", command)
	}
	return exitOK, nil
}

type printer struct {
	out     io.Writer
	colours bool
}

func (p printer) render(style color.Style, text string) string {
	if !p.colours {
		return text
	}
	return style.Render(text)
}

func (p printer) ok(label, detail string) {
	fmt.Fprintf(p.out, "%s %s\n", p.render(color.New(color.FgGreen, color.OpBold), label), detail)
}

func (p printer) info(text string) {
	fmt.Fprintln(p.out, p.render(color.New(color.FgYellow), text))
}

func (p printer) failure(err error) (int, error) {
	fmt.Fprintln(p.out, p.render(color.New(color.FgRed, color.OpBold), "Failed"))
	return exitRuntime, err
}
