package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"strconv"

	"github.com/lib/pq"
)

var _ contract.IMessageStore = PostgresMessageStore{}

const uniqueViolation = pq.ErrorCode("23505")

const (
	createMessagesTable = `
	CREATE TABLE IF NOT EXISTS mailbox_messages (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT '',
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

	insertMessage = `
	INSERT INTO mailbox_messages (title, content, lang, received_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`

	insertMessageWithID = `
	INSERT INTO mailbox_messages (id, title, content, lang, received_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`

	selectRandomMessage = `
	SELECT id, title, content, lang, received_at
	FROM mailbox_messages
	ORDER BY random()
	LIMIT 1`

	deleteMessage = `DELETE FROM mailbox_messages WHERE id = $1`

	countMessages = `SELECT COUNT(*) FROM mailbox_messages`
)

// PostgresMessageStore keeps pending messages in a table and lets the
// database pick the random row.
type PostgresMessageStore struct {
	db      *sql.DB
	log     *slog.Logger
	options TakeOptions
}

func NewPostgresMessageStore(db *sql.DB, log *slog.Logger, options TakeOptions) PostgresMessageStore {
	return PostgresMessageStore{db: db, log: log, options: options}
}

// EnsureSchema creates the messages table when missing.
func (s PostgresMessageStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("failed to ensure mailbox_messages table exists: %w", err)
	}
	return nil
}

// Enqueue inserts the message; the sequence assigns its id unless the caller
// supplied a numeric one.
func (s PostgresMessageStore) Enqueue(ctx context.Context, message domain.Message) (string, error) {
	receivedAt := stamp(message).ReceivedAt
	var id int64
	var err error
	if message.ID == "" {
		err = s.db.QueryRowContext(ctx, insertMessage,
			message.Title, message.Content, message.Lang, receivedAt).Scan(&id)
	} else {
		explicitID, parseErr := strconv.ParseInt(message.ID, 10, 64)
		if parseErr != nil {
			return "", fmt.Errorf("%w: non numeric id %q", errors.ErrStorage, message.ID)
		}
		err = s.db.QueryRowContext(ctx, insertMessageWithID,
			explicitID, message.Title, message.Content, message.Lang, receivedAt).Scan(&id)
	}
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		return "", fmt.Errorf("%w: %s", errors.ErrDuplicateMessage, message.ID)
	case err != nil:
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// TakeRandom selects one random row then deletes it by id.
// Zero affected rows means a concurrent caller deleted it in between,
// and the whole select+delete cycle is retried.
func (s PostgresMessageStore) TakeRandom(ctx context.Context) (*domain.Message, error) {
	for attempt := 1; attempt <= s.options.MaxAttempts; attempt++ {
		var id int64
		var message domain.Message
		err := s.db.QueryRowContext(ctx, selectRandomMessage).
			Scan(&id, &message.Title, &message.Content, &message.Lang, &message.ReceivedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		case err != nil:
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}

		result, err := s.db.ExecContext(ctx, deleteMessage, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		if rows == 0 {
			s.log.Debug("Message taken by a concurrent caller, retrying", "id", id, "attempt", attempt)
			continue
		}

		message.ID = strconv.FormatInt(id, 10)
		message.ReceivedAt = message.ReceivedAt.UTC()
		return &message, nil
	}
	s.log.Warn("Giving up taking a message under contention", "attempts", s.options.MaxAttempts)
	return nil, nil
}

func (s PostgresMessageStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countMessages).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return count, nil
}
