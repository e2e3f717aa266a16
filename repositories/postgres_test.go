package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"mailbox/domain"
	"mailbox/errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) (PostgresMessageStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresMessageStore(db, slog.Default(), DefaultTakeOptions), mock
}

func messageRows(id int64, at time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "content", "lang", "received_at"}).
		AddRow(id, "hello there", "hello there", "en", at)
}

func Test_Postgres_Enqueue_Assigns_Sequence_ID(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertMessage)).
		WithArgs("hello there", "hello there", "en", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.Enqueue(context.Background(), domain.NewMessage("hello there", "en"))
	req.NoError(err)
	req.Equal("42", id)
}

func Test_Postgres_Enqueue_Rejects_Non_Numeric_ID(t *testing.T) {
	req := require.New(t)
	store, _ := newPostgresStore(t)

	message := domain.NewMessage("hello there", "en")
	message.ID = "not-a-number"
	_, err := store.Enqueue(context.Background(), message)
	req.ErrorIs(err, errors.ErrStorage)
}

func Test_Postgres_Enqueue_Rejects_Pending_ID(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertMessageWithID)).
		WithArgs(int64(7), "hello there", "hello there", "en", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	message := domain.NewMessage("hello there", "en")
	message.ID = "7"
	_, err := store.Enqueue(context.Background(), message)
	req.ErrorIs(err, errors.ErrDuplicateMessage)
	req.ErrorIs(err, errors.ErrStorage)
}

func Test_Postgres_Take_Deletes_Selected_Row(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnRows(messageRows(7, at))
	mock.ExpectExec(regexp.QuoteMeta(deleteMessage)).WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	taken, err := store.TakeRandom(context.Background())
	req.NoError(err)
	req.NotNil(taken)
	req.Equal("7", taken.ID)
	req.Equal("hello there", taken.Content)
	req.True(at.Equal(taken.ReceivedAt))
}

func Test_Postgres_Take_Retries_When_Row_Already_Deleted(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)
	at := time.Now().UTC()

	// Given a concurrent caller deleting row 7 first
	mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnRows(messageRows(7, at))
	mock.ExpectExec(regexp.QuoteMeta(deleteMessage)).WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Then the whole cycle starts over
	mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnRows(messageRows(8, at))
	mock.ExpectExec(regexp.QuoteMeta(deleteMessage)).WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	taken, err := store.TakeRandom(context.Background())
	req.NoError(err)
	req.Equal("8", taken.ID)
}

func Test_Postgres_Take_Gives_Up_After_Max_Attempts(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)
	at := time.Now().UTC()

	for i := 0; i < DefaultTakeOptions.MaxAttempts; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnRows(messageRows(int64(i), at))
		mock.ExpectExec(regexp.QuoteMeta(deleteMessage)).WithArgs(int64(i)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	taken, err := store.TakeRandom(context.Background())
	req.NoError(err)
	req.Nil(taken)
}

func Test_Postgres_Take_On_Empty_Table(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnError(sql.ErrNoRows)

	taken, err := store.TakeRandom(context.Background())
	req.NoError(err)
	req.Nil(taken)
}

func Test_Postgres_Storage_Fault(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectRandomMessage)).WillReturnError(sql.ErrConnDone)
	_, err := store.TakeRandom(context.Background())
	req.ErrorIs(err, errors.ErrStorage)

	mock.ExpectQuery(regexp.QuoteMeta(countMessages)).WillReturnError(sql.ErrConnDone)
	_, err = store.Count(context.Background())
	req.ErrorIs(err, errors.ErrStorage)
}

func Test_Postgres_EnsureSchema(t *testing.T) {
	req := require.New(t)
	store, mock := newPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(createMessagesTable)).WillReturnResult(sqlmock.NewResult(0, 0))
	req.NoError(store.EnsureSchema(context.Background()))
}
