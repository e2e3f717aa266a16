//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"mailbox/domain"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IMessageStore holds pending messages until their single delivery.
// TakeRandom returns nil without error when nothing is available,
// and never returns the same message to two callers.
type IMessageStore interface {
	Enqueue(ctx context.Context, message domain.Message) (string, error)
	TakeRandom(ctx context.Context) (*domain.Message, error)
	Count(ctx context.Context) (int, error)
}

// ITTLCache is a shared cache whose entries expire on their own.
// Get returns errors.ErrCacheMiss for absent or expired keys.
type ITTLCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type IRateLimiter interface {
	Check(ctx context.Context, originID string) (domain.RateDecision, error)
	Mark(ctx context.Context, originID string) error
}

type ISessionCache interface {
	GetSession(ctx context.Context) (domain.ModerationSession, error)
	Invalidate(ctx context.Context) error
}

type IContentModerator interface {
	Check(ctx context.Context, text string) (domain.ModerationResult, error)
}

type IBotVerifier interface {
	Verify(ctx context.Context, token, originID string) (domain.Verification, error)
}

// IRelay hands a message to the downstream notification channel.
type IRelay interface {
	Relay(ctx context.Context, message domain.Message) error
}

// ICensor masks dictionary words in a text, keeping its length and spacing.
type ICensor interface {
	Censor(original string, censoredChar rune) string
}
