package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"mailbox/codec"
	"mailbox/contract"
	"mailbox/domain"
	"mailbox/errors"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const messagePrefix = "msg:"

var _ contract.IMessageStore = BadgerMessageStore{}

// TakeOptions bounds the random consumption loop shared by every store.
type TakeOptions struct {
	// MaxAttempts is how many select+remove cycles are tried before giving up.
	MaxAttempts int
	// ScanBatch is the COUNT hint of each SCAN round trip in the redis store.
	ScanBatch int
}

var DefaultTakeOptions = TakeOptions{MaxAttempts: 3, ScanBatch: 100}

type BadgerMessageStore struct {
	db      *badger.DB
	log     *slog.Logger
	options TakeOptions
	// onPicked runs between the pick and the removal.
	onPicked func(key []byte)
}

func NewBadgerMessageStore(db *badger.DB, log *slog.Logger, options TakeOptions) BadgerMessageStore {
	return BadgerMessageStore{db: db, log: log, options: options}
}

// Enqueue persists a message under "msg:{id}".
// The key carries no ordering, messages are consumed at random.
// An id that is still pending is refused with ErrDuplicateMessage.
func (s BadgerMessageStore) Enqueue(_ context.Context, message domain.Message) (string, error) {
	message = stamp(message)
	bytes, err := codec.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	key := messageKey(message.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrDuplicateMessage
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, bytes)
	})
	switch {
	case errors.Is(err, errors.ErrDuplicateMessage):
		return "", fmt.Errorf("%w: %s", err, message.ID)
	case err != nil:
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return message.ID, nil
}

// TakeRandom walks the pending keys, picks one uniformly and removes it
// inside a single transaction.
// Two callers racing on the same key are told apart by badger itself:
// the loser either no longer finds the key or fails to commit with ErrConflict,
// and starts over with a fresh enumeration.
func (s BadgerMessageStore) TakeRandom(ctx context.Context) (*domain.Message, error) {
	for attempt := 1; attempt <= s.options.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := s.pickKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		if key == nil {
			return nil, nil
		}
		if s.onPicked != nil {
			s.onPicked(key)
		}

		message, err := s.take(key)
		switch {
		case err == nil:
			return &message, nil
		case errors.Is(err, badger.ErrKeyNotFound), errors.Is(err, badger.ErrConflict):
			s.log.Debug("Message taken by a concurrent caller, retrying",
				"key", string(key), "attempt", attempt)
		default:
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
	}
	s.log.Warn("Giving up taking a message under contention", "attempts", s.options.MaxAttempts)
	return nil, nil
}

func (s BadgerMessageStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(keysOnly(messagePrefix))
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return count, nil
}

// List reads up to limit pending messages without consuming them.
func (s BadgerMessageStore) List(limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid() && len(messages) < limit; it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message domain.Message
				if err := codec.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// pickKey samples one pending key with a reservoir of size one:
// the n-th key seen replaces the pick with probability 1/n.
// It returns nil when nothing is pending.
func (s BadgerMessageStore) pickKey() ([]byte, error) {
	var picked []byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(keysOnly(messagePrefix))
		defer it.Close()
		seen := 0
		for it.Rewind(); it.Valid(); it.Next() {
			seen++
			if rand.IntN(seen) == 0 {
				picked = it.Item().KeyCopy(picked)
			}
		}
		return nil
	})
	return picked, err
}

func (s BadgerMessageStore) take(key []byte) (domain.Message, error) {
	var value []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if value, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	if err = codec.Unmarshal(value, &message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func keysOnly(prefix string) badger.IteratorOptions {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = []byte(prefix)
	return options
}

func messageKey(id string) []byte {
	return []byte(messagePrefix + id)
}

// stamp assigns the server-side identity of a message when the caller did not.
func stamp(message domain.Message) domain.Message {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.ReceivedAt.IsZero() {
		message.ReceivedAt = time.Now().UTC()
	}
	return message
}
