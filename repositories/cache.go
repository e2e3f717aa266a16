package repositories

import (
	"context"
	"fmt"
	"mailbox/contract"
	"mailbox/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const cachePrefix = "cache:"

var _ contract.ITTLCache = BadgerTTLCache{}

// BadgerTTLCache keeps short-lived entries next to the messages,
// relying on badger's per-entry expiry.
type BadgerTTLCache struct {
	db *badger.DB
}

func NewBadgerTTLCache(db *badger.DB) BadgerTTLCache {
	return BadgerTTLCache{db: db}
}

func (c BadgerTTLCache) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cachePrefix + key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, errors.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return value, nil
}

func (c BadgerTTLCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(cachePrefix+key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (c BadgerTTLCache) Delete(_ context.Context, key string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cachePrefix + key))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}
