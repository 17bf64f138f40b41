package cachestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Badger is an on-disk cache store. Entries carry a TTL so the cache does not
// grow without bound across runs.
type Badger struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

type BadgerOption func(*Badger)

// WithBadgerTTL sets the entry lifetime. Zero means entries never expire.
func WithBadgerTTL(ttl time.Duration) BadgerOption {
	return func(b *Badger) {
		b.ttl = ttl
	}
}

// NewBadger opens (or creates) a badger database at dir.
func NewBadger(dir string, logger *slog.Logger, opts ...BadgerOption) (*Badger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, err
	}

	b := &Badger{
		db:     db,
		ttl:    24 * time.Hour,
		logger: logger.With("component", "badger-cache"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	found := false

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		found = true
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	return value, found, nil
}

func (b *Badger) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		b.logger.Error("failed to close cache database", "error", err)
		return err
	}
	return nil
}
