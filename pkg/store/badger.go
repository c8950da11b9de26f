package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/dan-solli/goplexus/pkg/graph"
)

const badgerContextPrefix = "context/"

// BadgerStore implements ContextStore using BadgerDB as an embedded
// key-value backend. Each context is stored as a single JSON blob under
// "context/<id>", so save and load are one key operation each.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful for tests.
	InMemory bool

	// Logger receives BadgerDB's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens a Badger-backed context store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("path is required for persistent database")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}

	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// SaveContext serializes the context to JSON and writes it under its key.
func (b *BadgerStore) SaveContext(_ context.Context, gc *graph.Context) error {
	data, err := json.Marshal(gc)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerContextPrefix+gc.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write context: %w", err)
	}
	return nil
}

// LoadContext reads and deserializes a context.
// Returns (nil, nil) if the context is not found.
func (b *BadgerStore) LoadContext(_ context.Context, id string) (*graph.Context, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerContextPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read context: %w", err)
	}

	gc := graph.NewContextWithID(id, "")
	if err := json.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	gc.RecomputeRawWeights()
	return gc, nil
}

// DeleteContext removes a context by ID. Missing keys are not an error.
func (b *BadgerStore) DeleteContext(_ context.Context, id string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerContextPrefix + id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	return nil
}

// ListContexts scans the context prefix and returns all stored IDs sorted.
func (b *BadgerStore) ListContexts(_ context.Context) ([]string, error) {
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerContextPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, badgerContextPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list contexts: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
