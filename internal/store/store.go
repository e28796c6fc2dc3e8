package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vk/gridflow/internal/sequence"
)

// Key prefixes partition the keyspace by object kind. The suffix after the
// prefix is the entity's own derived key, verbatim.
const (
	prefixNamespace   = "ns|"
	prefixGraph       = "cg|"
	prefixDataObject  = "do|"
	prefixInvocation  = "ictx|"
	prefixTask        = "task|"
	prefixAllocation  = "alloc|"
	prefixExecutor    = "exec|"
	prefixStateChange = "sc|"
)

// sequenceKey holds the persistent state-change id sequence lease.
var sequenceKey = []byte("!seq|statechange")

// Config holds the store's open options.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory skips disk persistence entirely. Used by tests and
	// throwaway local sessions.
	InMemory bool

	// SyncWrites forces fsync on every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// Store is the durable state machine for graphs, invocations, tasks,
// executors, and the state-change log. Safe for concurrent use.
type Store struct {
	db  *badger.DB
	seq sequence.Sequencer

	// analyticsMu serializes invocation-context read-modify-write cycles.
	// Badger transactions would surface a conflict instead; a plain mutex
	// keeps UpdateAnalytics retry-free, which the counters' non-negativity
	// argument relies on.
	analyticsMu sync.Mutex

	// release returns leased sequence bandwidth on Close, when the
	// sequencer is the store-owned durable one.
	release func() error
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the store and leases a durable state-change id sequence from
// the same database.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	seq, err := sequence.NewDurable(db, sequenceKey, 128)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := newStore(db, seq)
	s.release = seq.Release
	return s, nil
}

// OpenWithSequencer opens the store with an injected id source. Tests use
// this with a deterministic counter.
func OpenWithSequencer(cfg Config, seq sequence.Sequencer) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return newStore(db, seq), nil
}

func newStore(db *badger.DB, seq sequence.Sequencer) *Store {
	return &Store{db: db, seq: seq}
}

func openDB(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

// Close releases the id sequence lease and closes the database.
func (s *Store) Close() error {
	if s.release != nil {
		if err := s.release(); err != nil {
			s.db.Close()
			return fmt.Errorf("release sequence: %w", err)
		}
	}
	return s.db.Close()
}

// putJSON writes one entity under the given key.
func (s *Store) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON reads one entity. The boolean reports presence.
func (s *Store) getJSON(key string, v any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return json.Unmarshal(data, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return true, nil
}

// scanJSON visits every entity under the prefix in byte order.
func scanJSON[T any](s *Store, prefix string, visit func(key string, v T) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())
			var v T
			err := item.Value(func(data []byte) error {
				return json.Unmarshal(data, &v)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			if err := visit(key[len(prefix):], v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
