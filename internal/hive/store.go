// Package hive is the top-level facade over the Hive Mail coordination
// substrate: a single Store value, constructed once at daemon startup and
// threaded through every RPC/MCP/CLI call site, fronting a per-project
// cache of embedded SQL handles (Design Notes, "Global mutable state").
package hive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hivemail/hivemail/internal/eventlog"
	"github.com/hivemail/hivemail/internal/projection"
	"github.com/hivemail/hivemail/internal/schema"
)

// Store owns a cache of per-project database handles, one per project key.
// The cache has no size bound and never evicts: every handle stays open
// until Close. Construct one per daemon process; call Close on shutdown to
// release every handle.
type Store struct {
	mu     sync.Mutex
	dbs    map[string]*sql.DB
	memory bool
	clock  func() time.Time
}

// Option configures a Store at construction.
type Option func(*Store)

// WithMemory selects the in-memory test backend: every project key gets its
// own named, shared-cache in-memory SQLite database instead of a file rooted at
// `<project_path>/.hive/`.
func WithMemory() Option {
	return func(s *Store) { s.memory = true }
}

// WithClock overrides the wall clock used to stamp events — test support.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore constructs a Store. No database is opened until first use.
func NewStore(opts ...Option) *Store {
	s := &Store{
		dbs:   make(map[string]*sql.DB),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases every cached project handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", key, err)
		}
	}
	s.dbs = make(map[string]*sql.DB)
	return firstErr
}

// projectDB returns the cached handle for projectKey, opening and
// migrating it on first use. Cross-project queries are impossible by
// construction: every handle is scoped to exactly one project directory
// or one private in-memory database.
func (s *Store) projectDB(projectKey string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[projectKey]; ok {
		return db, nil
	}

	dsn := schema.MemoryDSN
	if !s.memory {
		hiveDir := filepath.Join(projectKey, ".hive")
		if err := os.MkdirAll(hiveDir, 0700); err != nil {
			return nil, fmt.Errorf("create .hive directory: %w", err)
		}
		dsn = filepath.Join(hiveDir, "hive.db")
	} else {
		// Each project gets its own named shared-cache memory database so
		// concurrent test projects stay isolated from one another.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", projectKey)
	}

	db, err := schema.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open project db: %w", err)
	}

	s.dbs[projectKey] = db
	return db, nil
}

// now returns the store's clock reading formatted as RFC3339 with
// nanoseconds (time.RFC3339Nano).
func (s *Store) now() string {
	return s.clock().UTC().Format(time.RFC3339Nano)
}

// appendAndApply appends ev under kind and immediately replays it onto the
// projections, inside tx. Every mutating operation in this package is one
// call to this helper sandwiched between validation and commit.
func appendAndApply(tx *sql.Tx, projectKey, kind, occurredAt string, ev any) (int64, error) {
	seq, _, err := eventlog.Append(tx, projectKey, kind, occurredAt, ev)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", kind, err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("marshal %s: %w", kind, err)
	}

	if err := projection.Apply(tx, seq, occurredAt, kind, payload); err != nil {
		return 0, fmt.Errorf("apply %s: %w", kind, err)
	}
	return seq, nil
}
