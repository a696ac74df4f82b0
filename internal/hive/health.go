package hive

import (
	"context"
	"database/sql"

	"github.com/hivemail/hivemail/internal/schema"
)

// dbQuerier is satisfied by both *sql.DB and *sql.Tx.
type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Stats is the row-count summary returned by CheckHealth.
type Stats struct {
	Events       int64 `json:"events"`
	Agents       int64 `json:"agents"`
	Messages     int64 `json:"messages"`
	Reservations int64 `json:"reservations"`
}

// CheckHealthResult is the check_health operation's return value.
type CheckHealthResult struct {
	Healthy bool   `json:"healthy"`
	Stats   *Stats `json:"stats,omitempty"`
}

// CheckHealth performs a cheap round-trip against the project database and,
// when projectPath is non-empty, also returns row-count statistics. An
// empty projectPath only checks that the store itself can be used (no
// project database is opened).
func (s *Store) CheckHealth(ctx context.Context, projectPath string) (CheckHealthResult, error) {
	if projectPath == "" {
		return CheckHealthResult{Healthy: true}, nil
	}

	db, err := s.projectDB(projectPath)
	if err != nil {
		return CheckHealthResult{Healthy: false}, nil
	}

	if err := db.PingContext(ctx); err != nil {
		return CheckHealthResult{Healthy: false}, nil
	}
	var one int
	if err := db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return CheckHealthResult{Healthy: false}, nil
	}

	stats, err := s.statsFor(ctx, db, projectPath)
	if err != nil {
		return CheckHealthResult{Healthy: true}, &StorageError{Op: "collect stats", Err: err}
	}

	return CheckHealthResult{Healthy: true, Stats: &stats}, nil
}

func (s *Store) statsFor(ctx context.Context, dbHandle dbQuerier, projectKey string) (Stats, error) {
	var st Stats
	if err := dbHandle.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE project_key = ?`, projectKey).Scan(&st.Events); err != nil {
		return Stats{}, err
	}
	if err := dbHandle.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE project_key = ?`, projectKey).Scan(&st.Agents); err != nil {
		return Stats{}, err
	}
	if err := dbHandle.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE project_key = ?`, projectKey).Scan(&st.Messages); err != nil {
		return Stats{}, err
	}
	if err := dbHandle.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE project_key = ?`, projectKey).Scan(&st.Reservations); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Reset drops and recreates every table for projectPath. Test support only,
// per C8 — never invoked from production RPC/CLI call sites.
func (s *Store) Reset(ctx context.Context, projectPath string) error {
	db, err := s.projectDB(projectPath)
	if err != nil {
		return &StorageError{Op: "open project db", Err: err}
	}
	if err := schema.Reset(db); err != nil {
		return &StorageError{Op: "reset schema", Err: err}
	}
	return nil
}
