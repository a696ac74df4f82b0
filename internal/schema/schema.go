// Package schema owns the SQLite schema for the Hive Mail store: the
// append-only event log and the four projections derived from it.
package schema

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// CurrentVersion is the current schema version.
const CurrentVersion = 1

// MemoryDSN is the DSN used for the in-memory test backend. It shares the
// same driver and schema as the persistent adapter, satisfying the "two
// implementations with identical semantics" requirement without a second
// SQL engine.
const MemoryDSN = "file::memory:?cache=shared"

// OpenDB opens (and if needed creates) the database at path, or the shared
// in-memory database when path is MemoryDSN. WAL mode is skipped for the
// in-memory DSN since it has no backing file.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if path != MemoryDSN {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
		// A single connection keeps the adapter's transaction discipline
		// simple: one writer at a time, exactly as the spec's concurrency
		// model assumes (§5 — "the adapter serializes concurrent operations
		// on one project database").
		db.SetMaxOpenConns(1)
	}

	if err := InitDB(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// InitDB creates the schema if it does not already exist. Safe to call on
// every open — all statements are CREATE TABLE/INDEX IF NOT EXISTS.
func InitDB(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := createTables(tx); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if err := createIndexes(tx); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func createTables(tx execer) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER NOT NULL,
			project_key TEXT NOT NULL,
			event_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			PRIMARY KEY (project_key, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS agents (
			project_key TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			program TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			task_description TEXT,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (project_key, agent_name)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_key TEXT NOT NULL,
			from_agent TEXT NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			thread_id TEXT,
			importance TEXT NOT NULL DEFAULT 'normal',
			ack_required INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message_recipients (
			message_id INTEGER NOT NULL,
			agent_name TEXT NOT NULL,
			read_at TEXT,
			acked_at TEXT,
			PRIMARY KEY (message_id, agent_name)
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_key TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			path_pattern TEXT NOT NULL,
			exclusive INTEGER NOT NULL DEFAULT 1,
			reason TEXT,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			released_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS cursors (
			consumer_id TEXT NOT NULL,
			project_key TEXT NOT NULL,
			last_seq INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (consumer_id, project_key)
		)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func createIndexes(tx execer) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_project_seq ON events(project_key, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_project_created ON messages(project_key, created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recipients_agent ON message_recipients(agent_name)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_project_agent ON reservations(project_key, agent_name)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_path ON reservations(project_key, path_pattern)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Reset drops and recreates every table. Test support only, per C8.
func Reset(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tables := []string{"events", "agents", "messages", "message_recipients", "reservations", "cursors"}
	for _, t := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", t)); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}

	if err := createTables(tx); err != nil {
		return err
	}
	if err := createIndexes(tx); err != nil {
		return err
	}

	return tx.Commit()
}
