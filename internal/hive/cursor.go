package hive

import (
	"context"

	"github.com/hivemail/hivemail/internal/eventlog"
)

// Cursor is a persistent per-consumer offset over a project's event log,
// used to drive resumable, at-least-once inbox draining (C7). Unlike
// GetInbox, which reads the message_recipients projection, a cursor reads
// the log tail directly so a crashed consumer can resume exactly where it
// left off.
type Cursor struct {
	store      *Store
	consumerID string
	projectKey string
	recipient  string // if non-empty, NextBatch filters to message_sent events addressed to this agent
}

// OpenCursor returns a Cursor positioned at the consumer's last committed
// offset, creating the row at offset 0 if this is the first open. recipient
// is optional; when set, NextBatch only returns message_sent events
// addressed to that agent.
func (s *Store) OpenCursor(ctx context.Context, consumerID, projectKey, recipient string) (*Cursor, error) {
	if consumerID == "" {
		return nil, &ValidationError{Field: "consumer_id", Reason: "must not be empty"}
	}

	db, err := s.projectDB(projectKey)
	if err != nil {
		return nil, &StorageError{Op: "open project db", Err: err}
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO cursors (consumer_id, project_key, last_seq) VALUES (?, ?, 0)
		 ON CONFLICT (consumer_id, project_key) DO NOTHING`,
		consumerID, projectKey,
	); err != nil {
		return nil, &StorageError{Op: "create cursor", Err: err}
	}

	return &Cursor{store: s, consumerID: consumerID, projectKey: projectKey, recipient: recipient}, nil
}

// LastSeq returns the cursor's last committed offset.
func (c *Cursor) LastSeq(ctx context.Context) (int64, error) {
	db, err := c.store.projectDB(c.projectKey)
	if err != nil {
		return 0, &StorageError{Op: "open project db", Err: err}
	}
	var lastSeq int64
	if err := db.QueryRowContext(ctx,
		`SELECT last_seq FROM cursors WHERE consumer_id = ? AND project_key = ?`,
		c.consumerID, c.projectKey,
	).Scan(&lastSeq); err != nil {
		return 0, &StorageError{Op: "read cursor", Err: err}
	}
	return lastSeq, nil
}

// NextBatch returns events with seq > last committed offset, up to limit,
// without advancing the committed offset — callers must call Commit
// explicitly once the batch has been processed. A crash between NextBatch
// and Commit re-delivers the same batch on the next call, the at-least-once
// guarantee in spec §4.7.
func (c *Cursor) NextBatch(ctx context.Context, limit int) ([]eventlog.Event, error) {
	db, err := c.store.projectDB(c.projectKey)
	if err != nil {
		return nil, &StorageError{Op: "open project db", Err: err}
	}

	lastSeq, err := c.LastSeq(ctx)
	if err != nil {
		return nil, err
	}

	if c.recipient != "" {
		return eventlog.ScanForRecipient(db, c.projectKey, c.recipient, lastSeq, limit)
	}
	return eventlog.Scan(db, c.projectKey, lastSeq, limit)
}

// Commit advances the cursor to offset, provided offset is newer than the
// currently committed value — committing an older or equal offset is a
// no-op, and committing never moves the cursor backwards.
func (c *Cursor) Commit(ctx context.Context, offset int64) error {
	db, err := c.store.projectDB(c.projectKey)
	if err != nil {
		return &StorageError{Op: "open project db", Err: err}
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE cursors SET last_seq = ? WHERE consumer_id = ? AND project_key = ? AND last_seq < ?`,
		offset, c.consumerID, c.projectKey, offset,
	); err != nil {
		return &StorageError{Op: "commit cursor", Err: err}
	}
	return nil
}
