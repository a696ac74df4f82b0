// Package eventlog implements the monotonic append-only event log (C2):
// operations on the "events" table shared by every project-scoped store.
package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hivemail/hivemail/internal/idgen"
)

// Event is a decoded row from the log.
type Event struct {
	Seq        int64
	EventID    string
	Kind       string
	Payload    json.RawMessage
	OccurredAt string
}

// Append assigns seq = max(seq)+1 for the project, inserts the event row,
// and returns the assigned sequence and generated event id. Callers MUST
// run this inside the same transaction as any projection update for the
// event, per the spec's atomicity requirement — append never fails on
// duplicate content because events are idempotent by construction.
func Append(tx *sql.Tx, projectKey, kind string, occurredAt string, payload any) (seq int64, eventID string, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("marshal event payload: %w", err)
	}

	var maxSeq sql.NullInt64
	if err := tx.QueryRow(
		`SELECT MAX(seq) FROM events WHERE project_key = ?`, projectKey,
	).Scan(&maxSeq); err != nil {
		return 0, "", fmt.Errorf("read max seq: %w", err)
	}
	seq = maxSeq.Int64 + 1

	eventID = idgen.NewEventID()
	if _, err := tx.Exec(
		`INSERT INTO events (seq, project_key, event_id, kind, payload, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		seq, projectKey, eventID, kind, string(body), occurredAt,
	); err != nil {
		return 0, "", fmt.Errorf("insert event: %w", err)
	}

	return seq, eventID, nil
}

// Scan returns events for a project with seq > fromSeq, ordered by seq,
// up to limit rows.
func Scan(db *sql.DB, projectKey string, fromSeq int64, limit int) ([]Event, error) {
	rows, err := db.Query(
		`SELECT seq, event_id, kind, payload, occurred_at FROM events
		 WHERE project_key = ? AND seq > ? ORDER BY seq ASC LIMIT ?`,
		projectKey, fromSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

// ScanForRecipient returns message_sent events for a project addressed to
// agent, with seq > fromSeq, up to limit rows. Used by the cursor to drive
// resumable inbox consumption directly off the log (§4.7).
func ScanForRecipient(db *sql.DB, projectKey, agent string, fromSeq int64, limit int) ([]Event, error) {
	rows, err := db.Query(
		`SELECT seq, event_id, kind, payload, occurred_at FROM events
		 WHERE project_key = ? AND kind = 'message_sent' AND seq > ?
		 ORDER BY seq ASC`,
		projectKey, fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("scan events for recipient: %w", err)
	}
	defer rows.Close()

	all, err := collect(rows)
	if err != nil {
		return nil, err
	}

	matched := make([]Event, 0, limit)
	for _, ev := range all {
		var payload struct {
			To []string `json:"to"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			continue
		}
		for _, to := range payload.To {
			if to == agent {
				matched = append(matched, ev)
				break
			}
		}
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

func collect(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		var payload string
		if err := rows.Scan(&ev.Seq, &ev.EventID, &ev.Kind, &payload, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}
