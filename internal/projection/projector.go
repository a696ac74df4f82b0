// Package projection implements the dispatch table (C3) that turns an
// appended event into a synchronous, deterministic read-model update.
package projection

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hivemail/hivemail/internal/types"
)

// Apply dispatches a single event onto its projection effect, inside tx —
// the same transaction the event was appended in. Unknown kinds are
// ignored for forward compatibility, mirroring the teacher's dispatch
// table default.
func Apply(tx *sql.Tx, seq int64, occurredAt string, kind string, payload json.RawMessage) error {
	switch kind {
	case "agent_registered":
		return applyAgentRegistered(tx, occurredAt, payload)
	case "agent_heartbeat":
		return applyAgentHeartbeat(tx, occurredAt, payload)
	case "message_sent":
		return applyMessageSent(tx, occurredAt, payload)
	case "message_read":
		return applyMessageRead(tx, occurredAt, payload)
	case "message_acked":
		return applyMessageAcked(tx, occurredAt, payload)
	case "file_reserved":
		return applyFileReserved(tx, payload)
	case "file_released", "reservation_expired":
		return applyFileReleased(tx, occurredAt, payload)
	default:
		return nil
	}
}

func applyAgentRegistered(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.AgentRegisteredEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal agent_registered: %w", err)
	}

	_, err := tx.Exec(`
		INSERT INTO agents (project_key, agent_name, program, model, task_description, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_key, agent_name) DO UPDATE SET
			program = excluded.program,
			model = excluded.model,
			task_description = excluded.task_description,
			last_seen = excluded.last_seen
	`, ev.ProjectKey, ev.AgentName, ev.Program, ev.Model, nullable(ev.TaskDescription), occurredAt, occurredAt)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

func applyAgentHeartbeat(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.AgentHeartbeatEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal agent_heartbeat: %w", err)
	}

	_, err := tx.Exec(`UPDATE agents SET last_seen = ? WHERE project_key = ? AND agent_name = ?`,
		occurredAt, ev.ProjectKey, ev.AgentName)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

func applyMessageSent(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.MessageSentEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal message_sent: %w", err)
	}

	var messageID int64
	err := tx.QueryRow(`
		INSERT INTO messages (project_key, from_agent, subject, body, thread_id, importance, ack_required, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, ev.ProjectKey, ev.FromAgent, ev.Subject, ev.Body, nullable(ev.ThreadID), ev.Importance, boolToInt(ev.AckRequired), occurredAt).Scan(&messageID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for _, to := range ev.To {
		if _, err := tx.Exec(
			`INSERT INTO message_recipients (message_id, agent_name) VALUES (?, ?)`,
			messageID, to,
		); err != nil {
			return fmt.Errorf("insert recipient %s: %w", to, err)
		}
		// A recipient is an agent the project has seen even before they
		// register explicitly, keeping last_seen meaningful for anyone
		// addressed by mail.
		if _, err := tx.Exec(
			`UPDATE agents SET last_seen = ? WHERE project_key = ? AND agent_name = ?`,
			occurredAt, ev.ProjectKey, to,
		); err != nil {
			return fmt.Errorf("touch recipient last_seen %s: %w", to, err)
		}
	}
	return nil
}

func applyMessageRead(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.MessageReadEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal message_read: %w", err)
	}

	_, err := tx.Exec(`
		UPDATE message_recipients SET read_at = ?
		WHERE message_id = ? AND agent_name = ? AND read_at IS NULL
	`, occurredAt, ev.MessageID, ev.AgentName)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

func applyMessageAcked(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.MessageAckedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal message_acked: %w", err)
	}

	_, err := tx.Exec(`
		UPDATE message_recipients SET
			acked_at = COALESCE(acked_at, ?),
			read_at = COALESCE(read_at, ?)
		WHERE message_id = ? AND agent_name = ?
	`, occurredAt, occurredAt, ev.MessageID, ev.AgentName)
	if err != nil {
		return fmt.Errorf("mark message acked: %w", err)
	}
	return nil
}

func applyFileReserved(tx *sql.Tx, payload json.RawMessage) error {
	var ev types.FileReservedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal file_reserved: %w", err)
	}

	for _, path := range ev.Paths {
		_, err := tx.Exec(`
			INSERT INTO reservations (project_key, agent_name, path_pattern, exclusive, reason, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ev.ProjectKey, ev.AgentName, path, boolToInt(ev.Exclusive), nullable(ev.Reason), ev.OccurredAt, ev.ExpiresAt)
		if err != nil {
			return fmt.Errorf("insert reservation %s: %w", path, err)
		}
	}
	return nil
}

func applyFileReleased(tx *sql.Tx, occurredAt string, payload json.RawMessage) error {
	var ev types.FileReleasedEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("unmarshal file_released: %w", err)
	}

	switch {
	case len(ev.ReservationIDs) > 0:
		for _, id := range ev.ReservationIDs {
			if _, err := tx.Exec(
				`UPDATE reservations SET released_at = ? WHERE id = ? AND agent_name = ? AND released_at IS NULL`,
				occurredAt, id, ev.AgentName,
			); err != nil {
				return fmt.Errorf("release reservation %d: %w", id, err)
			}
		}
	case len(ev.Paths) > 0:
		for _, path := range ev.Paths {
			if _, err := tx.Exec(
				`UPDATE reservations SET released_at = ? WHERE project_key = ? AND agent_name = ? AND path_pattern = ? AND released_at IS NULL`,
				occurredAt, ev.ProjectKey, ev.AgentName, path,
			); err != nil {
				return fmt.Errorf("release reservation path %s: %w", path, err)
			}
		}
	default:
		if _, err := tx.Exec(
			`UPDATE reservations SET released_at = ? WHERE project_key = ? AND agent_name = ? AND released_at IS NULL`,
			occurredAt, ev.ProjectKey, ev.AgentName,
		); err != nil {
			return fmt.Errorf("release all reservations: %w", err)
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
