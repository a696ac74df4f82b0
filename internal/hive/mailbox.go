package hive

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hivemail/hivemail/internal/types"
)

// SendMessageInput is the send_message operation's input.
type SendMessageInput struct {
	ProjectPath string
	From        string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
	Importance  string // defaults to "normal"
	AckRequired bool
}

// SendMessageResult is send_message's return value.
type SendMessageResult struct {
	MessageID      int64  `json:"message_id"`
	ThreadID       string `json:"thread_id,omitempty"`
	RecipientCount int    `json:"recipient_count"`
}

// SendMessage records a multi-recipient send. Replies conventionally prepend
// "Re: " once to the subject when threading — left to the caller, since the
// substrate indexes thread_id without interpreting it.
func (s *Store) SendMessage(ctx context.Context, in SendMessageInput) (SendMessageResult, error) {
	if in.From == "" {
		return SendMessageResult{}, &ValidationError{Field: "from", Reason: "must not be empty"}
	}
	if len(in.To) == 0 {
		return SendMessageResult{}, &ValidationError{Field: "to", Reason: "must name at least one recipient"}
	}
	importance := in.Importance
	if importance == "" {
		importance = "normal"
	}
	if !validImportance[importance] {
		return SendMessageResult{}, &ValidationError{Field: "importance", Reason: "must be one of low, normal, high, urgent"}
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return SendMessageResult{}, &StorageError{Op: "open project db", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return SendMessageResult{}, &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := s.now()
	ev := types.MessageSentEvent{
		BaseEvent:   types.BaseEvent{Kind: "message_sent", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
		FromAgent:   in.From,
		To:          in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		ThreadID:    in.ThreadID,
		Importance:  importance,
		AckRequired: in.AckRequired,
	}

	if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
		return SendMessageResult{}, &StorageError{Op: "send message", Err: err}
	}

	// The message id is the projection row just inserted; read it back
	// inside the same transaction, which already holds the project's write
	// lock, so no second sender's row can be committed in between.
	var messageID int64
	if err := tx.QueryRow(
		`SELECT id FROM messages WHERE project_key = ? AND from_agent = ? AND created_at = ? ORDER BY id DESC LIMIT 1`,
		in.ProjectPath, in.From, occurredAt,
	).Scan(&messageID); err != nil {
		return SendMessageResult{}, &StorageError{Op: "locate sent message", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return SendMessageResult{}, &StorageError{Op: "commit", Err: err}
	}

	return SendMessageResult{MessageID: messageID, ThreadID: in.ThreadID, RecipientCount: len(in.To)}, nil
}

// GetInboxInput is the get_inbox operation's input.
type GetInboxInput struct {
	ProjectPath   string
	Agent         string
	Limit         int // clamped to 5 regardless of the requested value
	UrgentOnly    bool
	UnreadOnly    bool
	IncludeBodies bool
}

// GetInboxResult is get_inbox's return value.
type GetInboxResult struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

const inboxHardCap = 5

// GetInbox returns the recipient's messages ordered created_at DESC, id DESC,
// refusing to deliver more than inboxHardCap regardless of the requested
// limit — the substrate's context-preservation backpressure device.
func (s *Store) GetInbox(ctx context.Context, in GetInboxInput) (GetInboxResult, error) {
	if in.Agent == "" {
		return GetInboxResult{}, &ValidationError{Field: "agent", Reason: "must not be empty"}
	}

	limit := in.Limit
	if limit <= 0 || limit > inboxHardCap {
		limit = inboxHardCap
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return GetInboxResult{}, &StorageError{Op: "open project db", Err: err}
	}

	var clauses []string
	args := []any{in.ProjectPath, in.Agent}
	if in.UrgentOnly {
		clauses = append(clauses, "m.importance = 'urgent'")
	}
	if in.UnreadOnly {
		clauses = append(clauses, "r.read_at IS NULL")
	}

	query := `
		SELECT m.id, m.from_agent, m.subject, m.body, m.thread_id, m.importance, m.ack_required, m.created_at, r.read_at, r.acked_at
		FROM messages m
		JOIN message_recipients r ON r.message_id = m.id
		WHERE m.project_key = ? AND r.agent_name = ?`
	if len(clauses) > 0 {
		query += " AND " + strings.Join(clauses, " AND ")
	}

	// Total counts every matching message, not only the capped page.
	countQuery := `SELECT COUNT(*) FROM messages m JOIN message_recipients r ON r.message_id = m.id WHERE m.project_key = ? AND r.agent_name = ?`
	if len(clauses) > 0 {
		countQuery += " AND " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return GetInboxResult{}, &StorageError{Op: "count inbox", Err: err}
	}

	query += " ORDER BY m.created_at DESC, m.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return GetInboxResult{}, &StorageError{Op: "query inbox", Err: err}
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows, in.IncludeBodies)
		if err != nil {
			return GetInboxResult{}, &StorageError{Op: "scan inbox row", Err: err}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return GetInboxResult{}, &StorageError{Op: "iterate inbox", Err: err}
	}

	return GetInboxResult{Messages: messages, Total: total}, nil
}

func scanMessage(rows *sql.Rows, includeBody bool) (Message, error) {
	var (
		msg                     Message
		threadID, readAt, ackAt sql.NullString
		body                    string
	)
	if err := rows.Scan(&msg.ID, &msg.FromAgent, &msg.Subject, &body, &threadID, &msg.Importance, &msg.AckRequired, &msg.CreatedAt, &readAt, &ackAt); err != nil {
		return Message{}, err
	}
	if includeBody {
		msg.Body = body
	}
	msg.ThreadID = threadID.String
	msg.ReadAt = readAt.String
	msg.AckedAt = ackAt.String
	return msg, nil
}

// ReadMessageInput is the read_message operation's input.
type ReadMessageInput struct {
	ProjectPath string
	MessageID   int64
	Agent       string // optional: if given, result is scoped to this recipient
	MarkAsRead  bool
}

// ReadMessage returns a single message, or (nil, nil) if it does not exist
// or the given agent is not one of its recipients — recipient isolation is
// enforced here, not treated as an error.
func (s *Store) ReadMessage(ctx context.Context, in ReadMessageInput) (*Message, error) {
	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return nil, &StorageError{Op: "open project db", Err: err}
	}

	var query string
	args := []any{in.ProjectPath, in.MessageID}
	if in.Agent != "" {
		query = `
			SELECT m.id, m.from_agent, m.subject, m.body, m.thread_id, m.importance, m.ack_required, m.created_at, r.read_at, r.acked_at
			FROM messages m
			JOIN message_recipients r ON r.message_id = m.id
			WHERE m.project_key = ? AND m.id = ? AND r.agent_name = ?`
		args = append(args, in.Agent)
	} else {
		query = `
			SELECT m.id, m.from_agent, m.subject, m.body, m.thread_id, m.importance, m.ack_required, m.created_at, NULL, NULL
			FROM messages m
			WHERE m.project_key = ? AND m.id = ?`
	}

	row := db.QueryRowContext(ctx, query, args...)
	var (
		msg                     Message
		threadID, readAt, ackAt sql.NullString
		body                    string
	)
	err = row.Scan(&msg.ID, &msg.FromAgent, &msg.Subject, &body, &threadID, &msg.Importance, &msg.AckRequired, &msg.CreatedAt, &readAt, &ackAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "query message", Err: err}
	}
	msg.Body = body
	msg.ThreadID = threadID.String
	msg.ReadAt = readAt.String
	msg.AckedAt = ackAt.String

	if in.MarkAsRead && in.Agent != "" {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, &StorageError{Op: "begin", Err: err}
		}
		defer func() { _ = tx.Rollback() }()

		occurredAt := s.now()
		ev := types.MessageReadEvent{
			BaseEvent: types.BaseEvent{Kind: "message_read", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
			MessageID: in.MessageID,
			AgentName: in.Agent,
		}
		if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
			return nil, &StorageError{Op: "mark message read", Err: err}
		}
		if err := tx.Commit(); err != nil {
			return nil, &StorageError{Op: "commit", Err: err}
		}
		if !readAt.Valid {
			msg.ReadAt = occurredAt
		}
	}

	return &msg, nil
}

// AcknowledgeMessageInput is the acknowledge_message operation's input.
type AcknowledgeMessageInput struct {
	ProjectPath string
	MessageID   int64
	Agent       string
}

// AcknowledgeMessageResult is acknowledge_message's return value.
type AcknowledgeMessageResult struct {
	Acknowledged   bool   `json:"acknowledged"`
	AcknowledgedAt string `json:"acknowledged_at"`
}

// AcknowledgeMessage marks (message_id, agent) as acked. Idempotent: a
// second call against an already-acked row returns the original timestamp
// rather than overwriting it.
func (s *Store) AcknowledgeMessage(ctx context.Context, in AcknowledgeMessageInput) (AcknowledgeMessageResult, error) {
	if in.Agent == "" {
		return AcknowledgeMessageResult{}, &ValidationError{Field: "agent", Reason: "must not be empty"}
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return AcknowledgeMessageResult{}, &StorageError{Op: "open project db", Err: err}
	}

	var present int
	if err := db.QueryRowContext(ctx,
		`SELECT 1 FROM message_recipients WHERE message_id = ? AND agent_name = ?`,
		in.MessageID, in.Agent,
	).Scan(&present); err != nil {
		if err == sql.ErrNoRows {
			return AcknowledgeMessageResult{}, &NotFoundError{Kind: "message", Key: in.Agent}
		}
		return AcknowledgeMessageResult{}, &StorageError{Op: "check recipient", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return AcknowledgeMessageResult{}, &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := s.now()
	ev := types.MessageAckedEvent{
		BaseEvent: types.BaseEvent{Kind: "message_acked", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
		MessageID: in.MessageID,
		AgentName: in.Agent,
	}
	if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
		return AcknowledgeMessageResult{}, &StorageError{Op: "acknowledge message", Err: err}
	}

	var ackedAt string
	if err := tx.QueryRow(
		`SELECT acked_at FROM message_recipients WHERE message_id = ? AND agent_name = ?`,
		in.MessageID, in.Agent,
	).Scan(&ackedAt); err != nil {
		return AcknowledgeMessageResult{}, &StorageError{Op: "read acked_at", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return AcknowledgeMessageResult{}, &StorageError{Op: "commit", Err: err}
	}

	return AcknowledgeMessageResult{Acknowledged: true, AcknowledgedAt: ackedAt}, nil
}
