package rpc

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/hivemail/hivemail/internal/daemon"
	"github.com/hivemail/hivemail/internal/hive"
)

// SendMessageParams is the send_message request payload.
type SendMessageParams struct {
	ProjectPath string   `json:"project_path"`
	From        string   `json:"from"`
	To          []string `json:"to"`
	Subject     string   `json:"subject,omitempty"`
	Body        string   `json:"body,omitempty"`
	ThreadID    string   `json:"thread_id,omitempty"`
	Importance  string   `json:"importance,omitempty"`
	AckRequired bool     `json:"ack_required,omitempty"`
}

// MailboxHandler implements send_message, get_inbox, read_message and
// acknowledge_message.
type MailboxHandler struct {
	store       *hive.Store
	broadcaster *daemon.Broadcaster
}

// NewMailboxHandler creates a new mailbox handler. broadcaster may be nil,
// in which case sends never push a notification (the message is still
// durably recorded and visible on the next poll).
func NewMailboxHandler(store *hive.Store, broadcaster *daemon.Broadcaster) *MailboxHandler {
	return &MailboxHandler{store: store, broadcaster: broadcaster}
}

// HandleSend handles the send_message request.
func (h *MailboxHandler) HandleSend(ctx context.Context, params json.RawMessage) (any, error) {
	var p SendMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	result, err := h.store.SendMessage(ctx, hive.SendMessageInput{
		ProjectPath: p.ProjectPath,
		From:        p.From,
		To:          p.To,
		Subject:     p.Subject,
		Body:        p.Body,
		ThreadID:    p.ThreadID,
		Importance:  p.Importance,
		AckRequired: p.AckRequired,
	})
	if err != nil {
		return nil, err
	}

	if h.broadcaster != nil {
		notification := &daemon.Notification{
			Method: "notification.mail",
			Params: daemon.NotifyParams{
				MessageID: strconv.FormatInt(result.MessageID, 10),
				ThreadID:  result.ThreadID,
				From:      p.From,
				Subject:   p.Subject,
			},
		}
		for _, recipient := range p.To {
			_ = h.broadcaster.Notify(recipient, notification)
		}
	}

	return result, nil
}

// GetInboxParams is the get_inbox request payload.
type GetInboxParams struct {
	ProjectPath   string `json:"project_path"`
	Agent         string `json:"agent"`
	Limit         int    `json:"limit,omitempty"`
	UrgentOnly    bool   `json:"urgent_only,omitempty"`
	UnreadOnly    bool   `json:"unread_only,omitempty"`
	IncludeBodies bool   `json:"include_bodies,omitempty"`
}

// HandleInbox handles the get_inbox request.
func (h *MailboxHandler) HandleInbox(ctx context.Context, params json.RawMessage) (any, error) {
	var p GetInboxParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return h.store.GetInbox(ctx, hive.GetInboxInput{
		ProjectPath:   p.ProjectPath,
		Agent:         p.Agent,
		Limit:         p.Limit,
		UrgentOnly:    p.UrgentOnly,
		UnreadOnly:    p.UnreadOnly,
		IncludeBodies: p.IncludeBodies,
	})
}

// ReadMessageParams is the read_message request payload.
type ReadMessageParams struct {
	ProjectPath string `json:"project_path"`
	MessageID   int64  `json:"message_id"`
	Agent       string `json:"agent,omitempty"`
	MarkAsRead  bool   `json:"mark_as_read,omitempty"`
}

// HandleRead handles the read_message request. A nil *hive.Message is a
// valid, successful result: the message doesn't exist, or the caller isn't
// one of its recipients.
func (h *MailboxHandler) HandleRead(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReadMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return h.store.ReadMessage(ctx, hive.ReadMessageInput{
		ProjectPath: p.ProjectPath,
		MessageID:   p.MessageID,
		Agent:       p.Agent,
		MarkAsRead:  p.MarkAsRead,
	})
}

// AcknowledgeMessageParams is the acknowledge_message request payload.
type AcknowledgeMessageParams struct {
	ProjectPath string `json:"project_path"`
	MessageID   int64  `json:"message_id"`
	Agent       string `json:"agent"`
}

// HandleAcknowledge handles the acknowledge_message request.
func (h *MailboxHandler) HandleAcknowledge(ctx context.Context, params json.RawMessage) (any, error) {
	var p AcknowledgeMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return h.store.AcknowledgeMessage(ctx, hive.AcknowledgeMessageInput{
		ProjectPath: p.ProjectPath,
		MessageID:   p.MessageID,
		Agent:       p.Agent,
	})
}
