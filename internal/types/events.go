// Package types holds the wire shapes of domain events persisted in the
// event log and replayed into projections.
package types

// BaseEvent is embedded in every event payload so the projector can dispatch
// on Kind without unmarshaling the full payload twice.
type BaseEvent struct {
	Kind       string `json:"kind"`
	ProjectKey string `json:"project_key"`
	OccurredAt string `json:"occurred_at"`
}

// AgentRegisteredEvent records a new or re-registered agent.
type AgentRegisteredEvent struct {
	BaseEvent
	AgentName       string `json:"agent_name"`
	Program         string `json:"program"`
	Model           string `json:"model"`
	TaskDescription string `json:"task_description,omitempty"`
}

// AgentHeartbeatEvent bumps last_seen for an agent.
type AgentHeartbeatEvent struct {
	BaseEvent
	AgentName string `json:"agent_name"`
}

// MessageSentEvent records a multi-recipient send.
type MessageSentEvent struct {
	BaseEvent
	FromAgent   string   `json:"from_agent"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	ThreadID    string   `json:"thread_id,omitempty"`
	Importance  string   `json:"importance"`
	AckRequired bool     `json:"ack_required"`
}

// MessageReadEvent marks a (message, recipient) pair as read.
type MessageReadEvent struct {
	BaseEvent
	MessageID int64  `json:"message_id"`
	AgentName string `json:"agent_name"`
}

// MessageAckedEvent marks a (message, recipient) pair as acknowledged.
type MessageAckedEvent struct {
	BaseEvent
	MessageID int64  `json:"message_id"`
	AgentName string `json:"agent_name"`
}

// FileReservedEvent records a batch reservation over one or more paths.
type FileReservedEvent struct {
	BaseEvent
	AgentName  string   `json:"agent_name"`
	Paths      []string `json:"paths"`
	Exclusive  bool     `json:"exclusive"`
	Reason     string   `json:"reason,omitempty"`
	TTLSeconds int64    `json:"ttl_seconds"`
	ExpiresAt  string   `json:"expires_at"`
}

// FileReleasedEvent records a release of one or more reservation rows.
type FileReleasedEvent struct {
	BaseEvent
	AgentName      string   `json:"agent_name"`
	ReservationIDs []int64  `json:"reservation_ids,omitempty"`
	Paths          []string `json:"paths,omitempty"`
}

// ReservationExpiredEvent is emitted lazily at query time for audit trail
// when a reservation is observed to have passed its expires_at.
type ReservationExpiredEvent struct {
	BaseEvent
	ReservationID int64 `json:"reservation_id"`
}
