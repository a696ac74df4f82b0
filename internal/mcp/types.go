package mcp

// InitAgentInput is the input for the init_agent MCP tool.
type InitAgentInput struct {
	AgentName       string `json:"agent_name,omitempty" jsonschema:"Preferred agent name. If omitted, one is generated"`
	Program         string `json:"program,omitempty" jsonschema:"The CLI/tool running this agent, e.g. claude-code"`
	Model           string `json:"model,omitempty" jsonschema:"The model backing this agent"`
	TaskDescription string `json:"task_description,omitempty" jsonschema:"What this agent is working on"`
}

// InitAgentOutput is the output for the init_agent MCP tool.
type InitAgentOutput struct {
	Agent string `json:"agent" jsonschema:"The registered agent name, to use as 'from' on later calls"`
}

// SendMessageInput is the input for the send_message MCP tool.
type SendMessageInput struct {
	To          []string `json:"to" jsonschema:"Recipient agent names"`
	Subject     string   `json:"subject,omitempty" jsonschema:"Message subject"`
	Body        string   `json:"body,omitempty" jsonschema:"Message body"`
	ThreadID    string   `json:"thread_id,omitempty" jsonschema:"Opaque thread identifier to group related messages"`
	Importance  string   `json:"importance,omitempty" jsonschema:"One of low, normal, high, urgent. Default normal"`
	AckRequired bool     `json:"ack_required,omitempty" jsonschema:"Whether recipients are expected to acknowledge"`
}

// SendMessageOutput is the output for the send_message MCP tool.
type SendMessageOutput struct {
	MessageID      int64  `json:"message_id"`
	ThreadID       string `json:"thread_id,omitempty"`
	RecipientCount int    `json:"recipient_count"`
}

// GetInboxInput is the input for the get_inbox MCP tool.
type GetInboxInput struct {
	Limit         int  `json:"limit,omitempty" jsonschema:"Max messages to return, capped at 5"`
	UrgentOnly    bool `json:"urgent_only,omitempty"`
	UnreadOnly    bool `json:"unread_only,omitempty"`
	IncludeBodies bool `json:"include_bodies,omitempty"`
}

// MessageSummary is a single message in get_inbox / read_message output.
type MessageSummary struct {
	ID          int64  `json:"id"`
	FromAgent   string `json:"from_agent"`
	Subject     string `json:"subject"`
	Body        string `json:"body,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
	Importance  string `json:"importance"`
	AckRequired bool   `json:"ack_required"`
	CreatedAt   string `json:"created_at"`
	ReadAt      string `json:"read_at,omitempty"`
	AckedAt     string `json:"acked_at,omitempty"`
}

// GetInboxOutput is the output for the get_inbox MCP tool.
type GetInboxOutput struct {
	Messages []MessageSummary `json:"messages"`
	Total    int              `json:"total"`
}

// ReadMessageInput is the input for the read_message MCP tool.
type ReadMessageInput struct {
	MessageID  int64 `json:"message_id"`
	MarkAsRead bool  `json:"mark_as_read,omitempty"`
}

// ReadMessageOutput is the output for the read_message MCP tool. Message is
// nil when the id doesn't exist or the caller isn't one of its recipients.
type ReadMessageOutput struct {
	Message *MessageSummary `json:"message,omitempty"`
}

// AcknowledgeMessageInput is the input for the acknowledge_message MCP tool.
type AcknowledgeMessageInput struct {
	MessageID int64 `json:"message_id"`
}

// AcknowledgeMessageOutput is the output for the acknowledge_message MCP tool.
type AcknowledgeMessageOutput struct {
	Acknowledged   bool   `json:"acknowledged"`
	AcknowledgedAt string `json:"acknowledged_at"`
}

// ReserveFilesInput is the input for the reserve_files MCP tool.
type ReserveFilesInput struct {
	Paths      []string `json:"paths" jsonschema:"Paths or directory prefixes to reserve"`
	Reason     string   `json:"reason,omitempty"`
	Exclusive  *bool    `json:"exclusive,omitempty" jsonschema:"Default true: report overlapping reservations from other agents as advisory conflicts"`
	TTLSeconds int64    `json:"ttl_seconds,omitempty" jsonschema:"Reservation lifetime in seconds. Default 3600"`
	Force      bool     `json:"force,omitempty"`
}

// ConflictSummary is one advisory overlap reported by reserve_files.
type ConflictSummary struct {
	Path    string `json:"path"`
	Holder  string `json:"holder"`
	Pattern string `json:"pattern"`
}

// ReserveFilesOutput is the output for the reserve_files MCP tool.
type ReserveFilesOutput struct {
	Granted   []string          `json:"granted"`
	Conflicts []ConflictSummary `json:"conflicts,omitempty"`
}

// ReleaseFilesInput is the input for the release_files MCP tool. If both
// Paths and ReservationIDs are empty, every active reservation held by the
// calling agent is released.
type ReleaseFilesInput struct {
	Paths          []string `json:"paths,omitempty"`
	ReservationIDs []int64  `json:"reservation_ids,omitempty"`
}

// ReleaseFilesOutput is the output for the release_files MCP tool.
type ReleaseFilesOutput struct {
	ReleasedCount int    `json:"released_count"`
	ReleasedAt    string `json:"released_at"`
}

// CheckHealthInput is the input for the check_health MCP tool.
type CheckHealthInput struct{}

// HealthStats is the row-count summary in check_health output.
type HealthStats struct {
	Events       int64 `json:"events"`
	Agents       int64 `json:"agents"`
	Messages     int64 `json:"messages"`
	Reservations int64 `json:"reservations"`
}

// CheckHealthOutput is the output for the check_health MCP tool.
type CheckHealthOutput struct {
	Healthy bool         `json:"healthy"`
	Stats   *HealthStats `json:"stats,omitempty"`
}
