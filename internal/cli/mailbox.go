package cli

import (
	"fmt"
	"strings"

	"github.com/hivemail/hivemail/internal/config"
	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
)

// SendOptions carries the arguments for a send_message call.
type SendOptions struct {
	RepoPath    string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
	Importance  string
	AckRequired bool
}

// Send delivers a message from the project's registered agent to one or
// more recipients, over the running daemon.
func Send(opts SendOptions) (*hive.SendMessageResult, error) {
	id, err := config.Load(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(opts.RepoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.SendMessageResult
	err = client.Call("send_message", rpc.SendMessageParams{
		ProjectPath: opts.RepoPath,
		From:        id.AgentName,
		To:          opts.To,
		Subject:     opts.Subject,
		Body:        opts.Body,
		ThreadID:    opts.ThreadID,
		Importance:  opts.Importance,
		AckRequired: opts.AckRequired,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("send_message: %w", err)
	}
	return &result, nil
}

// InboxOptions carries the arguments for a get_inbox call.
type InboxOptions struct {
	RepoPath      string
	Limit         int
	UrgentOnly    bool
	UnreadOnly    bool
	IncludeBodies bool
}

// Inbox lists messages addressed to the project's registered agent.
func Inbox(opts InboxOptions) (*hive.GetInboxResult, error) {
	id, err := config.Load(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(opts.RepoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.GetInboxResult
	err = client.Call("get_inbox", rpc.GetInboxParams{
		ProjectPath:   opts.RepoPath,
		Agent:         id.AgentName,
		Limit:         opts.Limit,
		UrgentOnly:    opts.UrgentOnly,
		UnreadOnly:    opts.UnreadOnly,
		IncludeBodies: opts.IncludeBodies,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("get_inbox: %w", err)
	}
	return &result, nil
}

// FormatInboxTable renders an inbox listing sized to the controlling
// terminal: the subject column is truncated to whatever space remains
// after the fixed-width id/from/importance columns; when the output
// supports color, urgent rows are highlighted and already-read rows are
// dimmed. Piped or
// non-TTY output (scripts, CI logs) gets a plain fixed-width table.
func FormatInboxTable(result *hive.GetInboxResult) string {
	if len(result.Messages) == 0 {
		return "Inbox is empty.\n"
	}

	const idWidth, fromWidth, impWidth = 6, 14, 8
	width := terminalWidth()
	subjectWidth := width - idWidth - fromWidth - impWidth - 4
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s %-*s %-*s %s", idWidth, "ID", fromWidth, "FROM", impWidth, "IMPORTANCE", "SUBJECT")
	b.WriteString(colorize(ansiDim, header))
	b.WriteString("\n")

	for _, m := range result.Messages {
		row := fmt.Sprintf("%-*d %-*s %-*s %s",
			idWidth, m.ID,
			fromWidth, truncate(m.FromAgent, fromWidth),
			impWidth, m.Importance,
			truncate(m.Subject, subjectWidth))
		if m.Importance == "urgent" {
			row = colorize(ansiYellow+ansiBold, row)
		} else if m.ReadAt != "" {
			row = colorize(ansiDim, row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	if result.Total > len(result.Messages) {
		b.WriteString(colorize(ansiDim, fmt.Sprintf("(%d of %d total)\n", len(result.Messages), result.Total)))
	}

	return b.String()
}

// ReadMessage fetches a single message by ID, optionally marking it read.
func ReadMessage(repoPath string, messageID int64, markAsRead bool) (*hive.Message, error) {
	id, err := config.Load(repoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(repoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result *hive.Message
	err = client.Call("read_message", rpc.ReadMessageParams{
		ProjectPath: repoPath,
		MessageID:   messageID,
		Agent:       id.AgentName,
		MarkAsRead:  markAsRead,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("read_message: %w", err)
	}
	return result, nil
}

// AcknowledgeMessage marks a message as acknowledged by the project's
// registered agent.
func AcknowledgeMessage(repoPath string, messageID int64) (*hive.AcknowledgeMessageResult, error) {
	id, err := config.Load(repoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(repoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.AcknowledgeMessageResult
	err = client.Call("acknowledge_message", rpc.AcknowledgeMessageParams{
		ProjectPath: repoPath,
		MessageID:   messageID,
		Agent:       id.AgentName,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("acknowledge_message: %w", err)
	}
	return &result, nil
}
