package cli

import (
	"fmt"

	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
)

// CheckHealth probes the daemon's data store for a project, returning
// row-count statistics alongside the pass/fail result.
func CheckHealth(repoPath string) (*hive.CheckHealthResult, error) {
	client, err := NewClient(DefaultSocketPath(repoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.CheckHealthResult
	err = client.Call("check_health", rpc.HealthParams{ProjectPath: repoPath}, &result)
	if err != nil {
		return nil, fmt.Errorf("check_health: %w", err)
	}
	return &result, nil
}

// OverviewResult combines a data-store health check with an inbox summary
// so "hivemail overview" can show an agent everything relevant to starting
// a session in one call, without running health/inbox separately.
type OverviewResult struct {
	Health       hive.CheckHealthResult `json:"health"`
	UnreadCount  int                    `json:"unread_count"`
	UrgentUnread int                    `json:"urgent_unread"`
	TotalInbox   int                    `json:"total_inbox"`
}

// Overview reports daemon/store health plus the calling agent's unread
// mail counts.
func Overview(repoPath string) (*OverviewResult, error) {
	health, err := CheckHealth(repoPath)
	if err != nil {
		return nil, err
	}

	inbox, err := Inbox(InboxOptions{RepoPath: repoPath, UnreadOnly: true})
	if err != nil {
		return nil, err
	}

	urgent := 0
	for _, m := range inbox.Messages {
		if m.Importance == "urgent" {
			urgent++
		}
	}

	return &OverviewResult{
		Health:       *health,
		UnreadCount:  len(inbox.Messages),
		UrgentUnread: urgent,
		TotalInbox:   inbox.Total,
	}, nil
}

// FormatOverview renders an OverviewResult for terminal output.
func FormatOverview(o *OverviewResult) string {
	status := "healthy"
	if !o.Health.Healthy {
		status = "unhealthy"
	}
	out := fmt.Sprintf("Store:  %s\n", status)
	if o.Health.Stats != nil {
		out += fmt.Sprintf("  events: %d  agents: %d  messages: %d  reservations: %d\n",
			o.Health.Stats.Events, o.Health.Stats.Agents, o.Health.Stats.Messages, o.Health.Stats.Reservations)
	}
	out += fmt.Sprintf("Inbox:  %d unread (%d urgent), %d total\n", o.UnreadCount, o.UrgentUnread, o.TotalInbox)
	return out
}
