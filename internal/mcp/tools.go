package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
)

func (s *Server) handleInitAgent(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input InitAgentInput,
) (*gomcp.CallToolResult, InitAgentOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, InitAgentOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.AgentContext
	err = client.Call("init_agent", rpc.InitAgentParams{
		ProjectPath:     s.repoPath,
		AgentName:       input.AgentName,
		Program:         input.Program,
		Model:           input.Model,
		TaskDescription: input.TaskDescription,
	}, &result)
	if err != nil {
		return nil, InitAgentOutput{}, fmt.Errorf("init_agent: %w", err)
	}

	s.agentName = result.Agent
	return nil, InitAgentOutput{Agent: result.Agent}, nil
}

func (s *Server) handleSendMessage(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input SendMessageInput,
) (*gomcp.CallToolResult, SendMessageOutput, error) {
	if len(input.To) == 0 {
		return nil, SendMessageOutput{}, fmt.Errorf("'to' must name at least one recipient")
	}

	client, err := s.newDaemonClient()
	if err != nil {
		return nil, SendMessageOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.SendMessageResult
	err = client.Call("send_message", rpc.SendMessageParams{
		ProjectPath: s.repoPath,
		From:        s.agentName,
		To:          input.To,
		Subject:     input.Subject,
		Body:        input.Body,
		ThreadID:    input.ThreadID,
		Importance:  input.Importance,
		AckRequired: input.AckRequired,
	}, &result)
	if err != nil {
		return nil, SendMessageOutput{}, fmt.Errorf("send_message: %w", err)
	}

	return nil, SendMessageOutput{
		MessageID:      result.MessageID,
		ThreadID:       result.ThreadID,
		RecipientCount: result.RecipientCount,
	}, nil
}

func (s *Server) handleGetInbox(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input GetInboxInput,
) (*gomcp.CallToolResult, GetInboxOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, GetInboxOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.GetInboxResult
	err = client.Call("get_inbox", rpc.GetInboxParams{
		ProjectPath:   s.repoPath,
		Agent:         s.agentName,
		Limit:         input.Limit,
		UrgentOnly:    input.UrgentOnly,
		UnreadOnly:    input.UnreadOnly,
		IncludeBodies: input.IncludeBodies,
	}, &result)
	if err != nil {
		return nil, GetInboxOutput{}, fmt.Errorf("get_inbox: %w", err)
	}

	return nil, GetInboxOutput{Messages: toSummaries(result.Messages), Total: result.Total}, nil
}

func (s *Server) handleReadMessage(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ReadMessageInput,
) (*gomcp.CallToolResult, ReadMessageOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, ReadMessageOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result *hive.Message
	err = client.Call("read_message", rpc.ReadMessageParams{
		ProjectPath: s.repoPath,
		MessageID:   input.MessageID,
		Agent:       s.agentName,
		MarkAsRead:  input.MarkAsRead,
	}, &result)
	if err != nil {
		return nil, ReadMessageOutput{}, fmt.Errorf("read_message: %w", err)
	}
	if result == nil {
		return nil, ReadMessageOutput{}, nil
	}

	summary := toSummary(*result)
	return nil, ReadMessageOutput{Message: &summary}, nil
}

func (s *Server) handleAcknowledgeMessage(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input AcknowledgeMessageInput,
) (*gomcp.CallToolResult, AcknowledgeMessageOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, AcknowledgeMessageOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.AcknowledgeMessageResult
	err = client.Call("acknowledge_message", rpc.AcknowledgeMessageParams{
		ProjectPath: s.repoPath,
		MessageID:   input.MessageID,
		Agent:       s.agentName,
	}, &result)
	if err != nil {
		return nil, AcknowledgeMessageOutput{}, fmt.Errorf("acknowledge_message: %w", err)
	}

	return nil, AcknowledgeMessageOutput{Acknowledged: result.Acknowledged, AcknowledgedAt: result.AcknowledgedAt}, nil
}

func (s *Server) handleReserveFiles(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ReserveFilesInput,
) (*gomcp.CallToolResult, ReserveFilesOutput, error) {
	if len(input.Paths) == 0 {
		return nil, ReserveFilesOutput{}, fmt.Errorf("'paths' must name at least one path")
	}

	client, err := s.newDaemonClient()
	if err != nil {
		return nil, ReserveFilesOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.ReserveFilesResult
	err = client.Call("reserve_files", rpc.ReserveFilesParams{
		ProjectPath: s.repoPath,
		Agent:       s.agentName,
		Paths:       input.Paths,
		Reason:      input.Reason,
		Exclusive:   input.Exclusive,
		TTLSeconds:  input.TTLSeconds,
		Force:       input.Force,
	}, &result)
	if err != nil {
		return nil, ReserveFilesOutput{}, fmt.Errorf("reserve_files: %w", err)
	}

	conflicts := make([]ConflictSummary, 0, len(result.Conflicts))
	for _, c := range result.Conflicts {
		conflicts = append(conflicts, ConflictSummary{Path: c.Path, Holder: c.Holder, Pattern: c.Pattern})
	}

	return nil, ReserveFilesOutput{Granted: result.Granted, Conflicts: conflicts}, nil
}

func (s *Server) handleReleaseFiles(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ReleaseFilesInput,
) (*gomcp.CallToolResult, ReleaseFilesOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, ReleaseFilesOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.ReleaseFilesResult
	err = client.Call("release_files", rpc.ReleaseFilesParams{
		ProjectPath:    s.repoPath,
		Agent:          s.agentName,
		Paths:          input.Paths,
		ReservationIDs: input.ReservationIDs,
	}, &result)
	if err != nil {
		return nil, ReleaseFilesOutput{}, fmt.Errorf("release_files: %w", err)
	}

	return nil, ReleaseFilesOutput{ReleasedCount: result.ReleasedCount, ReleasedAt: result.ReleasedAt}, nil
}

func (s *Server) handleCheckHealth(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input CheckHealthInput,
) (*gomcp.CallToolResult, CheckHealthOutput, error) {
	client, err := s.newDaemonClient()
	if err != nil {
		return nil, CheckHealthOutput{}, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.CheckHealthResult
	if err := client.Call("check_health", rpc.HealthParams{ProjectPath: s.repoPath}, &result); err != nil {
		return nil, CheckHealthOutput{}, fmt.Errorf("check_health: %w", err)
	}

	out := CheckHealthOutput{Healthy: result.Healthy}
	if result.Stats != nil {
		out.Stats = &HealthStats{
			Events:       result.Stats.Events,
			Agents:       result.Stats.Agents,
			Messages:     result.Stats.Messages,
			Reservations: result.Stats.Reservations,
		}
	}
	return nil, out, nil
}

func toSummary(m hive.Message) MessageSummary {
	return MessageSummary{
		ID:          m.ID,
		FromAgent:   m.FromAgent,
		Subject:     m.Subject,
		Body:        m.Body,
		ThreadID:    m.ThreadID,
		Importance:  m.Importance,
		AckRequired: m.AckRequired,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
		AckedAt:     m.AckedAt,
	}
}

func toSummaries(messages []hive.Message) []MessageSummary {
	out := make([]MessageSummary, 0, len(messages))
	for _, m := range messages {
		out = append(out, toSummary(m))
	}
	return out
}
