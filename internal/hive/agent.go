package hive

import (
	"context"

	"github.com/hivemail/hivemail/internal/namegen"
	"github.com/hivemail/hivemail/internal/types"
)

// AgentContext is the result of InitAgent: the project and agent identity a
// caller uses on every subsequent operation.
type AgentContext struct {
	ProjectKey string `json:"project_key"`
	Agent      string `json:"agent"`
}

// InitAgentInput is the init_agent operation's input.
type InitAgentInput struct {
	ProjectPath     string
	AgentName       string // optional; generated if empty
	Program         string
	Model           string
	TaskDescription string
}

// InitAgent registers (or re-registers) an agent in the project, generating
// a name from the adjective+noun vocabulary when none is supplied. A name
// collision with an existing agent is not an error: registration upserts.
func (s *Store) InitAgent(ctx context.Context, in InitAgentInput) (AgentContext, error) {
	if in.ProjectPath == "" {
		return AgentContext{}, &ValidationError{Field: "project_path", Reason: "must not be empty"}
	}

	agentName := in.AgentName
	if agentName == "" {
		agentName = namegen.Generate()
	} else if !namegen.Valid(agentName) {
		return AgentContext{}, &ValidationError{Field: "agent", Reason: "must be alphanumeric/underscore and not reserved"}
	}

	db, err := s.projectDB(in.ProjectPath)
	if err != nil {
		return AgentContext{}, &StorageError{Op: "open project db", Err: err}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return AgentContext{}, &StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	occurredAt := s.now()
	ev := types.AgentRegisteredEvent{
		BaseEvent:       types.BaseEvent{Kind: "agent_registered", ProjectKey: in.ProjectPath, OccurredAt: occurredAt},
		AgentName:       agentName,
		Program:         in.Program,
		Model:           in.Model,
		TaskDescription: in.TaskDescription,
	}

	if _, err := appendAndApply(tx, in.ProjectPath, ev.Kind, occurredAt, ev); err != nil {
		return AgentContext{}, &StorageError{Op: "register agent", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return AgentContext{}, &StorageError{Op: "commit", Err: err}
	}

	return AgentContext{ProjectKey: in.ProjectPath, Agent: agentName}, nil
}
