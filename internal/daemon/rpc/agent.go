package rpc

import (
	"context"
	"encoding/json"

	"github.com/hivemail/hivemail/internal/hive"
)

// InitAgentParams is the init_agent request payload.
type InitAgentParams struct {
	ProjectPath     string `json:"project_path"`
	AgentName       string `json:"agent_name,omitempty"`
	Program         string `json:"program,omitempty"`
	Model           string `json:"model,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

// AgentHandler implements the init_agent RPC method.
type AgentHandler struct {
	store *hive.Store
}

// NewAgentHandler creates a new init_agent handler.
func NewAgentHandler(store *hive.Store) *AgentHandler {
	return &AgentHandler{store: store}
}

// Handle handles the init_agent request.
func (h *AgentHandler) Handle(ctx context.Context, params json.RawMessage) (any, error) {
	var p InitAgentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return h.store.InitAgent(ctx, hive.InitAgentInput{
		ProjectPath:     p.ProjectPath,
		AgentName:       p.AgentName,
		Program:         p.Program,
		Model:           p.Model,
		TaskDescription: p.TaskDescription,
	})
}
