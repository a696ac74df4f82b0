// Package config resolves an agent's identity within a project: the name
// it registered under, and the metadata it announced at init_agent time.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hivemail/hivemail/internal/paths"
)

// AgentIdentity is the agent-facing identity persisted after init_agent,
// so a later CLI invocation in the same project doesn't need to re-supply
// program/model/task_description on every call.
type AgentIdentity struct {
	Version         int       `json:"version"`
	ProjectKey      string    `json:"project_key"`
	AgentName       string    `json:"agent_name"`
	Program         string    `json:"program,omitempty"`
	Model           string    `json:"model,omitempty"`
	TaskDescription string    `json:"task_description,omitempty"`
	RegisteredAt    time.Time `json:"registered_at"`
}

const identityFileName = "identity.json"

// identityPath returns .hive/identity.json for repoPath.
func identityPath(repoPath string) string {
	return filepath.Join(paths.HiveDir(repoPath), identityFileName)
}

// Load reads the identity persisted for repoPath by a prior init_agent call.
// Returns an error if no identity has been registered yet.
func Load(repoPath string) (*AgentIdentity, error) {
	data, err := os.ReadFile(identityPath(repoPath)) //nolint:gosec // G304 - path under the project's own .hive/ directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no agent registered in %s; run 'hivemail init' first", repoPath)
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}

	var id AgentIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	return &id, nil
}

// Save persists identity to .hive/identity.json, creating the .hive/
// directory if needed.
func Save(repoPath string, id AgentIdentity) error {
	if err := os.MkdirAll(paths.HiveDir(repoPath), 0750); err != nil {
		return fmt.Errorf("create .hive directory: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if err := os.WriteFile(identityPath(repoPath), data, 0600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
