package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hivemail/hivemail/internal/config"
	"github.com/hivemail/hivemail/internal/hive"
	"github.com/hivemail/hivemail/internal/paths"
)

// InitOptions contains options for initializing a project and registering
// an agent in it.
type InitOptions struct {
	RepoPath        string
	AgentName       string
	Program         string
	Model           string
	TaskDescription string
}

// InitResult is the outcome of Init.
type InitResult struct {
	Agent string `json:"agent"`
}

// Init creates the .hive/ directory if needed, registers the agent directly
// against the project's store, and persists the resulting identity locally
// so later commands (and the daemon, once started) don't need to repeat it.
// It does not require a daemon to be running: the store it opens is the
// same file-backed database the daemon will later serve over its socket.
func Init(opts InitOptions) (*InitResult, error) {
	hiveDir := paths.HiveDir(opts.RepoPath)
	if err := os.MkdirAll(hiveDir, 0750); err != nil {
		return nil, fmt.Errorf("create .hive/: %w", err)
	}
	if err := updateGitignore(opts.RepoPath); err != nil {
		return nil, fmt.Errorf("update .gitignore: %w", err)
	}

	store := hive.NewStore()
	defer func() { _ = store.Close() }()

	agentCtx, err := store.InitAgent(context.Background(), hive.InitAgentInput{
		ProjectPath:     opts.RepoPath,
		AgentName:       opts.AgentName,
		Program:         opts.Program,
		Model:           opts.Model,
		TaskDescription: opts.TaskDescription,
	})
	if err != nil {
		return nil, fmt.Errorf("init_agent: %w", err)
	}

	if err := config.Save(opts.RepoPath, config.AgentIdentity{
		Version:         1,
		ProjectKey:      agentCtx.ProjectKey,
		AgentName:       agentCtx.Agent,
		Program:         opts.Program,
		Model:           opts.Model,
		TaskDescription: opts.TaskDescription,
		RegisteredAt:    time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}

	return &InitResult{Agent: agentCtx.Agent}, nil
}

// updateGitignore adds the .hive/ data directory to .gitignore.
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")
	entries := []string{
		"# Hive Mail data directory",
		".hive/",
	}

	var existing []byte
	var err error
	if _, statErr := os.Stat(gitignorePath); statErr == nil {
		existing, err = os.ReadFile(gitignorePath) //nolint:gosec // G304 - path derived from repo root
		if err != nil {
			return err
		}
	}

	existingLines := strings.Split(string(existing), "\n")
	needsUpdate := false
	for _, entry := range entries {
		if strings.HasPrefix(entry, "#") {
			continue
		}
		found := false
		for _, line := range existingLines {
			if strings.TrimSpace(line) == entry {
				found = true
				break
			}
		}
		if !found {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) //nolint:gosec // G304 - path derived from repo root
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	if len(existing) > 0 {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	for _, entry := range entries {
		if _, err := f.WriteString(entry + "\n"); err != nil {
			return err
		}
	}
	return nil
}
