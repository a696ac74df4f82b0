package mcp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hivemail/hivemail/internal/config"
)

func registerTestIdentity(t *testing.T, repoPath, agentName string) {
	t.Helper()
	if err := config.Save(repoPath, config.AgentIdentity{
		Version:      1,
		ProjectKey:   repoPath,
		AgentName:    agentName,
		RegisteredAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("save identity: %v", err)
	}
}

func TestNewServer(t *testing.T) {
	repoPath := t.TempDir()
	registerTestIdentity(t, repoPath, "testbot")

	s, err := NewServer(repoPath)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if s.agentName != "testbot" {
		t.Errorf("expected agentName 'testbot', got %q", s.agentName)
	}
	if s.version != "dev" {
		t.Errorf("expected default version 'dev', got %q", s.version)
	}
	if s.server == nil {
		t.Fatal("expected MCP server to be created")
	}
}

func TestNewServerWithVersion(t *testing.T) {
	repoPath := t.TempDir()
	registerTestIdentity(t, repoPath, "testbot")

	s, err := NewServer(repoPath, WithVersion("1.0.0"))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if s.version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", s.version)
	}
}

func TestNewServerNoIdentity(t *testing.T) {
	repoPath := t.TempDir()

	_, err := NewServer(repoPath)
	if err == nil {
		t.Fatal("expected error when no identity has been registered")
	}
}

func TestNewServerSocketPath(t *testing.T) {
	repoPath := t.TempDir()
	registerTestIdentity(t, repoPath, "testbot")

	s, err := NewServer(repoPath)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	expected := filepath.Join(repoPath, ".hive", "var", "hive.sock")
	if s.socketPath != expected {
		t.Errorf("expected socketPath %q, got %q", expected, s.socketPath)
	}
}

func TestNewDaemonClient(t *testing.T) {
	repoPath := t.TempDir()
	registerTestIdentity(t, repoPath, "testbot")

	s, err := NewServer(repoPath)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if _, err := s.newDaemonClient(); err == nil {
		t.Fatal("expected error when no daemon socket exists")
	}
}
