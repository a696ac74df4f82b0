package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hivemail/hivemail/internal/cli"
	"github.com/hivemail/hivemail/internal/config"
)

// Server is the Hive Mail MCP server that exposes the substrate's 8
// operations as MCP tools for a single registered agent.
type Server struct {
	repoPath   string
	socketPath string
	agentName  string
	version    string
	server     *gomcp.Server
}

// Option configures the MCP server.
type Option func(*Server)

// WithVersion sets the server version string.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new MCP server for the given repository path. It
// resolves the agent identity persisted by a prior 'hivemail init' and the
// daemon's Unix socket path, then registers every mailbox tool bound to
// that identity.
func NewServer(repoPath string, opts ...Option) (*Server, error) {
	id, err := config.Load(repoPath)
	if err != nil {
		return nil, fmt.Errorf("load agent identity: %w", err)
	}

	s := &Server{
		repoPath:   repoPath,
		socketPath: cli.DefaultSocketPath(repoPath),
		agentName:  id.AgentName,
		version:    "dev",
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "hivemail",
			Version: s.version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on stdin/stdout. It blocks until the client
// disconnects or the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// newDaemonClient creates a new per-call daemon RPC client. cli.Client is
// not concurrent-safe, so every tool call gets a fresh connection.
func (s *Server) newDaemonClient() (*cli.Client, error) {
	return cli.NewClient(s.socketPath)
}

// registerTools registers all MCP tool handlers with the server.
func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "init_agent",
		Description: "Register this agent in the project's mail substrate, generating a name if none is given",
	}, s.handleInitAgent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "send_message",
		Description: "Send a message to one or more agents in this project",
	}, s.handleSendMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_inbox",
		Description: "List this agent's inbox, newest first, capped at 5 messages per call",
	}, s.handleGetInbox)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "read_message",
		Description: "Read a single message by id, scoped to this agent as recipient",
	}, s.handleReadMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "acknowledge_message",
		Description: "Acknowledge a message, idempotently",
	}, s.handleAcknowledgeMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reserve_files",
		Description: "Advisory-lock a set of paths for this agent; always granted, conflicts reported separately",
	}, s.handleReserveFiles)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "release_files",
		Description: "Release reservations held by this agent, by path, by id, or all of them",
	}, s.handleReleaseFiles)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "check_health",
		Description: "Check that the project's mail substrate is reachable and report row counts",
	}, s.handleCheckHealth)
}
