// Command hivemaild is the Hive Mail daemon: it owns the project's
// database handle and serves the eight coordination operations over a
// Unix domain socket. It is normally started by "hivemail daemon start",
// which execs the hivemaild binary found in the same directory as hivemail,
// passing --repo.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hivemail/hivemail/internal/daemon"
	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
	"github.com/hivemail/hivemail/internal/paths"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
)

func main() {
	repoFlag := flag.String("repo", ".", "repository path to serve")
	flag.Parse()

	if err := run(*repoFlag); err != nil {
		fmt.Fprintf(os.Stderr, "hivemaild: %v\n", err)
		os.Exit(1)
	}
}

func run(repoPath string) error {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolve repo path: %w", err)
	}

	varDir := paths.VarDir(absPath)
	if err := os.MkdirAll(varDir, 0750); err != nil {
		return fmt.Errorf("create var directory: %w", err)
	}

	store := hive.NewStore()
	defer func() { _ = store.Close() }()

	socketPath := filepath.Join(varDir, "hive.sock")
	server := daemon.NewServer(socketPath)

	wsRegistry := daemon.NewWSRegistry()
	wsServer := daemon.NewWSServer(wsRegistry)
	broadcaster := daemon.NewBroadcaster(daemon.NewClientRegistry()).WithWebSocket(wsRegistry)

	healthHandler := rpc.NewHealthHandler(store)
	server.RegisterHandler("check_health", healthHandler.Handle)

	agentHandler := rpc.NewAgentHandler(store)
	server.RegisterHandler("init_agent", agentHandler.Handle)

	mailboxHandler := rpc.NewMailboxHandler(store, broadcaster)
	server.RegisterHandler("send_message", mailboxHandler.HandleSend)
	server.RegisterHandler("get_inbox", mailboxHandler.HandleInbox)
	server.RegisterHandler("read_message", mailboxHandler.HandleRead)
	server.RegisterHandler("acknowledge_message", mailboxHandler.HandleAcknowledge)

	reservationHandler := rpc.NewReservationHandler(store)
	server.RegisterHandler("reserve_files", reservationHandler.HandleReserve)
	server.RegisterHandler("release_files", reservationHandler.HandleRelease)

	fmt.Fprintf(os.Stderr, "hivemaild %s starting\n", Version)
	fmt.Fprintf(os.Stderr, "  repo:   %s\n", absPath)
	fmt.Fprintf(os.Stderr, "  socket: %s\n", socketPath)

	pidFile := filepath.Join(varDir, "hive.pid")
	lockFile := filepath.Join(varDir, "hive.lock")
	wsPortFile := filepath.Join(varDir, "ws.port")
	lifecycle := daemon.NewLifecycle(server, pidFile, wsServer, wsPortFile)
	lifecycle.SetRepoInfo(absPath, socketPath)
	lifecycle.SetLockFile(lockFile)

	return lifecycle.Run(context.Background())
}
