package cli

import (
	"fmt"

	"github.com/hivemail/hivemail/internal/config"
	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
)

// ReserveOptions carries the arguments for a reserve_files call.
type ReserveOptions struct {
	RepoPath   string
	Paths      []string
	Reason     string
	Exclusive  *bool
	TTLSeconds int64
	Force      bool
}

// ReserveFiles claims one or more file paths on behalf of the project's
// registered agent.
func ReserveFiles(opts ReserveOptions) (*hive.ReserveFilesResult, error) {
	id, err := config.Load(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(opts.RepoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.ReserveFilesResult
	err = client.Call("reserve_files", rpc.ReserveFilesParams{
		ProjectPath: opts.RepoPath,
		Agent:       id.AgentName,
		Paths:       opts.Paths,
		Reason:      opts.Reason,
		Exclusive:   opts.Exclusive,
		TTLSeconds:  opts.TTLSeconds,
		Force:       opts.Force,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("reserve_files: %w", err)
	}
	return &result, nil
}

// ReleaseOptions carries the arguments for a release_files call.
type ReleaseOptions struct {
	RepoPath       string
	Paths          []string
	ReservationIDs []int64
}

// ReleaseFiles releases previously held reservations by path or ID.
func ReleaseFiles(opts ReleaseOptions) (*hive.ReleaseFilesResult, error) {
	id, err := config.Load(opts.RepoPath)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(DefaultSocketPath(opts.RepoPath))
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = client.Close() }()

	var result hive.ReleaseFilesResult
	err = client.Call("release_files", rpc.ReleaseFilesParams{
		ProjectPath:    opts.RepoPath,
		Agent:          id.AgentName,
		Paths:          opts.Paths,
		ReservationIDs: opts.ReservationIDs,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("release_files: %w", err)
	}
	return &result, nil
}
