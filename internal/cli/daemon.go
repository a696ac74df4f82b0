package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hivemail/hivemail/internal/daemon"
	"github.com/hivemail/hivemail/internal/daemon/rpc"
	"github.com/hivemail/hivemail/internal/hive"
	"github.com/hivemail/hivemail/internal/paths"
)

// DaemonStatusResult contains daemon status information.
type DaemonStatusResult struct {
	Running  bool   `json:"running"`
	Status   string `json:"status"`
	PID      int    `json:"pid,omitempty"`
	RepoPath string `json:"repo_path,omitempty"`
	Healthy  bool   `json:"healthy,omitempty"`
}

// DaemonStart starts the daemon in the background.
func DaemonStart(repoPath string) error {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("failed to resolve repo path: %w", err)
	}
	repoPath = absPath

	varDir := paths.VarDir(repoPath)
	pidPath := filepath.Join(varDir, "hive.pid")
	socketPath := filepath.Join(varDir, "hive.sock")

	running, pidInfo, err := daemon.CheckPIDFileJSON(pidPath)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		if daemon.ValidatePIDRepo(pidInfo, repoPath) {
			return fmt.Errorf("daemon is already running (PID %d) for repo %s", pidInfo.PID, repoPath)
		}
		fmt.Fprintf(os.Stderr, "WARNING: Daemon PID %d is running for different repo %s, proceeding\n",
			pidInfo.PID, pidInfo.RepoPath)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// The daemon is the hivemaild binary installed beside this CLI.
	daemonBin := filepath.Join(filepath.Dir(executable), "hivemaild")
	cmd := exec.Command(daemonBin, "--repo", repoPath) //nolint:gosec // path derived from os.Executable(), repoPath validated above
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	// Do NOT call cmd.Wait() — the parent is about to exit and a goroutine
	// calling Wait() will be killed mid-syscall, leaving the child in an
	// uninterruptible state on macOS that can't be force-killed.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release daemon process: %w", err)
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("timeout waiting for daemon to start")
		case <-ticker.C:
			if _, err := os.Stat(socketPath); err == nil {
				return nil
			}
		}
	}
}

// DaemonStop stops the daemon gracefully.
func DaemonStop(repoPath string) error {
	pidPath := filepath.Join(paths.VarDir(repoPath), "hive.pid")

	running, pidInfo, err := daemon.CheckPIDFileJSON(pidPath)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	process, err := os.FindProcess(pidInfo.PID)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pidInfo.PID, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pidInfo.PID, err)
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("timeout waiting for daemon to stop (PID %d still running)", pidInfo.PID)
		case <-ticker.C:
			running, _, _ := daemon.CheckPIDFileJSON(pidPath)
			if !running {
				return nil
			}
		}
	}
}

// DaemonStatus checks the daemon status.
func DaemonStatus(repoPath string) (*DaemonStatusResult, error) {
	varDir := paths.VarDir(repoPath)
	pidPath := filepath.Join(varDir, "hive.pid")
	socketPath := filepath.Join(varDir, "hive.sock")

	running, pidInfo, err := daemon.CheckPIDFileJSON(pidPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check daemon status: %w", err)
	}

	status := "stopped"
	if running {
		status = "running"
	}

	result := &DaemonStatusResult{
		Running:  running,
		Status:   status,
		PID:      pidInfo.PID,
		RepoPath: pidInfo.RepoPath,
	}

	if running {
		if _, err := os.Stat(socketPath); err == nil {
			client, err := NewClient(socketPath)
			if err == nil {
				defer func() { _ = client.Close() }()

				var health hive.CheckHealthResult
				if err := client.Call("check_health", rpc.HealthParams{ProjectPath: repoPath}, &health); err == nil {
					result.Healthy = health.Healthy
				}
			}
		}
	}

	return result, nil
}

// DaemonRestart restarts the daemon (stop + start).
func DaemonRestart(repoPath string) error {
	_ = DaemonStop(repoPath)
	time.Sleep(500 * time.Millisecond)
	return DaemonStart(repoPath)
}

// FormatDaemonStatus formats the daemon status for display.
func FormatDaemonStatus(result *DaemonStatusResult) string {
	if !result.Running {
		return "Daemon:   not running\n"
	}
	status := fmt.Sprintf("Daemon:   running (PID %d)\n", result.PID)
	if result.Healthy {
		status += "Store:    healthy\n"
	}
	return status
}
