// Package paths resolves the `.hive/` directory that roots a project's
// runtime state: the embedded database, the daemon's Unix socket, its PID
// file, and its port file.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindHiveRoot walks up from startPath looking for a directory containing
// .hive/, mirroring how git traverses parents looking for .git/. Returns
// the directory containing .hive/, or an error if none is found.
func FindHiveRoot(startPath string) (string, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	dir := absPath
	for {
		info, err := os.Stat(filepath.Join(dir, ".hive"))
		if err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .hive/ directory found (searched from %s to /)", absPath)
		}
		dir = parent
	}
}

// HiveDir returns the project-local .hive/ directory for repoPath.
func HiveDir(repoPath string) string {
	return filepath.Join(repoPath, ".hive")
}

// VarDir returns the runtime directory holding hive.sock, hive.pid,
// hive.lock, and ws.port. The database itself, hive.db, sits one level up
// in .hive/.
func VarDir(repoPath string) string {
	return filepath.Join(HiveDir(repoPath), "var")
}
