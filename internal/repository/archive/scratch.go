package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/gvsds/jar-matrix/internal/logger"
)

// scratchPrefix starts every scratch directory name; the owner pid follows it.
const scratchPrefix = "jar-matrix-"

// newScratchDir creates a unique scratch directory named jar-matrix-<pid>-<random> under root.
func newScratchDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}

	if err := os.MkdirAll(root, DefaultDirMode); err != nil {
		return "", err
	}

	return os.MkdirTemp(root, scratchPrefix+strconv.Itoa(os.Getpid())+"-")
}

// scratchOwner extracts the owner pid from a scratch directory name.
func scratchOwner(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, scratchPrefix)
	if !ok {
		return 0, false
	}

	pidPart, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, false
	}

	pid, err := strconv.Atoi(pidPart)
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

// CleanStale removes scratch directories under root whose owning process is gone.
// Such directories are left behind when a run is killed mid-version.
// It returns the number of directories removed.
func CleanStale(ctx context.Context, root string) (int, error) {
	if root == "" {
		root = os.TempDir()
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("list scratch root: %w", err)
	}

	var (
		removed = 0
		self    = os.Getpid()
	)

	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}

		pid, ok := scratchOwner(entry.Name())
		if !ok || pid == self {
			continue
		}

		process, findErr := ps.FindProcess(pid)
		if findErr != nil {
			logger.WarnKV(ctx, "Unable to check scratch directory owner", "pid", pid, "error", findErr)
			continue
		}

		if process != nil {
			continue
		}

		path := filepath.Join(root, entry.Name())
		if removeErr := os.RemoveAll(path); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove stale scratch directory", "path", path, "error", removeErr)
			continue
		}

		logger.InfoKV(ctx, "Removed stale scratch directory", "path", path, "owner_pid", pid)

		removed++
	}

	return removed, nil
}
