// Package stream owns encoder process lifecycle: spawning, draining,
// teardown, and adaptive segment tracking.
package stream

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the per-job working directory for adaptive output. It is
// exclusively owned by the job's current process incarnation.
type Workspace struct {
	root  string
	jobID uuid.UUID
	dir   string
}

// NewWorkspace creates a workspace handle rooted under root.
func NewWorkspace(root string, jobID uuid.UUID) *Workspace {
	return &Workspace{
		root:  root,
		jobID: jobID,
		dir:   filepath.Join(root, jobID.String()),
	}
}

// Dir returns the working directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Prepare ensures the directory exists and contains no stale segment files
// from a prior incarnation.
func (w *Workspace) Prepare() error {
	info, err := os.Stat(w.dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat workspace: %w", err)
	case !info.IsDir():
		return fmt.Errorf("workspace path %s is not a directory", w.dir)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read workspace: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove stale segment: %w", err)
		}
	}
	return nil
}

// Remove recursively deletes the working directory.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.dir)
}

// Exists reports whether the directory is present.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.dir)
	return err == nil
}
