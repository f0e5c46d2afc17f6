package stream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspacePrepare(t *testing.T) {
	root := t.TempDir()
	jobID := uuid.New()
	ws := NewWorkspace(root, jobID)

	assert.False(t, ws.Exists())
	require.NoError(t, ws.Prepare())
	assert.True(t, ws.Exists())
	assert.Equal(t, filepath.Join(root, jobID.String()), ws.Dir())
}

func TestWorkspacePrepareClearsStaleSegments(t *testing.T) {
	ws := NewWorkspace(t.TempDir(), uuid.New())
	require.NoError(t, ws.Prepare())

	stale := filepath.Join(ws.Dir(), "stream00007.ts")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, ws.Prepare())
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	assert.True(t, ws.Exists())
}

func TestWorkspaceRemove(t *testing.T) {
	ws := NewWorkspace(t.TempDir(), uuid.New())
	require.NoError(t, ws.Prepare())
	require.NoError(t, os.WriteFile(filepath.Join(ws.Dir(), "stream00000.ts"), []byte("x"), 0o644))

	require.NoError(t, ws.Remove())
	assert.False(t, ws.Exists())

	// Removing an absent workspace is a no-op.
	assert.NoError(t, ws.Remove())
}
