package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "workflow-state.json"), zap.NewNop())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	m.Save(&WorkflowState{
		ActiveWorkflowID: "tdd",
		ActivePhaseIndex: 1,
		PhaseProgress: map[string][]string{
			"red": {"wrote test", "confirmed failure"},
		},
	})

	got := m.Load()
	require.NotNil(t, got)
	assert.Equal(t, "tdd", got.ActiveWorkflowID)
	assert.Equal(t, 1, got.ActivePhaseIndex)
	assert.Equal(t, []string{"wrote test", "confirmed failure"}, got.PhaseProgress["red"])
	assert.WithinDuration(t, time.Now(), got.LastUpdated, time.Minute)
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestManager(t)
	assert.Nil(t, m.Load())
}

func TestLoadStaleStateDeletesFile(t *testing.T) {
	m := newTestManager(t)

	past := time.Now().Add(-48 * time.Hour)
	m.now = func() time.Time { return past }
	m.Save(&WorkflowState{ActiveWorkflowID: "debug"})

	m.now = time.Now
	assert.Nil(t, m.Load())

	_, err := os.Stat(m.Path())
	assert.True(t, os.IsNotExist(err), "stale file should be removed")

	// Repeated load stays absent.
	assert.Nil(t, m.Load())
}

func TestLoadFreshStateWithin24h(t *testing.T) {
	m := newTestManager(t)

	recent := time.Now().Add(-23 * time.Hour)
	m.now = func() time.Time { return recent }
	m.Save(&WorkflowState{ActiveWorkflowID: "debug"})

	m.now = time.Now
	got := m.Load()
	require.NotNil(t, got)
	assert.Equal(t, "debug", got.ActiveWorkflowID)
}

func TestLoadCorruptFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte("{not json"), 0o644))

	assert.Nil(t, m.Load())
	_, err := os.Stat(m.Path())
	assert.True(t, os.IsNotExist(err), "corrupt file should be removed")
}

func TestLoadNilPhaseProgress(t *testing.T) {
	m := newTestManager(t)
	m.Save(&WorkflowState{ActiveWorkflowID: "tdd"})

	got := m.Load()
	require.NotNil(t, got)
	assert.NotNil(t, got.PhaseProgress)
}

func TestClearIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	m.Clear()
	m.Clear()

	m.Save(&WorkflowState{ActiveWorkflowID: "tdd"})
	m.Clear()
	assert.Nil(t, m.Load())
}

func TestSaveIsLastWriteWins(t *testing.T) {
	m := newTestManager(t)
	m.Save(&WorkflowState{ActiveWorkflowID: "tdd", PhaseProgress: map[string][]string{"red": {"a"}}})
	m.Save(&WorkflowState{ActiveWorkflowID: "debug"})

	got := m.Load()
	require.NotNil(t, got)
	assert.Equal(t, "debug", got.ActiveWorkflowID)
	assert.Empty(t, got.PhaseProgress["red"], "saves replace, never merge")
}

func TestSaveReportsErrors(t *testing.T) {
	// Point at a path whose parent is a file, so MkdirAll fails.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	m := NewManager(filepath.Join(blocker, "state.json"), zap.NewNop())
	assert.Error(t, m.Save(&WorkflowState{ActiveWorkflowID: "tdd"}))
	assert.Nil(t, m.Load())
}
