// Package state persists the active workflow position so a session can
// be resumed across process restarts.
package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// MaxAge is how long a saved workflow state stays resumable. Anything
// older is discarded at load time so a new session starts fresh instead
// of resuming stale context.
const MaxAge = 24 * time.Hour

// WorkflowState is the persisted workflow position. PhaseProgress maps a
// phase name to the ordered free-text completion notes recorded in it.
// The index is interpreted against an externally supplied workflow
// definition; the store does not validate bounds.
type WorkflowState struct {
	ActiveWorkflowID string              `json:"active_workflow_id"`
	ActivePhaseIndex int                 `json:"active_phase_index"`
	PhaseProgress    map[string][]string `json:"phase_progress"`
	LastUpdated      time.Time           `json:"last_updated"`
}

// Manager owns the workflow-state file. Save failures are logged and
// returned as plain errors so persistence trouble never blocks the
// session from advancing.
type Manager struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a manager backed by the given file path.
func NewManager(path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Save writes the state wholesale (last-write-wins). LastUpdated is
// stamped here so staleness is always measured from the actual write.
// Failures are logged and reported as data; they never panic and the
// caller is free to ignore them.
func (m *Manager) Save(state *WorkflowState) error {
	if state == nil {
		return nil
	}
	state.LastUpdated = m.now()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		m.logger.Warn("failed to create state directory", zap.Error(err))
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		m.logger.Warn("failed to marshal workflow state", zap.Error(err))
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		m.logger.Warn("failed to write workflow state", zap.Error(err))
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		m.logger.Warn("failed to replace workflow state", zap.Error(err))
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Load returns the saved state, or nil if none is usable. A state older
// than MaxAge is deleted and reported absent. Corrupt files are likewise
// removed rather than surfaced as errors.
func (m *Manager) Load() *WorkflowState {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		m.logger.Warn("failed to read workflow state", zap.Error(err))
		return nil
	}

	var state WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		m.logger.Warn("discarding corrupt workflow state", zap.Error(err))
		m.Clear()
		return nil
	}

	if m.now().Sub(state.LastUpdated) > MaxAge {
		m.logger.Info("discarding stale workflow state",
			zap.Time("last_updated", state.LastUpdated))
		m.Clear()
		return nil
	}

	if state.PhaseProgress == nil {
		state.PhaseProgress = make(map[string][]string)
	}
	return &state
}

// Clear removes the state file. A missing file is not an error.
func (m *Manager) Clear() {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("failed to clear workflow state", zap.Error(err))
	}
}

// Path returns the backing file path.
func (m *Manager) Path() string {
	return m.path
}
