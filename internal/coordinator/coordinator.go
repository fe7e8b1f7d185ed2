// Package coordinator orchestrates persistence across the three state
// owners: workflow state, progress stats, and the learning profile.
// Failures are aggregated as data; a failing owner never cancels the
// others and nothing here ever panics across the public contract.
package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/state"
)

const instrumentationName = "github.com/fyrsmithlabs/coachd/internal/coordinator"

// WorkflowOwner persists and restores the workflow position.
type WorkflowOwner interface {
	Save(s *state.WorkflowState) error
	Load() *state.WorkflowState
	Clear()
}

// ProgressOwner is the slice of the progress tracker the coordinator
// drives.
type ProgressOwner interface {
	WaitForLoad()
	Save() error
	GetStats() progress.Stats
	Clear()
}

// ProfileOwner is the slice of the learning engine the coordinator
// drives. GetUserProfile must return a snapshot the caller can read
// without further synchronization.
type ProfileOwner interface {
	LoadUserProfile() error
	SaveUserProfile() error
	GetUserProfile() *learning.UserProfile
}

// SaveResult aggregates a SaveAll. Success is true only when every
// owner saved; individual failures are listed as "owner: cause".
type SaveResult struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

// LoadResult aggregates a LoadAll.
type LoadResult struct {
	WorkflowState  *state.WorkflowState `json:"workflow_state,omitempty"`
	ProgressLoaded bool                 `json:"progress_loaded"`
	LearningLoaded bool                 `json:"learning_loaded"`
}

// StateStatus is a diagnostic snapshot composed from the owners'
// current state.
type StateStatus struct {
	ActiveWorkflow   string    `json:"active_workflow,omitempty"`
	ActivePhaseIndex int       `json:"active_phase_index"`
	TotalSteps       int       `json:"total_steps"`
	TotalWorkflows   int       `json:"total_workflows"`
	CurrentStreak    int       `json:"current_streak"`
	UserID           string    `json:"user_id"`
	ProfileSessions  int       `json:"profile_sessions"`
	LastActive       time.Time `json:"last_active"`
}

// Coordinator fans save/load operations out to the three owners.
type Coordinator struct {
	workflow WorkflowOwner
	progress ProgressOwner
	learning ProfileOwner
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New creates a coordinator over the three owners.
func New(workflow WorkflowOwner, progress ProgressOwner, learning ProfileOwner, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		workflow: workflow,
		progress: progress,
		learning: learning,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
	}
}

// SaveAll saves all three owners concurrently. The joins are
// fail-independent: each save succeeds or fails on its own, order
// across owners is unspecified, and one failure never stops the rest.
func (c *Coordinator) SaveAll(ctx context.Context, workflowID string, phaseIndex int, phaseProgress map[string][]string) SaveResult {
	_, span := c.tracer.Start(ctx, "coordinator.save_all")
	defer span.End()
	span.SetAttributes(attribute.String("workflow_id", workflowID))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)
	report := func(owner string, err error) {
		if err == nil {
			return
		}
		c.logger.Warn("state owner failed to save",
			zap.String("owner", owner), zap.Error(err))
		mu.Lock()
		failures = append(failures, owner+": "+err.Error())
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		report("workflow", c.workflow.Save(&state.WorkflowState{
			ActiveWorkflowID: workflowID,
			ActivePhaseIndex: phaseIndex,
			PhaseProgress:    phaseProgress,
		}))
	}()
	go func() {
		defer wg.Done()
		report("progress", c.progress.Save())
	}()
	go func() {
		defer wg.Done()
		report("learning", c.learning.SaveUserProfile())
	}()
	wg.Wait()

	sort.Strings(failures)
	span.SetAttributes(attribute.Int("failures", len(failures)))
	return SaveResult{Success: len(failures) == 0, Errors: failures}
}

// LoadAll restores all three owners with the same fail-independent
// join as SaveAll.
func (c *Coordinator) LoadAll(ctx context.Context) LoadResult {
	_, span := c.tracer.Start(ctx, "coordinator.load_all")
	defer span.End()

	var (
		wg     sync.WaitGroup
		result LoadResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		result.WorkflowState = c.workflow.Load()
	}()
	go func() {
		defer wg.Done()
		c.progress.WaitForLoad()
		result.ProgressLoaded = true
	}()
	go func() {
		defer wg.Done()
		result.LearningLoaded = c.learning.LoadUserProfile() == nil
	}()
	wg.Wait()

	return result
}

// ClearWorkflow removes only the persisted workflow position, for when
// a workflow finishes but progress and profile must survive.
func (c *Coordinator) ClearWorkflow() {
	c.workflow.Clear()
}

// ClearAll resets workflow state and progress stats. The learning
// profile is durable cross-session identity and deliberately has no
// clear operation.
func (c *Coordinator) ClearAll(ctx context.Context) {
	_, span := c.tracer.Start(ctx, "coordinator.clear_all")
	defer span.End()

	c.workflow.Clear()
	c.progress.Clear()
	c.logger.Info("workflow state and progress stats cleared")
}

// GetStateStatus composes a diagnostic snapshot. Reading the workflow
// position goes through Load, which discards a stale or corrupt state
// file along the way.
func (c *Coordinator) GetStateStatus() StateStatus {
	status := StateStatus{ActivePhaseIndex: -1}

	if ws := c.workflow.Load(); ws != nil {
		status.ActiveWorkflow = ws.ActiveWorkflowID
		status.ActivePhaseIndex = ws.ActivePhaseIndex
	}

	stats := c.progress.GetStats()
	status.TotalSteps = stats.TotalStepsCompleted
	status.TotalWorkflows = stats.TotalWorkflowsCompleted
	status.CurrentStreak = stats.CurrentStreak

	profile := c.learning.GetUserProfile()
	status.UserID = profile.UserID
	status.ProfileSessions = profile.BehaviorMetrics.TotalSessions
	status.LastActive = profile.LastActive

	return status
}
