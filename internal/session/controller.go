// Package session drives the guided-workflow state machine: choosing a
// workflow from free-text context, advancing phases as the completion
// detector fires, and fanning every transition out to progress,
// learning, and persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coachd/internal/celebrate"
	"github.com/fyrsmithlabs/coachd/internal/completion"
	"github.com/fyrsmithlabs/coachd/internal/coordinator"
	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/coachd/internal/session"

var (
	// ErrNoActiveWorkflow is returned when progress is reported with no
	// workflow in flight.
	ErrNoActiveWorkflow = errors.New("no active workflow")
	// ErrWorkflowActive is returned when a start collides with a
	// workflow already in flight.
	ErrWorkflowActive = errors.New("a workflow is already active; abandon it first")
)

// Recommendation is the controller's answer to "what should I do here".
type Recommendation struct {
	WorkflowType string  `json:"workflow_type"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
}

// StartResult describes a freshly started workflow.
type StartResult struct {
	WorkflowType string         `json:"workflow_type"`
	WorkflowName string         `json:"workflow_name"`
	PhaseIndex   int            `json:"phase_index"`
	Phase        workflow.Phase `json:"phase"`
	Message      string         `json:"message,omitempty"`
}

// ProgressResult describes what one reported note caused.
type ProgressResult struct {
	PhaseComplete    bool                 `json:"phase_complete"`
	WorkflowComplete bool                 `json:"workflow_complete"`
	PhaseIndex       int                  `json:"phase_index"`
	Phase            workflow.Phase       `json:"phase"`
	Celebrations     []string             `json:"celebrations,omitempty"`
	Milestones       []progress.Milestone `json:"milestones,omitempty"`
	Hint             *learning.Hint       `json:"hint,omitempty"`
}

// StatusResult is a snapshot of the active workflow, if any.
type StatusResult struct {
	Active       bool           `json:"active"`
	WorkflowType string         `json:"workflow_type,omitempty"`
	WorkflowName string         `json:"workflow_name,omitempty"`
	PhaseIndex   int            `json:"phase_index"`
	TotalPhases  int            `json:"total_phases"`
	Phase        workflow.Phase `json:"phase,omitempty"`
	NotesInPhase int            `json:"notes_in_phase"`
}

type activeWorkflow struct {
	def        *workflow.Workflow
	phaseIndex int
	notes      map[string][]string
	startedAt  time.Time
}

// Controller owns the active workflow. One controller manages at most
// one workflow at a time, mirroring the single persisted position.
type Controller struct {
	catalog *workflow.Catalog
	coord   *coordinator.Coordinator
	tracker *progress.Tracker
	engine  *learning.Engine
	logger  *zap.Logger
	now     func() time.Time
	tracer  trace.Tracer

	mu     sync.Mutex
	active *activeWorkflow
}

// NewController wires the controller over its collaborators and resumes
// any persisted workflow position.
func NewController(catalog *workflow.Catalog, coord *coordinator.Coordinator, tracker *progress.Tracker, engine *learning.Engine, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		catalog: catalog,
		coord:   coord,
		tracker: tracker,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
		tracer:  otel.Tracer(instrumentationName),
	}
	c.resume()
	return c
}

// resume reattaches to a persisted workflow position. A position whose
// workflow type is no longer in the catalog is dropped.
func (c *Controller) resume() {
	result := c.coord.LoadAll(context.Background())
	ws := result.WorkflowState
	if ws == nil || ws.ActiveWorkflowID == "" {
		return
	}
	def, ok := c.catalog.Get(ws.ActiveWorkflowID)
	if !ok {
		c.logger.Warn("persisted workflow no longer in catalog, discarding",
			zap.String("workflow", ws.ActiveWorkflowID))
		c.coord.ClearWorkflow()
		return
	}
	idx := ws.ActivePhaseIndex
	if idx < 0 || idx >= len(def.Phases) {
		idx = 0
	}
	c.active = &activeWorkflow{
		def:        def,
		phaseIndex: idx,
		notes:      ws.PhaseProgress,
		startedAt:  ws.LastUpdated,
	}
	c.logger.Info("resumed workflow",
		zap.String("workflow", def.Type),
		zap.Int("phase_index", idx))
}

// ProvideContext recommends a workflow for a free-text task description.
// Learned context patterns win over the catalog's static trigger hints;
// with neither, the first catalog workflow is the fallback.
func (c *Controller) ProvideContext(ctx context.Context, text string) Recommendation {
	_, span := c.tracer.Start(ctx, "session.provide_context")
	defer span.End()

	c.engine.RecordToolUsage("provide_context", nil)

	words := tokenize(text)

	if chosen := c.learnedChoice(words); chosen != "" {
		span.SetAttributes(attribute.String("source", "learned"))
		return c.recommend(chosen, text, "past sessions with similar context chose this workflow")
	}

	if chosen := c.hintedChoice(words); chosen != "" {
		span.SetAttributes(attribute.String("source", "trigger_hints"))
		return c.recommend(chosen, text, "task description matches this workflow's triggers")
	}

	span.SetAttributes(attribute.String("source", "fallback"))
	all := c.catalog.List()
	if len(all) == 0 {
		return Recommendation{Confidence: 0}
	}
	return c.recommend(all[0].Type, text, "no signal in the context, defaulting")
}

func (c *Controller) recommend(workflowType, text, reason string) Recommendation {
	pctx := c.engine.GeneratePredictiveContext(workflowType, "", text)
	return Recommendation{
		WorkflowType: workflowType,
		Reason:       reason,
		Confidence:   pctx.Confidence,
	}
}

// learnedChoice consults the profile's context patterns.
func (c *Controller) learnedChoice(words []string) string {
	if len(words) == 0 {
		return ""
	}
	profile := c.engine.GetUserProfile()

	best := ""
	bestScore := 0.0
	for _, cp := range profile.ContextPatterns {
		if cp.Frequency < 2 {
			continue
		}
		overlap := overlapCount(cp.TriggerWords, words)
		if overlap == 0 {
			continue
		}
		score := float64(overlap) * (cp.SuccessRate + 0.1)
		if score > bestScore {
			best = cp.ChosenWorkflow
			bestScore = score
		}
	}
	if best != "" {
		if _, ok := c.catalog.Get(best); !ok {
			return ""
		}
	}
	return best
}

// hintedChoice matches against the catalog's static trigger hints.
func (c *Controller) hintedChoice(words []string) string {
	best := ""
	bestOverlap := 0
	for _, w := range c.catalog.List() {
		overlap := overlapCount(w.TriggerHints, words)
		if overlap > bestOverlap {
			best = w.Type
			bestOverlap = overlap
		}
	}
	return best
}

// StartWorkflow begins a workflow and persists the starting position.
func (c *Controller) StartWorkflow(ctx context.Context, workflowType, contextText string) (*StartResult, error) {
	ctx, span := c.tracer.Start(ctx, "session.start_workflow")
	defer span.End()
	span.SetAttributes(attribute.String("workflow", workflowType))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrWorkflowActive
	}
	def, ok := c.catalog.Get(workflowType)
	if !ok {
		return nil, fmt.Errorf("unknown workflow type %q", workflowType)
	}

	c.active = &activeWorkflow{
		def:        def,
		phaseIndex: 0,
		notes:      make(map[string][]string),
		startedAt:  c.now(),
	}
	c.engine.RecordWorkflowUsage(workflowType, contextText)
	c.saveLocked(ctx)

	first := def.Phases[0]
	c.logger.Info("workflow started",
		zap.String("workflow", workflowType),
		zap.String("phase", first.Name))

	return &StartResult{
		WorkflowType: def.Type,
		WorkflowName: def.Name,
		PhaseIndex:   0,
		Phase:        first,
		Message:      first.Guidance,
	}, nil
}

// ReportProgress records a step note against the current phase, advances
// the phase when the completion detector fires, and finishes the
// workflow when the last phase completes. The workflow never advances
// past its final phase.
func (c *Controller) ReportProgress(ctx context.Context, note string) (*ProgressResult, error) {
	ctx, span := c.tracer.Start(ctx, "session.report_progress")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return nil, ErrNoActiveWorkflow
	}
	a := c.active
	phase, _ := a.def.PhaseAt(a.phaseIndex)

	if strings.TrimSpace(note) != "" {
		a.notes[phase.Name] = append(a.notes[phase.Name], note)
	}

	level := c.engine.GetUserProfile().Preferences.CelebrationLevel
	result := &ProgressResult{PhaseIndex: a.phaseIndex, Phase: phase}

	milestones := c.tracker.RecordStepCompletion(a.def.Type, note)
	c.addCelebration(result, level, celebrate.Event{
		Kind: celebrate.EventStep, Workflow: a.def.Type, Phase: phase.Name,
	})

	if completion.IsPhaseComplete(a.def.Type, phase, a.notes[phase.Name], note) {
		result.PhaseComplete = true
		if a.def.LastPhase(a.phaseIndex) {
			milestones = append(milestones, c.completeLocked(ctx, result, level, note)...)
		} else {
			c.advanceLocked(ctx, result, level)
		}
	} else {
		c.saveLocked(ctx)
	}

	c.mirrorMilestones(result, milestones, level)

	if !result.WorkflowComplete {
		current, _ := c.active.def.PhaseAt(c.active.phaseIndex)
		pctx := c.engine.GeneratePredictiveContext(c.active.def.Type, current.Name, "")
		result.Hint = c.engine.GenerateAdaptiveHint(pctx)
	}

	span.SetAttributes(
		attribute.Bool("phase_complete", result.PhaseComplete),
		attribute.Bool("workflow_complete", result.WorkflowComplete),
	)
	return result, nil
}

// advanceLocked moves to the next phase. Caller holds the lock.
func (c *Controller) advanceLocked(ctx context.Context, result *ProgressResult, level learning.CelebrationLevel) {
	a := c.active
	from, _ := a.def.PhaseAt(a.phaseIndex)
	a.phaseIndex++
	next, _ := a.def.PhaseAt(a.phaseIndex)

	c.engine.RecordPhaseStart()
	c.addCelebration(result, level, celebrate.Event{
		Kind: celebrate.EventPhase, Workflow: a.def.Type,
		Phase: from.Name, Detail: next.Name,
	})
	result.PhaseIndex = a.phaseIndex
	result.Phase = next
	c.saveLocked(ctx)

	c.logger.Info("phase advanced",
		zap.String("workflow", a.def.Type),
		zap.String("from", from.Name),
		zap.String("to", next.Name))
}

// completeLocked finishes the workflow. The note that closed the final
// phase is remembered as a strategy that worked. Caller holds the lock.
func (c *Controller) completeLocked(ctx context.Context, result *ProgressResult, level learning.CelebrationLevel, finalNote string) []progress.Milestone {
	a := c.active
	result.WorkflowComplete = true

	minutes := c.now().Sub(a.startedAt).Minutes()
	steps := 0
	for _, notes := range a.notes {
		steps += len(notes)
	}

	milestones := c.tracker.RecordWorkflowCompletion(a.def.Type, steps, minutes)
	c.engine.RecordWorkflowCompletion(a.def.Type, minutes, true)
	c.engine.RecordStrategy(a.def.Type, strings.TrimSpace(finalNote))
	c.addCelebration(result, level, celebrate.Event{
		Kind: celebrate.EventWorkflow, Workflow: a.def.Type,
	})

	// Progress already persisted write-through; the position file goes
	// away and the profile gets flushed.
	c.active = nil
	c.coord.ClearWorkflow()
	if err := c.engine.SaveUserProfile(); err != nil {
		c.logger.Warn("failed to persist profile after completion", zap.Error(err))
	}

	c.logger.Info("workflow completed",
		zap.String("workflow", a.def.Type),
		zap.Float64("minutes", minutes))
	return milestones
}

// Status reports the current position without mutating anything beyond
// streak bookkeeping.
func (c *Controller) Status(ctx context.Context) *StatusResult {
	_, span := c.tracer.Start(ctx, "session.status")
	defer span.End()

	c.tracker.RecordProgressCheck()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return &StatusResult{Active: false, PhaseIndex: -1}
	}
	a := c.active
	phase, _ := a.def.PhaseAt(a.phaseIndex)
	return &StatusResult{
		Active:       true,
		WorkflowType: a.def.Type,
		WorkflowName: a.def.Name,
		PhaseIndex:   a.phaseIndex,
		TotalPhases:  len(a.def.Phases),
		Phase:        phase,
		NotesInPhase: len(a.notes[phase.Name]),
	}
}

// Abandon drops the active workflow, recording it as an unsuccessful
// completion and remembering where the user bailed out.
func (c *Controller) Abandon(ctx context.Context, reason string) error {
	ctx, span := c.tracer.Start(ctx, "session.abandon")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveWorkflow
	}
	a := c.active
	phase, _ := a.def.PhaseAt(a.phaseIndex)

	minutes := c.now().Sub(a.startedAt).Minutes()
	c.engine.RecordWorkflowCompletion(a.def.Type, minutes, false)
	c.engine.RecordStuckPoint(a.def.Type, phase.Name)

	c.active = nil
	c.coord.ClearWorkflow()
	if err := c.engine.SaveUserProfile(); err != nil {
		c.logger.Warn("failed to persist profile after abandon", zap.Error(err))
	}

	c.logger.Info("workflow abandoned",
		zap.String("workflow", a.def.Type),
		zap.String("phase", phase.Name),
		zap.String("reason", reason))
	return nil
}

// saveLocked persists the current position through the coordinator.
// Caller holds the lock.
func (c *Controller) saveLocked(ctx context.Context) {
	a := c.active
	result := c.coord.SaveAll(ctx, a.def.Type, a.phaseIndex, a.notes)
	if !result.Success {
		c.logger.Warn("partial save failure", zap.Strings("errors", result.Errors))
	}
}

func (c *Controller) addCelebration(result *ProgressResult, level learning.CelebrationLevel, ev celebrate.Event) {
	if msg := celebrate.Message(level, ev); msg != "" {
		result.Celebrations = append(result.Celebrations, msg)
	}
}

// mirrorMilestones copies unlocked milestones into the durable profile
// and celebrates each one.
func (c *Controller) mirrorMilestones(result *ProgressResult, milestones []progress.Milestone, level learning.CelebrationLevel) {
	for _, m := range milestones {
		c.engine.RecordAchievement(m.ID, m.Name)
		c.addCelebration(result, level, celebrate.Event{
			Kind: celebrate.EventMilestone, Detail: m.Name,
		})
	}
	result.Milestones = milestones
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 3 {
			out = append(out, f)
		}
	}
	return out
}

func overlapCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[strings.ToLower(w)] = struct{}{}
	}
	n := 0
	for _, w := range b {
		if _, ok := set[w]; ok {
			n++
		}
	}
	return n
}
