// Package learning maintains the adaptive user profile: per-workflow
// success patterns, context trigger patterns, behavior metrics, and the
// transient session/flow state that drives predictive hints.
package learning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/coachd/internal/learning"

// Engine owns the user-profile file and the in-memory session state.
// All mutation is synchronous; only the file read/write suspends. The
// in-memory profile stays authoritative even if every write fails.
type Engine struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
	sleep  func(time.Duration)

	meter       metric.Meter
	saveCounter metric.Int64Counter
	hintCounter metric.Int64Counter

	mu         sync.Mutex
	profile    *UserProfile
	session    *Session
	flow       FlowState
	lastAction time.Time
	phaseStart time.Time
}

// NewEngine creates an engine backed by the given profile path. The
// profile starts at defaults; call LoadUserProfile to read disk.
func NewEngine(path string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		path:   path,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
		meter:  otel.Meter(instrumentationName),
	}
	e.profile = e.defaultProfile()
	e.session = e.newSession()
	e.flow = FlowState{Intensity: IntensityGentle}
	e.lastAction = e.now()
	e.phaseStart = e.now()
	e.initMetrics()
	return e
}

func (e *Engine) initMetrics() {
	var err error
	e.saveCounter, err = e.meter.Int64Counter(
		"coachd.learning.profile_saves_total",
		metric.WithDescription("Total user profile save attempts"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		e.logger.Warn("failed to create save counter", zap.Error(err))
	}
	e.hintCounter, err = e.meter.Int64Counter(
		"coachd.learning.hints_total",
		metric.WithDescription("Total adaptive hints generated"),
		metric.WithUnit("{hint}"),
	)
	if err != nil {
		e.logger.Warn("failed to create hint counter", zap.Error(err))
	}
}

func (e *Engine) defaultProfile() *UserProfile {
	now := e.now()
	return &UserProfile{
		UserID:           uuid.New().String(),
		CreatedAt:        now,
		LastActive:       now,
		WorkflowPatterns: []WorkflowPattern{},
		ContextPatterns:  []ContextPattern{},
		BehaviorMetrics:  BehaviorMetrics{ToolUsage: make(map[string]int)},
		Preferences: Preferences{
			CelebrationLevel: CelebrationFull,
			HintIntensity:    IntensityGentle,
		},
		Achievements: []Achievement{},
	}
}

func (e *Engine) newSession() *Session {
	return &Session{
		ID:               uuid.New().String(),
		StartTime:        e.now(),
		CelebrationLevel: CelebrationFull,
	}
}

// GetUserProfile returns a deep copy of the current in-memory profile.
// Callers read it freely; engine methods keep mutating the original
// under the lock.
func (e *Engine) GetUserProfile() *UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.clone()
}

// RecordToolUsage notes that a tool was invoked. Tool usage feeds the
// behavior metrics and resets the stuck timer.
func (e *Engine) RecordToolUsage(toolName string, args map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.profile.BehaviorMetrics.ToolUsage == nil {
		e.profile.BehaviorMetrics.ToolUsage = make(map[string]int)
	}
	e.profile.BehaviorMetrics.ToolUsage[toolName]++
	e.profile.LastActive = e.now()
	e.lastAction = e.now()
}

// RecordWorkflowUsage notes that a workflow was started, optionally with
// the free-text context that led to it. Patterns are created lazily on
// first use and trigger words grow by union.
func (e *Engine) RecordWorkflowUsage(workflowType, context string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	p := e.workflowPattern(workflowType)
	p.LastUsed = now

	if context != "" {
		cp := e.contextPattern(workflowType)
		cp.TriggerWords = unionWords(cp.TriggerWords, triggerWords(context))
		cp.Frequency++
		cp.LastMatched = now
		e.session.ContextsProvided = append(e.session.ContextsProvided, context)
	}

	e.session.WorkflowsUsed = append(e.session.WorkflowsUsed, workflowType)
	e.profile.LastActive = now
	e.lastAction = now
	e.phaseStart = now
}

// RecordWorkflowCompletion folds one finished (or abandoned) workflow
// into the pattern's running averages.
func (e *Engine) RecordWorkflowCompletion(workflowType string, minutes float64, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.workflowPattern(workflowType)

	outcome := 0.0
	if success {
		outcome = 1.0
		p.TotalCompletions++
	}
	if p.TotalCompletions <= 1 && p.CompletionRate == 0 {
		p.CompletionRate = outcome
	} else {
		p.CompletionRate = p.CompletionRate*0.7 + outcome*0.3
	}

	if minutes > 0 {
		if p.AverageTimeMinutes == 0 {
			p.AverageTimeMinutes = minutes
		} else {
			p.AverageTimeMinutes = p.AverageTimeMinutes*0.8 + minutes*0.2
		}
	}
	p.LastUsed = e.now()

	cp := e.contextPattern(workflowType)
	if cp.Frequency > 0 {
		cp.SuccessRate = cp.SuccessRate*0.7 + outcome*0.3
	}

	e.profile.LastActive = e.now()
	e.lastAction = e.now()
}

// RecordPhaseStart marks a phase transition for time-in-phase tracking.
func (e *Engine) RecordPhaseStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phaseStart = e.now()
	e.lastAction = e.now()
}

// RecordStuckPoint remembers that the user got stuck in a phase of a
// workflow, so future sessions can warn early.
func (e *Engine) RecordStuckPoint(workflowType, phase string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.workflowPattern(workflowType)
	p.CommonStuckPoints = unionWords(p.CommonStuckPoints, []string{phase})
}

// RecordStrategy remembers a strategy that worked for a workflow type.
func (e *Engine) RecordStrategy(workflowType, strategy string) {
	if strategy == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.workflowPattern(workflowType)
	for _, s := range p.SuccessfulStrategies {
		if s == strategy {
			return
		}
	}
	p.SuccessfulStrategies = append(p.SuccessfulStrategies, strategy)
}

// RecordAchievement mirrors a milestone unlock into the profile. An id
// already present is ignored.
func (e *Engine) RecordAchievement(id, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.profile.Achievements {
		if a.ID == id {
			return
		}
	}
	e.profile.Achievements = append(e.profile.Achievements, Achievement{
		ID:       id,
		Name:     name,
		EarnedAt: e.now(),
	})
}

// GeneratePredictiveContext computes the engine's view of the user's
// current position. Confidence comes from the matched workflow pattern's
// completion rate (0.5 with no history) plus a flat 0.2 bonus, clamped
// to [0.5, 1.0].
func (e *Engine) GeneratePredictiveContext(workflowType, phase, sessionContext string) PredictiveContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	confidence := 0.5
	if p := e.findWorkflowPattern(workflowType); p != nil && p.TotalCompletions > 0 {
		confidence = p.CompletionRate
	}
	confidence += 0.2
	if confidence < 0.5 {
		confidence = 0.5
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return PredictiveContext{
		WorkflowType:   workflowType,
		Phase:          phase,
		SessionContext: sessionContext,
		TimeInPhase:    now.Sub(e.phaseStart),
		IsStuck:        now.Sub(e.lastAction) >= stuckThreshold,
		Confidence:     confidence,
	}
}

// GenerateAdaptiveHint returns at most one hint for the given context,
// or nil when the cooldown window is still open or nothing applies.
// Rules run in strict priority order; the first applicable wins.
func (e *Engine) GenerateAdaptiveHint(pctx PredictiveContext) *Hint {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if !e.flow.LastHintTime.IsZero() && now.Sub(e.flow.LastHintTime) < cooldownFor(e.flow.Intensity) {
		return nil
	}

	hint := e.evaluateHintRules(pctx)
	if hint == nil {
		return nil
	}

	e.flow.LastHintTime = now
	if e.hintCounter != nil {
		e.hintCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", string(hint.Kind)),
		))
	}
	e.logger.Debug("generated hint",
		zap.String("kind", string(hint.Kind)),
		zap.String("workflow", pctx.WorkflowType))
	return hint
}

// evaluateHintRules runs the priority chain. Caller holds the lock.
func (e *Engine) evaluateHintRules(pctx PredictiveContext) *Hint {
	// 1. Stuck right now.
	if pctx.IsStuck {
		return &Hint{
			Kind: HintStuck,
			Message: fmt.Sprintf(
				"No movement for a while in %q. Try breaking the current step into something smaller, or tell me where it hurts.",
				pctx.Phase),
			Workflow: pctx.WorkflowType,
		}
	}

	// 2. The user has historically gotten stuck in this phase.
	if p := e.findWorkflowPattern(pctx.WorkflowType); p != nil {
		for _, stuck := range p.CommonStuckPoints {
			if strings.EqualFold(stuck, pctx.Phase) {
				return &Hint{
					Kind: HintStuckPoint,
					Message: fmt.Sprintf(
						"%q has tripped you up before. Consider timeboxing it and writing down blockers as you hit them.",
						pctx.Phase),
					Workflow: pctx.WorkflowType,
				}
			}
		}
	}

	// 3. A different workflow has served this kind of context better.
	if better := e.betterWorkflowFor(pctx); better != "" {
		return &Hint{
			Kind: HintBetterWorkflow,
			Message: fmt.Sprintf(
				"Based on past sessions, the %q workflow has worked better for tasks like this.", better),
			Workflow: better,
		}
	}

	// 4. Timing: a session running well past the usual length.
	avg := e.profile.BehaviorMetrics.AverageSessionLengthMinutes
	if avg > 0 {
		elapsed := e.now().Sub(e.session.StartTime).Minutes()
		if elapsed > avg*1.5 {
			return &Hint{
				Kind: HintTiming,
				Message: "This session is running longer than your usual. A short break " +
					"now tends to beat a long slog later.",
			}
		}
	}

	return nil
}

// betterWorkflowFor finds a context pattern whose trigger words overlap
// the session context and whose success rate beats the current
// workflow's pattern. Caller holds the lock.
func (e *Engine) betterWorkflowFor(pctx PredictiveContext) string {
	if pctx.SessionContext == "" {
		return ""
	}
	words := triggerWords(pctx.SessionContext)
	if len(words) == 0 {
		return ""
	}

	currentRate := 0.0
	if p := e.findWorkflowPattern(pctx.WorkflowType); p != nil {
		currentRate = p.CompletionRate
	}

	best := ""
	bestRate := currentRate
	for i := range e.profile.ContextPatterns {
		cp := &e.profile.ContextPatterns[i]
		if cp.ChosenWorkflow == pctx.WorkflowType || cp.Frequency < 2 {
			continue
		}
		if cp.SuccessRate > bestRate && overlaps(cp.TriggerWords, words) {
			best = cp.ChosenWorkflow
			bestRate = cp.SuccessRate
		}
	}
	return best
}

// RecordHintInteraction folds an accept/reject into the smoothed
// acceptance rate: rate = rate*0.7 + sessionRate*0.3.
func (e *Engine) RecordHintInteraction(hint *Hint, accepted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if accepted {
		e.session.HintsAccepted++
	} else {
		e.session.HintsRejected++
	}
	total := e.session.HintsAccepted + e.session.HintsRejected
	sessionRate := float64(e.session.HintsAccepted) / float64(total)
	e.profile.BehaviorMetrics.HintAcceptanceRate =
		e.profile.BehaviorMetrics.HintAcceptanceRate*0.7 + sessionRate*0.3
	e.lastAction = e.now()
}

// SetFlowState switches the transient flow state and hint intensity.
func (e *Engine) SetFlowState(active bool, intensity Intensity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.flow.IsActive = active
	switch intensity {
	case IntensityGentle, IntensityActive, IntensityWhisper:
		e.flow.Intensity = intensity
	}
}

// SetCelebrationLevel updates the durable celebration preference.
func (e *Engine) SetCelebrationLevel(level CelebrationLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch level {
	case CelebrationFull, CelebrationMinimal, CelebrationWhisper, CelebrationOff:
		e.profile.Preferences.CelebrationLevel = level
		e.session.CelebrationLevel = level
	}
}

// EndSession finalizes the session: folds its duration into the smoothed
// average session length, bumps the session count, and persists.
func (e *Engine) EndSession() {
	e.mu.Lock()

	now := e.now()
	e.session.EndTime = &now
	duration := now.Sub(e.session.StartTime).Minutes()

	m := &e.profile.BehaviorMetrics
	if m.TotalSessions == 0 {
		m.AverageSessionLengthMinutes = duration
	} else {
		m.AverageSessionLengthMinutes = m.AverageSessionLengthMinutes*0.8 + duration*0.2
	}
	m.TotalSessions++
	e.profile.LastActive = now

	// Start a fresh session so the engine stays usable.
	e.session = e.newSession()
	e.mu.Unlock()

	if err := e.SaveUserProfile(); err != nil {
		e.logger.Warn("failed to persist profile at session end", zap.Error(err))
	}
}

// workflowPattern returns the pattern for a type, creating it lazily.
// Caller holds the lock.
func (e *Engine) workflowPattern(workflowType string) *WorkflowPattern {
	if p := e.findWorkflowPattern(workflowType); p != nil {
		return p
	}
	e.profile.WorkflowPatterns = append(e.profile.WorkflowPatterns, WorkflowPattern{
		WorkflowType:         workflowType,
		PreferredPhaseOrder:  []string{},
		CommonStuckPoints:    []string{},
		SuccessfulStrategies: []string{},
	})
	return &e.profile.WorkflowPatterns[len(e.profile.WorkflowPatterns)-1]
}

func (e *Engine) findWorkflowPattern(workflowType string) *WorkflowPattern {
	for i := range e.profile.WorkflowPatterns {
		if e.profile.WorkflowPatterns[i].WorkflowType == workflowType {
			return &e.profile.WorkflowPatterns[i]
		}
	}
	return nil
}

// contextPattern returns the pattern for a chosen workflow, creating it
// lazily. Caller holds the lock.
func (e *Engine) contextPattern(chosenWorkflow string) *ContextPattern {
	for i := range e.profile.ContextPatterns {
		if e.profile.ContextPatterns[i].ChosenWorkflow == chosenWorkflow {
			return &e.profile.ContextPatterns[i]
		}
	}
	e.profile.ContextPatterns = append(e.profile.ContextPatterns, ContextPattern{
		ChosenWorkflow: chosenWorkflow,
		TriggerWords:   []string{},
	})
	return &e.profile.ContextPatterns[len(e.profile.ContextPatterns)-1]
}

// triggerWords tokenizes free text into lowercase words longer than
// three characters.
func triggerWords(text string) []string {
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

// unionWords merges b into a preserving order and uniqueness.
func unionWords(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, w := range a {
		seen[w] = struct{}{}
	}
	for _, w := range b {
		if _, ok := seen[w]; !ok {
			a = append(a, w)
			seen[w] = struct{}{}
		}
	}
	return a
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, w := range a {
		set[w] = struct{}{}
	}
	for _, w := range b {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
