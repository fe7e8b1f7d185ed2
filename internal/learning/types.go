package learning

import "time"

// CelebrationLevel controls how loud the coach celebrates.
type CelebrationLevel string

const (
	CelebrationFull    CelebrationLevel = "full"
	CelebrationMinimal CelebrationLevel = "minimal"
	CelebrationWhisper CelebrationLevel = "whisper"
	CelebrationOff     CelebrationLevel = "off"
)

// Intensity controls hint frequency while in flow.
type Intensity string

const (
	IntensityGentle  Intensity = "gentle"
	IntensityActive  Intensity = "active"
	IntensityWhisper Intensity = "whisper"
)

// UserProfile is the long-lived learned profile, persisted as JSON.
// Every field is guaranteed present and well-typed after LoadUserProfile,
// no matter what is on disk.
type UserProfile struct {
	UserID           string            `json:"user_id"`
	CreatedAt        time.Time         `json:"created_at"`
	LastActive       time.Time         `json:"last_active"`
	WorkflowPatterns []WorkflowPattern `json:"workflow_patterns"`
	ContextPatterns  []ContextPattern  `json:"context_patterns"`
	BehaviorMetrics  BehaviorMetrics   `json:"behavior_metrics"`
	Preferences      Preferences       `json:"preferences"`
	Achievements     []Achievement     `json:"achievements"`
}

// WorkflowPattern is the learned history for one workflow type. At most
// one pattern exists per type; stuck points and strategies grow by
// union, never replacement.
type WorkflowPattern struct {
	WorkflowType         string    `json:"workflow_type"`
	CompletionRate       float64   `json:"completion_rate"`
	AverageTimeMinutes   float64   `json:"average_time_minutes"`
	PreferredPhaseOrder  []string  `json:"preferred_phase_order"`
	CommonStuckPoints    []string  `json:"common_stuck_points"`
	SuccessfulStrategies []string  `json:"successful_strategies"`
	LastUsed             time.Time `json:"last_used"`
	TotalCompletions     int       `json:"total_completions"`
}

// ContextPattern links the words a user describes a task with to the
// workflow they end up choosing. At most one pattern per chosen workflow.
type ContextPattern struct {
	TriggerWords   []string  `json:"trigger_words"`
	ChosenWorkflow string    `json:"chosen_workflow"`
	SuccessRate    float64   `json:"success_rate"`
	Frequency      int       `json:"frequency"`
	LastMatched    time.Time `json:"last_matched"`
}

// BehaviorMetrics aggregate cross-session behavior. Only these survive a
// restart; raw session data does not.
type BehaviorMetrics struct {
	TotalSessions               int            `json:"total_sessions"`
	AverageSessionLengthMinutes float64        `json:"average_session_length_minutes"`
	HintAcceptanceRate          float64        `json:"hint_acceptance_rate"`
	ToolUsage                   map[string]int `json:"tool_usage"`
}

// Preferences are the user's adaptive settings.
type Preferences struct {
	CelebrationLevel CelebrationLevel `json:"celebration_level"`
	HintIntensity    Intensity        `json:"hint_intensity"`
}

// clone returns a deep copy of the profile. The engine mutates its
// profile in place under the lock, so readers get a copy instead of a
// pointer into guarded state.
func (p *UserProfile) clone() *UserProfile {
	cp := *p

	cp.WorkflowPatterns = make([]WorkflowPattern, len(p.WorkflowPatterns))
	for i, wp := range p.WorkflowPatterns {
		wp.PreferredPhaseOrder = append([]string(nil), wp.PreferredPhaseOrder...)
		wp.CommonStuckPoints = append([]string(nil), wp.CommonStuckPoints...)
		wp.SuccessfulStrategies = append([]string(nil), wp.SuccessfulStrategies...)
		cp.WorkflowPatterns[i] = wp
	}

	cp.ContextPatterns = make([]ContextPattern, len(p.ContextPatterns))
	for i, ctp := range p.ContextPatterns {
		ctp.TriggerWords = append([]string(nil), ctp.TriggerWords...)
		cp.ContextPatterns[i] = ctp
	}

	cp.BehaviorMetrics.ToolUsage = make(map[string]int, len(p.BehaviorMetrics.ToolUsage))
	for k, v := range p.BehaviorMetrics.ToolUsage {
		cp.BehaviorMetrics.ToolUsage[k] = v
	}

	cp.Achievements = append([]Achievement(nil), p.Achievements...)
	return &cp
}

// Achievement mirrors an unlocked milestone into the durable profile.
type Achievement struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}

// Session is the transient per-process learning session. Never persisted
// directly; EndSession folds its aggregates into BehaviorMetrics.
type Session struct {
	ID               string
	StartTime        time.Time
	EndTime          *time.Time
	WorkflowsUsed    []string
	ContextsProvided []string
	HintsAccepted    int
	HintsRejected    int
	StepsCompleted   int
	CelebrationLevel CelebrationLevel
}

// FlowState is the transient hint-throttling state.
type FlowState struct {
	IsActive     bool
	Intensity    Intensity
	LastHintTime time.Time
}

// PredictiveContext is what the engine knows about the user's current
// position, used to decide whether and what to hint.
type PredictiveContext struct {
	WorkflowType   string
	Phase          string
	SessionContext string
	TimeInPhase    time.Duration
	IsStuck        bool
	Confidence     float64
}

// HintKind identifies which rule produced a hint.
type HintKind string

const (
	HintStuck          HintKind = "stuck"
	HintStuckPoint     HintKind = "stuck_point"
	HintBetterWorkflow HintKind = "better_workflow"
	HintTiming         HintKind = "timing"
)

// Hint is a single adaptive suggestion. The engine returns at most one
// per cooldown window.
type Hint struct {
	Kind     HintKind `json:"kind"`
	Message  string   `json:"message"`
	Workflow string   `json:"workflow,omitempty"`
}

// hint cooldowns by intensity.
const (
	cooldownGentle  = 30 * time.Second
	cooldownActive  = 15 * time.Second
	cooldownWhisper = 120 * time.Second
)

// stuckThreshold is how long without a recorded action counts as stuck.
const stuckThreshold = 5 * time.Minute

func cooldownFor(i Intensity) time.Duration {
	switch i {
	case IntensityActive:
		return cooldownActive
	case IntensityWhisper:
		return cooldownWhisper
	default:
		return cooldownGentle
	}
}
