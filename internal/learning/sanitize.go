package learning

import (
	"time"

	"github.com/google/uuid"
)

// sanitizeProfile turns any decoded JSON value into a fully populated
// profile. Wrong-typed or missing fields get fresh defaults; malformed
// elements of array fields are dropped individually rather than
// discarding the whole array; unparsable dates become "now". This is
// the only compatibility layer the profile file has; there is no
// schema version tag.
func (e *Engine) sanitizeProfile(raw any) *UserProfile {
	obj, ok := raw.(map[string]any)
	if !ok {
		return e.defaultProfile()
	}

	now := e.now()
	p := &UserProfile{
		UserID:           asString(obj["user_id"]),
		CreatedAt:        asTime(obj["created_at"], now),
		LastActive:       asTime(obj["last_active"], now),
		WorkflowPatterns: e.sanitizeWorkflowPatterns(obj["workflow_patterns"]),
		ContextPatterns:  e.sanitizeContextPatterns(obj["context_patterns"]),
		BehaviorMetrics:  e.sanitizeBehaviorMetrics(obj["behavior_metrics"]),
		Preferences:      sanitizePreferences(obj["preferences"]),
		Achievements:     e.sanitizeAchievements(obj["achievements"]),
	}
	if p.UserID == "" {
		p.UserID = uuid.New().String()
	}
	return p
}

func (e *Engine) sanitizeWorkflowPatterns(raw any) []WorkflowPattern {
	items, ok := raw.([]any)
	if !ok {
		return []WorkflowPattern{}
	}

	out := make([]WorkflowPattern, 0, len(items))
	seen := make(map[string]struct{})
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		wt := asString(obj["workflow_type"])
		if wt == "" {
			continue
		}
		// At most one pattern per workflow type; first wins.
		if _, dup := seen[wt]; dup {
			continue
		}
		seen[wt] = struct{}{}
		out = append(out, WorkflowPattern{
			WorkflowType:         wt,
			CompletionRate:       clamp01(asFloat(obj["completion_rate"])),
			AverageTimeMinutes:   nonNegative(asFloat(obj["average_time_minutes"])),
			PreferredPhaseOrder:  asStringSlice(obj["preferred_phase_order"]),
			CommonStuckPoints:    asStringSlice(obj["common_stuck_points"]),
			SuccessfulStrategies: asStringSlice(obj["successful_strategies"]),
			LastUsed:             asTime(obj["last_used"], e.now()),
			TotalCompletions:     nonNegativeInt(asInt(obj["total_completions"])),
		})
	}
	return out
}

func (e *Engine) sanitizeContextPatterns(raw any) []ContextPattern {
	items, ok := raw.([]any)
	if !ok {
		return []ContextPattern{}
	}

	out := make([]ContextPattern, 0, len(items))
	seen := make(map[string]struct{})
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		chosen := asString(obj["chosen_workflow"])
		if chosen == "" {
			continue
		}
		if _, dup := seen[chosen]; dup {
			continue
		}
		seen[chosen] = struct{}{}
		out = append(out, ContextPattern{
			TriggerWords:   asStringSlice(obj["trigger_words"]),
			ChosenWorkflow: chosen,
			SuccessRate:    clamp01(asFloat(obj["success_rate"])),
			Frequency:      nonNegativeInt(asInt(obj["frequency"])),
			LastMatched:    asTime(obj["last_matched"], e.now()),
		})
	}
	return out
}

func (e *Engine) sanitizeBehaviorMetrics(raw any) BehaviorMetrics {
	m := BehaviorMetrics{ToolUsage: make(map[string]int)}
	obj, ok := raw.(map[string]any)
	if !ok {
		return m
	}

	m.TotalSessions = nonNegativeInt(asInt(obj["total_sessions"]))
	m.AverageSessionLengthMinutes = nonNegative(asFloat(obj["average_session_length_minutes"]))
	m.HintAcceptanceRate = clamp01(asFloat(obj["hint_acceptance_rate"]))

	if usage, ok := obj["tool_usage"].(map[string]any); ok {
		for tool, count := range usage {
			if n := asInt(count); n > 0 {
				m.ToolUsage[tool] = n
			}
		}
	}
	return m
}

func sanitizePreferences(raw any) Preferences {
	p := Preferences{
		CelebrationLevel: CelebrationFull,
		HintIntensity:    IntensityGentle,
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return p
	}

	switch CelebrationLevel(asString(obj["celebration_level"])) {
	case CelebrationFull:
		p.CelebrationLevel = CelebrationFull
	case CelebrationMinimal:
		p.CelebrationLevel = CelebrationMinimal
	case CelebrationWhisper:
		p.CelebrationLevel = CelebrationWhisper
	case CelebrationOff:
		p.CelebrationLevel = CelebrationOff
	}

	switch Intensity(asString(obj["hint_intensity"])) {
	case IntensityGentle:
		p.HintIntensity = IntensityGentle
	case IntensityActive:
		p.HintIntensity = IntensityActive
	case IntensityWhisper:
		p.HintIntensity = IntensityWhisper
	}
	return p
}

func (e *Engine) sanitizeAchievements(raw any) []Achievement {
	items, ok := raw.([]any)
	if !ok {
		return []Achievement{}
	}

	out := make([]Achievement, 0, len(items))
	seen := make(map[string]struct{})
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := asString(obj["id"])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Achievement{
			ID:       id,
			Name:     asString(obj["name"]),
			EarnedAt: asTime(obj["earned_at"], e.now()),
		})
	}
	return out
}

// Defensive accessors. encoding/json decodes numbers as float64, but
// these also tolerate values written by other tooling.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// asTime accepts RFC3339 strings (what we write) and a couple of common
// fallbacks; anything unparsable becomes the provided default.
func asTime(v any, fallback time.Time) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return fallback
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

func nonNegativeInt(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
