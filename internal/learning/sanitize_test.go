package learning

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// loadFromBytes writes raw bytes as the profile file and loads them.
func loadFromBytes(t *testing.T, raw []byte) *UserProfile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	e := NewEngine(path, zap.NewNop())
	require.NoError(t, e.LoadUserProfile())
	return e.GetUserProfile()
}

// requireWellFormed asserts the totality property: every required field
// present with the correct type, whatever was on disk.
func requireWellFormed(t *testing.T, p *UserProfile) {
	t.Helper()
	require.NotNil(t, p)
	assert.NotEmpty(t, p.UserID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.False(t, p.LastActive.IsZero())
	require.NotNil(t, p.WorkflowPatterns)
	require.NotNil(t, p.ContextPatterns)
	require.NotNil(t, p.BehaviorMetrics.ToolUsage)
	require.NotNil(t, p.Achievements)
	assert.NotEmpty(t, p.Preferences.CelebrationLevel)
	assert.NotEmpty(t, p.Preferences.HintIntensity)
}

func TestLoad_SanitizerTotality(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not an object", `"not an object"`},
		{"number", `42`},
		{"null", `null`},
		{"array", `[1, 2, 3]`},
		{"empty object", `{}`},
		{"truncated JSON", `{"user_id": "u-1", "workflow_pat`},
		{"binary garbage", "\x00\x01\x02\xff\xfe"},
		{"wrong-typed fields", `{"user_id": 7, "created_at": false, "workflow_patterns": "nope", "behavior_metrics": [], "preferences": 3}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := loadFromBytes(t, []byte(tc.raw))
			requireWellFormed(t, p)
			assert.Empty(t, p.WorkflowPatterns)
		})
	}
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	e := NewEngine(filepath.Join(t.TempDir(), "nope", "profile.json"), zap.NewNop())
	require.NoError(t, e.LoadUserProfile())
	requireWellFormed(t, e.GetUserProfile())
}

func TestLoad_FiltersMalformedArrayElements(t *testing.T) {
	raw := `{
		"user_id": "u-1",
		"workflow_patterns": [
			{"workflow_type": "tdd", "completion_rate": 0.8, "total_completions": 4},
			"garbage",
			17,
			{"completion_rate": 0.9},
			{"workflow_type": "debug"}
		],
		"context_patterns": [
			{"chosen_workflow": "tdd", "trigger_words": ["test", 5, "parser"], "frequency": 2},
			null,
			{"trigger_words": ["orphan"]}
		],
		"achievements": [
			{"id": "first_step", "name": "First Step"},
			{"name": "no id"},
			false
		]
	}`

	p := loadFromBytes(t, []byte(raw))
	requireWellFormed(t, p)

	// Well-formed elements survive; garbage elements are dropped
	// individually, not the whole array.
	require.Len(t, p.WorkflowPatterns, 2)
	assert.Equal(t, "tdd", p.WorkflowPatterns[0].WorkflowType)
	assert.InDelta(t, 0.8, p.WorkflowPatterns[0].CompletionRate, 0.001)
	assert.Equal(t, 4, p.WorkflowPatterns[0].TotalCompletions)
	assert.Equal(t, "debug", p.WorkflowPatterns[1].WorkflowType)

	require.Len(t, p.ContextPatterns, 1)
	assert.Equal(t, []string{"test", "parser"}, p.ContextPatterns[0].TriggerWords)

	require.Len(t, p.Achievements, 1)
	assert.Equal(t, "first_step", p.Achievements[0].ID)
}

func TestLoad_DuplicatePatternsCollapse(t *testing.T) {
	raw := `{
		"user_id": "u-1",
		"workflow_patterns": [
			{"workflow_type": "tdd", "total_completions": 4},
			{"workflow_type": "tdd", "total_completions": 9}
		],
		"context_patterns": [
			{"chosen_workflow": "tdd", "frequency": 1},
			{"chosen_workflow": "tdd", "frequency": 7}
		]
	}`

	p := loadFromBytes(t, []byte(raw))
	require.Len(t, p.WorkflowPatterns, 1)
	assert.Equal(t, 4, p.WorkflowPatterns[0].TotalCompletions, "first occurrence wins")
	require.Len(t, p.ContextPatterns, 1)
}

func TestLoad_DefensiveDates(t *testing.T) {
	raw := `{
		"user_id": "u-1",
		"created_at": "2024-06-01T10:00:00Z",
		"last_active": "definitely not a date",
		"workflow_patterns": [
			{"workflow_type": "tdd", "last_used": 12345}
		]
	}`

	before := time.Now()
	p := loadFromBytes(t, []byte(raw))

	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt.UTC())
	assert.True(t, !p.LastActive.Before(before), "bad date becomes now")
	assert.True(t, !p.WorkflowPatterns[0].LastUsed.Before(before))
}

func TestLoad_OutOfRangeNumbersClamped(t *testing.T) {
	raw := `{
		"user_id": "u-1",
		"workflow_patterns": [
			{"workflow_type": "tdd", "completion_rate": 3.5, "average_time_minutes": -10, "total_completions": -2}
		],
		"behavior_metrics": {"total_sessions": -1, "hint_acceptance_rate": 9.9}
	}`

	p := loadFromBytes(t, []byte(raw))
	wp := p.WorkflowPatterns[0]
	assert.Equal(t, 1.0, wp.CompletionRate)
	assert.Zero(t, wp.AverageTimeMinutes)
	assert.Zero(t, wp.TotalCompletions)
	assert.Zero(t, p.BehaviorMetrics.TotalSessions)
	assert.Equal(t, 1.0, p.BehaviorMetrics.HintAcceptanceRate)
}

func TestLoad_InvalidPreferencesFallBack(t *testing.T) {
	raw := `{"user_id": "u-1", "preferences": {"celebration_level": "shouting", "hint_intensity": "extreme"}}`

	p := loadFromBytes(t, []byte(raw))
	assert.Equal(t, CelebrationFull, p.Preferences.CelebrationLevel)
	assert.Equal(t, IntensityGentle, p.Preferences.HintIntensity)

	raw = `{"user_id": "u-1", "preferences": {"celebration_level": "whisper", "hint_intensity": "active"}}`
	p = loadFromBytes(t, []byte(raw))
	assert.Equal(t, CelebrationWhisper, p.Preferences.CelebrationLevel)
	assert.Equal(t, IntensityActive, p.Preferences.HintIntensity)
}

func TestLoad_RoundTripPreservesSanitizedShape(t *testing.T) {
	// A sanitized profile marshals back to JSON that loads unchanged.
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user_id": "u-1"}`), 0o644))

	e := NewEngine(path, zap.NewNop())
	require.NoError(t, e.LoadUserProfile())
	require.NoError(t, e.SaveUserProfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var check map[string]any
	require.NoError(t, json.Unmarshal(data, &check))
	assert.Equal(t, "u-1", check["user_id"])
}
