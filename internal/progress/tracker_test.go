package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker(t *testing.T, path string) *Tracker {
	t.Helper()
	tr := NewTracker(path, zap.NewNop())
	tr.WaitForLoad()
	return tr
}

func TestRecordStepCompletion(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	unlocked := tr.RecordStepCompletion("tdd", "wrote a test")
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_step", unlocked[0].ID)

	stats := tr.GetStats()
	assert.Equal(t, 1, stats.TotalStepsCompleted)
	assert.Equal(t, 1, stats.WorkflowTypeUsage["tdd"])
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestRecordWorkflowCompletion(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	unlocked := tr.RecordWorkflowCompletion("debug", 4, 30)
	ids := milestoneIDs(unlocked)
	assert.Contains(t, ids, "first_workflow")

	stats := tr.GetStats()
	assert.Equal(t, 1, stats.TotalWorkflowsCompleted)
}

func TestMilestonesAreMonotonic(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	var all []string
	for i := 0; i < 30; i++ {
		for _, m := range tr.RecordWorkflowCompletion("tdd", 3, 10) {
			all = append(all, m.ID)
		}
	}

	// No milestone id fires twice.
	seen := make(map[string]int)
	for _, id := range all {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "milestone %s fired %d times", id, n)
	}

	// And the achieved list carries no duplicates either.
	achieved := tr.GetAchievedMilestones()
	ids := make(map[string]bool)
	for _, m := range achieved {
		assert.False(t, ids[m.ID], "duplicate achieved milestone %s", m.ID)
		ids[m.ID] = true
		assert.True(t, m.Achieved)
		require.NotNil(t, m.AchievedAt)
	}
	assert.True(t, ids["first_workflow"])
	assert.True(t, ids["five_workflows"])
	assert.True(t, ids["twentyfive_workflows"])
}

func TestStreakSameDayUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	tr := newTestTracker(t, path)

	tr.RecordStepCompletion("tdd", "a")
	before := tr.GetStats().CurrentStreak

	// New tracker instance over the same file, same calendar day.
	tr2 := newTestTracker(t, path)
	tr2.RecordStepCompletion("tdd", "b")
	assert.Equal(t, before, tr2.GetStats().CurrentStreak)
}

func TestStreakIncrementsNextDay(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)
	tr.now = func() time.Time { return base }
	tr.RecordStepCompletion("tdd", "a")

	tr.now = func() time.Time { return base.AddDate(0, 0, 1) }
	tr.RecordStepCompletion("tdd", "b")

	stats := tr.GetStats()
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}

func TestStreakResetsAfterGap(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	base := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)
	tr.now = func() time.Time { return base }
	tr.RecordStepCompletion("tdd", "a")
	tr.now = func() time.Time { return base.AddDate(0, 0, 1) }
	tr.RecordStepCompletion("tdd", "b")

	// Skip two days.
	tr.now = func() time.Time { return base.AddDate(0, 0, 3) }
	tr.RecordProgressCheck()

	stats := tr.GetStats()
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak, "longest streak is retained")
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	tr := newTestTracker(t, path)
	tr.RecordWorkflowCompletion("tdd", 3, 12)
	tr.RecordStepCompletion("debug", "found it")

	tr2 := newTestTracker(t, path)
	stats := tr2.GetStats()
	assert.Equal(t, 1, stats.TotalWorkflowsCompleted)
	assert.Equal(t, 1, stats.TotalStepsCompleted)
	assert.Equal(t, 1, stats.WorkflowTypeUsage["tdd"])
	assert.Equal(t, 1, stats.WorkflowTypeUsage["debug"])

	// Achieved milestones survive the restart and do not refire.
	achieved := milestoneIDs(tr2.GetAchievedMilestones())
	assert.Contains(t, achieved, "first_workflow")

	unlocked := tr2.RecordStepCompletion("tdd", "again")
	assert.NotContains(t, milestoneIDs(unlocked), "first_step")
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("###"), 0o644))

	tr := newTestTracker(t, path)
	stats := tr.GetStats()
	assert.Zero(t, stats.TotalStepsCompleted)
	assert.NotNil(t, stats.WorkflowTypeUsage)
}

func TestResetStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	tr := newTestTracker(t, path)
	tr.RecordWorkflowCompletion("tdd", 3, 10)

	tr.ResetStats()
	assert.Zero(t, tr.GetStats().TotalWorkflowsCompleted)
	assert.Empty(t, tr.GetAchievedMilestones())

	// Reset persists: a fresh instance sees the empty state.
	tr2 := newTestTracker(t, path)
	assert.Zero(t, tr2.GetStats().TotalWorkflowsCompleted)

	// Milestones can be earned again after an explicit reset.
	unlocked := tr2.RecordWorkflowCompletion("tdd", 3, 10)
	assert.Contains(t, milestoneIDs(unlocked), "first_workflow")
}

func TestExplorerMilestone(t *testing.T) {
	tr := newTestTracker(t, filepath.Join(t.TempDir(), "progress.json"))

	tr.RecordStepCompletion("tdd", "a")
	tr.RecordStepCompletion("debug", "b")
	unlocked := tr.RecordStepCompletion("refactor", "c")
	assert.Contains(t, milestoneIDs(unlocked), "explorer")
}

func milestoneIDs(ms []Milestone) []string {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	return ids
}
