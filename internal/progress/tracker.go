// Package progress tracks cumulative usage statistics and one-time
// milestones, persisted write-through to a single JSON file.
package progress

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stats are the cumulative counters. LastActivityDate drives the streak
// rules and is compared by calendar day, not wall-clock interval.
type Stats struct {
	TotalWorkflowsCompleted int            `json:"total_workflows_completed"`
	TotalStepsCompleted     int            `json:"total_steps_completed"`
	CurrentStreak           int            `json:"current_streak"`
	LongestStreak           int            `json:"longest_streak"`
	LastActivityDate        time.Time      `json:"last_activity_date"`
	WorkflowTypeUsage       map[string]int `json:"workflow_type_usage"`
}

// Milestone is a one-time achievement. Identity is the ID; once achieved
// it never regresses and never fires again.
type Milestone struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Achieved    bool       `json:"achieved"`
	AchievedAt  *time.Time `json:"achieved_at,omitempty"`
}

// persisted is the on-disk shape of the progress file.
type persisted struct {
	Stats      Stats       `json:"stats"`
	Milestones []Milestone `json:"milestones"`
}

// Tracker owns the progress file. Construction kicks off an async load;
// callers go through WaitForLoad (all mutating and reading methods do)
// so nobody observes defaults that an in-flight load is about to replace.
type Tracker struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	loaded chan struct{}

	mu       sync.Mutex
	stats    Stats
	achieved map[string]*time.Time
}

// NewTracker creates a tracker backed by path and starts loading it.
func NewTracker(path string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		path:     path,
		logger:   logger,
		now:      time.Now,
		loaded:   make(chan struct{}),
		stats:    Stats{WorkflowTypeUsage: make(map[string]int)},
		achieved: make(map[string]*time.Time),
	}
	go t.load()
	return t
}

// WaitForLoad blocks until the initial load has completed.
func (t *Tracker) WaitForLoad() {
	<-t.loaded
}

// load reads the progress file once. Missing or corrupt files leave the
// tracker at defaults; loading never fails.
func (t *Tracker) load() {
	defer close(t.loaded)

	data, err := os.ReadFile(t.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.logger.Warn("failed to read progress file", zap.Error(err))
		}
		return
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		t.logger.Warn("discarding corrupt progress file", zap.Error(err))
		return
	}

	t.stats = p.Stats
	if t.stats.WorkflowTypeUsage == nil {
		t.stats.WorkflowTypeUsage = make(map[string]int)
	}
	for _, m := range p.Milestones {
		if m.Achieved && m.ID != "" {
			at := m.AchievedAt
			if at == nil {
				now := t.now()
				at = &now
			}
			t.achieved[m.ID] = at
		}
	}
}

// RecordStepCompletion records one completed step and returns any newly
// unlocked milestones.
func (t *Tracker) RecordStepCompletion(workflowType, note string) []Milestone {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalStepsCompleted++
	t.stats.WorkflowTypeUsage[workflowType]++
	t.touchStreak()

	unlocked := t.evaluateMilestones()
	_ = t.persist()
	return unlocked
}

// RecordWorkflowCompletion records a finished workflow and returns any
// newly unlocked milestones.
func (t *Tracker) RecordWorkflowCompletion(workflowType string, stepsCompleted int, minutesSpent float64) []Milestone {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalWorkflowsCompleted++
	t.stats.WorkflowTypeUsage[workflowType]++
	t.touchStreak()

	unlocked := t.evaluateMilestones()
	_ = t.persist()
	return unlocked
}

// RecordProgressCheck performs streak bookkeeping without counting a
// step, for "still here" activity like status checks.
func (t *Tracker) RecordProgressCheck() {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touchStreak()
	_ = t.persist()
}

// GetStats returns a copy of the current statistics.
func (t *Tracker) GetStats() Stats {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.stats
	out.WorkflowTypeUsage = make(map[string]int, len(t.stats.WorkflowTypeUsage))
	for k, v := range t.stats.WorkflowTypeUsage {
		out.WorkflowTypeUsage[k] = v
	}
	return out
}

// GetAchievedMilestones returns achieved milestones ordered by unlock time.
func (t *Tracker) GetAchievedMilestones() []Milestone {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Milestone, 0, len(t.achieved))
	for _, def := range milestoneDefs {
		if at, ok := t.achieved[def.id]; ok {
			out = append(out, Milestone{
				ID:          def.id,
				Name:        def.name,
				Description: def.description,
				Achieved:    true,
				AchievedAt:  at,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AchievedAt.Before(*out[j].AchievedAt)
	})
	return out
}

// ResetStats clears all statistics and achievements and persists the
// empty state.
func (t *Tracker) ResetStats() {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats = Stats{WorkflowTypeUsage: make(map[string]int)}
	t.achieved = make(map[string]*time.Time)
	_ = t.persist()
}

// touchStreak applies the calendar-day streak rules: first activity of a
// new day increments, repeats within a day are no-ops, skipping a day
// resets to 1.
func (t *Tracker) touchStreak() {
	now := t.now()
	today := calendarDay(now)

	switch {
	case t.stats.LastActivityDate.IsZero():
		t.stats.CurrentStreak = 1
	case calendarDay(t.stats.LastActivityDate).Equal(today):
		// Same day: streak unchanged.
	case calendarDay(t.stats.LastActivityDate).AddDate(0, 0, 1).Equal(today):
		t.stats.CurrentStreak++
	default:
		t.stats.CurrentStreak = 1
	}

	if t.stats.CurrentStreak > t.stats.LongestStreak {
		t.stats.LongestStreak = t.stats.CurrentStreak
	}
	t.stats.LastActivityDate = now
}

func calendarDay(ts time.Time) time.Time {
	y, m, d := ts.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// evaluateMilestones checks every unlock condition against the current
// stats. A milestone fires at most once, ever.
func (t *Tracker) evaluateMilestones() []Milestone {
	var unlocked []Milestone
	for _, def := range milestoneDefs {
		if _, done := t.achieved[def.id]; done {
			continue
		}
		if !def.condition(&t.stats) {
			continue
		}
		at := t.now()
		t.achieved[def.id] = &at
		unlocked = append(unlocked, Milestone{
			ID:          def.id,
			Name:        def.name,
			Description: def.description,
			Achieved:    true,
			AchievedAt:  &at,
		})
		t.logger.Info("milestone unlocked", zap.String("id", def.id))
	}
	return unlocked
}

// Save persists the current state on demand, for callers that want the
// write-through confirmed (the coordinator's SaveAll). The error is
// data; in-memory state remains authoritative either way.
func (t *Tracker) Save() error {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persist()
}

// persist writes the whole state back to disk. Failures are logged;
// in-memory state remains authoritative.
func (t *Tracker) persist() error {
	p := persisted{
		Stats:      t.stats,
		Milestones: t.allMilestones(),
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.logger.Warn("failed to create progress directory", zap.Error(err))
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		t.logger.Warn("failed to marshal progress", zap.Error(err))
		return err
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		t.logger.Warn("failed to write progress", zap.Error(err))
		return err
	}
	if err := os.Rename(tmp, t.path); err != nil {
		t.logger.Warn("failed to replace progress file", zap.Error(err))
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// allMilestones renders every known milestone with its achieved flag.
func (t *Tracker) allMilestones() []Milestone {
	out := make([]Milestone, 0, len(milestoneDefs))
	for _, def := range milestoneDefs {
		m := Milestone{
			ID:          def.id,
			Name:        def.name,
			Description: def.description,
		}
		if at, ok := t.achieved[def.id]; ok {
			m.Achieved = true
			m.AchievedAt = at
		}
		out = append(out, m)
	}
	return out
}

// Clear removes the progress file. Used by the coordinator's ClearAll.
func (t *Tracker) Clear() {
	t.WaitForLoad()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Stats{WorkflowTypeUsage: make(map[string]int)}
	t.achieved = make(map[string]*time.Time)
	if err := os.Remove(t.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.logger.Warn("failed to clear progress file", zap.Error(err))
	}
}
