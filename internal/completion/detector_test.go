package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

func phase(name string, suggestions int) workflow.Phase {
	p := workflow.Phase{Name: name}
	for i := 0; i < suggestions; i++ {
		p.Suggestions = append(p.Suggestions, "suggestion")
	}
	return p
}

func TestIsPhaseComplete_EmptyInput(t *testing.T) {
	assert.False(t, IsPhaseComplete("tdd", phase("red", 3), nil, ""))
	assert.False(t, IsPhaseComplete("tdd", phase("red", 0), nil, ""))
}

func TestIsPhaseComplete_CountComplete(t *testing.T) {
	log := []string{"a", "b", "c"}
	assert.True(t, IsPhaseComplete("tdd", phase("red", 3), log, ""))
	assert.True(t, IsPhaseComplete("tdd", phase("red", 2), log, ""))
	assert.False(t, IsPhaseComplete("tdd", phase("red", 4), log, "still going"))
}

func TestIsPhaseComplete_SubstantialProgressWithKeyword(t *testing.T) {
	// 2 of 3 suggestions done, keyword in note: count rule does not fire
	// but the substantial-progress rule does.
	log := []string{"wrote the parser", "added validation"}
	assert.True(t, IsPhaseComplete("tdd", phase("build", 3), log, "implementation working"))

	// Same progress, no keyword.
	assert.False(t, IsPhaseComplete("tdd", phase("build", 3), log, "still poking at it"))

	// Keyword but not enough progress.
	assert.False(t, IsPhaseComplete("tdd", phase("build", 5), []string{"one"}, "done"))
}

func TestIsPhaseComplete_SubstantialThreshold(t *testing.T) {
	cases := []struct {
		suggestions int
		want        int
	}{
		{0, 2}, {1, 2}, {2, 2}, {3, 2}, {4, 3}, {5, 3}, {6, 4}, {10, 6},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, substantialThreshold(tc.suggestions),
			"suggestions=%d", tc.suggestions)
	}
}

func TestIsPhaseComplete_PhaseClosurePhrase(t *testing.T) {
	// Closure phrases complete regardless of progress count.
	for _, note := range []string{
		"completed phase",
		"this phase is complete",
		"Phase Done",
		"ready for next phase",
		"ready for the next phase",
		"moving to next",
		"moving on to the next",
	} {
		assert.True(t, IsPhaseComplete("debug", phase("isolate", 5), nil, note),
			"note=%q", note)
	}

	assert.False(t, IsPhaseComplete("debug", phase("isolate", 5), nil, "phasing things in"))
}

func TestIsPhaseComplete_SemanticTDD(t *testing.T) {
	cases := []struct {
		name  string
		phase string
		log   []string
		note  string
		want  bool
	}{
		{"red fires on test written", "red", []string{"sketched the API"}, "test written and fails as expected", true},
		{"red fires from log history", "red", []string{"failing test in place"}, "anything else", true},
		{"red ignores green vocabulary", "red", []string{"sketched"}, "tests pass", false},
		{"green fires on tests pass", "green", []string{"implemented it"}, "the tests pass now", true},
		{"green fires on suite green", "green", nil, "suite is green", true},
		{"refactor fires on cleaned up", "refactor", []string{"started"}, "cleaned up the helpers", true},
		{"unknown workflow has no table", "red", []string{"x"}, "test written", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wt := "tdd"
			if tc.name == "unknown workflow has no table" {
				wt = "mystery"
			}
			assert.Equal(t, tc.want, IsPhaseComplete(wt, phase(tc.phase, 9), tc.log, tc.note))
		})
	}
}

func TestIsPhaseComplete_SemanticDebug(t *testing.T) {
	cases := []struct {
		phase string
		text  string
		want  bool
	}{
		{"reproduce", "can reproduce it with a two line script", true},
		{"reproduce", "minimal repro attached", true},
		{"isolate", "narrowed it down to the cache layer", true},
		{"isolate", "root cause found in the retry loop", true},
		{"fix", "patched the off by one", true},
		{"verify", "no longer crashes on the original input", true},
		{"verify", "still crashes", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want,
			IsPhaseComplete("debug", phase(tc.phase, 9), nil, tc.text),
			"phase=%s text=%q", tc.phase, tc.text)
	}
}

func TestIsPhaseComplete_SemanticRefactor(t *testing.T) {
	assert.True(t, IsPhaseComplete("refactor", phase("characterize", 9), nil,
		"characterization tests added for the edge cases"))
	assert.True(t, IsPhaseComplete("refactor", phase("restructure", 9), nil,
		"extracted validator into its own package"))
	assert.True(t, IsPhaseComplete("refactor", phase("verify", 9), nil,
		"behavior unchanged, all tests green"))
}

func TestIsPhaseComplete_SemanticMatchIsCaseInsensitive(t *testing.T) {
	assert.True(t, IsPhaseComplete("tdd", phase("RED", 9), nil, "TEST WRITTEN, it FAILS"))
}

func TestIsPhaseComplete_StrongCompletion(t *testing.T) {
	log := []string{"first pass", "second pass"}
	for _, note := range []string{
		"fully done",
		"everything implemented",
		"everything is working",
		"all working",
		"all tests passing",
	} {
		assert.True(t, IsPhaseComplete("mystery", phase("anything", 9), log, note),
			"note=%q", note)
	}

	// Requires at least two progress entries.
	assert.False(t, IsPhaseComplete("mystery", phase("anything", 9), []string{"one"}, "fully done"))
}

func TestIsPhaseComplete_DeterministicAcrossCalls(t *testing.T) {
	log := []string{"wrote test"}
	for i := 0; i < 3; i++ {
		assert.True(t, IsPhaseComplete("tdd", phase("red", 9), log, "test fails as expected"))
	}
}
