package celebrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/coachd/internal/learning"
)

func TestMessage_OffSuppressesEverything(t *testing.T) {
	for _, kind := range []EventKind{EventStep, EventPhase, EventWorkflow, EventMilestone} {
		msg := Message(learning.CelebrationOff, Event{Kind: kind, Workflow: "tdd", Phase: "red", Detail: "x"})
		assert.Empty(t, msg, "kind %s", kind)
	}
}

func TestMessage_Deterministic(t *testing.T) {
	ev := Event{Kind: EventStep, Workflow: "tdd", Phase: "green"}
	first := Message(learning.CelebrationFull, ev)
	assert.NotEmpty(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Message(learning.CelebrationFull, ev))
	}
}

func TestMessage_PhaseNamesBothPhases(t *testing.T) {
	msg := Message(learning.CelebrationFull, Event{Kind: EventPhase, Phase: "red", Detail: "green"})
	assert.Contains(t, msg, `"red"`)
	assert.Contains(t, msg, `"green"`)
}

func TestMessage_MilestoneNamesMilestone(t *testing.T) {
	msg := Message(learning.CelebrationMinimal, Event{Kind: EventMilestone, Detail: "First Step"})
	assert.Contains(t, msg, "First Step")
}

func TestMessage_WhisperIsTerse(t *testing.T) {
	msg := Message(learning.CelebrationWhisper, Event{Kind: EventWorkflow, Workflow: "debug"})
	assert.Less(t, len(msg), 20)
	assert.Contains(t, msg, "debug")
}

func TestMessage_LevelsDiffer(t *testing.T) {
	ev := Event{Kind: EventWorkflow, Workflow: "tdd"}
	full := Message(learning.CelebrationFull, ev)
	minimal := Message(learning.CelebrationMinimal, ev)
	whisper := Message(learning.CelebrationWhisper, ev)
	assert.NotEqual(t, full, minimal)
	assert.NotEqual(t, minimal, whisper)
}
