// Package celebrate renders the coach's encouragement prose. Message
// selection is deterministic for a given event so tests and replays see
// stable output; variety comes from hashing the event, not from RNG.
package celebrate

import (
	"fmt"
	"hash/fnv"

	"github.com/fyrsmithlabs/coachd/internal/learning"
)

// EventKind identifies what is being celebrated.
type EventKind string

const (
	EventStep      EventKind = "step"
	EventPhase     EventKind = "phase"
	EventWorkflow  EventKind = "workflow"
	EventMilestone EventKind = "milestone"
)

// Event is one celebratable occurrence.
type Event struct {
	Kind     EventKind
	Workflow string
	Phase    string
	// Detail names the milestone for EventMilestone, or the next phase
	// for EventPhase.
	Detail string
}

var fullTemplates = map[EventKind][]string{
	EventStep: {
		"Nice, another step in the books. Keep that momentum going!",
		"Solid progress! Every step counts.",
		"That's the way. One step closer.",
	},
	EventPhase: {
		"Phase %q complete! On to %q.",
		"You wrapped up %q. Next stop: %q.",
		"Great work finishing %q. Time for %q!",
	},
	EventWorkflow: {
		"Workflow %q complete! That's a full cycle, well done.",
		"You finished the whole %q workflow. Excellent discipline!",
	},
	EventMilestone: {
		"Milestone unlocked: %s! 🎉",
		"Achievement earned: %s. Look at you go!",
	},
}

var minimalTemplates = map[EventKind][]string{
	EventStep:      {"Step recorded."},
	EventPhase:     {"Phase %q done. Next: %q."},
	EventWorkflow:  {"Workflow %q complete."},
	EventMilestone: {"Milestone: %s."},
}

var whisperTemplates = map[EventKind][]string{
	EventStep:      {"✓"},
	EventPhase:     {"✓ %q → %q"},
	EventWorkflow:  {"✓ %q"},
	EventMilestone: {"★ %s"},
}

// Message renders the prose for an event at the given level. Level off
// always returns the empty string.
func Message(level learning.CelebrationLevel, ev Event) string {
	var templates map[EventKind][]string
	switch level {
	case learning.CelebrationOff:
		return ""
	case learning.CelebrationMinimal:
		templates = minimalTemplates
	case learning.CelebrationWhisper:
		templates = whisperTemplates
	default:
		templates = fullTemplates
	}

	options := templates[ev.Kind]
	if len(options) == 0 {
		return ""
	}
	tmpl := options[pick(ev, len(options))]

	switch ev.Kind {
	case EventPhase:
		return fmt.Sprintf(tmpl, ev.Phase, ev.Detail)
	case EventWorkflow:
		return fmt.Sprintf(tmpl, ev.Workflow)
	case EventMilestone:
		return fmt.Sprintf(tmpl, ev.Detail)
	default:
		return tmpl
	}
}

// pick hashes the event into a stable template index.
func pick(ev Event, n int) int {
	h := fnv.New32a()
	h.Write([]byte(string(ev.Kind)))
	h.Write([]byte(ev.Workflow))
	h.Write([]byte(ev.Phase))
	h.Write([]byte(ev.Detail))
	return int(h.Sum32() % uint32(n))
}
