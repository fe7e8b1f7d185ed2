// Package workflow defines guided workflow definitions and the catalog
// that loads them from YAML files.
package workflow

// Phase is a named step within a workflow. Guidance is shown to the user
// when the phase begins; Suggestions are concrete actions the user can
// report progress against.
type Phase struct {
	Name        string   `json:"name" koanf:"name" yaml:"name"`
	Guidance    string   `json:"guidance" koanf:"guidance" yaml:"guidance"`
	Suggestions []string `json:"suggestions" koanf:"suggestions" yaml:"suggestions"`
}

// Workflow is a named, ordered sequence of phases guiding a task.
type Workflow struct {
	// Type is the stable identifier (e.g. "tdd", "debug").
	Type        string  `json:"type" koanf:"type" yaml:"type"`
	Name        string  `json:"name" koanf:"name" yaml:"name"`
	Description string  `json:"description" koanf:"description" yaml:"description"`
	Phases      []Phase `json:"phases" koanf:"phases" yaml:"phases"`

	// TriggerHints are context words that suggest this workflow applies.
	// Used as the cold-start seed before the learning engine has history.
	TriggerHints []string `json:"trigger_hints,omitempty" koanf:"trigger_hints" yaml:"trigger_hints,omitempty"`
}

// PhaseAt returns the phase at index i, or false if out of bounds.
func (w *Workflow) PhaseAt(i int) (Phase, bool) {
	if i < 0 || i >= len(w.Phases) {
		return Phase{}, false
	}
	return w.Phases[i], true
}

// LastPhase reports whether index i is the final phase.
func (w *Workflow) LastPhase(i int) bool {
	return i >= len(w.Phases)-1
}
