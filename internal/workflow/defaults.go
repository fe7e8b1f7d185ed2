package workflow

// Defaults returns the built-in workflow definitions. These mirror the
// YAML files seeded by `coachd install`; user files of the same type
// override them.
func Defaults() []*Workflow {
	return []*Workflow{
		{
			Type:         "tdd",
			Name:         "Test-Driven Development",
			Description:  "Red-green-refactor loop: write a failing test, make it pass, clean up.",
			TriggerHints: []string{"test", "tests", "testing", "coverage", "regression"},
			Phases: []Phase{
				{
					Name:     "red",
					Guidance: "Write a failing test that captures the behavior you want.",
					Suggestions: []string{
						"Pick the smallest behavior to specify",
						"Write a test that exercises it",
						"Run the test and confirm it fails for the right reason",
					},
				},
				{
					Name:     "green",
					Guidance: "Write the simplest code that makes the test pass.",
					Suggestions: []string{
						"Implement just enough to satisfy the test",
						"Run the full suite and confirm it passes",
					},
				},
				{
					Name:     "refactor",
					Guidance: "Clean up the code while keeping the tests green.",
					Suggestions: []string{
						"Remove duplication introduced while getting to green",
						"Improve names and structure",
						"Run the suite again to confirm nothing broke",
					},
				},
			},
		},
		{
			Type:         "debug",
			Name:         "Systematic Debugging",
			Description:  "Reproduce, isolate, fix, verify.",
			TriggerHints: []string{"bug", "crash", "error", "broken", "failing", "exception"},
			Phases: []Phase{
				{
					Name:     "reproduce",
					Guidance: "Get a reliable reproduction of the failure.",
					Suggestions: []string{
						"Capture the exact failing input or steps",
						"Reduce it to the smallest reproduction you can",
					},
				},
				{
					Name:     "isolate",
					Guidance: "Narrow the failure down to a root cause.",
					Suggestions: []string{
						"Bisect the code path or history",
						"Add targeted logging or assertions",
						"Confirm the root cause explains every symptom",
					},
				},
				{
					Name:     "fix",
					Guidance: "Apply the smallest correct fix.",
					Suggestions: []string{
						"Fix the cause, not the symptom",
						"Add a regression test that fails without the fix",
					},
				},
				{
					Name:     "verify",
					Guidance: "Prove the failure is gone and nothing else broke.",
					Suggestions: []string{
						"Re-run the original reproduction",
						"Run the full test suite",
					},
				},
			},
		},
		{
			Type:         "refactor",
			Name:         "Safe Refactoring",
			Description:  "Characterize current behavior, change structure, verify equivalence.",
			TriggerHints: []string{"refactor", "cleanup", "restructure", "simplify", "extract"},
			Phases: []Phase{
				{
					Name:     "characterize",
					Guidance: "Pin down current behavior before changing anything.",
					Suggestions: []string{
						"Identify the seams of the code you are changing",
						"Add characterization tests where coverage is thin",
					},
				},
				{
					Name:     "restructure",
					Guidance: "Make the structural change in small reversible steps.",
					Suggestions: []string{
						"Apply one mechanical refactoring at a time",
						"Keep the tests passing after every step",
						"Commit at each stable point",
					},
				},
				{
					Name:     "verify",
					Guidance: "Confirm behavior is unchanged.",
					Suggestions: []string{
						"Run the full suite",
						"Diff observable behavior against the characterization tests",
					},
				},
			},
		},
	}
}
