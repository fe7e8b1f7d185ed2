package progress

// milestoneDef is a threshold predicate over Stats. The table is policy
// data; add rows to add achievements, the evaluation loop never changes.
type milestoneDef struct {
	id          string
	name        string
	description string
	condition   func(*Stats) bool
}

var milestoneDefs = []milestoneDef{
	{
		id:          "first_step",
		name:        "First Step",
		description: "Complete your first workflow step.",
		condition:   func(s *Stats) bool { return s.TotalStepsCompleted >= 1 },
	},
	{
		id:          "first_workflow",
		name:        "First Workflow",
		description: "Complete a workflow end to end.",
		condition:   func(s *Stats) bool { return s.TotalWorkflowsCompleted >= 1 },
	},
	{
		id:          "five_workflows",
		name:        "Getting Into It",
		description: "Complete five workflows.",
		condition:   func(s *Stats) bool { return s.TotalWorkflowsCompleted >= 5 },
	},
	{
		id:          "twentyfive_workflows",
		name:        "Seasoned",
		description: "Complete twenty-five workflows.",
		condition:   func(s *Stats) bool { return s.TotalWorkflowsCompleted >= 25 },
	},
	{
		id:          "hundred_steps",
		name:        "Centurion",
		description: "Complete one hundred steps.",
		condition:   func(s *Stats) bool { return s.TotalStepsCompleted >= 100 },
	},
	{
		id:          "streak_three",
		name:        "Warming Up",
		description: "Stay active three days in a row.",
		condition:   func(s *Stats) bool { return s.CurrentStreak >= 3 },
	},
	{
		id:          "streak_seven",
		name:        "On a Roll",
		description: "Stay active seven days in a row.",
		condition:   func(s *Stats) bool { return s.CurrentStreak >= 7 },
	},
	{
		id:          "explorer",
		name:        "Explorer",
		description: "Use three different workflow types.",
		condition:   func(s *Stats) bool { return len(s.WorkflowTypeUsage) >= 3 },
	},
}
