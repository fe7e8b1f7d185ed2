package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/coachd/internal/coordinator"
	"github.com/fyrsmithlabs/coachd/internal/learning"
	"github.com/fyrsmithlabs/coachd/internal/progress"
	"github.com/fyrsmithlabs/coachd/internal/session"
)

// instrument wires the standard per-tool bookkeeping: active gauge,
// invocation metrics, and the learning engine's tool-usage signal. The
// returned func runs in a defer; *errp is read at that point.
func (s *Server) instrument(ctx context.Context, tool string, errp *error) func() {
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)
	s.engine.RecordToolUsage(tool, nil)
	return func() {
		s.metrics.DecrementActive(ctx, tool)
		s.metrics.RecordInvocation(ctx, tool, time.Since(start), *errp)
	}
}

func (s *Server) registerTools() {
	s.registerWorkflowTools()
	s.registerProgressTools()
	s.registerCoachTools()
}

// ===== WORKFLOW TOOLS =====

type workflowSummary struct {
	Type        string   `json:"type" jsonschema:"Workflow type identifier"`
	Name        string   `json:"name" jsonschema:"Human-readable name"`
	Description string   `json:"description" jsonschema:"What the workflow is for"`
	Phases      []string `json:"phases" jsonschema:"Ordered phase names"`
}

type workflowListOutput struct {
	Workflows []workflowSummary `json:"workflows" jsonschema:"Available workflows"`
	Count     int               `json:"count" jsonschema:"Number of workflows"`
}

type workflowStartInput struct {
	WorkflowType string `json:"workflow_type" jsonschema:"required,Workflow type to start"`
	Context      string `json:"context,omitempty" jsonschema:"Free-text description of the task at hand"`
}

type workflowProgressInput struct {
	Note string `json:"note" jsonschema:"required,What was just done or learned"`
}

type workflowAbandonInput struct {
	Reason string `json:"reason,omitempty" jsonschema:"Why the workflow is being dropped"`
}

type workflowAbandonOutput struct {
	Abandoned bool `json:"abandoned" jsonschema:"True when a workflow was dropped"`
}

func (s *Server) registerWorkflowTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_list",
		Description: "List the available guided workflows and their phases",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, workflowListOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "workflow_list", &toolErr)()

		all := s.catalog.List()
		out := workflowListOutput{Count: len(all)}
		for _, w := range all {
			phases := make([]string, len(w.Phases))
			for i, p := range w.Phases {
				phases[i] = p.Name
			}
			out.Workflows = append(out.Workflows, workflowSummary{
				Type:        w.Type,
				Name:        w.Name,
				Description: w.Description,
				Phases:      phases,
			})
		}
		return textResult(fmt.Sprintf("%d workflows available", out.Count)), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_start",
		Description: "Start a guided workflow, optionally with the task context that led to it",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args workflowStartInput) (*mcp.CallToolResult, session.StartResult, error) {
		var toolErr error
		defer s.instrument(ctx, "workflow_start", &toolErr)()

		result, err := s.controller.StartWorkflow(ctx, args.WorkflowType, args.Context)
		if err != nil {
			toolErr = err
			return nil, session.StartResult{}, err
		}
		return textResult(fmt.Sprintf("Started %q in phase %q: %s",
			result.WorkflowType, result.Phase.Name, result.Phase.Guidance)), *result, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_progress",
		Description: "Report progress on the active workflow; the coach advances phases when the work sounds complete",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args workflowProgressInput) (*mcp.CallToolResult, session.ProgressResult, error) {
		var toolErr error
		defer s.instrument(ctx, "workflow_progress", &toolErr)()

		result, err := s.controller.ReportProgress(ctx, args.Note)
		if err != nil {
			toolErr = err
			return nil, session.ProgressResult{}, err
		}

		text := "Progress recorded."
		switch {
		case result.WorkflowComplete:
			text = "Workflow complete!"
		case result.PhaseComplete:
			text = fmt.Sprintf("Phase complete, now in %q: %s", result.Phase.Name, result.Phase.Guidance)
		}
		return textResult(text), *result, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_status",
		Description: "Show the active workflow, its current phase, and progress so far",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, session.StatusResult, error) {
		var toolErr error
		defer s.instrument(ctx, "workflow_status", &toolErr)()

		status := s.controller.Status(ctx)
		text := "No active workflow."
		if status.Active {
			text = fmt.Sprintf("Active: %q, phase %d/%d (%s)",
				status.WorkflowType, status.PhaseIndex+1, status.TotalPhases, status.Phase.Name)
		}
		return textResult(text), *status, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workflow_abandon",
		Description: "Abandon the active workflow without completing it",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args workflowAbandonInput) (*mcp.CallToolResult, workflowAbandonOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "workflow_abandon", &toolErr)()

		if err := s.controller.Abandon(ctx, args.Reason); err != nil {
			toolErr = err
			return nil, workflowAbandonOutput{}, err
		}
		return textResult("Workflow abandoned."), workflowAbandonOutput{Abandoned: true}, nil
	})
}

// ===== PROGRESS TOOLS =====

type progressStatsOutput struct {
	Stats progress.Stats `json:"stats" jsonschema:"Cumulative usage statistics"`
}

type progressMilestonesOutput struct {
	Milestones []progress.Milestone `json:"milestones" jsonschema:"Achieved milestones in unlock order"`
	Count      int                  `json:"count" jsonschema:"Number of achieved milestones"`
}

func (s *Server) registerProgressTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "progress_stats",
		Description: "Show cumulative progress statistics including streaks",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, progressStatsOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "progress_stats", &toolErr)()

		stats := s.tracker.GetStats()
		text := fmt.Sprintf("%d steps, %d workflows, current streak %d days",
			stats.TotalStepsCompleted, stats.TotalWorkflowsCompleted, stats.CurrentStreak)
		return textResult(text), progressStatsOutput{Stats: stats}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "progress_milestones",
		Description: "List achieved milestones",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, progressMilestonesOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "progress_milestones", &toolErr)()

		achieved := s.tracker.GetAchievedMilestones()
		return textResult(fmt.Sprintf("%d milestones achieved", len(achieved))),
			progressMilestonesOutput{Milestones: achieved, Count: len(achieved)}, nil
	})
}

// ===== COACH TOOLS =====

type coachHintInput struct {
	Context string `json:"context,omitempty" jsonschema:"Optional description of what the user is doing right now"`
}

type coachHintOutput struct {
	Hint       *learning.Hint `json:"hint,omitempty" jsonschema:"The hint, absent when the coach has nothing to say"`
	Workflow   string         `json:"workflow,omitempty" jsonschema:"Recommended workflow when no workflow is active"`
	Reason     string         `json:"reason,omitempty" jsonschema:"Why that workflow was recommended"`
	Confidence float64        `json:"confidence,omitempty" jsonschema:"Recommendation confidence"`
}

type hintFeedbackInput struct {
	Kind     string `json:"kind,omitempty" jsonschema:"Which hint kind the feedback is about"`
	Accepted bool   `json:"accepted" jsonschema:"required,True when the hint was followed"`
}

type hintFeedbackOutput struct {
	HintAcceptanceRate float64 `json:"hint_acceptance_rate" jsonschema:"Updated smoothed acceptance rate"`
}

type stateStatusOutput struct {
	Status coordinator.StateStatus `json:"status" jsonschema:"Snapshot of all persisted coach state"`
}

type profileSummaryOutput struct {
	UserID             string   `json:"user_id" jsonschema:"Stable anonymous user id"`
	TotalSessions      int      `json:"total_sessions" jsonschema:"Sessions recorded"`
	HintAcceptanceRate float64  `json:"hint_acceptance_rate" jsonschema:"Smoothed hint acceptance rate"`
	CelebrationLevel   string   `json:"celebration_level" jsonschema:"Current celebration preference"`
	HintIntensity      string   `json:"hint_intensity" jsonschema:"Current hint intensity"`
	KnownWorkflows     []string `json:"known_workflows" jsonschema:"Workflow types with learned patterns"`
	Achievements       int      `json:"achievements" jsonschema:"Achievements mirrored into the profile"`
}

func (s *Server) registerCoachTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "coach_hint",
		Description: "Ask the coach for an adaptive hint, or a workflow recommendation when nothing is active",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args coachHintInput) (*mcp.CallToolResult, coachHintOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "coach_hint", &toolErr)()

		status := s.controller.Status(ctx)
		if !status.Active {
			rec := s.controller.ProvideContext(ctx, args.Context)
			out := coachHintOutput{
				Workflow:   rec.WorkflowType,
				Reason:     rec.Reason,
				Confidence: rec.Confidence,
			}
			return textResult(fmt.Sprintf("Try the %q workflow: %s", rec.WorkflowType, rec.Reason)), out, nil
		}

		pctx := s.engine.GeneratePredictiveContext(status.WorkflowType, status.Phase.Name, args.Context)
		hint := s.engine.GenerateAdaptiveHint(pctx)
		if hint == nil {
			return textResult("Nothing to add right now. Keep going."), coachHintOutput{}, nil
		}
		return textResult(hint.Message), coachHintOutput{Hint: hint}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hint_feedback",
		Description: "Tell the coach whether the last hint was followed, so future hint frequency adapts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args hintFeedbackInput) (*mcp.CallToolResult, hintFeedbackOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "hint_feedback", &toolErr)()

		s.engine.RecordHintInteraction(&learning.Hint{Kind: learning.HintKind(args.Kind)}, args.Accepted)
		out := hintFeedbackOutput{
			HintAcceptanceRate: s.engine.GetUserProfile().BehaviorMetrics.HintAcceptanceRate,
		}
		text := "Noted, I'll hold back a bit."
		if args.Accepted {
			text = "Good to know that helped."
		}
		return textResult(text), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "profile_summary",
		Description: "Summarize the learned user profile",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, profileSummaryOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "profile_summary", &toolErr)()

		p := s.engine.GetUserProfile()
		out := profileSummaryOutput{
			UserID:             p.UserID,
			TotalSessions:      p.BehaviorMetrics.TotalSessions,
			HintAcceptanceRate: p.BehaviorMetrics.HintAcceptanceRate,
			CelebrationLevel:   string(p.Preferences.CelebrationLevel),
			HintIntensity:      string(p.Preferences.HintIntensity),
			Achievements:       len(p.Achievements),
		}
		for _, wp := range p.WorkflowPatterns {
			out.KnownWorkflows = append(out.KnownWorkflows, wp.WorkflowType)
		}
		return textResult(fmt.Sprintf("Profile %s: %d sessions, %d achievements",
			out.UserID, out.TotalSessions, out.Achievements)), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "state_status",
		Description: "Show a diagnostic snapshot of all persisted coach state",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, stateStatusOutput, error) {
		var toolErr error
		defer s.instrument(ctx, "state_status", &toolErr)()

		status := s.coord.GetStateStatus()
		return textResult("State snapshot collected."), stateStatusOutput{Status: status}, nil
	})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
