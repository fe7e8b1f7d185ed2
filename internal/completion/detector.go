// Package completion decides whether a workflow phase is complete given
// the free-text evidence the user has supplied. Detection is pure and
// stateless; the keyword tables in rules.go encode product policy and
// are versioned as data, not control flow.
package completion

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/coachd/internal/workflow"
)

var (
	// completionKeywords matches a note that sounds like finished work.
	completionKeywords = regexp.MustCompile(
		`(?i)\b(done|working|implemented|fixed|tested|ready|finished|complete|completed|passes|passing)\b`)

	// phaseClosure matches explicit "this phase is over" language.
	phaseClosure = regexp.MustCompile(
		`(?i)(completed\s+(the\s+)?phase|phase\s+(is\s+)?(complete|done|finished)|ready\s+for\s+(the\s+)?next\s+phase|moving\s+(on\s+)?to\s+(the\s+)?next|next\s+phase\s+please)`)

	// strongCompletion matches unambiguous whole-phase completion claims.
	strongCompletion = regexp.MustCompile(
		`(?i)(fully\s+done|everything\s+(is\s+)?(implemented|working|done)|all\s+(tests?\s+)?(working|passing|done|green)|completely\s+(done|finished))`)
)

// IsPhaseComplete reports whether the phase should be considered complete.
// The rules are OR'd: the most permissive signal wins, so ambiguous input
// never blocks the user from advancing.
func IsPhaseComplete(workflowType string, phase workflow.Phase, progressLog []string, latestNote string) bool {
	if len(progressLog) == 0 && latestNote == "" {
		return false
	}

	// Count-complete: every suggested action has a progress entry.
	if len(phase.Suggestions) > 0 && len(progressLog) >= len(phase.Suggestions) {
		return true
	}

	// Substantial progress plus an explicit completion keyword.
	if len(progressLog) >= substantialThreshold(len(phase.Suggestions)) &&
		completionKeywords.MatchString(latestNote) {
		return true
	}

	// Explicit phase-closure phrase, regardless of progress count.
	if phaseClosure.MatchString(latestNote) {
		return true
	}

	// Domain-vocabulary rules for this workflow type, evaluated against
	// the whole progress log plus the latest note.
	if matchesSemanticRule(workflowType, phase.Name, combinedText(progressLog, latestNote)) {
		return true
	}

	// Generic strong-completion language with some progress behind it.
	if len(progressLog) >= 2 && strongCompletion.MatchString(latestNote) {
		return true
	}

	return false
}

// substantialThreshold is max(2, ceil(0.6 * suggestionCount)).
func substantialThreshold(suggestionCount int) int {
	n := (suggestionCount*6 + 9) / 10 // ceil(0.6*n) in integer arithmetic
	if n < 2 {
		n = 2
	}
	return n
}

func combinedText(progressLog []string, latestNote string) string {
	parts := make([]string, 0, len(progressLog)+1)
	parts = append(parts, progressLog...)
	if latestNote != "" {
		parts = append(parts, latestNote)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// matchesSemanticRule checks the per-workflow rule table. A rule applies
// when its phase keyword appears in the phase name (case-insensitive).
func matchesSemanticRule(workflowType, phaseName, text string) bool {
	rules, ok := semanticRules[workflowType]
	if !ok {
		return false
	}
	name := strings.ToLower(phaseName)
	for _, rule := range rules {
		if strings.Contains(name, rule.phaseKeyword) && rule.pattern.MatchString(text) {
			return true
		}
	}
	return false
}
