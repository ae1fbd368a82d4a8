package progress

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fixedyet/fixedyet/internal/application"
	domain "github.com/fixedyet/fixedyet/internal/domain/progress"
)

// Step names one pipeline phase for progress display.
type Step struct {
	Step        int
	Title       string
	Description string
}

// DefaultSteps returns the analysis step table. Injected into the tracker so
// tests can supply their own.
func DefaultSteps() []Step {
	return []Step{
		{Step: 1, Title: "Extract Keywords", Description: "AI analyzing your issue description for search terms"},
		{Step: 2, Title: "Fetch Releases", Description: "Getting all available releases and version information"},
		{Step: 3, Title: "Search Relevant Commits", Description: "Looking through repository history for relevant changes"},
		{Step: 4, Title: "Analyze Commit Messages", Description: "AI evaluating commit messages for potential fixes"},
		{Step: 5, Title: "Fetch and Analyze PRs", Description: "Getting detailed information about relevant pull requests"},
		{Step: 6, Title: "Combined Analysis", Description: "Combining all findings to determine if issue was fixed"},
	}
}

// StepData carries dynamic detail appended to a step description.
type StepData struct {
	Keywords []string
	Count    *int
	Total    *int
}

// Count helper for StepData literals.
func Count(n int) *int { return &n }

// Tracker records step-by-step status for one request. Every write is
// best-effort: store failures are logged and never abort the analysis.
type Tracker struct {
	repo      domain.Repository
	requestID string
	steps     []Step
	results   map[int]domain.StepResult
	clock     application.Clock
}

func NewTracker(repo domain.Repository, requestID string, steps []Step, clock application.Clock) *Tracker {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Tracker{
		repo:      repo,
		requestID: requestID,
		steps:     steps,
		results:   make(map[int]domain.StepResult),
		clock:     clock,
	}
}

// Steps exposes the injected step table for callers driving the workflow.
func (t *Tracker) Steps() []Step { return t.steps }

// TotalSteps is fixed per pipeline run.
func (t *Tracker) TotalSteps() int { return len(t.steps) }

// Initialize creates the record at step 0.
func (t *Tracker) Initialize(ctx context.Context) {
	rec := &domain.Record{
		RequestID:       t.requestID,
		CurrentStep:     0,
		TotalSteps:      len(t.steps),
		StepTitle:       "Starting analysis...",
		StepDescription: "Initializing AI-powered issue analysis",
		UpdatedAt:       t.clock.Now(),
	}
	if err := t.repo.Create(ctx, rec); err != nil {
		log.Printf("progress: create failed for %s: %v", t.requestID, err)
	}
}

// UpdateStep overwrites the current-step fields. Steps must be monotonically
// non-decreasing in normal operation; this is caller discipline, not
// enforced here.
func (t *Tracker) UpdateStep(ctx context.Context, step int, title, description string) {
	rec := &domain.Record{
		RequestID:       t.requestID,
		CurrentStep:     step,
		TotalSteps:      len(t.steps),
		StepTitle:       title,
		StepDescription: description,
		StepResults:     t.results,
		UpdatedAt:       t.clock.Now(),
	}
	if err := t.repo.Update(ctx, rec); err != nil {
		log.Printf("progress: update failed for %s: %v", t.requestID, err)
		return
	}
	log.Printf("progress: step %d/%d - %s", step, len(t.steps), title)
}

// UpdateStepWithData appends keyword/count detail to the description and
// snapshots the step result for later retrieval.
func (t *Tracker) UpdateStepWithData(ctx context.Context, step int, title, baseDescription string, data StepData) {
	description := baseDescription
	if len(data.Keywords) > 0 {
		description += fmt.Sprintf(" (Keywords: %s)", strings.Join(data.Keywords, ", "))
	}
	if data.Count != nil {
		description += fmt.Sprintf(" (Found: %d)", *data.Count)
	}
	if data.Total != nil {
		description += fmt.Sprintf(" (Total: %d)", *data.Total)
	}

	t.results[step] = domain.StepResult{Title: title, Description: description}
	t.UpdateStep(ctx, step, title, description)
}

// Complete marks the analysis finished.
func (t *Tracker) Complete(ctx context.Context) {
	rec := &domain.Record{
		RequestID:       t.requestID,
		CurrentStep:     len(t.steps),
		TotalSteps:      len(t.steps),
		StepTitle:       "Analysis Complete",
		StepDescription: "Results ready",
		StepResults:     t.results,
		Completed:       true,
		UpdatedAt:       t.clock.Now(),
	}
	if err := t.repo.Update(ctx, rec); err != nil {
		log.Printf("progress: complete failed for %s: %v", t.requestID, err)
	}
}

// Fail marks the analysis finished with an error. Failed is terminal and
// only distinguishable from success by the error field.
func (t *Tracker) Fail(ctx context.Context, message string, atStep int) {
	if atStep <= 0 {
		atStep = len(t.steps)
	}
	rec := &domain.Record{
		RequestID:       t.requestID,
		CurrentStep:     atStep,
		TotalSteps:      len(t.steps),
		StepTitle:       "Analysis Failed",
		StepDescription: "An error occurred during analysis",
		StepResults:     t.results,
		Completed:       true,
		Error:           message,
		UpdatedAt:       t.clock.Now(),
	}
	if err := t.repo.Update(ctx, rec); err != nil {
		log.Printf("progress: fail-update failed for %s: %v", t.requestID, err)
	}
}
