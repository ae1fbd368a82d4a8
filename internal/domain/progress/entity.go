package progress

import "time"

// StepResult is a snapshot of one step's final title/description.
type StepResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Record tracks the live state of one in-flight analysis. One row per
// request; created at start, updated in place, terminal on complete or fail.
type Record struct {
	RequestID       string             `json:"request_id"`
	CurrentStep     int                `json:"current_step"`
	TotalSteps      int                `json:"total_steps"`
	StepTitle       string             `json:"step_title"`
	StepDescription string             `json:"step_description,omitempty"`
	StepResults     map[int]StepResult `json:"step_results,omitempty"`
	Completed       bool               `json:"completed"`
	Error           string             `json:"error,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Failed reports whether the record is terminal with an error. Completed
// alone does not distinguish success from failure; callers must check Error.
func (r *Record) Failed() bool {
	return r.Completed && r.Error != ""
}
