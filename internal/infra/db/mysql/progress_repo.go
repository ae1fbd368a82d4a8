package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/fixedyet/fixedyet/internal/domain/progress"
)

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Create inserts the initial progress row for a request
func (r *ProgressRepository) Create(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO analysis_progress
(request_id, current_step, total_steps, step_title, step_description, step_results, is_completed, error, updated_at)
VALUES (?,?,?,?,?,?,?,?,?);
`
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.RequestID, rec.CurrentStep, rec.TotalSteps,
		stringOrDash(rec.StepTitle), rec.StepDescription,
		marshalStepResults(rec.StepResults),
		boolToInt(rec.Completed), rec.Error, updated,
	)
	return err
}

// Update overwrites the row in place (writes are idempotent upserts keyed by
// request id, so last-write-wins is fine)
func (r *ProgressRepository) Update(ctx context.Context, rec *domain.Record) error {
	const q = `
UPDATE analysis_progress
SET current_step = ?,
    total_steps = ?,
    step_title = ?,
    step_description = ?,
    step_results = ?,
    is_completed = ?,
    error = ?,
    updated_at = ?
WHERE request_id = ?;
`
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.CurrentStep, rec.TotalSteps,
		stringOrDash(rec.StepTitle), rec.StepDescription,
		marshalStepResults(rec.StepResults),
		boolToInt(rec.Completed), rec.Error, updated,
		rec.RequestID,
	)
	return err
}

// Get by request id; nil when absent
func (r *ProgressRepository) Get(ctx context.Context, requestID string) (*domain.Record, error) {
	const q = `
SELECT request_id, current_step, total_steps, step_title, step_description, step_results, is_completed, error, updated_at
FROM analysis_progress
WHERE request_id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, requestID)

	var rec domain.Record
	var desc, errMsg sql.NullString
	var stepResults []byte
	var completed int
	if err := row.Scan(
		&rec.RequestID, &rec.CurrentStep, &rec.TotalSteps, &rec.StepTitle,
		&desc, &stepResults, &completed, &errMsg, &rec.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rec.StepDescription = desc.String
	rec.Error = errMsg.String
	rec.Completed = completed != 0
	if len(stepResults) > 0 {
		// malformed step results are dropped, not fatal
		_ = json.Unmarshal(stepResults, &rec.StepResults)
	}
	return &rec, nil
}

func marshalStepResults(m map[int]domain.StepResult) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
