package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// RequestRepository persists analysis requests and their results.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// SaveRequest inserts the submission row. Requests are immutable; a replayed
// id simply refreshes the same row.
func (r *RequestRepository) SaveRequest(ctx context.Context, req *domain.Request) error {
	const q = `
INSERT INTO analysis_requests (id, sdk, version, description, created_at)
VALUES (?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 sdk=VALUES(sdk), version=VALUES(version), description=VALUES(description);
`
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		req.ID, stringOrDash(req.SDK), stringOrDash(req.Version), req.Description, created,
	)
	return err
}

// SaveResult inserts the completed analysis row.
func (r *RequestRepository) SaveResult(ctx context.Context, res *domain.Result) error {
	const q = `
INSERT INTO analysis_results (request_id, status, confidence, summary, prs, created_at)
VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), confidence=VALUES(confidence),
 summary=VALUES(summary), prs=VALUES(prs);
`
	prs, err := json.Marshal(res.PRs)
	if err != nil {
		prs = []byte("[]")
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		res.RequestID, string(res.Status), res.Confidence, res.Summary, prs, created,
	)
	return err
}

// History returns the latest requests joined with their results, newest first.
func (r *RequestRepository) History(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT r.id, r.sdk, r.version, r.description, r.created_at,
       res.status, res.confidence, res.summary, res.prs, res.created_at
FROM analysis_requests r
LEFT JOIN analysis_results res ON res.request_id = r.id
ORDER BY r.created_at DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var status, summary sql.NullString
		var confidence sql.NullInt64
		var prs []byte
		var resultCreated sql.NullTime
		if err := rows.Scan(
			&e.Request.ID, &e.Request.SDK, &e.Request.Version, &e.Request.Description, &e.Request.CreatedAt,
			&status, &confidence, &summary, &prs, &resultCreated,
		); err != nil {
			return nil, err
		}
		if status.Valid {
			res := &domain.Result{
				RequestID:  e.Request.ID,
				Status:     domain.CoerceStatus(status.String),
				Confidence: domain.ClampConfidence(int(confidence.Int64)),
				Summary:    summary.String,
				CreatedAt:  resultCreated.Time,
			}
			if len(prs) > 0 {
				_ = json.Unmarshal(prs, &res.PRs)
			}
			e.Result = res
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
