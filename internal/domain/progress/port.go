package progress

import "context"

// Repository port (interface for progress persistence)
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	// Get returns nil, nil when no record exists for the request.
	Get(ctx context.Context, requestID string) (*Record, error)
}
