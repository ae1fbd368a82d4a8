package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fixedyet/fixedyet/internal/infra/cache"
)

// CacheRepository implements the cache.Store port on Postgres.
type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

func (r *CacheRepository) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	const q = `
INSERT INTO cache_entries (cache_key, data, expires_at)
VALUES ($1,$2,$3)
ON CONFLICT (cache_key) DO UPDATE SET
 data=EXCLUDED.data,
 expires_at=EXCLUDED.expires_at;
`
	_, err := r.db.ExecContext(ctx, q, key, data, expiresAt)
	return err
}

func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	const q = `
SELECT data, expires_at
FROM cache_entries
WHERE cache_key=$1 LIMIT 1;
`
	var data []byte
	var expiresAt time.Time
	if err := r.db.QueryRowContext(ctx, q, key).Scan(&data, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, cache.ErrNotFound
		}
		return nil, time.Time{}, err
	}
	return data, expiresAt, nil
}

func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM cache_entries WHERE cache_key=$1;`
	_, err := r.db.ExecContext(ctx, q, key)
	return err
}

// Sweep removes all expired rows.
func (r *CacheRepository) Sweep(ctx context.Context) (int64, error) {
	const q = `DELETE FROM cache_entries WHERE expires_at < $1;`
	res, err := r.db.ExecContext(ctx, q, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
