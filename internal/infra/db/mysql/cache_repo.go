package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/fixedyet/fixedyet/internal/infra/cache"
)

// CacheRepository implements the cache.Store port on MySQL.
type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Put insert/update a cache row
func (r *CacheRepository) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	const q = `
INSERT INTO cache_entries (cache_key, data, expires_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE
 data=VALUES(data),
 expires_at=VALUES(expires_at);
`
	_, err := r.db.ExecContext(ctx, q, key, data, expiresAt)
	return err
}

// Get by key
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	const q = `
SELECT data, expires_at
FROM cache_entries
WHERE cache_key=? LIMIT 1;
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
	const q = `DELETE FROM cache_entries WHERE cache_key=?;`
	_, err := r.db.ExecContext(ctx, q, key)
	return err
}

// Sweep removes all expired rows. Run periodically; expiry is also checked
// lazily on read.
func (r *CacheRepository) Sweep(ctx context.Context) (int64, error) {
	const q = `DELETE FROM cache_entries WHERE expires_at < ?;`
	res, err := r.db.ExecContext(ctx, q, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
