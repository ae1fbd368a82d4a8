package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// ErrNotFound is returned by Store implementations when a key is absent.
var ErrNotFound = errors.New("cache entry not found")

// Store port (interface for the backing key/value store)
type Store interface {
	Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error
	Get(ctx context.Context, key string) (data []byte, expiresAt time.Time, err error)
	Delete(ctx context.Context, key string) error
}

// Cache namespaces. Logical partitions of the key space.
const (
	NamespaceTags     = "github:tags"
	NamespaceCommits  = "github:commits"
	NamespacePRs      = "github:prs"
	NamespaceAnalysis = "openai:analysis"
)

// TTLConfig holds per-namespace TTLs. Data volatility differs: tag lists are
// the most stable, PR metadata the most volatile, combined analysis results
// are cached longest.
type TTLConfig struct {
	Tags     time.Duration
	Commits  time.Duration
	PRs      time.Duration
	Analysis time.Duration
	Default  time.Duration
}

// DefaultTTLs mirrors the per-namespace volatility table.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		Tags:     6 * time.Hour,
		Commits:  1 * time.Hour,
		PRs:      30 * time.Minute,
		Analysis: 24 * time.Hour,
		Default:  24 * time.Hour,
	}
}

// For returns the TTL for a namespace.
func (t TTLConfig) For(namespace string) time.Duration {
	switch namespace {
	case NamespaceTags:
		return t.Tags
	case NamespaceCommits:
		return t.Commits
	case NamespacePRs:
		return t.PRs
	case NamespaceAnalysis:
		return t.Analysis
	}
	return t.Default
}

// Service is a content-addressed cache over a key/value store. Failures of
// the backing store are swallowed and treated as a miss/no-op: caching is an
// optimization, never a correctness dependency.
type Service struct {
	store Store
	ttls  TTLConfig
	now   func() time.Time
}

func NewService(store Store, ttls TTLConfig) *Service {
	return &Service{store: store, ttls: ttls, now: time.Now}
}

// Key derives the cache key: namespace + sha256 of the canonical JSON of the
// parameters. Canonical JSON has object keys sorted lexicographically, so
// parameter structs and maps with the same fields produce the same key
// regardless of field order.
func Key(namespace string, params any) string {
	sum := sha256.Sum256(canonicalJSON(params))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// canonicalJSON marshals params, round-trips through an untyped value and
// marshals again. encoding/json sorts map keys, which yields a stable byte
// sequence for equivalent parameter sets.
func canonicalJSON(params any) []byte {
	raw, err := json.Marshal(params)
	if err != nil {
		return []byte("null")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

// Set upserts the value under the derived key with expiry now+ttl. A zero
// ttl uses the namespace TTL.
func (s *Service) Set(ctx context.Context, namespace string, params, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttls.For(namespace)
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal failed for %s: %v", namespace, err)
		return
	}
	key := Key(namespace, params)
	if err := s.store.Put(ctx, key, data, s.now().Add(ttl)); err != nil {
		log.Printf("cache: put failed for %s: %v", key, err)
	}
}

// Get loads the value for the derived key into out. Returns false on miss,
// on expired entries (which are lazily deleted) and on store errors.
func (s *Service) Get(ctx context.Context, namespace string, params, out any) bool {
	key := Key(namespace, params)
	data, expiresAt, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("cache: get failed for %s: %v", key, err)
		}
		return false
	}
	if s.now().After(expiresAt) {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("cache: delete failed for %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("cache: unmarshal failed for %s: %v", key, err)
		return false
	}
	return true
}
