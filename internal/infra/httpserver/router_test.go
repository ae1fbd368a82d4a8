package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/fixedyet/fixedyet/internal/application/analysis"
	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
	domainprogress "github.com/fixedyet/fixedyet/internal/domain/progress"
	"github.com/fixedyet/fixedyet/internal/middleware"
)

type stubProgressRepo struct {
	records map[string]*domainprogress.Record
}

func (s *stubProgressRepo) Create(ctx context.Context, rec *domainprogress.Record) error { return nil }
func (s *stubProgressRepo) Update(ctx context.Context, rec *domainprogress.Record) error { return nil }
func (s *stubProgressRepo) Get(ctx context.Context, requestID string) (*domainprogress.Record, error) {
	return s.records[requestID], nil
}

type stubRequestRepo struct {
	history []*domain.HistoryEntry
}

func (s *stubRequestRepo) SaveRequest(ctx context.Context, r *domain.Request) error { return nil }
func (s *stubRequestRepo) SaveResult(ctx context.Context, r *domain.Result) error   { return nil }
func (s *stubRequestRepo) History(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	return s.history, nil
}

func newTestRouter(t *testing.T, progress *stubProgressRepo, requests *stubRequestRepo) http.Handler {
	t.Helper()
	if progress == nil {
		progress = &stubProgressRepo{records: map[string]*domainprogress.Record{}}
	}
	if requests == nil {
		requests = &stubRequestRepo{}
	}
	svc := &appanalysis.Service{
		Requests: requests,
		Progress: progress,
		SDKs:     domain.DefaultSDKRegistry(),
	}
	limiter := middleware.NewLimiter(2, time.Hour, time.Hour)
	t.Cleanup(limiter.Stop)
	return NewRouter(svc, limiter, map[string]middleware.HealthChecker{})
}

func postAnalyze(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeRejectsInvalidJSON(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	rec := postAnalyze(h, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsShortDescription(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	rec := postAnalyze(h, `{"sdk":"sentry-javascript","version":"8.0.0","description":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least 10 characters")
}

func TestAnalyzeRejectsUnsupportedSDK(t *testing.T) {
	h := newTestRouter(t, nil, nil)
	rec := postAnalyze(h, `{"sdk":"sentry-fortran","version":"1.0.0","description":"crashes on startup every time"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported sdk")
}

func TestAnalyzeRateLimitHeaders(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	// quota is 2; the body is invalid on purpose, admission happens first
	rec := postAnalyze(h, "{}")
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	postAnalyze(h, "{}")
	rec = postAnalyze(h, "{}")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProgressNotFound(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/unknown-id", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressReturnsRecord(t *testing.T) {
	progress := &stubProgressRepo{records: map[string]*domainprogress.Record{
		"req-1": {RequestID: "req-1", CurrentStep: 3, TotalSteps: 6, StepTitle: "Search Relevant Commits"},
	}}
	h := newTestRouter(t, progress, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/req-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domainprogress.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.CurrentStep)
	assert.Equal(t, "Search Relevant Commits", got.StepTitle)
}

func TestHistoryReturnsEmptyArray(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
