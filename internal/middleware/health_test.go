package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerHealthy(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"database": CheckerFunc(func(ctx context.Context) error { return nil }),
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "healthy", got.Checks["database"].Status)
	assert.GreaterOrEqual(t, got.UptimeSeconds, 0.0)
}

func TestHealthHandlerAggregatesFailures(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"database": CheckerFunc(func(ctx context.Context) error { return nil }),
		"storage":  CheckerFunc(func(ctx context.Context) error { return errors.New("bucket missing") }),
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var got HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "unhealthy", got.Status)
	assert.Equal(t, "healthy", got.Checks["database"].Status)
	assert.Contains(t, got.Checks["storage"].Message, "bucket missing")
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
