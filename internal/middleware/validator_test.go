package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSDK(t *testing.T) {
	assert.NoError(t, ValidateSDK("sentry-javascript"))
	assert.NoError(t, ValidateSDK("sentry_go.v2"))
	assert.Error(t, ValidateSDK(""))
	assert.Error(t, ValidateSDK("bad sdk name"))
	assert.Error(t, ValidateSDK("a/b"))
}

func TestValidateVersion(t *testing.T) {
	assert.NoError(t, ValidateVersion("8.2.0"))
	assert.NoError(t, ValidateVersion("v7.100.1-beta.1+build"))
	assert.Error(t, ValidateVersion(""))
	assert.Error(t, ValidateVersion("1.0 || rm -rf"))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription("breadcrumbs leak memory in replay mode"))
	assert.Error(t, ValidateDescription(""))
	assert.Error(t, ValidateDescription("   "))
	assert.Error(t, ValidateDescription("too short"))
}

func TestValidateRequestID(t *testing.T) {
	assert.NoError(t, ValidateRequestID(""), "empty is allowed, server generates one")
	assert.NoError(t, ValidateRequestID("550e8400-e29b-41d4-a716-446655440000"))
	assert.Error(t, ValidateRequestID("has spaces"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hello\x00"))
	assert.Equal(t, "a\tb", SanitizeString(" a\tb "))
	assert.Equal(t, "ab", SanitizeString("a\x01\x02b"))
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-5))
	assert.Equal(t, 50, ValidateLimit(50))
	assert.Equal(t, 100, ValidateLimit(1000))
}
