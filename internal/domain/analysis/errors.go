package analysis

import "errors"

// ErrUnsupportedSDK indicates the submitted SDK has no known repository.
var ErrUnsupportedSDK = errors.New("unsupported sdk")

// ErrTagListUnavailable indicates tag listing failed even after retry. Tags
// are essential; no meaningful analysis is possible without them.
var ErrTagListUnavailable = errors.New("tag listing unavailable")

// ErrAIQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrAIQuotaExceeded = errors.New("ai quota exceeded")
