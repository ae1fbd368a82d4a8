package analysis

// SDKRegistry maps SDK identifiers to their GitHub owner/repo slug.
type SDKRegistry map[string]string

// DefaultSDKRegistry returns the supported SDKs. Injected into the service
// so tests can supply their own mapping.
func DefaultSDKRegistry() SDKRegistry {
	return SDKRegistry{
		"sentry-javascript":   "getsentry/sentry-javascript",
		"sentry-python":       "getsentry/sentry-python",
		"sentry-java":         "getsentry/sentry-java",
		"sentry-dotnet":       "getsentry/sentry-dotnet",
		"sentry-go":           "getsentry/sentry-go",
		"sentry-ruby":         "getsentry/sentry-ruby",
		"sentry-php":          "getsentry/sentry-php",
		"sentry-react-native": "getsentry/sentry-react-native",
		"sentry-cocoa":        "getsentry/sentry-cocoa",
		"sentry-android":      "getsentry/sentry-android",
	}
}

// RepoFor returns the repository slug for an SDK, or "" when unsupported.
func (r SDKRegistry) RepoFor(sdk string) string {
	return r[sdk]
}
