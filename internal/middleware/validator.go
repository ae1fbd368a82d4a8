package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

const minDescriptionLength = 10

// ValidateSDK checks the SDK identifier format. Whether the SDK is actually
// supported is decided by the registry downstream.
func ValidateSDK(sdk string) error {
	if sdk == "" {
		return fmt.Errorf("sdk cannot be empty")
	}

	pattern := `^[a-zA-Z0-9._-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, sdk)
	if !matched {
		return fmt.Errorf("invalid sdk format (alphanumeric, dot, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateVersion checks the reported SDK version string.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}

	pattern := `^[a-zA-Z0-9._+-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, version)
	if !matched {
		return fmt.Errorf("invalid version format")
	}
	return nil
}

// ValidateDescription enforces the minimum issue description length.
func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if len(strings.TrimSpace(description)) < minDescriptionLength {
		return fmt.Errorf("description must be at least %d characters", minDescriptionLength)
	}
	return nil
}

// ValidateRequestID validates a caller-supplied request identifier.
func ValidateRequestID(requestID string) error {
	if requestID == "" {
		return nil // optional, server generates one
	}

	pattern := `^[a-zA-Z0-9_-]{1,128}$`
	matched, _ := regexp.MatchString(pattern, requestID)
	if !matched {
		return fmt.Errorf("invalid request ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
