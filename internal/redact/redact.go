// Package redact scrubs sensitive material from strings before they reach
// logs or error responses: credentials, tokens, PIX payloads, connection
// strings, and generated account passwords.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

var (
	// Database connection strings
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database|connection)://[^@\s]+@`)

	// Passwords and generic secrets in key=value or key: value form
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd|secret)([=:\s]['"]?)[^'"&\s]{3,}`)

	// Bearer tokens and API keys
	apiKeyRegex = regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|authorization|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// JWTs (three base64url segments)
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// PIX copy-paste payloads start with the EMV "000201" tag
	pixPayloadRegex = regexp.MustCompile(`000201[0-9A-Za-z.*$@\- ]{20,}`)

	// Email addresses (generated account identities included)
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	placeholders = map[*regexp.Regexp]string{
		dbConnRegex:     RedactedCredentialPlaceholder,
		passwordRegex:   RedactedCredentialPlaceholder,
		apiKeyRegex:     RedactedKeyPlaceholder,
		jwtTokenRegex:   "[REDACTED_JWT]",
		pixPayloadRegex: "[REDACTED_PIX]",
		emailRegex:      "[REDACTED_EMAIL]",
	}

	// Order matters: structured credentials before the broad email pattern.
	patterns = []*regexp.Regexp{
		dbConnRegex, passwordRegex, apiKeyRegex, jwtTokenRegex,
		pixPayloadRegex, emailRegex,
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, pattern := range patterns {
		result = pattern.ReplaceAllString(result, placeholders[pattern])
	}
	return result
}

// Error redacts sensitive information from an error's message.
// Returns the empty string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
