package secrets

import (
	"regexp"
	"strings"
)

// MaxSecretSize is the maximum allowed secret value size (1 MiB), per
// spec.md §4.3.
const MaxSecretSize = 1024 * 1024

// MaxSecretNameLength is the maximum allowed secret name length.
const MaxSecretNameLength = 255

var secretNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidateSecretName enforces spec.md §4.3/§8 Invariant 6: 1..255 chars,
// [A-Za-z0-9_.-]+, no leading/trailing dot, no "..", not a reserved name.
func ValidateSecretName(name string) error {
	if name == "" {
		return invalidName("secret name cannot be empty")
	}
	if len(name) > MaxSecretNameLength {
		return invalidName("secret name too long")
	}
	if !secretNamePattern.MatchString(name) {
		return invalidName("secret name can only contain letters, numbers, underscores, hyphens, and dots")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return invalidName("secret name cannot start or end with a dot")
	}
	if strings.Contains(name, "..") {
		return invalidName("secret name cannot contain consecutive dots")
	}
	if reservedNames[strings.ToUpper(name)] {
		return invalidName("'" + name + "' is a reserved name")
	}
	return nil
}

// ValidateSecretValue enforces the size cap and rejects NUL bytes.
func ValidateSecretValue(value string) error {
	if len(value) > MaxSecretSize {
		return tooLarge(len(value), MaxSecretSize)
	}
	if strings.ContainsRune(value, 0) {
		return invalidFormat("secret value cannot contain null bytes")
	}
	return nil
}

// ValidateProviderName enforces 1..64 chars, [A-Za-z0-9_-]+.
func ValidateProviderName(name string) error {
	if name == "" {
		return invalidConfig("provider name cannot be empty")
	}
	if len(name) > 64 {
		return invalidConfig("provider name too long")
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return invalidConfig("provider name can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// SanitizeForLogging strips characters that could be used for log injection.
func SanitizeForLogging(input string) string {
	var b strings.Builder
	for _, c := range input {
		switch {
		case c == '\n' || c == '\r' || c == '\t':
			b.WriteRune(' ')
		case c < 0x20:
			b.WriteRune('?')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
