package secrets

import "fmt"

// Error is the secrets subsystem's typed error taxonomy (spec.md §7).
type Error struct {
	Kind    ErrorKind
	Name    string
	Reason  string
	Seconds int
}

type ErrorKind string

const (
	ErrNotFound            ErrorKind = "not_found"
	ErrInvalidSecretName   ErrorKind = "invalid_secret_name"
	ErrSecretTooLarge      ErrorKind = "secret_too_large"
	ErrInvalidFormat       ErrorKind = "invalid_format"
	ErrInvalidConfig       ErrorKind = "invalid_config"
	ErrRateLimitExceeded   ErrorKind = "rate_limit_exceeded"
	ErrUnsupported         ErrorKind = "unsupported"
	ErrAuthenticationError ErrorKind = "authentication_failed"
	ErrIO                  ErrorKind = "io_error"
)

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("secret not found: %s", e.Name)
	case ErrRateLimitExceeded:
		return fmt.Sprintf("rate limit exceeded: try again in %d seconds", e.Seconds)
	default:
		if e.Name != "" {
			return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Reason, e.Name)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
}

func notFound(name string) error {
	return &Error{Kind: ErrNotFound, Name: name}
}

func invalidName(reason string) error {
	return &Error{Kind: ErrInvalidSecretName, Reason: reason}
}

func invalidConfig(reason string) error {
	return &Error{Kind: ErrInvalidConfig, Reason: reason}
}

func tooLarge(size, max int) error {
	return &Error{Kind: ErrSecretTooLarge, Reason: fmt.Sprintf("%d bytes exceeds max %d", size, max)}
}

func invalidFormat(reason string) error {
	return &Error{Kind: ErrInvalidFormat, Reason: reason}
}

func rateLimited(seconds int) error {
	return &Error{Kind: ErrRateLimitExceeded, Seconds: seconds}
}

func unsupported(reason string) error {
	return &Error{Kind: ErrUnsupported, Reason: reason}
}
