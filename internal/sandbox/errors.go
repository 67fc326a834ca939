package sandbox

import "fmt"

// ErrorKind identifies why a sandboxed command was refused or failed.
type ErrorKind string

const (
	ErrBlockedCommand        ErrorKind = "blocked_command"
	ErrDangerousPattern      ErrorKind = "dangerous_pattern"
	ErrPathAccessDenied      ErrorKind = "path_access_denied"
	ErrResourceLimitExceeded ErrorKind = "resource_limit_exceeded"
	ErrExecutionTimeout      ErrorKind = "execution_timeout"
	ErrSetupFailed           ErrorKind = "sandbox_setup_error"
	ErrExecutionFailed       ErrorKind = "execution_error"
)

// Error is the sandbox's typed error taxonomy, grounded on
// crates/runtime/src/sandbox.rs's SandboxError enum.
type Error struct {
	Kind    ErrorKind
	Detail  string
	Seconds uint64
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrBlockedCommand:
		return fmt.Sprintf("🚫 SECURITY BLOCK: command %q is not allowed in secure emulation mode. "+
			"This command was blocked for security reasons. If you need to run this command, "+
			"please use Docker or Podman mode instead.", e.Detail)
	case ErrDangerousPattern:
		return fmt.Sprintf("🚫 SECURITY BLOCK: dangerous command pattern detected: %q. "+
			"This command was blocked because it matches a known dangerous pattern. "+
			"Please review your workflow for potentially harmful commands.", e.Detail)
	case ErrPathAccessDenied:
		return fmt.Sprintf("path access denied: %s", e.Detail)
	case ErrResourceLimitExceeded:
		return fmt.Sprintf("resource limit exceeded: %s", e.Detail)
	case ErrExecutionTimeout:
		return fmt.Sprintf("execution timeout after %d seconds", e.Seconds)
	case ErrSetupFailed:
		return fmt.Sprintf("sandbox setup failed: %s", e.Detail)
	default:
		return fmt.Sprintf("command execution failed: %s", e.Detail)
	}
}

func blockedCommand(command string) error {
	return &Error{Kind: ErrBlockedCommand, Detail: command}
}

func dangerousPattern(command string) error {
	return &Error{Kind: ErrDangerousPattern, Detail: command}
}

func setupError(reason string) error {
	return &Error{Kind: ErrSetupFailed, Detail: reason}
}

func executionError(reason string) error {
	return &Error{Kind: ErrExecutionFailed, Detail: reason}
}

func executionTimeout(seconds uint64) error {
	return &Error{Kind: ErrExecutionTimeout, Seconds: seconds}
}
