package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the mongoship domain.
// These errors can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running sink.
	ErrAlreadyRunning = errors.New("mongoship: already running")

	// ErrNotRunning is returned when an operation needs a running sink.
	ErrNotRunning = errors.New("mongoship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("mongoship: shutdown timeout")

	// ErrInvalidConfig matches every ConfigError.
	ErrInvalidConfig = errors.New("mongoship: invalid configuration")

	// ErrDuplicateKey is returned by stores when a write violates a unique index.
	ErrDuplicateKey = errors.New("mongoship: duplicate key")

	// ErrRetriesExhausted is returned when a write kept failing after the
	// configured number of attempts.
	ErrRetriesExhausted = errors.New("mongoship: retries exhausted")
)

// Configuration error kinds. Each ConfigError wraps exactly one of these.
var (
	ErrBulkSizeTooLarge            = errors.New("bulk size too large")
	ErrInvalidUpdateOperator       = errors.New("invalid update operator")
	ErrInvalidAction               = errors.New("invalid action")
	ErrMissingFilter               = errors.New("missing filter")
	ErrUnexpectedUpdateExpressions = errors.New("unexpected update expressions")
	ErrInvalidBulkSettings         = errors.New("invalid bulk settings")
)

// ConfigError is a configuration violation. It is fatal at startup and
// rejects the event when raised for a dynamically resolved action.
type ConfigError struct {
	Kind   error
	Reason string
}

// NewConfigError builds a ConfigError of the given kind with a formatted reason.
func NewConfigError(kind error, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return e.Reason }

func (e *ConfigError) Unwrap() error { return e.Kind }

// Is makes every ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// WriteError is a failed write reported by a store adapter.
// Index is the position of the failing op inside the submitted slice, or -1
// when the failure is not tied to a single op (network, selection timeout).
type WriteError struct {
	Index        int
	Code         int
	DuplicateKey bool
	Err          error
}

func (e *WriteError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("write op %d failed (code %d): %v", e.Index, e.Code, e.Err)
	}
	return fmt.Sprintf("write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDuplicateKey) match duplicate-key write errors.
func (e *WriteError) Is(target error) bool {
	return target == ErrDuplicateKey && e.DuplicateKey
}
