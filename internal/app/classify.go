package app

import (
	"context"
	"errors"
	"strings"

	"github.com/bft-labs/mongoship/internal/domain"
)

// duplicateKeyPrefix starts the server message of a unique index violation.
const duplicateKeyPrefix = "E11000"

// Outcome is the classification of one write attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkip
	OutcomeRetry
	OutcomeAbort
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeSkip:
		return "Skip"
	case OutcomeRetry:
		return "Retry"
	case OutcomeAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Classify maps a write error to its outcome. Duplicate keys are detected
// through domain.ErrDuplicateKey first and through the server message prefix
// for stores that only report text.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrDuplicateKey):
		return OutcomeSkip
	case isDuplicateMessage(err.Error()):
		return OutcomeSkip
	case errors.Is(err, context.Canceled):
		return OutcomeAbort
	default:
		return OutcomeRetry
	}
}

func isDuplicateMessage(msg string) bool {
	return strings.HasPrefix(msg, duplicateKeyPrefix) ||
		strings.Contains(msg, duplicateKeyPrefix+" duplicate key")
}

// failedIndex returns the index of the op that failed, or -1.
func failedIndex(err error) int {
	var we *domain.WriteError
	if errors.As(err, &we) {
		return we.Index
	}
	return -1
}
