package domain

import "fmt"

// MaxBulkSize is the maximum number of operations the store accepts in a
// single bulk call.
const MaxBulkSize = 1000

// Action is the write verb applied to an event.
type Action int

const (
	ActionInsert Action = iota
	ActionUpdate
	ActionReplace
)

// String returns the configuration spelling of the action.
func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	case ActionReplace:
		return "replace"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// NeedsFilter reports whether the action targets existing documents.
func (a Action) NeedsFilter() bool {
	return a == ActionUpdate || a == ActionReplace
}

// ParseAction converts a configuration value into an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "insert":
		return ActionInsert, nil
	case "update":
		return ActionUpdate, nil
	case "replace":
		return ActionReplace, nil
	}
	return 0, NewConfigError(ErrInvalidAction,
		"Only insert, update and replace are valid for 'action' setting, got '%s'.", s)
}
