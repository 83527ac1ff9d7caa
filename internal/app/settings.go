package app

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultQueryKey is the filter key used with a legacy query value.
const DefaultQueryKey = "_id"

// Settings configures a Sink.
type Settings struct {
	// Collection is the destination template, e.g. "logs-%{service}".
	Collection string

	// ISODate stores @timestamp as a BSON datetime instead of a string.
	ISODate bool

	// GenerateID sets _id to an ObjectID derived from the event instant.
	GenerateID bool

	// Bulk enables per-collection batching.
	Bulk         bool
	BulkInterval time.Duration
	BulkSize     int

	// Action is "insert", "update", "replace" or a template resolving to one.
	Action            string
	Filter            bson.D
	UpdateExpressions bson.D
	Upsert            bool

	// QueryKey and QueryValue build a one-key filter when Filter is empty.
	QueryKey   string
	QueryValue string

	Retry   RetryPolicy
	Breaker BreakerSettings
}

// BreakerSettings configures the circuit breaker guarding store calls.
// A zero Failures disables the breaker.
type BreakerSettings struct {
	Failures uint32
	Timeout  time.Duration
}

// FilterTemplate returns the configured filter, falling back to the legacy
// query key/value pair.
func (s Settings) FilterTemplate() bson.D {
	if len(s.Filter) > 0 {
		return s.Filter
	}
	if s.QueryValue == "" {
		return nil
	}
	key := s.QueryKey
	if key == "" {
		key = DefaultQueryKey
	}
	return bson.D{{Key: key, Value: s.QueryValue}}
}

// DynamicAction reports whether the action is resolved per event.
func (s Settings) DynamicAction() bool {
	return strings.Contains(s.Action, "%{")
}
