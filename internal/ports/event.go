package ports

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Event is a structured record received by the sink.
type Event interface {
	// Fields returns the event as an ordered document. The returned slice
	// belongs to the caller; nested values are shared and must not be mutated.
	Fields() bson.D

	// Sprintf replaces %{field} placeholders with the string form of the
	// referenced values.
	Sprintf(format string) string

	// Get looks up a field reference such as "message" or "[a][b]".
	// The value keeps its original type.
	Get(ref string) (any, bool)

	// Timestamp returns the event instant, if the event carries one.
	Timestamp() (time.Time, bool)
}
