// Package log adapts logging backends to ports.Logger.
package log

import (
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/ports"
)

// Zerolog implements ports.Logger on top of a zerolog.Logger.
type Zerolog struct {
	logger zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger}
}

func (z *Zerolog) Debug(msg string, fields ...ports.Field) { write(z.logger.Debug(), msg, fields) }
func (z *Zerolog) Info(msg string, fields ...ports.Field)  { write(z.logger.Info(), msg, fields) }
func (z *Zerolog) Warn(msg string, fields ...ports.Field)  { write(z.logger.Warn(), msg, fields) }
func (z *Zerolog) Error(msg string, fields ...ports.Field) { write(z.logger.Error(), msg, fields) }

// Logger returns the underlying zerolog.Logger.
func (z *Zerolog) Logger() zerolog.Logger {
	return z.logger
}

func write(event *zerolog.Event, msg string, fields []ports.Field) {
	// Disabled levels return a nil event.
	if event == nil {
		return
	}
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, f ports.Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case uint32:
		return event.Uint32(f.Key, v)
	case float64:
		return event.Float64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case error:
		return event.AnErr(f.Key, v)
	case bson.D:
		// Render documents as Extended JSON rather than as a list of pairs.
		if b, err := bson.MarshalExtJSON(v, false, false); err == nil {
			return event.RawJSON(f.Key, b)
		}
		return event.Interface(f.Key, v)
	default:
		return event.Interface(f.Key, v)
	}
}

// ParseLevel converts a configured level name, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
