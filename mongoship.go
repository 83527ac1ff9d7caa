// Package mongoship batches structured events into MongoDB collections.
//
// Example usage:
//
//	store, err := mongoship.Connect(ctx, mongoship.StoreConfig{
//	    URI:      "mongodb://localhost:27017",
//	    Database: "logstash",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sink, err := mongoship.New(mongoship.Settings{
//	    Collection: "logs-%{service}",
//	    Action:     "insert",
//	    Retry:      mongoship.DefaultRetryPolicy(),
//	}, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = sink.Start(ctx)
//	ev, _ := mongoship.ParseEvent([]byte(`{"service":"api","message":"hi"}`))
//	_ = sink.Receive(ctx, ev)
//	_ = sink.Stop(ctx)
package mongoship

import (
	"context"
	"io"

	logAdapter "github.com/bft-labs/mongoship/internal/adapters/log"
	mongoAdapter "github.com/bft-labs/mongoship/internal/adapters/mongo"
	"github.com/bft-labs/mongoship/internal/adapters/stdout"
	"github.com/bft-labs/mongoship/internal/app"
	"github.com/bft-labs/mongoship/internal/event"
	"github.com/bft-labs/mongoship/internal/ports"
)

type (
	// Settings configures a Sink.
	Settings = app.Settings

	// RetryPolicy controls how transient write failures are retried.
	RetryPolicy = app.RetryPolicy

	// BreakerSettings configures the circuit breaker guarding store calls.
	BreakerSettings = app.BreakerSettings

	// Sink turns events into write operations.
	Sink = app.Sink

	// State is the lifecycle state of a Sink.
	State = app.State

	// Emitter receives write events, typically to export metrics.
	Emitter = app.Emitter

	// Event is the record consumed by a Sink.
	Event = ports.Event

	// Store is the backing-store client.
	Store = ports.Store

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// StoreConfig holds MongoDB connection settings.
	StoreConfig = mongoAdapter.Config
)

const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Option configures optional behavior of a Sink.
type Option func(*options)

type options struct {
	logger  ports.Logger
	emitter app.Emitter
}

// WithLogger sets a logger. If not provided, a no-op logger is used.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEmitter sets the receiver of write events.
func WithEmitter(e Emitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// New validates settings and creates a sink writing to store.
func New(settings Settings, store Store, opts ...Option) (*Sink, error) {
	o := options{logger: logAdapter.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return app.NewSink(settings, store, o.logger, o.emitter)
}

// DefaultRetryPolicy returns the retry policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return app.DefaultRetryPolicy()
}

// ParseEvent decodes one JSON object into an Event.
func ParseEvent(data []byte) (Event, error) {
	ev, err := event.Parse(data)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Connect opens a MongoDB store.
func Connect(ctx context.Context, cfg StoreConfig, opts ...Option) (Store, error) {
	o := options{logger: logAdapter.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	store, err := mongoAdapter.Connect(ctx, cfg, o.logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// DryRunStore returns a store printing every operation to w.
func DryRunStore(w io.Writer) Store {
	return stdout.New(w)
}
