package app

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/event"
	"github.com/bft-labs/mongoship/internal/ports"
	"github.com/bft-labs/mongoship/internal/translate"
)

// IDField is the primary identifier of a stored document.
const IDField = "_id"

// Sink turns events into write operations and ships them to a store,
// batched per collection when bulk mode is enabled.
type Sink struct {
	settings   Settings
	logger     ports.Logger
	emitter    Emitter
	translator translate.Translator
	filter     bson.D
	action     domain.Action
	writer     *writer
	buffer     *Buffer
	lifecycle  *Lifecycle
	now        func() time.Time

	// admit is held shared by Receive from the state check until the op is
	// queued or written, and exclusively by Stop to leave StateRunning.
	admit           sync.RWMutex
	shutdownTimeout time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewSink validates settings and builds a sink writing to store.
// emitter may be nil.
func NewSink(settings Settings, store ports.Store, logger ports.Logger, emitter Emitter) (*Sink, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}

	s := &Sink{
		settings: settings,
		logger:   logger,
		emitter:  emitter,
		filter:   settings.FilterTemplate(),
		translator: translate.Translator{
			Filter:            settings.FilterTemplate(),
			UpdateExpressions: settings.UpdateExpressions,
			Upsert:            settings.Upsert,
		},
		writer:    newWriter(store, settings.Retry, settings.Breaker, logger, emitter),
		lifecycle:       NewLifecycle(logger),
		now:             time.Now,
		shutdownTimeout: ShutdownTimeout,
	}
	if !settings.DynamicAction() {
		// Validated by ValidateSettings; never re-checked per event.
		s.action, _ = domain.ParseAction(settings.Action)
	}
	if settings.Bulk {
		s.buffer = NewBuffer(settings.BulkSize, s.writer.writeBatch)
	}
	return s, nil
}

// Start launches the periodic flush loop when bulk mode is enabled.
func (s *Sink) Start(ctx context.Context) error {
	if err := s.lifecycle.TransitionTo(StateStarting, "start requested"); err != nil {
		return err
	}
	if s.buffer != nil {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.flushLoop(ctx)
	}
	return s.lifecycle.TransitionTo(StateRunning, "started")
}

// Receive translates ev and either queues or writes the resulting operation.
// A write that keeps failing blocks the caller according to the retry policy.
// An op accepted with a nil error is written before Stop returns.
func (s *Sink) Receive(ctx context.Context, ev ports.Event) error {
	s.admit.RLock()
	defer s.admit.RUnlock()
	if s.lifecycle.State() != StateRunning {
		return domain.ErrNotRunning
	}

	collection, op, err := s.prepare(ev)
	if err != nil {
		s.logger.Error("rejected event", ports.Err(err))
		s.emitter.OnRejected(err)
		return err
	}

	if s.buffer == nil {
		return s.writer.writeOne(ctx, collection, op)
	}
	_, err = s.buffer.Enqueue(ctx, collection, op)
	return err
}

// Stop waits for in-flight Receive calls, stops the flush loop and flushes
// what is left.
func (s *Sink) Stop(ctx context.Context) error {
	if err := s.beginStop(); err != nil {
		return err
	}

	var err error
	if s.buffer != nil {
		close(s.stop)
		if werr := waitWithTimeout(s.done, s.shutdownTimeout); werr != nil {
			s.logger.Warn("flush loop did not exit, forcing final flush",
				ports.Duration("timeout", s.shutdownTimeout))
		}
		err = s.buffer.FlushAll(ctx)
		if err != nil {
			s.logger.Error("final flush failed", ports.Err(err))
		}
	}

	if terr := s.lifecycle.TransitionTo(StateStopped, "stopped"); terr != nil {
		return terr
	}
	return err
}

// beginStop moves to StateStopping once no Receive call is between its
// state check and its enqueue.
func (s *Sink) beginStop() error {
	s.admit.Lock()
	defer s.admit.Unlock()
	if !s.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	return s.lifecycle.TransitionTo(StateStopping, "stop requested")
}

// State returns the sink's lifecycle state.
func (s *Sink) State() State {
	return s.lifecycle.State()
}

func (s *Sink) flushLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.settings.BulkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.buffer.FlushAll(ctx); err != nil {
				s.logger.Error("periodic flush failed", ports.Err(err))
			}
		}
	}
}

// prepare resolves the destination and builds the write operation for ev.
func (s *Sink) prepare(ev ports.Event) (string, domain.WriteOp, error) {
	action, err := s.resolveAction(ev)
	if err != nil {
		return "", nil, err
	}
	op, err := s.translator.Build(ev, action, s.document(ev))
	if err != nil {
		return "", nil, err
	}
	return ev.Sprintf(s.settings.Collection), op, nil
}

func (s *Sink) resolveAction(ev ports.Event) (domain.Action, error) {
	if !s.settings.DynamicAction() {
		return s.action, nil
	}
	action, err := domain.ParseAction(ev.Sprintf(s.settings.Action))
	if err != nil {
		return 0, err
	}
	if err := ValidateAction(action, s.filter, s.settings.UpdateExpressions); err != nil {
		return 0, err
	}
	return action, nil
}

// document builds the payload of ev with the synthetic timestamp and
// identifier fields merged in.
func (s *Sink) document(ev ports.Event) bson.D {
	doc := ev.Fields()
	ts, ok := ev.Timestamp()
	if ok {
		if s.settings.ISODate {
			doc = setField(doc, event.TimestampField, primitive.NewDateTimeFromTime(ts))
		} else {
			doc = setField(doc, event.TimestampField, ts.UTC().Format(event.TimestampLayout))
		}
	}
	if s.settings.GenerateID {
		if !ok {
			ts = s.now()
		}
		doc = setField(doc, IDField, primitive.NewObjectIDFromTimestamp(ts))
	}
	return doc
}

// setField replaces key in place, or appends it.
func setField(doc bson.D, key string, value any) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}
