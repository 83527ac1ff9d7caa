package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type storeCall struct {
	collection string
	ops        []domain.WriteOp
}

// fakeStore records calls and returns queued errors in order, then nil.
type fakeStore struct {
	mu     sync.Mutex
	bulk   []storeCall
	single []storeCall
	errs   []error
}

func (f *fakeStore) BulkWrite(ctx context.Context, collection string, ops []domain.WriteOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk = append(f.bulk, storeCall{collection, append([]domain.WriteOp(nil), ops...)})
	return f.next()
}

func (f *fakeStore) Write(ctx context.Context, collection string, op domain.WriteOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.single = append(f.single, storeCall{collection, []domain.WriteOp{op}})
	return f.next()
}

func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) next() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeStore) bulkCalls() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storeCall(nil), f.bulk...)
}

func (f *fakeStore) singleCalls() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storeCall(nil), f.single...)
}

// recordingEmitter counts emitted events.
type recordingEmitter struct {
	NopEmitter
	mu         sync.Mutex
	flushed    int
	duplicates int
	retries    int
	dropped    int
	rejected   int
	states     []string
}

func (r *recordingEmitter) OnFlush(_ string, ops int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushed += ops
}

func (r *recordingEmitter) OnDuplicate(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates++
}

func (r *recordingEmitter) OnRetry(string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *recordingEmitter) OnDrop(_ string, ops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped += ops
}

func (r *recordingEmitter) OnRejected(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *recordingEmitter) OnBreakerState(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

// sleepRecorder replaces writer.sleep and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func insertOp(n int) domain.WriteOp {
	return domain.InsertOp{Document: docWithN(n)}
}
