package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/mongoship/internal/domain"
)

// flushFunc writes one chunk of a collection's ops.
type flushFunc func(ctx context.Context, collection string, ops []domain.WriteOp) error

// Buffer accumulates ops per collection and flushes them on a size trigger
// or on request.
//
// The map lock is only held to append or to take a pending slice. Each
// collection has its own write lock, held across the store call, so batches
// of one collection are written in enqueue order and producers of other
// collections are never blocked by a write.
type Buffer struct {
	mu        sync.Mutex
	pending   map[string]*pendingBatch
	threshold int
	flush     flushFunc
}

type pendingBatch struct {
	writeMu sync.Mutex
	ops     []domain.WriteOp
}

// NewBuffer creates a buffer that flushes a collection once it holds
// threshold ops.
func NewBuffer(threshold int, flush flushFunc) *Buffer {
	return &Buffer{
		pending:   make(map[string]*pendingBatch),
		threshold: threshold,
		flush:     flush,
	}
}

// Enqueue appends op to the collection's pending batch.
// Returns true if the append reached the threshold and the batch was flushed.
func (b *Buffer) Enqueue(ctx context.Context, collection string, op domain.WriteOp) (bool, error) {
	b.mu.Lock()
	p, ok := b.pending[collection]
	if !ok {
		p = &pendingBatch{}
		b.pending[collection] = p
	}
	p.ops = append(p.ops, op)
	full := len(p.ops) >= b.threshold
	b.mu.Unlock()

	if !full {
		return false, nil
	}
	return true, b.flushBatch(ctx, collection, p, false)
}

// Flush writes the pending batch of one collection.
func (b *Buffer) Flush(ctx context.Context, collection string) error {
	b.mu.Lock()
	p, ok := b.pending[collection]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return b.flushBatch(ctx, collection, p, false)
}

// FlushAll writes every non-empty pending batch and drops its entry.
func (b *Buffer) FlushAll(ctx context.Context) error {
	b.mu.Lock()
	batches := make(map[string]*pendingBatch, len(b.pending))
	for collection, p := range b.pending {
		if len(p.ops) > 0 {
			batches[collection] = p
		}
	}
	b.mu.Unlock()

	var errs []error
	for collection, p := range batches {
		if err := b.flushBatch(ctx, collection, p, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending returns the number of ops waiting for collection.
func (b *Buffer) Pending(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pending[collection]; ok {
		return len(p.ops)
	}
	return 0
}

// flushBatch takes ownership of p's ops, installs an empty slice and writes
// the taken ops in chunks of at most domain.MaxBulkSize.
func (b *Buffer) flushBatch(ctx context.Context, collection string, p *pendingBatch, remove bool) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	b.mu.Lock()
	ops := p.ops
	p.ops = nil
	if remove && b.pending[collection] == p {
		delete(b.pending, collection)
	}
	b.mu.Unlock()

	var errs []error
	for start := 0; start < len(ops); start += domain.MaxBulkSize {
		end := min(start+domain.MaxBulkSize, len(ops))
		if err := b.flush(ctx, collection, ops[start:end]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
