// Package stdout implements a dry-run ports.Store that prints operations
// instead of writing them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/domain"
)

// Store prints one relaxed Extended JSON line per operation.
type Store struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a store writing to out.
func New(out io.Writer) *Store {
	return &Store{out: out}
}

// BulkWrite prints every op of the batch in order.
func (s *Store) BulkWrite(ctx context.Context, collection string, ops []domain.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if err := s.print(collection, op); err != nil {
			return err
		}
	}
	return nil
}

// Write prints a single op.
func (s *Store) Write(ctx context.Context, collection string, op domain.WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.print(collection, op)
}

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) print(collection string, op domain.WriteOp) error {
	line := bson.D{
		{Key: "collection", Value: collection},
		{Key: "action", Value: op.Action().String()},
	}
	switch o := op.(type) {
	case domain.InsertOp:
		line = append(line, bson.E{Key: "document", Value: o.Document})
	case domain.UpdateOp:
		line = append(line,
			bson.E{Key: "filter", Value: o.Filter},
			bson.E{Key: "update", Value: o.Update},
			bson.E{Key: "upsert", Value: o.Upsert},
		)
	case domain.ReplaceOp:
		line = append(line,
			bson.E{Key: "filter", Value: o.Filter},
			bson.E{Key: "replacement", Value: o.Replacement},
			bson.E{Key: "upsert", Value: o.Upsert},
		)
	}

	b, err := bson.MarshalExtJSON(line, false, false)
	if err != nil {
		return fmt.Errorf("encode op: %w", err)
	}
	if _, err := fmt.Fprintf(s.out, "%s\n", b); err != nil {
		return fmt.Errorf("write op: %w", err)
	}
	return nil
}
