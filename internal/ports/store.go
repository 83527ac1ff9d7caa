package ports

import (
	"context"

	"github.com/bft-labs/mongoship/internal/domain"
)

// Store writes operations to a collection of the backing document store.
// Failures tied to an op or a unique index are reported as *domain.WriteError.
type Store interface {
	// BulkWrite submits ops as one ordered call. len(ops) never exceeds
	// domain.MaxBulkSize.
	BulkWrite(ctx context.Context, collection string, ops []domain.WriteOp) error

	// Write submits a single op without the bulk envelope.
	Write(ctx context.Context, collection string, op domain.WriteOp) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
