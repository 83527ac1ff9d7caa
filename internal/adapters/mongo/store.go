// Package mongo implements ports.Store on top of the official MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

const appName = "mongoship"

// Server error codes of a unique index violation.
var duplicateKeyCodes = map[int]bool{11000: true, 11001: true, 12582: true}

// Config holds connection settings.
type Config struct {
	URI      string
	Database string

	// WriteTimeout bounds every store call. Zero leaves it to the driver.
	WriteTimeout time.Duration
}

// Store writes operations to collections of one database.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logger  ports.Logger
}

// Connect opens a client and checks that the deployment is reachable.
func Connect(ctx context.Context, cfg Config, logger ports.Logger) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI).SetAppName(appName)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx := ctx
	if cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.WriteTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("connected to mongodb",
		ports.String("database", cfg.Database),
	)
	return &Store{
		client:  client,
		db:      client.Database(cfg.Database),
		timeout: cfg.WriteTimeout,
		logger:  logger,
	}, nil
}

// BulkWrite submits ops as one ordered bulk call.
func (s *Store) BulkWrite(ctx context.Context, collection string, ops []domain.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.Collection(collection).BulkWrite(ctx, models(ops), options.BulkWrite().SetOrdered(true))
	return convertError(err)
}

// Write submits a single op.
func (s *Store) Write(ctx context.Context, collection string, op domain.WriteOp) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	coll := s.db.Collection(collection)
	var err error
	switch o := op.(type) {
	case domain.InsertOp:
		_, err = coll.InsertOne(ctx, o.Document)
	case domain.UpdateOp:
		_, err = coll.UpdateOne(ctx, o.Filter, o.Update, options.Update().SetUpsert(o.Upsert))
	case domain.ReplaceOp:
		_, err = coll.ReplaceOne(ctx, o.Filter, o.Replacement, options.Replace().SetUpsert(o.Upsert))
	default:
		return fmt.Errorf("unsupported write op %T", op)
	}
	return convertError(err)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// models converts ops into driver write models, preserving order.
func models(ops []domain.WriteOp) []mongo.WriteModel {
	out := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case domain.InsertOp:
			out = append(out, mongo.NewInsertOneModel().SetDocument(o.Document))
		case domain.UpdateOp:
			out = append(out, mongo.NewUpdateOneModel().
				SetFilter(o.Filter).
				SetUpdate(o.Update).
				SetUpsert(o.Upsert))
		case domain.ReplaceOp:
			out = append(out, mongo.NewReplaceOneModel().
				SetFilter(o.Filter).
				SetReplacement(o.Replacement).
				SetUpsert(o.Upsert))
		}
	}
	return out
}

// convertError maps driver errors onto domain.WriteError so the failure
// classifier can tell duplicates and the failing op index apart.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		if len(bwe.WriteErrors) > 0 {
			return writeError(bwe.WriteErrors[0].WriteError, err)
		}
		return &domain.WriteError{Index: -1, Code: concernCode(bwe.WriteConcernError), Err: err}
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		if len(we.WriteErrors) > 0 {
			return writeError(we.WriteErrors[0], err)
		}
		return &domain.WriteError{Index: -1, Code: concernCode(we.WriteConcernError), Err: err}
	}

	if mongo.IsDuplicateKeyError(err) {
		return &domain.WriteError{Index: -1, Code: 11000, DuplicateKey: true, Err: err}
	}
	return err
}

func writeError(e mongo.WriteError, err error) *domain.WriteError {
	return &domain.WriteError{
		Index:        e.Index,
		Code:         e.Code,
		DuplicateKey: duplicateKeyCodes[e.Code] || strings.Contains(e.Message, "E11000"),
		Err:          err,
	}
}

func concernCode(wce *mongo.WriteConcernError) int {
	if wce == nil {
		return 0
	}
	return wce.Code
}
