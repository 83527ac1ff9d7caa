package domain

import "go.mongodb.org/mongo-driver/bson"

// WriteOp is a single write operation built from an event.
// The set of implementations is closed: InsertOp, UpdateOp and ReplaceOp.
type WriteOp interface {
	// Action returns the verb this operation performs.
	Action() Action

	writeOp()
}

// InsertOp inserts Document as a new document.
type InsertOp struct {
	Document bson.D
}

// UpdateOp applies Update to the first document matching Filter.
type UpdateOp struct {
	Filter bson.D
	Update bson.D
	Upsert bool
}

// ReplaceOp replaces the first document matching Filter with Replacement.
type ReplaceOp struct {
	Filter      bson.D
	Replacement bson.D
	Upsert      bool
}

func (InsertOp) Action() Action  { return ActionInsert }
func (UpdateOp) Action() Action  { return ActionUpdate }
func (ReplaceOp) Action() Action { return ActionReplace }

func (InsertOp) writeOp()  {}
func (UpdateOp) writeOp()  {}
func (ReplaceOp) writeOp() {}
