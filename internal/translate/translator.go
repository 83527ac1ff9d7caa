// Package translate turns a prepared event document and its action into a
// domain write operation.
package translate

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/domain"
)

// Translator holds the templates shared by every event of a sink.
type Translator struct {
	// Filter selects the target document for update and replace.
	Filter bson.D

	// UpdateExpressions replaces the default {"$set": flatten(doc)} body.
	UpdateExpressions bson.D

	Upsert bool
}

// Build translates doc, the prepared payload of src, into a write operation.
// action must already be validated.
func (t Translator) Build(src FieldSource, action domain.Action, doc bson.D) (domain.WriteOp, error) {
	switch action {
	case domain.ActionInsert:
		return domain.InsertOp{Document: doc}, nil

	case domain.ActionUpdate:
		filter, err := t.filter(src)
		if err != nil {
			return nil, err
		}
		var update bson.D
		if len(t.UpdateExpressions) > 0 {
			update = Resolve(src, t.UpdateExpressions)
		} else {
			update = bson.D{{Key: "$set", Value: Flatten(doc)}}
		}
		return domain.UpdateOp{Filter: filter, Update: update, Upsert: t.Upsert}, nil

	case domain.ActionReplace:
		filter, err := t.filter(src)
		if err != nil {
			return nil, err
		}
		return domain.ReplaceOp{Filter: filter, Replacement: doc, Upsert: t.Upsert}, nil
	}

	return nil, domain.NewConfigError(domain.ErrInvalidAction,
		"Only insert, update and replace are valid for 'action' setting, got '%s'.", action)
}

func (t Translator) filter(src FieldSource) (bson.D, error) {
	f := Resolve(src, t.Filter)
	if len(f) == 0 {
		return nil, domain.NewConfigError(domain.ErrMissingFilter,
			"If action is update or replace, filter must be set.")
	}
	return f, nil
}
