package translate

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/event"
)

func TestResolve(t *testing.T) {
	ev := event.New(bson.D{
		{Key: "message", Value: "hello"},
		{Key: "positive", Value: int32(1)},
		{Key: "negative", Value: int32(-1)},
		{Key: "uuid", Value: "00000000-0000-0000-0000-000000000000"},
		{Key: "utf8", Value: "żółć"},
		{Key: "nested", Value: bson.D{{Key: "id", Value: int64(99)}}},
	})

	tests := []struct {
		name string
		tmpl bson.D
		want bson.D
	}{
		{
			name: "string field reference",
			tmpl: bson.D{{Key: "key", Value: "[message]"}},
			want: bson.D{{Key: "key", Value: "hello"}},
		},
		{
			name: "positive int keeps type",
			tmpl: bson.D{{Key: "key", Value: "[positive]"}},
			want: bson.D{{Key: "key", Value: int32(1)}},
		},
		{
			name: "negative int keeps type",
			tmpl: bson.D{{Key: "key", Value: "[negative]"}},
			want: bson.D{{Key: "key", Value: int32(-1)}},
		},
		{
			name: "bare field name is a reference",
			tmpl: bson.D{{Key: "key_%{positive}", Value: "message"}},
			want: bson.D{{Key: "key_1", Value: "hello"}},
		},
		{
			name: "templated key and reference value",
			tmpl: bson.D{{Key: "%{utf8}", Value: "[message]"}},
			want: bson.D{{Key: "żółć", Value: "hello"}},
		},
		{
			name: "missing reference stays literal",
			tmpl: bson.D{{Key: "_id", Value: "qv"}},
			want: bson.D{{Key: "_id", Value: "qv"}},
		},
		{
			name: "non-string literal",
			tmpl: bson.D{{Key: "n", Value: 5}},
			want: bson.D{{Key: "n", Value: 5}},
		},
		{
			name: "nested documents and lists",
			tmpl: bson.D{
				{Key: "$set", Value: bson.D{{Key: "owner", Value: "[nested][id]"}}},
				{Key: "$push", Value: bson.D{{Key: "seen", Value: bson.A{"[uuid]", "x"}}}},
			},
			want: bson.D{
				{Key: "$set", Value: bson.D{{Key: "owner", Value: int64(99)}}},
				{Key: "$push", Value: bson.D{{Key: "seen", Value: bson.A{"00000000-0000-0000-0000-000000000000", "x"}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(ev, tt.tmpl)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_DoesNotAliasTemplate(t *testing.T) {
	ev := event.New(bson.D{{Key: "a", Value: "x"}})
	tmpl := bson.D{{Key: "outer", Value: bson.D{{Key: "inner", Value: "a"}}}}

	got := Resolve(ev, tmpl)
	got[0].Value.(bson.D)[0].Value = "changed"

	if tmpl[0].Value.(bson.D)[0].Value != "a" {
		t.Error("template mutated through resolved document")
	}
}

func TestTranslator_BuildInsert(t *testing.T) {
	ev := event.New(bson.D{{Key: "message", Value: "foo"}})
	doc := bson.D{{Key: "message", Value: "foo"}, {Key: "_id", Value: "generated"}}

	op, err := Translator{}.Build(ev, domain.ActionInsert, doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := domain.InsertOp{Document: doc}
	if !reflect.DeepEqual(op, want) {
		t.Errorf("Build() = %#v, want %#v", op, want)
	}
}

func TestTranslator_BuildUpdate(t *testing.T) {
	props := bson.D{
		{Key: "message", Value: "This is a message!"},
		{Key: "uuid", Value: "abc"},
		{Key: "rootHashField", Value: bson.D{
			{Key: "numFieldInHash", Value: 1},
			{Key: "hashFieldInHash", Value: bson.D{{Key: "numField", Value: 2}}},
		}},
	}
	ev := event.New(props)

	tests := []struct {
		name string
		tr   Translator
		want domain.WriteOp
	}{
		{
			name: "default set of flattened document",
			tr:   Translator{Filter: bson.D{{Key: "_id", Value: "foo"}}},
			want: domain.UpdateOp{
				Filter: bson.D{{Key: "_id", Value: "foo"}},
				Update: bson.D{{Key: "$set", Value: bson.D{
					{Key: "message", Value: "This is a message!"},
					{Key: "uuid", Value: "abc"},
					{Key: "rootHashField.numFieldInHash", Value: 1},
					{Key: "rootHashField.hashFieldInHash.numField", Value: 2},
				}}},
			},
		},
		{
			name: "update expressions with upsert",
			tr: Translator{
				Filter:            bson.D{{Key: "_id", Value: "[uuid]"}},
				UpdateExpressions: bson.D{{Key: "$inc", Value: bson.D{{Key: "count", Value: 1}}}},
				Upsert:            true,
			},
			want: domain.UpdateOp{
				Filter: bson.D{{Key: "_id", Value: "abc"}},
				Update: bson.D{{Key: "$inc", Value: bson.D{{Key: "count", Value: 1}}}},
				Upsert: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := tt.tr.Build(ev, domain.ActionUpdate, ev.Fields())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !reflect.DeepEqual(op, tt.want) {
				t.Errorf("Build() = %#v, want %#v", op, tt.want)
			}
		})
	}
}

func TestTranslator_BuildReplace(t *testing.T) {
	props := bson.D{{Key: "message", Value: "This is a message!"}, {Key: "utf8", Value: "żółć"}}
	ev := event.New(props)

	tr := Translator{Filter: bson.D{{Key: "%{utf8}", Value: "[message]"}}, Upsert: true}
	op, err := tr.Build(ev, domain.ActionReplace, ev.Fields())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := domain.ReplaceOp{
		Filter:      bson.D{{Key: "żółć", Value: "This is a message!"}},
		Replacement: props,
		Upsert:      true,
	}
	if !reflect.DeepEqual(op, want) {
		t.Errorf("Build() = %#v, want %#v", op, want)
	}
}

func TestTranslator_MissingFilter(t *testing.T) {
	ev := event.New(bson.D{{Key: "message", Value: "x"}})

	for _, action := range []domain.Action{domain.ActionUpdate, domain.ActionReplace} {
		_, err := Translator{}.Build(ev, action, ev.Fields())
		if !errors.Is(err, domain.ErrMissingFilter) {
			t.Errorf("%s: error = %v, want ErrMissingFilter", action, err)
		}
	}
}

func TestTranslator_UnknownAction(t *testing.T) {
	ev := event.New(bson.D{})
	if _, err := (Translator{}).Build(ev, domain.Action(42), bson.D{}); !errors.Is(err, domain.ErrInvalidAction) {
		t.Errorf("error = %v, want ErrInvalidAction", err)
	}
}
