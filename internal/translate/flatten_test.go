package translate

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   bson.D
		want bson.D
	}{
		{
			name: "flat document unchanged",
			in:   bson.D{{Key: "message", Value: "hi"}, {Key: "n", Value: 1}},
			want: bson.D{{Key: "message", Value: "hi"}, {Key: "n", Value: 1}},
		},
		{
			name: "nested document and scalar list",
			in: bson.D{{Key: "a", Value: bson.D{
				{Key: "b", Value: 1},
				{Key: "c", Value: bson.A{1, 2}},
			}}},
			want: bson.D{
				{Key: "a.b", Value: 1},
				{Key: "a.c.0", Value: 1},
				{Key: "a.c.1", Value: 2},
			},
		},
		{
			name: "list of documents",
			in: bson.D{{Key: "k", Value: bson.A{
				bson.D{{Key: "x", Value: 1}},
				bson.D{{Key: "x", Value: 2}},
			}}},
			want: bson.D{
				{Key: "k.0.x", Value: 1},
				{Key: "k.1.x", Value: 2},
			},
		},
		{
			name: "list inside list is kept whole",
			in:   bson.D{{Key: "k", Value: bson.A{bson.A{1, 2}, 3}}},
			want: bson.D{
				{Key: "k.0", Value: bson.A{1, 2}},
				{Key: "k.1", Value: 3},
			},
		},
		{
			name: "document in list with nested list",
			in: bson.D{{Key: "rows", Value: bson.A{
				bson.D{{Key: "tags", Value: bson.A{"a"}}, {Key: "meta", Value: bson.D{{Key: "n", Value: 9}}}},
			}}},
			want: bson.D{
				{Key: "rows.0.tags.0", Value: "a"},
				{Key: "rows.0.meta.n", Value: 9},
			},
		},
		{
			name: "empty containers are leaves",
			in:   bson.D{{Key: "d", Value: bson.D{}}, {Key: "l", Value: bson.A{}}},
			want: bson.D{{Key: "d", Value: bson.D{}}, {Key: "l", Value: bson.A{}}},
		},
		{
			name: "unordered map is walked by sorted key",
			in:   bson.D{{Key: "m", Value: bson.M{"z": 1, "a": 2}}},
			want: bson.D{{Key: "m.a", Value: 2}, {Key: "m.z", Value: 1}},
		},
		{
			name: "key order follows the document depth first",
			in: bson.D{
				{Key: "z", Value: bson.D{{Key: "b", Value: 1}, {Key: "a", Value: 2}}},
				{Key: "y", Value: 3},
			},
			want: bson.D{{Key: "z.b", Value: 1}, {Key: "z.a", Value: 2}, {Key: "y", Value: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_DoesNotMutateInput(t *testing.T) {
	in := bson.D{{Key: "a", Value: bson.D{{Key: "b", Value: 1}}}}
	_ = Flatten(in)

	want := bson.D{{Key: "a", Value: bson.D{{Key: "b", Value: 1}}}}
	if !reflect.DeepEqual(in, want) {
		t.Errorf("input mutated: %v", in)
	}
}
