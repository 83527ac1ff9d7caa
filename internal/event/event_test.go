package event

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustParse(t *testing.T, s string) *Event {
	t.Helper()
	e, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse(%s): %v", s, err)
	}
	return e
}

func TestParse_PreservesOrderAndTypes(t *testing.T) {
	e := mustParse(t, `{"z": "last?", "a": 1, "m": {"x": 2.5, "y": [1, "two"]}, "d": {"$numberDecimal": "4321.1234"}}`)

	fields := e.Fields()
	keys := []string{"z", "a", "m", "d"}
	if len(fields) != len(keys) {
		t.Fatalf("got %d fields, want %d", len(fields), len(keys))
	}
	for i, k := range keys {
		if fields[i].Key != k {
			t.Errorf("field %d = %s, want %s", i, fields[i].Key, k)
		}
	}

	if v, ok := e.Get("a"); !ok || v != int32(1) {
		t.Errorf("Get(a) = %#v, %v", v, ok)
	}
	if _, ok := fields[2].Value.(bson.D); !ok {
		t.Errorf("nested document decoded as %T, want bson.D", fields[2].Value)
	}
	if _, ok := fields[3].Value.(primitive.Decimal128); !ok {
		t.Errorf("decimal decoded as %T, want primitive.Decimal128", fields[3].Value)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	e := New(bson.D{{Key: "a", Value: 1}})
	f := e.Fields()
	f[0].Value = 2
	_ = append(f, bson.E{Key: "b", Value: 3})

	if v, _ := e.Get("a"); v != 1 {
		t.Errorf("event mutated through Fields(): a = %v", v)
	}
	if len(e.Fields()) != 1 {
		t.Errorf("event grew through Fields()")
	}
}

func TestGet(t *testing.T) {
	e := New(bson.D{
		{Key: "message", Value: "hello"},
		{Key: "a", Value: bson.D{{Key: "b", Value: bson.A{"x", bson.D{{Key: "c", Value: int64(7)}}}}}},
		{Key: "a.b", Value: "literal dotted key"},
	})

	tests := []struct {
		ref    string
		want   any
		wantOK bool
	}{
		{"message", "hello", true},
		{"[message]", "hello", true},
		{"[a][b][0]", "x", true},
		{"[a][b][1][c]", int64(7), true},
		{"[a][b][-2]", "x", true},
		{"a.b", "literal dotted key", true},
		{"[a][b][5]", nil, false},
		{"[a][missing]", nil, false},
		{"[message][x]", nil, false},
		{"missing", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := e.Get(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("Get(%q) ok = %v, want %v", tt.ref, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Get(%q) = %#v, want %#v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestSprintf(t *testing.T) {
	e := New(bson.D{
		{Key: "positive", Value: int32(1)},
		{Key: "service", Value: "billing"},
		{Key: "nested", Value: bson.D{{Key: "env", Value: "prod"}}},
		{Key: "ratio", Value: 0.25},
		{Key: "list", Value: bson.A{int32(1), int32(2)}},
	})

	tests := []struct {
		in   string
		want string
	}{
		{"logs", "logs"},
		{"key_%{positive}", "key_1"},
		{"%{service}-%{[nested][env]}", "billing-prod"},
		{"r=%{ratio}", "r=0.25"},
		{"%{missing}-x", "%{missing}-x"},
		{"%{nested}", `{"env":"prod"}`},
		{"%{list}", `[1,2]`},
	}

	for _, tt := range tests {
		if got := e.Sprintf(tt.in); got != tt.want {
			t.Errorf("Sprintf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		doc    bson.D
		wantOK bool
	}{
		{"rfc3339 string", bson.D{{Key: TimestampField, Value: "2024-03-01T12:30:00Z"}}, true},
		{"bson datetime", bson.D{{Key: TimestampField, Value: primitive.NewDateTimeFromTime(want)}}, true},
		{"time value", bson.D{{Key: TimestampField, Value: want}}, true},
		{"unparseable string", bson.D{{Key: TimestampField, Value: "yesterday"}}, false},
		{"absent", bson.D{{Key: "message", Value: "foo"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := New(tt.doc).Timestamp()
			if ok != tt.wantOK {
				t.Fatalf("Timestamp() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(want) {
				t.Errorf("Timestamp() = %v, want %v", got, want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	dec, _ := primitive.ParseDecimal128("4321.1234")
	ts := time.Date(1918, 11, 11, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{int32(-1), "-1"},
		{int64(42), "42"},
		{float64(1), "1.0"},
		{-2.5, "-2.5"},
		{1e21, "1000000000000000000000.0"},
		{true, "true"},
		{dec, "4321.1234"},
		{ts, "1918-11-11T11:00:00.000Z"},
		{primitive.NewDateTimeFromTime(ts), "1918-11-11T11:00:00.000Z"},
	}

	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
