package cliconfig

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// ParseDoc decodes a JSON object, keeping its key order.
func ParseDoc(s string) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DocFlag is a pflag.Value holding a JSON object.
type DocFlag struct {
	dst *bson.D
}

// NewDocFlag binds a flag to dst.
func NewDocFlag(dst *bson.D) *DocFlag {
	return &DocFlag{dst: dst}
}

func (f *DocFlag) String() string {
	if f.dst == nil || len(*f.dst) == 0 {
		return ""
	}
	b, err := bson.MarshalExtJSON(*f.dst, false, false)
	if err != nil {
		return ""
	}
	return string(b)
}

func (f *DocFlag) Set(s string) error {
	doc, err := ParseDoc(s)
	if err != nil {
		return err
	}
	*f.dst = doc
	return nil
}

func (f *DocFlag) Type() string { return "json" }

// tableToDoc converts a decoded TOML value. Tables have no key order, so
// their keys are sorted; a string is parsed as a JSON object.
func tableToDoc(v any) (bson.D, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseDoc(x)
	case map[string]any:
		return sortedTable(x), nil
	default:
		return nil, fmt.Errorf("expected table or JSON string, got %T", v)
	}
}

func sortedTable(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: tomlValue(m[k])})
	}
	return doc
}

func tomlValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return sortedTable(x)
	case []any:
		out := make(bson.A, len(x))
		for i, item := range x {
			out[i] = tomlValue(item)
		}
		return out
	default:
		return v
	}
}
