// Package event implements the record source consumed by the sink: an
// ordered document decoded from JSON with field references, placeholder
// interpolation and an optional event instant.
package event

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimestampField is the field holding the event instant.
const TimestampField = "@timestamp"

// TimestampLayout is used whenever an instant is rendered as a string.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var placeholder = regexp.MustCompile(`%\{([^}]+)\}`)

// Event is an immutable structured record.
type Event struct {
	fields bson.D
	ts     time.Time
	hasTS  bool
}

// Parse decodes one JSON object. MongoDB relaxed Extended JSON is accepted,
// so {"$numberDecimal": "1.5"} and {"$date": "..."} keep their BSON types.
func Parse(data []byte) (*Event, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return New(doc), nil
}

// New wraps doc. The event instant is taken from the @timestamp field when it
// holds a datetime or an RFC 3339 string.
func New(doc bson.D) *Event {
	e := &Event{fields: doc}
	for _, el := range doc {
		if el.Key != TimestampField {
			continue
		}
		switch v := el.Value.(type) {
		case primitive.DateTime:
			e.ts, e.hasTS = v.Time().UTC(), true
		case time.Time:
			e.ts, e.hasTS = v.UTC(), true
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				e.ts, e.hasTS = t.UTC(), true
			}
		}
		break
	}
	return e
}

// Fields returns a shallow copy of the event document.
func (e *Event) Fields() bson.D {
	out := make(bson.D, len(e.fields))
	copy(out, e.fields)
	return out
}

// Timestamp returns the event instant.
func (e *Event) Timestamp() (time.Time, bool) {
	return e.ts, e.hasTS
}

// Get resolves a field reference. "name" addresses a top-level field and
// "[a][b][0]" walks nested documents and list indices.
func (e *Event) Get(ref string) (any, bool) {
	path := splitRef(ref)
	if len(path) == 0 {
		return nil, false
	}

	var cur any = e.fields
	for _, seg := range path {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Sprintf replaces every %{ref} with the string form of the referenced value.
// Placeholders that do not resolve are left untouched.
func (e *Event) Sprintf(format string) string {
	if !strings.Contains(format, "%{") {
		return format
	}
	return placeholder.ReplaceAllStringFunc(format, func(m string) string {
		v, ok := e.Get(m[2 : len(m)-1])
		if !ok {
			return m
		}
		return Format(v)
	})
}

func splitRef(ref string) []string {
	if ref == "" {
		return nil
	}
	if !strings.HasPrefix(ref, "[") || !strings.HasSuffix(ref, "]") {
		return []string{ref}
	}
	return strings.Split(ref[1:len(ref)-1], "][")
}

func child(v any, seg string) (any, bool) {
	switch c := v.(type) {
	case bson.D:
		for _, el := range c {
			if el.Key == seg {
				return el.Value, true
			}
		}
	case bson.M:
		el, ok := c[seg]
		return el, ok
	case bson.A:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, false
		}
		if i < 0 {
			i += len(c)
		}
		if i < 0 || i >= len(c) {
			return nil, false
		}
		return c[i], true
	}
	return nil, false
}

// Format renders a field value the way placeholders and templated keys see it.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		// Integral doubles keep a trailing ".0" so 1.0 and 1 stay distinct.
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	case primitive.Decimal128:
		return x.String()
	case primitive.DateTime:
		return x.Time().UTC().Format(TimestampLayout)
	case time.Time:
		return x.UTC().Format(TimestampLayout)
	case primitive.ObjectID:
		return x.Hex()
	case bson.D:
		if b, err := bson.MarshalExtJSON(x, false, false); err == nil {
			return string(b)
		}
	case bson.A:
		// MarshalExtJSON only takes documents; wrap and strip the envelope.
		if b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: x}}, false, false); err == nil {
			s := string(b)
			return s[len(`{"v":`) : len(s)-1]
		}
	}
	return fmt.Sprint(v)
}
