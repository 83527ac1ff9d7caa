package translate

import "go.mongodb.org/mongo-driver/bson"

// FieldSource is what resolution needs from an event.
type FieldSource interface {
	Sprintf(format string) string
	Get(ref string) (any, bool)
}

// Resolve builds a new document from a template. Keys are interpolated as
// string templates. String values naming an existing field are replaced by
// that field's value with its type preserved; other values are kept as
// literals. Nested documents and lists are resolved with the same rules.
func Resolve(src FieldSource, tmpl bson.D) bson.D {
	out := make(bson.D, 0, len(tmpl))
	for _, el := range tmpl {
		out = append(out, bson.E{
			Key:   src.Sprintf(el.Key),
			Value: resolveValue(src, el.Value),
		})
	}
	return out
}

func resolveValue(src FieldSource, v any) any {
	switch x := v.(type) {
	case string:
		if fv, ok := src.Get(x); ok {
			return fv
		}
		return x
	case bson.D:
		return Resolve(src, x)
	case bson.M:
		return Resolve(src, sortedDoc(x))
	case bson.A:
		out := make(bson.A, len(x))
		for i, item := range x {
			out[i] = resolveValue(src, item)
		}
		return out
	default:
		return v
	}
}
