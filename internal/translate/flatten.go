package translate

import (
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

// Flatten converts a nested document into dotted paths so that a $set only
// touches the leaves present in doc. Lists are expanded by index; documents
// inside lists are walked further, any other element is emitted as is.
// Keys keep the document's own order, depth first. Empty documents and empty
// lists are emitted as leaves.
func Flatten(doc bson.D) bson.D {
	return flattenDoc(make(bson.D, 0, len(doc)), "", doc)
}

func flattenDoc(out bson.D, prefix string, doc bson.D) bson.D {
	for _, el := range doc {
		out = flattenValue(out, prefix+el.Key, el.Value)
	}
	return out
}

func flattenValue(out bson.D, path string, v any) bson.D {
	switch x := v.(type) {
	case bson.D:
		if len(x) == 0 {
			return append(out, bson.E{Key: path, Value: x})
		}
		return flattenDoc(out, path+".", x)
	case bson.M:
		if len(x) == 0 {
			return append(out, bson.E{Key: path, Value: x})
		}
		return flattenDoc(out, path+".", sortedDoc(x))
	case bson.A:
		if len(x) == 0 {
			return append(out, bson.E{Key: path, Value: x})
		}
		for i, item := range x {
			p := path + "." + strconv.Itoa(i)
			switch item.(type) {
			case bson.D, bson.M:
				out = flattenValue(out, p, item)
			default:
				out = append(out, bson.E{Key: p, Value: item})
			}
		}
		return out
	default:
		return append(out, bson.E{Key: path, Value: v})
	}
}

// sortedDoc orders an unordered map by key so output stays deterministic.
func sortedDoc(m bson.M) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
