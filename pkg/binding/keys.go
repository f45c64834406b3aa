package binding

import "github.com/tidwall/gjson"

// RootArrayField is the pseudo-field offered to the UI when the document
// itself is an array. Passing it to ArrayElementKeys drills into the
// document root instead of a named field.
const RootArrayField = "$root"

// Keys enumerates the binding expressions a document offers in header mode:
// nested plain objects are flattened into dot-joined leaf paths, while a
// field holding an array is emitted as a single key and never expanded,
// whatever its element type.
func Keys(doc []byte) []string {
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil
	}
	var keys []string
	collectKeys(root, "", &keys)
	return keys
}

func collectKeys(obj gjson.Result, prefix string, out *[]string) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if value.IsObject() {
			collectKeys(value, name, out)
		} else {
			*out = append(*out, name)
		}
		return true
	})
}

// ArrayElementKeys returns the key set of the first element of the array
// held by field, one level deep. RootArrayField drills into the document
// root itself. Returns nil when the target is not a non-empty array of
// objects.
func ArrayElementKeys(doc []byte, field string) []string {
	arr := gjson.ParseBytes(doc)
	if field != RootArrayField {
		arr = arr.Get(field)
	}
	if !arr.IsArray() {
		return nil
	}
	first := arr.Get("0")
	if !first.IsObject() {
		return nil
	}
	var keys []string
	first.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// IsRootArray reports whether the document itself is a non-empty array,
// offered to the UI as index-based access into the document root.
func IsRootArray(doc []byte) bool {
	root := gjson.ParseBytes(doc)
	return root.IsArray() && len(root.Array()) > 0
}
