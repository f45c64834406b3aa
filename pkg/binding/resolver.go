// Package binding resolves user-authored path expressions against the live
// feed document and enumerates the expressions a document can offer.
//
// Expressions are plain dot/bracket paths ("a.b", "a[2].c") with a fallback
// policy for array-valued fields: see Resolve. Field names contain no '.',
// '[' or ']' characters.
package binding

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Resolve evaluates expr against a raw JSON document. It is pure and never
// panics; any traversal failure yields a non-existent result.
//
// The forms below are attempted in order, and the walk keeps falling through
// while the result is missing or null:
//
//  1. "[N].rest" indexes the document itself (when it is an array).
//  2. "field[N].rest" tries the document itself as an array at N, then the
//     named field as an array at N.
//  3. "field.rest" where field holds an array defaults to element 0.
//  4. The whole expression as a direct dot/bracket path.
//  5. The direct path retried against element 0 of a root-array document.
//
// Scalar results are converted to display strings by the caller, not here.
func Resolve(expr string, doc []byte) gjson.Result {
	expr = strings.TrimSpace(expr)
	if expr == "" || len(doc) == 0 {
		return gjson.Result{}
	}
	root := gjson.ParseBytes(doc)

	var res gjson.Result

	if idx, rest, ok := splitRootIndex(expr); ok && root.IsArray() {
		res = lookup(root, idx, rest)
	}

	if !defined(res) {
		if field, idx, rest, ok := splitFieldIndex(expr); ok {
			if root.IsArray() {
				res = lookup(root, idx, rest)
			}
			if !defined(res) {
				if arr := root.Get(field); arr.IsArray() {
					res = lookup(arr, idx, rest)
				}
			}
		}
	}

	if !defined(res) {
		if field, rest, ok := splitField(expr); ok {
			if arr := root.Get(field); arr.IsArray() {
				res = lookup(arr, 0, rest)
			}
		}
	}

	if !defined(res) {
		res = root.Get(normalize(expr))
	}

	if !defined(res) && root.IsArray() {
		res = lookup(root, 0, expr)
	}

	return res
}

// defined reports whether a result terminates the fallback walk.
func defined(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

// lookup resolves rest against element idx of an array value.
func lookup(arr gjson.Result, idx int, rest string) gjson.Result {
	path := strconv.Itoa(idx)
	if rest != "" {
		path += "." + normalize(rest)
	}
	return arr.Get(path)
}

// normalize rewrites bracket segments as dot segments: "a[2].c" -> "a.2.c",
// "[0].name" -> "0.name". Field names never contain dots, so collapsing the
// empty segments left behind by bracket removal is safe.
func normalize(expr string) string {
	if !strings.ContainsAny(expr, "[]") {
		return expr
	}
	replaced := bracketReplacer.Replace(expr)
	segments := make([]string, 0, strings.Count(replaced, ".")+1)
	for _, seg := range strings.Split(replaced, ".") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, ".")
}

var bracketReplacer = strings.NewReplacer("[", ".", "]", ".")

// splitRootIndex matches the "[N].rest" form.
func splitRootIndex(expr string) (idx int, rest string, ok bool) {
	if len(expr) < 2 || expr[0] != '[' {
		return 0, "", false
	}
	end := strings.IndexByte(expr, ']')
	if end < 0 {
		return 0, "", false
	}
	idx, err := strconv.Atoi(expr[1:end])
	if err != nil || idx < 0 {
		return 0, "", false
	}
	rest = expr[end+1:]
	rest = strings.TrimPrefix(rest, ".")
	if rest == "" {
		return 0, "", false
	}
	return idx, rest, true
}

// splitFieldIndex matches the "field[N].rest" form. rest may be empty.
func splitFieldIndex(expr string) (field string, idx int, rest string, ok bool) {
	open := strings.IndexByte(expr, '[')
	if open <= 0 {
		return "", 0, "", false
	}
	field = expr[:open]
	if strings.ContainsAny(field, ".]") {
		return "", 0, "", false
	}
	end := strings.IndexByte(expr[open:], ']')
	if end < 0 {
		return "", 0, "", false
	}
	end += open
	idx, err := strconv.Atoi(expr[open+1 : end])
	if err != nil || idx < 0 {
		return "", 0, "", false
	}
	rest = strings.TrimPrefix(expr[end+1:], ".")
	return field, idx, rest, true
}

// splitField matches the "field.rest" form.
func splitField(expr string) (field, rest string, ok bool) {
	dot := strings.IndexByte(expr, '.')
	if dot <= 0 || dot == len(expr)-1 {
		return "", "", false
	}
	field = expr[:dot]
	if strings.ContainsAny(field, "[]") {
		return "", "", false
	}
	return field, expr[dot+1:], true
}
