package binding

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		expr string
		doc  string
		want string
	}{
		{
			name: "indexed array field",
			expr: "data[1].name",
			doc:  `{"data":[{"name":"a"},{"name":"b"}]}`,
			want: "b",
		},
		{
			name: "dotted array field defaults to first element",
			expr: "data.name",
			doc:  `{"data":[{"name":"a"},{"name":"b"}]}`,
			want: "a",
		},
		{
			name: "root array indexed form",
			expr: "[0].name",
			doc:  `[{"name":"x"}]`,
			want: "x",
		},
		{
			name: "root array second element",
			expr: "[1].value",
			doc:  `[{"value":"one"},{"value":"two"}]`,
			want: "two",
		},
		{
			name: "plain dotted path",
			expr: "a.b.c",
			doc:  `{"a":{"b":{"c":"deep"}}}`,
			want: "deep",
		},
		{
			name: "bracket path into nested field",
			expr: "a.b[1].c",
			doc:  `{"a":{"b":[{"c":"first"},{"c":"second"}]}}`,
			want: "second",
		},
		{
			name: "root array falls back to first element for plain path",
			expr: "name",
			doc:  `[{"name":"lead"},{"name":"trail"}]`,
			want: "lead",
		},
		{
			name: "field index form against root array document",
			expr: "rows[1].id",
			doc:  `[{"id":"r0"},{"id":"r1"}]`,
			want: "r1",
		},
		{
			name: "numeric leaf",
			expr: "metrics.count",
			doc:  `{"metrics":{"count":42}}`,
			want: "42",
		},
		{
			name: "null value falls through to array default",
			expr: "data.name",
			doc:  `{"data":[{"name":null},{"name":"kept"}],"other":1}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.expr, []byte(tt.doc))
			if got.String() != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.expr, got.String(), tt.want)
			}
		})
	}
}

func TestResolve_Undefined(t *testing.T) {
	tests := []struct {
		name string
		expr string
		doc  string
	}{
		{"missing path", "missing.path", `{"a":1}`},
		{"index into scalar", "a[2].b", `{"a":5}`},
		{"keys remaining past scalar", "a.b.c", `{"a":{"b":3}}`},
		{"index past array end", "data[9].name", `{"data":[{"name":"a"}]}`},
		{"empty expression", "", `{"a":1}`},
		{"null intermediate", "a.b", `{"a":null}`},
		{"empty document", "a.b", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.expr, []byte(tt.doc)); got.Exists() && got.Type != gjson.Null {
				t.Fatalf("Resolve(%q) = %v, want undefined", tt.expr, got)
			}
		})
	}
}

func TestResolve_Pure(t *testing.T) {
	doc := []byte(`{"data":[{"name":"a"},{"name":"b"}],"meta":{"rev":7}}`)
	first := Resolve("data[1].name", doc)
	second := Resolve("data[1].name", doc)
	if first.Raw != second.Raw || first.String() != second.String() {
		t.Fatalf("repeat resolution differs: %v vs %v", first, second)
	}
	if string(doc) != `{"data":[{"name":"a"},{"name":"b"}],"meta":{"rev":7}}` {
		t.Fatal("document mutated by resolution")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.b", "a.b"},
		{"a[2].c", "a.2.c"},
		{"[0].name", "0.name"},
		{"a[1][2]", "a.1.2"},
		{"a[1]", "a.1"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Fatalf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
