package config

import (
	"testing"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

func mustParse(t *testing.T, src string) Value {
	t.Helper()
	v, err := ParseBytes([]byte(src))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	return v
}

func TestResolvePaths(t *testing.T) {
	root := mustParse(t, `
a:
  b: 5
  name: encoder
layers:
  - width: 64
  - width: 128
refs:
  direct: ${a.b}
  text: ${a.name}
  nested: ${layers.1.width}
  plain: just a string
  partial: prefix-${a.b}
`)

	resolved, err := Resolve(root, root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	refs, _ := resolved.Get("refs")
	tests := []struct {
		key  string
		want Value
	}{
		{"direct", Int(5)},
		{"text", String("encoder")},
		{"nested", Int(128)},
		{"plain", String("just a string")},
		{"partial", String("prefix-${a.b}")}, // no partial interpolation
	}
	for _, tt := range tests {
		got, ok := refs.Get(tt.key)
		if !ok {
			t.Fatalf("key %q missing after resolve", tt.key)
		}
		if !got.Equal(tt.want) {
			t.Errorf("refs.%s = %#v, want %#v", tt.key, got, tt.want)
		}
	}
}

func TestResolveArithmetic(t *testing.T) {
	root := mustParse(t, `
a:
  b: 5
  f: 1.5
`)

	tests := []struct {
		expr string
		want Value
	}{
		{"${a.b * 2}", Int(10)},
		{"${a.b*2}", Int(10)},
		{"${a.b + 3}", Int(8)},
		{"${a.b - 1}", Int(4)},
		{"${a.b / 2}", Float(2.5)},
		{"${a.f * 2}", Float(3)},
		{"${a.b * -1}", Int(-5)},
	}
	for _, tt := range tests {
		got, err := resolveLeaf(tt.expr, root)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func TestResolveMissingPath(t *testing.T) {
	root := mustParse(t, `a: {b: 5}`)

	_, err := resolveLeaf("${missing.path}", root)
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	if !apperrors.Is(err, apperrors.ErrCodeReferenceResolution) {
		t.Errorf("error code = %q, want REFERENCE_RESOLUTION", apperrors.GetCode(err))
	}

	// A missing path anywhere aborts the whole resolve.
	tree := mustParse(t, `x: ${missing.path}`)
	if _, err := Resolve(tree, root); err == nil {
		t.Error("Resolve should propagate path failures")
	}
}

func TestResolveUnsupportedExpressions(t *testing.T) {
	root := mustParse(t, `a: {b: 5, s: hello}`)

	exprs := []string{
		"${a.b * 2 * 3}", // chained operators
		"${a.s * 2}",     // non-numeric path target
		"${a.b *}",       // missing operand
		"${}",            // empty
		"${a.b * two}",   // non-numeric literal
		"${a.b / 0}",     // division by zero
		"${my-key}",      // hyphen reads as subtraction, not part of a key
	}
	for _, expr := range exprs {
		_, err := resolveLeaf(expr, root)
		if err == nil {
			t.Errorf("%s: expected error", expr)
			continue
		}
		if !apperrors.Is(err, apperrors.ErrCodeUnsupportedExpression) {
			t.Errorf("%s: code = %q, want UNSUPPORTED_EXPRESSION", expr, apperrors.GetCode(err))
		}
	}
}

func TestResolveRebuildsContainers(t *testing.T) {
	root := mustParse(t, `
base: 2
seq: ["${base}", "${base * 3}", literal]
`)
	resolved, err := Resolve(root, root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	seq, _ := resolved.Get("seq")
	want := Seq(Int(2), Int(6), String("literal"))
	if !seq.Equal(want) {
		t.Errorf("seq = %#v, want %#v", seq, want)
	}

	// Original tree is untouched.
	origSeq, _ := root.Get("seq")
	if s, _ := origSeq.Index(0).AsString(); s != "${base}" {
		t.Error("Resolve must not mutate its input")
	}
}

func TestParseBytesPreservesKeyOrder(t *testing.T) {
	v := mustParse(t, "z: 1\nm: 2\na: 3\n")
	want := []string{"z", "m", "a"}
	got := v.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}
