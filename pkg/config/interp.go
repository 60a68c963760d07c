package config

import (
	"strconv"
	"strings"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
)

// Resolve walks tree and replaces every string leaf that is, in its
// entirety, an interpolation expression "${expr}" with the resolved value of
// expr against root. Containers are rebuilt with resolved children; all
// other leaves pass through unchanged.
//
// Path segments must not contain the operator characters * / + -: the first
// such character splits the expression into its path and literal halves, so
// "${my-key}" reads as "my" minus "key" and fails, not as a lookup of
// "my-key".
//
// An expression is either a dotted path ("a.b.c"), resolved key-by-key from
// root, or a dotted path followed by exactly one binary operator (* / + -)
// and a numeric literal ("a.b * 2"). Partial interpolation inside larger
// strings is not supported: "prefix-${a.b}" stays as-is.
//
// Resolution is strict. A missing path is a REFERENCE_RESOLUTION error and a
// malformed expression is an UNSUPPORTED_EXPRESSION error; either aborts the
// whole resolve. Callers are expected to fall back to the unresolved tree
// and surface the failure as a warning rather than refuse to render.
func Resolve(tree, root Value) (Value, error) {
	switch tree.Kind() {
	case KindMap:
		m := NewMap()
		for _, k := range tree.Keys() {
			child, _ := tree.Get(k)
			resolved, err := Resolve(child, root)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, resolved)
		}
		return m.Build(), nil
	case KindSeq:
		elems := make([]Value, tree.Len())
		for i, e := range tree.Elems() {
			resolved, err := Resolve(e, root)
			if err != nil {
				return Value{}, err
			}
			elems[i] = resolved
		}
		return Seq(elems...), nil
	case KindString:
		return resolveLeaf(tree.Str(), root)
	default:
		return tree, nil
	}
}

func resolveLeaf(s string, root Value) (Value, error) {
	expr, ok := interpExpr(s)
	if !ok {
		return String(s), nil
	}
	return evalExpr(expr, root)
}

// interpExpr returns the inner expression if s is exactly "${...}".
func interpExpr(s string) (string, bool) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	inner := s[2 : len(s)-1]
	// A closing brace before the end means the leaf only starts with an
	// expression ("${a}b") which is not whole-string interpolation.
	if strings.ContainsAny(inner, "{}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// operators supported in arithmetic expressions.
const operators = "*/+-"

func evalExpr(expr string, root Value) (Value, error) {
	if expr == "" {
		return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression, "empty interpolation expression")
	}

	opIdx := strings.IndexAny(expr, operators)
	if opIdx < 0 {
		return resolvePath(expr, root)
	}

	op := expr[opIdx]
	pathPart := strings.TrimSpace(expr[:opIdx])
	litPart := strings.TrimSpace(expr[opIdx+1:])

	if pathPart == "" || litPart == "" {
		return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression,
			"malformed expression %q: expected <path> <op> <number>", expr)
	}
	if strings.ContainsAny(strings.TrimPrefix(litPart, "-"), operators) {
		return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression,
			"chained operators in %q: only a single binary operation is supported", expr)
	}

	lit, err := strconv.ParseFloat(litPart, 64)
	if err != nil {
		return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression,
			"operand %q in %q is not a number", litPart, expr)
	}

	target, err := resolvePath(pathPart, root)
	if err != nil {
		return Value{}, err
	}
	lhs, ok := target.AsNumber()
	if !ok {
		return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression,
			"path %q resolves to %s, arithmetic requires a number", pathPart, target.Kind())
	}

	var result float64
	switch op {
	case '*':
		result = lhs * lit
	case '/':
		if lit == 0 {
			return Value{}, apperrors.New(apperrors.ErrCodeUnsupportedExpression,
				"division by zero in %q", expr)
		}
		result = lhs / lit
	case '+':
		result = lhs + lit
	case '-':
		result = lhs - lit
	}

	// Keep integer typing when both sides are whole, so ${a.b * 2}
	// yields 10 rather than 10.0.
	if result == float64(int64(result)) {
		if _, isInt := target.AsInt(); isInt && lit == float64(int64(lit)) {
			return Int(int64(result)), nil
		}
	}
	return Float(result), nil
}

// resolvePath walks root key-by-key along a dotted path. Sequence elements
// can be addressed with numeric segments ("layers.0.width").
func resolvePath(path string, root Value) (Value, error) {
	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch cur.Kind() {
		case KindMap:
			next, ok := cur.Get(seg)
			if !ok {
				return Value{}, apperrors.New(apperrors.ErrCodeReferenceResolution,
					"interpolation path %q: key %q not found", path, seg)
			}
			cur = next
		case KindSeq:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= cur.Len() {
				return Value{}, apperrors.New(apperrors.ErrCodeReferenceResolution,
					"interpolation path %q: %q is not a valid sequence index", path, seg)
			}
			cur = cur.Index(idx)
		default:
			return Value{}, apperrors.New(apperrors.ErrCodeReferenceResolution,
				"interpolation path %q: cannot descend into %s at %q", path, cur.Kind(), seg)
		}
	}
	return cur, nil
}
