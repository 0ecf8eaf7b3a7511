package query

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/xpath"
	"github.com/ohler55/ojg/jp"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidQuery is returned when a path expression cannot be compiled.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrKindMismatch is returned when a query is evaluated against a node
	// of the other kind, such as a tree path against a JSON value.
	ErrKindMismatch = errors.New("query dialect does not match node kind")
)

// Dialect is the path language a query is written in.
type Dialect int

const (
	// Tree is XPath, evaluated against HTML and XML nodes.
	Tree Dialect = iota + 1

	// Map is JSONPath, evaluated against JSON-like values.
	Map
)

// String returns the lower-case name of the dialect.
func (d Dialect) String() string {
	switch d {
	case Tree:
		return "tree"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// DetectDialect returns the dialect a source string is compiled as.
func DetectDialect(src string) Dialect {
	if strings.HasPrefix(src, "/") || strings.HasPrefix(src, "./") || strings.HasPrefix(src, "(") {
		return Tree
	}
	return Map
}

// Query is a compiled path expression. A Query is immutable and safe for
// concurrent use.
//
// Map paths are JSONPath as implemented by github.com/ohler55/ojg/jp, with
// or without the leading "$." ("cast[*].name", "$.data.title"). They are
// not JMESPath. JMESPath projections ("cast[].name"), pipes, multiselect
// hashes and functions such as length(@) are not supported; an expression
// written for a JMESPath engine either fails to compile with
// ErrInvalidQuery or selects something else, and must be rewritten in
// JSONPath ("cast[*].name").
type Query struct {
	src     string
	dialect Dialect

	tree *xpath.Expr

	path jp.Expr
	// singular is set for map paths made only of names and indexes.
	// Such a path addresses at most one value.
	singular bool
}

var (
	cache sync.Map // source -> *Query
	group singleflight.Group
)

// Compile returns the compiled form of src, reusing a previous
// compilation of the same source when there is one.
//
// Errors wrap ErrInvalidQuery and are not cached.
func Compile(src string) (*Query, error) {
	if q, ok := cache.Load(src); ok {
		return q.(*Query), nil //nolint:forcetypeassert // only *Query is stored
	}

	v, err, _ := group.Do(src, func() (any, error) {
		if q, ok := cache.Load(src); ok {
			return q, nil
		}
		q, err := compile(src)
		if err != nil {
			return nil, err
		}
		cache.Store(src, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Query), nil //nolint:forcetypeassert // only *Query is returned
}

// MustCompile is like Compile but panics on error.
// It is intended for queries written as literals in Go code.
func MustCompile(src string) *Query {
	q, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return q
}

func compile(src string) (*Query, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidQuery)
	}

	q := &Query{src: src, dialect: DetectDialect(src)}
	switch q.dialect {
	case Tree:
		expr, err := xpath.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidQuery, src, err)
		}
		q.tree = expr
	case Map:
		expr, err := jp.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidQuery, src, err)
		}
		q.path = expr
		q.singular = isSingular(expr)
	}
	return q, nil
}

// isSingular reports whether a map path can address at most one value.
func isSingular(expr jp.Expr) bool {
	for _, frag := range expr {
		switch frag.(type) {
		case jp.Wildcard, jp.Descent, jp.Slice, jp.Union, *jp.Filter:
			return false
		}
	}
	return true
}

// String returns the source text the query was compiled from.
func (q *Query) String() string { return q.src }

// Dialect returns the dialect the query was compiled as.
func (q *Query) Dialect() Dialect { return q.dialect }

// MarshalText renders the query as its source text.
func (q *Query) MarshalText() ([]byte, error) { return []byte(q.src), nil }
