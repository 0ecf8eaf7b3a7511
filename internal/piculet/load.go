package piculet

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/query"
)

// Field names of the description format.
const (
	fieldDocType    = "doctype"
	fieldRoot       = "root"
	fieldPre        = "pre"
	fieldPost       = "post"
	fieldRules      = "rules"
	fieldKey        = "key"
	fieldExtractor  = "extractor"
	fieldForeach    = "foreach"
	fieldPath       = "path"
	fieldSep        = "sep"
	fieldTransforms = "transforms"
)

var (
	specFields      = []string{fieldDocType, fieldRoot, fieldPre, fieldPost, fieldRules}
	ruleFields      = []string{fieldKey, fieldExtractor, fieldForeach}
	pickerFields    = []string{fieldPath, fieldSep, fieldRoot, fieldForeach, fieldTransforms}
	collectorFields = []string{fieldRules, fieldRoot, fieldForeach, fieldTransforms}
	keyFields       = []string{fieldPath, fieldSep, fieldRoot, fieldTransforms}
)

// Load builds a Spec from its description, binding every named function
// to the matching entry of reg.
//
// The description is the nested map form of a spec, as produced by
// decoding JSON or YAML:
//
//	{doctype?, root?, pre?: [name], post?: [name], rules?: [Rule]}
//	Rule      = {key: string | KeyPicker, extractor: Picker | Collector, foreach?}
//	Picker    = {path, sep?, root?, foreach?, transforms?: [name]}
//	Collector = {rules: [Rule], root?, foreach?, transforms?: [name]}
//	KeyPicker = {path, sep?, root?, transforms?: [name]}
//
// A key picker is narrower than an extractor picker: it has no foreach,
// because a key must resolve to a single string. A key carrying foreach
// fails with ErrUnknownField rather than having the field ignored.
//
// Loading is strict. Unknown fields, wrong types, malformed queries and
// names missing from the registry all fail with a *LoadError locating the
// problem, and no Spec is returned.
//
// When the description declares a doctype and no preprocessors, every
// query is also checked against the node kind of that doctype.
func Load(desc map[string]any, reg Registry) (*Spec, error) {
	l := &loader{reg: reg}
	return l.spec(desc)
}

type loader struct {
	reg Registry

	// expect is the dialect every query must have, or zero when the node
	// kind is not known until scrape time.
	expect query.Dialect
}

func (l *loader) spec(desc map[string]any) (*Spec, error) {
	if desc == nil {
		return nil, &LoadError{Err: fmt.Errorf("%w: empty description", ErrMissingField)}
	}
	if err := checkFields("", desc, specFields); err != nil {
		return nil, err
	}

	s := &Spec{}
	if v, ok := desc[fieldDocType]; ok {
		name, err := asString(fieldDocType, v)
		if err != nil {
			return nil, err
		}
		dt, err := document.ParseDocType(name)
		if err != nil {
			return nil, &LoadError{Path: fieldDocType, Err: err}
		}
		s.DocType = dt
	}

	pre, err := l.names(fieldPre, desc[fieldPre])
	if err != nil {
		return nil, err
	}
	for i, name := range pre {
		fn, ok := l.reg.Preprocessors[name]
		if !ok {
			return nil, &LoadError{Path: index(fieldPre, i), Err: fmt.Errorf("%w: %q", ErrUnknownPreprocessor, name)}
		}
		s.Pre = append(s.Pre, name)
		s.pre = append(s.pre, fn)
	}

	post, err := l.names(fieldPost, desc[fieldPost])
	if err != nil {
		return nil, err
	}
	for i, name := range post {
		fn, ok := l.reg.Postprocessors[name]
		if !ok {
			return nil, &LoadError{Path: index(fieldPost, i), Err: fmt.Errorf("%w: %q", ErrUnknownPostprocessor, name)}
		}
		s.Post = append(s.Post, name)
		s.post = append(s.post, fn)
	}

	if s.DocType != "" && len(s.Pre) == 0 {
		l.expect = dialectOf(s.DocType)
	}

	if s.Root, err = l.optionalQuery(fieldRoot, desc); err != nil {
		return nil, err
	}
	if v, ok := desc[fieldRules]; ok {
		if s.Rules, err = l.rules(fieldRules, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (l *loader) rules(path string, v any) ([]*Rule, error) {
	items, err := asList(path, v)
	if err != nil {
		return nil, err
	}
	rules := make([]*Rule, 0, len(items))
	for i, item := range items {
		rule, err := l.rule(index(path, i), item)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (l *loader) rule(path string, v any) (*Rule, error) {
	m, err := asObject(path, v)
	if err != nil {
		return nil, err
	}
	if err := checkFields(path, m, ruleFields); err != nil {
		return nil, err
	}

	r := &Rule{}
	keyValue, ok := m[fieldKey]
	if !ok {
		return nil, &LoadError{Path: child(path, fieldKey), Err: ErrMissingField}
	}
	if r.Key, err = l.key(child(path, fieldKey), keyValue); err != nil {
		return nil, err
	}

	exValue, ok := m[fieldExtractor]
	if !ok {
		return nil, &LoadError{Path: child(path, fieldExtractor), Err: ErrMissingField}
	}
	if r.Extractor, err = l.extractor(child(path, fieldExtractor), exValue); err != nil {
		return nil, err
	}

	if r.Foreach, err = l.optionalQuery(child(path, fieldForeach), m); err != nil {
		return nil, err
	}
	return r, nil
}

func (l *loader) key(path string, v any) (Key, error) {
	if name, ok := v.(string); ok {
		return LiteralKey(name), nil
	}
	m, err := asObject(path, v)
	if err != nil {
		return Key{}, &LoadError{Path: path, Err: fmt.Errorf("%w: expected string or picker, got %T", ErrInvalidType, v)}
	}
	if _, ok := m[fieldForeach]; ok {
		return Key{}, &LoadError{Path: child(path, fieldForeach), Err: fmt.Errorf("%w: a key cannot have foreach", ErrUnknownField)}
	}
	if err := checkFields(path, m, keyFields); err != nil {
		return Key{}, err
	}
	p, err := l.picker(path, m)
	if err != nil {
		return Key{}, err
	}
	return Key{Picker: p}, nil
}

func (l *loader) extractor(path string, v any) (Extractor, error) {
	m, err := asObject(path, v)
	if err != nil {
		return nil, err
	}
	_, hasPath := m[fieldPath]
	_, hasRules := m[fieldRules]
	switch {
	case hasPath && hasRules:
		return nil, &LoadError{Path: path, Err: ErrAmbiguousExtractor}
	case hasPath:
		if err := checkFields(path, m, pickerFields); err != nil {
			return nil, err
		}
		return l.picker(path, m)
	case hasRules:
		if err := checkFields(path, m, collectorFields); err != nil {
			return nil, err
		}
		return l.collector(path, m)
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: path or rules", ErrMissingField)}
	}
}

func (l *loader) picker(path string, m map[string]any) (*Picker, error) {
	p := &Picker{}
	pathValue, ok := m[fieldPath]
	if !ok {
		return nil, &LoadError{Path: child(path, fieldPath), Err: ErrMissingField}
	}
	var err error
	if p.Path, err = l.query(child(path, fieldPath), pathValue); err != nil {
		return nil, err
	}
	if v, ok := m[fieldSep]; ok {
		if p.Sep, err = asString(child(path, fieldSep), v); err != nil {
			return nil, err
		}
	}
	if err := l.common(path, m, &p.Common); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *loader) collector(path string, m map[string]any) (*Collector, error) {
	c := &Collector{}
	var err error
	if c.Rules, err = l.rules(child(path, fieldRules), m[fieldRules]); err != nil {
		return nil, err
	}
	if err := l.common(path, m, &c.Common); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *loader) common(path string, m map[string]any, c *Common) error {
	var err error
	if c.Root, err = l.optionalQuery(child(path, fieldRoot), m); err != nil {
		return err
	}
	if c.Foreach, err = l.optionalQuery(child(path, fieldForeach), m); err != nil {
		return err
	}

	tpath := child(path, fieldTransforms)
	names, err := l.names(tpath, m[fieldTransforms])
	if err != nil {
		return err
	}
	for i, name := range names {
		fn, ok := l.reg.Transforms[name]
		if !ok {
			return &LoadError{Path: index(tpath, i), Err: fmt.Errorf("%w: %q", ErrUnknownTransform, name)}
		}
		c.Transforms = append(c.Transforms, name)
		c.transforms = append(c.transforms, fn)
	}
	return nil
}

// optionalQuery compiles the query stored under the last element of path,
// if the field is present.
func (l *loader) optionalQuery(path string, m map[string]any) (*query.Query, error) {
	v, ok := m[lastField(path)]
	if !ok || v == nil {
		return nil, nil
	}
	return l.query(path, v)
}

func (l *loader) query(path string, v any) (*query.Query, error) {
	src, err := asString(path, v)
	if err != nil {
		return nil, err
	}
	q, err := query.Compile(src)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if l.expect != 0 && q.Dialect() != l.expect {
		return nil, &LoadError{
			Path: path,
			Err:  fmt.Errorf("%w: %s path %q", ErrDialectMismatch, q.Dialect(), src),
		}
	}
	return q, nil
}

func (l *loader) names(path string, v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, err := asList(path, v)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for i, item := range items {
		name, err := asString(index(path, i), item)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func dialectOf(dt document.DocType) query.Dialect {
	if dt.Kind() == document.KindMap {
		return query.Map
	}
	return query.Tree
}

// checkFields rejects any field of m not listed in allowed. Fields are
// checked in sorted order so the reported field does not vary.
func checkFields(path string, m map[string]any, allowed []string) error {
	for _, name := range slices.Sorted(maps.Keys(m)) {
		if !slices.Contains(allowed, name) {
			return &LoadError{Path: child(path, name), Err: ErrUnknownField}
		}
	}
	return nil
}

func asString(path string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &LoadError{Path: path, Err: fmt.Errorf("%w: expected string, got %T", ErrInvalidType, v)}
	}
	return s, nil
}

func asObject(path string, v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: expected object, got %T", ErrInvalidType, v)}
	}
	return m, nil
}

func asList(path string, v any) ([]any, error) {
	switch items := v.(type) {
	case []any:
		return items, nil
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(items))
		for i, m := range items {
			out[i] = m
		}
		return out, nil
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: expected list, got %T", ErrInvalidType, v)}
	}
}

func child(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func lastField(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}
