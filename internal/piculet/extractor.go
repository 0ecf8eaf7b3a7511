package piculet

import (
	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/query"
)

// Extractor produces a value from a node. It is either a *Picker or a
// *Collector.
type Extractor interface {
	// Extract applies the extractor to a node. It reports false when
	// there is no value.
	Extract(n document.Node) (any, bool, error)

	settings() *Common
	extract(n document.Node) (any, bool, error)
}

// Common holds the settings shared by both extractor variants.
type Common struct {
	// Root, when set, moves extraction to the first node it matches.
	Root *query.Query

	// Foreach, when set, makes the extractor produce a list: one item
	// for every node it matches.
	Foreach *query.Query

	// Transforms names the functions applied, in order, to each
	// extracted value.
	Transforms []string

	transforms []Transform
}

func (c *Common) settings() *Common { return c }

// transform runs the bound transforms over v.
func (c *Common) transform(v any) (any, error) {
	for i, fn := range c.transforms {
		out, err := fn(v)
		if err != nil {
			return nil, &CallbackError{Stage: StageTransform, Name: c.Transforms[i], Err: err}
		}
		v = out
	}
	return v, nil
}

// reroot applies Root to n. It reports false when Root matches nothing.
func (c *Common) reroot(n document.Node) (document.Node, bool, error) {
	if c.Root == nil {
		return n, true, nil
	}
	return c.Root.Get(n)
}

// Picker extracts a single value with a path.
type Picker struct {
	Common

	// Path selects the value.
	Path *query.Query

	// Sep joins multiple tree fragments. The default is to concatenate.
	Sep string
}

// Extract applies Path to n. Root and Foreach are applied by the owning
// rule.
func (p *Picker) Extract(n document.Node) (any, bool, error) {
	return p.extract(n)
}

func (p *Picker) extract(n document.Node) (any, bool, error) {
	return p.Path.Join(n, p.Sep)
}

// Collector builds a map by applying a list of rules to the same node.
type Collector struct {
	Common

	// Rules are applied in order. When two rules produce the same key the
	// later one wins, so rule order is significant.
	Rules []*Rule
}

// Extract moves to Root, if any, and collects the rules from there.
// It reports false when no rule produced a key, which lets a missing
// nested object be told apart from an empty one.
func (c *Collector) Extract(n document.Node) (any, bool, error) {
	root, ok, err := c.reroot(n)
	if err != nil || !ok {
		return nil, false, err
	}
	return c.extract(root)
}

func (c *Collector) extract(n document.Node) (any, bool, error) {
	data, err := c.collect(n)
	if err != nil || len(data) == 0 {
		return nil, false, err
	}
	return data, true, nil
}

func (c *Collector) collect(n document.Node) (map[string]any, error) {
	data := make(map[string]any)
	for _, rule := range c.Rules {
		entries, ok, err := rule.Apply(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for k, v := range entries {
			data[k] = v
		}
	}
	return data, nil
}
