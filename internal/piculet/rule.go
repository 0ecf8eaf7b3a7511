package piculet

import (
	"fmt"
	"strings"

	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/query"
)

// ReservedKeyPrefix marks keys that are internal to a spec. A dynamic
// key that starts with it is dropped instead of being emitted. Literal
// keys may use it to hand data to postprocessors.
const ReservedKeyPrefix = "_"

// Key names the entry a rule produces. It is literal when Picker is nil
// and computed from the rule's subroot otherwise.
type Key struct {
	Name   string
	Picker *Picker
}

// LiteralKey returns a key with a fixed name.
func LiteralKey(name string) Key { return Key{Name: name} }

// Dynamic reports whether the key is computed from the document.
func (k Key) Dynamic() bool { return k.Picker != nil }

// resolve computes the key for a subroot. It reports false when the key
// picker finds nothing or produces a reserved name.
func (k Key) resolve(n document.Node) (string, bool, error) {
	if k.Picker == nil {
		return k.Name, true, nil
	}

	root, ok, err := k.Picker.reroot(n)
	if err != nil || !ok {
		return "", false, err
	}
	raw, ok, err := k.Picker.extract(root)
	if err != nil || !ok {
		return "", false, err
	}
	v, err := k.Picker.transform(raw)
	if err != nil || v == nil {
		return "", false, err
	}

	name, isString := v.(string)
	if !isString {
		name = fmt.Sprint(v)
	}
	if strings.HasPrefix(name, ReservedKeyPrefix) {
		return "", false, nil
	}
	return name, true, nil
}

// Rule produces map entries from a node.
type Rule struct {
	Key       Key
	Extractor Extractor

	// Foreach, when set, applies the rule to every node it matches, each
	// producing its own entry. With a dynamic key this yields one entry
	// per match; with a literal key the last match wins.
	Foreach *query.Query
}

// Apply runs the rule against a node and returns the entries it
// produced. It reports false when there are none.
//
// For every subroot the extractor's Root is applied first; a subroot
// where Root matches nothing is skipped. Without an extractor Foreach the
// value is extracted once and transformed. With one, every matched node
// is extracted, nodes without a value are dropped, and each remaining
// item is transformed on its own; an empty list produces no entry.
func (r *Rule) Apply(n document.Node) (map[string]any, bool, error) {
	subroots := []document.Node{n}
	if r.Foreach != nil {
		var err error
		if subroots, err = r.Foreach.Select(n); err != nil {
			return nil, false, err
		}
	}

	ex := r.Extractor
	c := ex.settings()
	result := make(map[string]any)
	for _, subroot := range subroots {
		effective, ok, err := c.reroot(subroot)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}

		var value any
		if c.Foreach == nil {
			raw, ok, err := ex.extract(effective)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
			if value, err = c.transform(raw); err != nil {
				return nil, false, err
			}
		} else {
			items, err := extractEach(ex, c, effective)
			if err != nil {
				return nil, false, err
			}
			if len(items) == 0 {
				continue
			}
			value = items
		}

		key, ok, err := r.Key.resolve(subroot)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		result[key] = value
	}

	if len(result) == 0 {
		return nil, false, nil
	}
	return result, true, nil
}

// extractEach extracts from every node matched by the extractor's
// Foreach and transforms each item independently.
func extractEach(ex Extractor, c *Common, n document.Node) ([]any, error) {
	nodes, err := c.Foreach.Select(n)
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, len(nodes))
	for _, node := range nodes {
		raw, ok, err := ex.extract(node)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		item, err := c.transform(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
