package query

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/nao1215/piculet/internal/document"
)

// Apply evaluates the query and returns its value. Tree fragments are
// concatenated without a separator.
func (q *Query) Apply(n document.Node) (any, bool, error) {
	return q.Join(n, "")
}

// Join evaluates the query and returns its value.
//
// For a tree path the string values of all matched nodes are joined with
// sep; no match means no value. XPath expressions that yield a number or
// a boolean return it unchanged, and a string-valued expression returns
// its string unless it is empty.
//
// For a map path the addressed value is returned as it is. A singular
// path yields one value, any other path yields the list of everything it
// matched. A null value and an empty list or map count as no value.
func (q *Query) Join(n document.Node, sep string) (any, bool, error) {
	switch q.dialect {
	case Tree:
		return q.joinTree(n, sep)
	case Map:
		return q.applyMap(n)
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidQuery, q.src)
	}
}

// Select returns every node the query matches, in document order.
func (q *Query) Select(n document.Node) ([]document.Node, error) {
	switch q.dialect {
	case Tree:
		return q.selectTree(n, -1)
	case Map:
		return q.selectMap(n)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuery, q.src)
	}
}

// Get returns the first node the query matches. It reports false when
// nothing matched.
func (q *Query) Get(n document.Node) (document.Node, bool, error) {
	var (
		nodes []document.Node
		err   error
	)
	switch q.dialect {
	case Tree:
		nodes, err = q.selectTree(n, 1)
	case Map:
		return q.getMap(n)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidQuery, q.src)
	}
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return nodes[0], true, nil
}

func (q *Query) mismatch(n document.Node) error {
	return fmt.Errorf("%w: %s path %q on %s node", ErrKindMismatch, q.dialect, q.src, n.Kind())
}

func (q *Query) evaluate(n document.Node) (any, error) {
	nav, err := q.navigator(n)
	if err != nil {
		return nil, err
	}
	return q.tree.Evaluate(nav), nil
}

func (q *Query) navigator(n document.Node) (xpath.NodeNavigator, error) {
	switch v := n.(type) {
	case *document.HTMLNode:
		return htmlNavigator(v.HTML), nil
	case *document.XMLNode:
		return xmlNavigator(v.XML), nil
	default:
		return nil, q.mismatch(n)
	}
}

func (q *Query) joinTree(n document.Node, sep string) (any, bool, error) {
	result, err := q.evaluate(n)
	if err != nil {
		return nil, false, err
	}

	switch v := result.(type) {
	case *xpath.NodeIterator:
		var fragments []string
		for v.MoveNext() {
			fragments = append(fragments, v.Current().Value())
		}
		if len(fragments) == 0 {
			return nil, false, nil
		}
		return strings.Join(fragments, sep), true, nil
	case string:
		if v == "" {
			return nil, false, nil
		}
		return v, true, nil
	case nil:
		return nil, false, nil
	default:
		return v, true, nil
	}
}

// selectTree collects matched nodes, stopping after limit nodes when
// limit is positive.
func (q *Query) selectTree(n document.Node, limit int) ([]document.Node, error) {
	result, err := q.evaluate(n)
	if err != nil {
		return nil, err
	}
	it, ok := result.(*xpath.NodeIterator)
	if !ok {
		return nil, nil
	}

	var nodes []document.Node
	for it.MoveNext() {
		if node := currentNode(it.Current()); node != nil {
			nodes = append(nodes, node)
		}
		if limit > 0 && len(nodes) >= limit {
			break
		}
	}
	return nodes, nil
}

// currentNode converts the navigator position to a node. Attributes are
// not nodes in either tree model, so an attribute match becomes a
// detached element named after the attribute that holds its value as text.
func currentNode(nav xpath.NodeNavigator) document.Node {
	switch v := nav.(type) {
	case *htmlquery.NodeNavigator:
		if v.NodeType() == xpath.AttributeNode {
			text := &html.Node{Type: html.TextNode, Data: v.Value()}
			return document.NewHTML(&html.Node{
				Type:       html.ElementNode,
				Data:       v.LocalName(),
				FirstChild: text,
				LastChild:  text,
			})
		}
		return document.NewHTML(v.Current())
	case *xmlquery.NodeNavigator:
		if v.NodeType() == xpath.AttributeNode {
			text := &xmlquery.Node{Type: xmlquery.TextNode, Data: v.Value()}
			return document.NewXML(&xmlquery.Node{
				Type:       xmlquery.ElementNode,
				Data:       v.LocalName(),
				FirstChild: text,
				LastChild:  text,
			})
		}
		return document.NewXML(v.Current())
	default:
		return nil
	}
}

func (q *Query) getMap(n document.Node) (document.Node, bool, error) {
	m, ok := n.(*document.MapNode)
	if !ok {
		return nil, false, q.mismatch(n)
	}
	results := q.path.Get(m.Value)
	if len(results) == 0 || results[0] == nil {
		return nil, false, nil
	}
	return document.NewMap(results[0]), true, nil
}

func (q *Query) applyMap(n document.Node) (any, bool, error) {
	m, ok := n.(*document.MapNode)
	if !ok {
		return nil, false, q.mismatch(n)
	}
	results := q.path.Get(m.Value)

	var value any
	if q.singular {
		if len(results) == 0 {
			return nil, false, nil
		}
		value = results[0]
	} else {
		value = results
	}
	if isEmpty(value) {
		return nil, false, nil
	}
	return value, true, nil
}

func (q *Query) selectMap(n document.Node) ([]document.Node, error) {
	m, ok := n.(*document.MapNode)
	if !ok {
		return nil, q.mismatch(n)
	}
	results := q.path.Get(m.Value)

	if q.singular {
		if len(results) == 0 || results[0] == nil {
			return nil, nil
		}
		items, isList := results[0].([]any)
		if !isList {
			return []document.Node{document.NewMap(results[0])}, nil
		}
		results = items
	}

	nodes := make([]document.Node, 0, len(results))
	for _, r := range results {
		nodes = append(nodes, document.NewMap(r))
	}
	return nodes, nil
}

func isEmpty(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case []any:
		return len(c) == 0
	case map[string]any:
		return len(c) == 0
	default:
		return false
	}
}
