package document

import (
	"fmt"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
)

// Kind tells which query dialect a node answers to.
type Kind int

const (
	// KindTree is an HTML or XML element tree.
	KindTree Kind = iota + 1

	// KindMap is a JSON-like value.
	KindMap
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTree:
		return "tree"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a parsed document or a part of one.
//
// The set of implementations is closed: *HTMLNode, *XMLNode and *MapNode.
// Code that needs the concrete value uses a type switch.
type Node interface {
	// Kind reports whether the node is a tree or a map.
	Kind() Kind

	sealed()
}

// HTMLNode is a node of an HTML element tree.
type HTMLNode struct {
	HTML *html.Node
}

// XMLNode is a node of an XML element tree.
type XMLNode struct {
	XML *xmlquery.Node
}

// MapNode holds a JSON-like value: map[string]any, []any, string,
// int64, float64, bool or nil.
type MapNode struct {
	Value any
}

// NewHTML wraps an HTML node.
func NewHTML(n *html.Node) *HTMLNode { return &HTMLNode{HTML: n} }

// NewXML wraps an XML node.
func NewXML(n *xmlquery.Node) *XMLNode { return &XMLNode{XML: n} }

// NewMap wraps a JSON-like value.
func NewMap(v any) *MapNode { return &MapNode{Value: v} }

// Kind implements Node.
func (*HTMLNode) Kind() Kind { return KindTree }

// Kind implements Node.
func (*XMLNode) Kind() Kind { return KindTree }

// Kind implements Node.
func (*MapNode) Kind() Kind { return KindMap }

func (*HTMLNode) sealed() {}
func (*XMLNode) sealed()  {}
func (*MapNode) sealed()  {}

// Text returns the string value of a node: the concatenated text of a
// tree node, or the formatted value of a map node. A nil node yields "".
func Text(n Node) string {
	switch v := n.(type) {
	case *HTMLNode:
		if v == nil || v.HTML == nil {
			return ""
		}
		return htmlquery.InnerText(v.HTML)
	case *XMLNode:
		if v == nil || v.XML == nil {
			return ""
		}
		return v.XML.InnerText()
	case *MapNode:
		if v == nil || v.Value == nil {
			return ""
		}
		if s, ok := v.Value.(string); ok {
			return s
		}
		return fmt.Sprint(v.Value)
	default:
		return ""
	}
}

// Markup renders a tree node back to markup, including the node itself.
// Map nodes render as their formatted value.
func Markup(n Node) string {
	switch v := n.(type) {
	case *HTMLNode:
		return htmlquery.OutputHTML(v.HTML, true)
	case *XMLNode:
		return v.XML.OutputXML(true)
	default:
		return Text(n)
	}
}
