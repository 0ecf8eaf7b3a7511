package transform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"github.com/ohler55/ojg/oj"

	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/query"
)

// nextDataPath locates the JSON payload that Next.js pages embed.
const nextDataPath = "//script[@id='__NEXT_DATA__']/text()"

// seeMoreText is the text of the links that expand truncated lists.
const seeMoreText = "See more »"

// JSONRootTag is the name of the root element created by JSONToXML.
const JSONRootTag = "root"

// listItemTag names the element created for each item of a JSON list.
const listItemTag = "item"

// ErrNoNextData is returned by NextData for a page without a
// __NEXT_DATA__ script.
var ErrNoNextData = errors.New("next_data: no __NEXT_DATA__ script in document")

// NextData replaces an HTML page with the JSON value embedded in its
// __NEXT_DATA__ script.
func NextData(n document.Node) (document.Node, error) {
	if n.Kind() != document.KindTree {
		return nil, fmt.Errorf("next_data: %w: expected a tree, got %s", ErrUnsupportedNode, n.Kind())
	}
	script, ok, err := query.MustCompile(nextDataPath).Apply(n)
	if err != nil {
		return nil, fmt.Errorf("next_data: %w", err)
	}
	if !ok {
		return nil, ErrNoNextData
	}
	value, err := oj.ParseString(script.(string)) //nolint:forcetypeassert // node-set results are strings
	if err != nil {
		return nil, fmt.Errorf("next_data: %w", err)
	}
	return document.NewMap(value), nil
}

// JSONToXML turns a JSON value into an XML document so that tree paths
// can query it. Object members become elements named after their keys,
// list items become "item" elements and scalars become text. Null
// values are left out. Object members are emitted in key order.
//
// The result is a document whose only element is JSONRootTag, so
// {"title": "x"} is queried as "/root/title/text()".
func JSONToXML(n document.Node) (document.Node, error) {
	m, ok := n.(*document.MapNode)
	if !ok {
		return nil, fmt.Errorf("json_to_xml: %w: expected a map, got %s", ErrUnsupportedNode, n.Kind())
	}
	doc := &xmlquery.Node{Type: xmlquery.DocumentNode}
	xmlquery.AddChild(doc, valueToXML(JSONRootTag, m.Value))
	return document.NewXML(doc), nil
}

func valueToXML(tag string, v any) *xmlquery.Node {
	el := &xmlquery.Node{Type: xmlquery.ElementNode, Data: tag}
	switch x := v.(type) {
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(x)) {
			if x[key] == nil {
				continue
			}
			xmlquery.AddChild(el, valueToXML(key, x[key]))
		}
	case []any:
		for _, item := range x {
			if item == nil {
				continue
			}
			xmlquery.AddChild(el, valueToXML(listItemTag, item))
		}
	default:
		xmlquery.AddChild(el, &xmlquery.Node{Type: xmlquery.TextNode, Data: fmt.Sprint(x)})
	}
	return el
}

// RemoveSeeMore deletes the "See more »" links of an HTML page.
func RemoveSeeMore(n document.Node) (document.Node, error) {
	doc, err := htmlDocument("remove_see_more", n)
	if err != nil {
		return nil, err
	}
	doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == seeMoreText
	}).Remove()
	return n, nil
}

// RemoveScripts deletes the script and style elements of an HTML page.
func RemoveScripts(n document.Node) (document.Node, error) {
	doc, err := htmlDocument("remove_scripts", n)
	if err != nil {
		return nil, err
	}
	doc.Find("script, style").Remove()
	return n, nil
}

func htmlDocument(name string, n document.Node) (*goquery.Document, error) {
	h, ok := n.(*document.HTMLNode)
	if !ok {
		return nil, fmt.Errorf("%s: %w: expected an HTML tree, got %T", name, ErrUnsupportedNode, n)
	}
	return goquery.NewDocumentFromNode(h.HTML), nil
}
