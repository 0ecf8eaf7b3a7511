package query

import (
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
)

// The navigators of htmlquery and xmlquery treat the node they are
// created from as the document root. Evaluating "/html/body" from a
// table row would then search below the row. To keep absolute paths
// absolute, the navigator is created at the topmost ancestor and walked
// down to the node, so "/" is the real root and "." is the node.

func htmlNavigator(n *html.Node) *htmlquery.NodeNavigator {
	top := n
	var path []*html.Node
	for top.Parent != nil {
		path = append(path, top)
		top = top.Parent
	}

	nav := htmlquery.CreateXPathNavigator(top)
	for i := len(path) - 1; i >= 0; i-- {
		if !nav.MoveToChild() {
			return htmlquery.CreateXPathNavigator(n)
		}
		for nav.Current() != path[i] {
			if !nav.MoveToNext() {
				return htmlquery.CreateXPathNavigator(n)
			}
		}
	}
	return nav
}

func xmlNavigator(n *xmlquery.Node) *xmlquery.NodeNavigator {
	top := n
	var path []*xmlquery.Node
	for top.Parent != nil {
		path = append(path, top)
		top = top.Parent
	}

	nav := xmlquery.CreateXPathNavigator(top)
	for i := len(path) - 1; i >= 0; i-- {
		if !nav.MoveToChild() {
			return xmlquery.CreateXPathNavigator(n)
		}
		for nav.Current() != path[i] {
			if !nav.MoveToNext() {
				return xmlquery.CreateXPathNavigator(n)
			}
		}
	}
	return nav
}
