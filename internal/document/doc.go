// Package document turns raw documents into the nodes that queries run
// against.
//
// # Node kinds
//
// A Node is one of three variants:
//   - HTMLNode: an element tree produced by golang.org/x/net/html
//   - XMLNode: an element tree produced by github.com/antchfx/xmlquery
//   - MapNode: a JSON-like value (maps, slices, scalars) produced by ojg
//
// HTML and XML nodes share the tree kind and are queried with XPath.
// Map nodes are queried with JSONPath.
//
// # Decoding
//
// Parse works on text. Callers holding raw bytes use Decode first, which
// detects the character set of HTML input and transcodes it to UTF-8, and
// DetectDocType when the document type is not known in advance.
//
// # Usage
//
//	root, err := document.Parse(`<html><body><h1>Title</h1></body></html>`, document.HTML)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(document.Text(root))
package document
