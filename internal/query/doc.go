// Package query compiles path expressions and evaluates them against
// document nodes.
//
// # Dialects
//
// A query is written in one of two dialects, chosen from its source text:
//   - Tree: XPath 1.0 (github.com/antchfx/xpath), for HTML and XML nodes.
//     Any source starting with "/", "./" or "(" is a tree path.
//   - Map: JSONPath (github.com/ohler55/ojg/jp), for JSON-like values.
//     Every other source is a map path. The leading "$" is optional, so
//     "title" and "$.title" are the same query.
//
// # Results
//
// Apply and Join return a value and a flag. The flag is false when the
// query found nothing, which is different from finding an empty string,
// a zero or an empty list in a present value.
//
// # Cache
//
// Compile keeps every compiled query in a process-wide cache keyed by
// its source text. Reads of already compiled queries never block; the
// compilation of a given source runs once even under concurrent calls.
package query
