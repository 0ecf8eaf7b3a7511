// Package piculet is a declarative rule engine for extracting structured
// data from HTML, XML and JSON documents.
//
// # Specs
//
// A spec is a tree of rules. Each rule names a key and an extractor that
// produces its value. A Picker extracts one value with a path query; a
// Collector applies its own rules to build a nested map. Both may move to
// a sub node first (root), produce a list (foreach) and pass values
// through named transforms.
//
// Specs are plain data. Load builds a Spec from a description decoded
// from JSON or YAML and binds the named functions it mentions to a
// Registry; Dump turns a Spec back into a description.
//
//	spec, err := piculet.Load(map[string]any{
//	    "doctype": "html",
//	    "rules": []any{
//	        map[string]any{
//	            "key":       "title",
//	            "extractor": map[string]any{"path": "//title/text()"},
//	        },
//	    },
//	}, piculet.Registry{})
//	if err != nil {
//	    return err
//	}
//	data, err := spec.Scrape(page)
//
// # No value
//
// Extraction distinguishes "nothing matched" from values that are empty.
// Functions that extract return a (value, ok) pair, and a rule whose
// value is missing contributes no key. A collector whose rules all come
// up empty is itself missing, so an absent nested object and an empty one
// never look the same.
//
// # Errors
//
// Load fails with *LoadError. Scraping fails with *document.ParseError
// for malformed input and *CallbackError when a registered function
// returns an error. Nothing is recovered internally: a scrape either
// returns all of its data or an error.
package piculet
