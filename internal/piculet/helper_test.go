package piculet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/piculet/internal/document"
)

const shiningHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>The Shining</title>
</head>
<body>
<h1>The Shining (<span class="year">1980</span>)</h1>
<ul class="genres">
<li>Horror</li>
<li>Drama</li>
</ul>
<ul class="foos"><li></li></ul>
<div class="director">
Director: <a href="/people/1">Stanley Kubrick</a>
</div>
<table class="cast">
<tr>
<td><a href="/people/2">Jack Nicholson</a></td>
<td>Jack Torrance</td>
</tr>
<tr>
<td><a href="/people/3">Shelley Duvall</a></td>
<td>Wendy Torrance</td>
</tr>
</table>
<div class="info">
<h3>Country</h3>
<p>United States</p>
</div>
<div class="info">
<h3>Language</h3>
<p>English</p>
</div>
</body>
</html>`

var errBoom = errors.New("boom")

// testRegistry returns the functions used by the tests in this package.
func testRegistry() Registry {
	return Registry{
		Transforms: map[string]Transform{
			"int": func(v any) (any, error) {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("int: expected string, got %T", v)
				}
				return strconv.Atoi(strings.TrimSpace(s))
			},
			"lower": func(v any) (any, error) {
				return strings.ToLower(fmt.Sprint(v)), nil
			},
			"underscore": func(v any) (any, error) {
				return "_" + fmt.Sprint(v), nil
			},
			"fail": func(any) (any, error) {
				return nil, errBoom
			},
		},
		Preprocessors: map[string]Preprocessor{
			"unwrap": func(n document.Node) (document.Node, error) {
				m, ok := n.(*document.MapNode)
				if !ok {
					return nil, fmt.Errorf("unwrap: expected map node, got %T", n)
				}
				obj, ok := m.Value.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("unwrap: expected object, got %T", m.Value)
				}
				return document.NewMap(obj["data"]), nil
			},
			"fail": func(document.Node) (document.Node, error) {
				return nil, errBoom
			},
		},
		Postprocessors: map[string]Postprocessor{
			"count": func(data map[string]any) (map[string]any, error) {
				data["count"] = len(data)
				return data, nil
			},
			"fail": func(map[string]any) (map[string]any, error) {
				return nil, errBoom
			},
		},
	}
}

func rule(key string, extractor map[string]any) map[string]any {
	return map[string]any{"key": key, "extractor": extractor}
}

func mustLoad(t *testing.T, desc map[string]any) *Spec {
	t.Helper()
	spec, err := Load(desc, testRegistry())
	if err != nil {
		t.Fatalf("failed to load spec: %v", err)
	}
	return spec
}

func scrapeHTML(t *testing.T, rules ...any) map[string]any {
	t.Helper()
	spec := mustLoad(t, map[string]any{"doctype": "html", "rules": rules})
	data, err := spec.Scrape(shiningHTML)
	if err != nil {
		t.Fatalf("failed to scrape: %v", err)
	}
	return data
}
