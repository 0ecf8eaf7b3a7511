package transform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/piculet"
	"github.com/nao1215/piculet/internal/query"
)

const nextDataHTML = `<!DOCTYPE html>
<html>
<head><title>The Shining</title></head>
<body>
<script id="__NEXT_DATA__" type="application/json">{"props": {"title": "The Shining", "year": 1980, "rating": null, "cast": ["Jack Nicholson", "Shelley Duvall"]}}</script>
</body>
</html>`

func parse(t *testing.T, doc string, dt document.DocType) document.Node {
	t.Helper()
	n, err := document.Parse(doc, dt)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return n
}

func TestNextData(t *testing.T) {
	t.Parallel()

	t.Run("returns the embedded JSON", func(t *testing.T) {
		t.Parallel()
		got, err := NextData(parse(t, nextDataHTML, document.HTML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m, ok := got.(*document.MapNode)
		if !ok {
			t.Fatalf("expected *document.MapNode, got %T", got)
		}
		want := map[string]any{
			"props": map[string]any{
				"title":  "The Shining",
				"year":   int64(1980),
				"rating": nil,
				"cast":   []any{"Jack Nicholson", "Shelley Duvall"},
			},
		}
		if diff := cmp.Diff(want, m.Value); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fails without the script", func(t *testing.T) {
		t.Parallel()
		_, err := NextData(parse(t, "<html><body><p>x</p></body></html>", document.HTML))
		if !errors.Is(err, ErrNoNextData) {
			t.Errorf("expected ErrNoNextData, got %v", err)
		}
	})

	t.Run("rejects map nodes", func(t *testing.T) {
		t.Parallel()
		_, err := NextData(document.NewMap(map[string]any{}))
		if !errors.Is(err, ErrUnsupportedNode) {
			t.Errorf("expected ErrUnsupportedNode, got %v", err)
		}
	})
}

func TestJSONToXML(t *testing.T) {
	t.Parallel()

	root := document.NewMap(map[string]any{
		"title":  "The Shining",
		"year":   int64(1980),
		"rating": nil,
		"cast":   []any{"Jack Nicholson", nil, "Shelley Duvall"},
	})
	got, err := JSONToXML(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind() != document.KindTree {
		t.Fatalf("expected a tree, got %s", got.Kind())
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{path: "/root/title/text()", want: "The Shining", ok: true},
		{path: "/root/year/text()", want: "1980", ok: true},
		{path: "/root/cast/item[2]/text()", want: "Shelley Duvall", ok: true},
		{path: "/root/rating/text()", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			v, ok, err := query.MustCompile(tt.path).Apply(got)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if diff := cmp.Diff(tt.want, v); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := JSONToXML(parse(t, "<p/>", document.HTML)); !errors.Is(err, ErrUnsupportedNode) {
		t.Errorf("expected ErrUnsupportedNode, got %v", err)
	}
}

func TestRemovePreprocessors(t *testing.T) {
	t.Parallel()

	const page = `<html><head><style>p {}</style></head><body>
<ul><li>Horror</li></ul>
<a href="/genres">See more »</a>
<a href="/top">Top 250</a>
<script>var x = 1;</script>
</body></html>`

	t.Run("remove_see_more", func(t *testing.T) {
		t.Parallel()
		n, err := RemoveSeeMore(parse(t, page, document.HTML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		links, err := query.MustCompile("//a").Select(n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 1 {
			t.Fatalf("expected 1 link, got %d", len(links))
		}
		if got := document.Text(links[0]); got != "Top 250" {
			t.Errorf("expected remaining link %q, got %q", "Top 250", got)
		}
	})

	t.Run("remove_scripts", func(t *testing.T) {
		t.Parallel()
		n, err := RemoveScripts(parse(t, page, document.HTML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		found, err := query.MustCompile("//script | //style").Select(n)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("expected no script or style elements, got %d", len(found))
		}
	})
}

func TestStandardSpec(t *testing.T) {
	t.Parallel()

	spec, err := piculet.Load(map[string]any{
		"doctype": "html",
		"pre":     []any{"next_data", "json_to_xml"},
		"root":    "/root/props",
		"rules": []any{
			map[string]any{"key": "title", "extractor": map[string]any{"path": "./title/text()", "transforms": []any{"upper"}}},
			map[string]any{"key": "year", "extractor": map[string]any{"path": "./year/text()", "transforms": []any{"int"}}},
			map[string]any{"key": "cast", "extractor": map[string]any{"foreach": "./cast/item", "path": "./text()"}},
			map[string]any{"key": "_lang", "extractor": map[string]any{"path": "./title/text()"}},
		},
		"post": []any{"drop_internal_keys"},
	}, Standard())
	if err != nil {
		t.Fatalf("failed to load spec: %v", err)
	}

	got, err := spec.Scrape(nextDataHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"title": "THE SHINING",
		"year":  1980,
		"cast":  []any{"Jack Nicholson", "Shelley Duvall"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scrape mismatch (-want +got):\n%s", diff)
	}
}
