package piculet

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/piculet/internal/document"
)

func TestScrape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rules []any
		want  map[string]any
	}{
		{
			name: "empty rules produce an empty map",
			want: map[string]any{},
		},
		{
			name:  "scalar text",
			rules: []any{rule("title", map[string]any{"path": "//title/text()"})},
			want:  map[string]any{"title": "The Shining"},
		},
		{
			name:  "text fragments are concatenated",
			rules: []any{rule("full_title", map[string]any{"path": "//h1//text()"})},
			want:  map[string]any{"full_title": "The Shining (1980)"},
		},
		{
			name: "text fragments are joined with the separator",
			rules: []any{rule("cast_names", map[string]any{
				"path": `//table[@class="cast"]//tr/td[1]/a/text()`,
				"sep":  ", ",
			})},
			want: map[string]any{"cast_names": "Jack Nicholson, Shelley Duvall"},
		},
		{
			name: "transform converts text",
			rules: []any{rule("year", map[string]any{
				"path":       `//span[@class="year"]/text()`,
				"transforms": []any{"int"},
			})},
			want: map[string]any{"year": 1980},
		},
		{
			name: "multiple rules produce multiple keys",
			rules: []any{
				rule("title", map[string]any{"path": "//title/text()"}),
				rule("year", map[string]any{"path": `//span[@class="year"]/text()`, "transforms": []any{"int"}}),
			},
			want: map[string]any{"title": "The Shining", "year": 1980},
		},
		{
			name: "rules without a result produce no key",
			rules: []any{
				rule("title", map[string]any{"path": "//title/text()"}),
				rule("foo", map[string]any{"path": "//foo/text()"}),
			},
			want: map[string]any{"title": "The Shining"},
		},
		{
			name: "extractor foreach produces a list",
			rules: []any{rule("genres", map[string]any{
				"foreach": `//ul[@class="genres"]/li`,
				"path":    "./text()",
			})},
			want: map[string]any{"genres": []any{"Horror", "Drama"}},
		},
		{
			name: "transforms apply to each list item",
			rules: []any{rule("genres", map[string]any{
				"foreach":    `//ul[@class="genres"]/li`,
				"path":       "./text()",
				"transforms": []any{"lower"},
			})},
			want: map[string]any{"genres": []any{"horror", "drama"}},
		},
		{
			name: "list items without a value are dropped",
			rules: []any{rule("foos", map[string]any{
				"foreach": `//ul[@class="foos"]/li`,
				"path":    "./text()",
			})},
			want: map[string]any{},
		},
		{
			name: "collector merges sub rules",
			rules: []any{rule("director", map[string]any{
				"rules": []any{
					rule("name", map[string]any{"path": `//div[@class="director"]//a/text()`}),
					rule("link", map[string]any{"path": `//div[@class="director"]//a/@href`}),
				},
			})},
			want: map[string]any{"director": map[string]any{"name": "Stanley Kubrick", "link": "/people/1"}},
		},
		{
			name: "collector with root works relative to it",
			rules: []any{rule("director", map[string]any{
				"root": `//div[@class="director"]`,
				"rules": []any{
					rule("name", map[string]any{"path": "./a/text()"}),
					rule("link", map[string]any{"path": "./a/@href"}),
				},
			})},
			want: map[string]any{"director": map[string]any{"name": "Stanley Kubrick", "link": "/people/1"}},
		},
		{
			name: "root without a match produces no key",
			rules: []any{rule("writer", map[string]any{
				"root": `//div[@class="writer"]`,
				"path": "./a/text()",
			})},
			want: map[string]any{},
		},
		{
			name: "collector foreach produces a list of maps",
			rules: []any{rule("cast", map[string]any{
				"foreach": `//table[@class="cast"]//tr`,
				"rules": []any{
					rule("name", map[string]any{"path": "./td[1]/a/text()"}),
					rule("character", map[string]any{"path": "./td[2]/text()"}),
				},
			})},
			want: map[string]any{"cast": []any{
				map[string]any{"name": "Jack Nicholson", "character": "Jack Torrance"},
				map[string]any{"name": "Shelley Duvall", "character": "Wendy Torrance"},
			}},
		},
		{
			name: "collector without keys produces no key",
			rules: []any{rule("writer", map[string]any{
				"rules": []any{
					rule("name", map[string]any{"path": `//div[@class="writer"]//a/text()`}),
				},
			})},
			want: map[string]any{},
		},
		{
			name: "later rules overwrite earlier keys",
			rules: []any{
				rule("name", map[string]any{"path": "//title/text()"}),
				rule("name", map[string]any{"path": `//div[@class="director"]//a/text()`}),
			},
			want: map[string]any{"name": "Stanley Kubrick"},
		},
		{
			name: "dynamic keys produce one entry per subroot",
			rules: []any{map[string]any{
				"foreach":   `//div[@class="info"]`,
				"key":       map[string]any{"path": "./h3/text()"},
				"extractor": map[string]any{"path": "./p/text()"},
			}},
			want: map[string]any{"Country": "United States", "Language": "English"},
		},
		{
			name: "dynamic keys are transformed",
			rules: []any{map[string]any{
				"foreach":   `//div[@class="info"]`,
				"key":       map[string]any{"path": "./h3/text()", "transforms": []any{"lower"}},
				"extractor": map[string]any{"path": "./p/text()"},
			}},
			want: map[string]any{"country": "United States", "language": "English"},
		},
		{
			name: "reserved dynamic keys are dropped",
			rules: []any{map[string]any{
				"foreach":   `//div[@class="info"]`,
				"key":       map[string]any{"path": "./h3/text()", "transforms": []any{"underscore"}},
				"extractor": map[string]any{"path": "./p/text()"},
			}},
			want: map[string]any{},
		},
		{
			name: "dynamic key without a value skips the entry",
			rules: []any{map[string]any{
				"foreach":   `//div[@class="info"]`,
				"key":       map[string]any{"path": "./h4/text()"},
				"extractor": map[string]any{"path": "./p/text()"},
			}},
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scrapeHTML(t, tt.rules...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scrape mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScrapeRootedSpec(t *testing.T) {
	t.Parallel()

	t.Run("spec root narrows every rule", func(t *testing.T) {
		t.Parallel()
		spec := mustLoad(t, map[string]any{
			"doctype": "html",
			"root":    `//div[@class="director"]`,
			"rules":   []any{rule("name", map[string]any{"path": "./a/text()"})},
		})
		got, err := spec.Scrape(shiningHTML)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"name": "Stanley Kubrick"}, got); diff != "" {
			t.Errorf("scrape mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("spec root without a match yields an empty map", func(t *testing.T) {
		t.Parallel()
		spec := mustLoad(t, map[string]any{
			"doctype": "html",
			"root":    `//div[@class="writer"]`,
			"rules":   []any{rule("title", map[string]any{"path": "//title/text()"})},
		})
		got, err := spec.Scrape(shiningHTML)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected an empty map, got %v", got)
		}
	})
}

func TestScrapeJSON(t *testing.T) {
	t.Parallel()

	const doc = `{"data": {"data": {"title": "The Shining", "genres": ["Horror", "Drama"],
		"cast": [{"name": "Jack Nicholson"}, {"name": "Shelley Duvall"}]}}}`

	t.Run("preprocessors run in declared order", func(t *testing.T) {
		t.Parallel()
		spec := mustLoad(t, map[string]any{
			"doctype": "json",
			"pre":     []any{"unwrap", "unwrap"},
			"rules": []any{
				rule("title", map[string]any{"path": "title"}),
				rule("genres", map[string]any{"path": "genres"}),
				rule("cast", map[string]any{"foreach": "cast", "path": "name"}),
			},
		})
		got, err := spec.Scrape(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]any{
			"title":  "The Shining",
			"genres": []any{"Horror", "Drama"},
			"cast":   []any{"Jack Nicholson", "Shelley Duvall"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("scrape mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("postprocessors receive the extracted data", func(t *testing.T) {
		t.Parallel()
		spec := mustLoad(t, map[string]any{
			"doctype": "json",
			"pre":     []any{"unwrap"},
			"post":    []any{"count"},
			"rules":   []any{rule("inner", map[string]any{"path": "data.title"})},
		})
		got, err := spec.Scrape(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"inner": "The Shining", "count": 1}, got); diff != "" {
			t.Errorf("scrape mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestScrapeAs(t *testing.T) {
	t.Parallel()

	spec := mustLoad(t, map[string]any{
		"rules": []any{rule("title", map[string]any{"path": "//title/text()"})},
	})

	if _, err := spec.Scrape(shiningHTML); !errors.Is(err, ErrNoDocType) {
		t.Errorf("expected ErrNoDocType, got %v", err)
	}

	got, err := spec.ScrapeAs(`<movie><title>The Shining</title></movie>`, document.XML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"title": "The Shining"}, got); diff != "" {
		t.Errorf("scrape mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeErrors(t *testing.T) {
	t.Parallel()

	t.Run("malformed document returns ParseError", func(t *testing.T) {
		t.Parallel()
		spec := mustLoad(t, map[string]any{"doctype": "json"})
		_, err := spec.Scrape(`{"title": `)
		var pe *document.ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected *document.ParseError, got %v", err)
		}
	})

	for _, dt := range []string{"json", "html"} {
		t.Run("blank "+dt+" document returns ParseError", func(t *testing.T) {
			t.Parallel()
			spec := mustLoad(t, map[string]any{"doctype": dt})
			for _, doc := range []string{"", "  \n"} {
				got, err := spec.Scrape(doc)
				if !errors.Is(err, document.ErrEmptyDocument) {
					t.Errorf("Scrape(%q): expected ErrEmptyDocument, got data=%v err=%v", doc, got, err)
				}
			}
		})
	}

	tests := []struct {
		name      string
		desc      map[string]any
		wantStage Stage
	}{
		{
			name: "transform",
			desc: map[string]any{"doctype": "html", "rules": []any{
				rule("title", map[string]any{"path": "//title/text()", "transforms": []any{"fail"}}),
			}},
			wantStage: StageTransform,
		},
		{
			name:      "preprocessor",
			desc:      map[string]any{"doctype": "html", "pre": []any{"fail"}},
			wantStage: StagePreprocessor,
		},
		{
			name:      "postprocessor",
			desc:      map[string]any{"doctype": "html", "post": []any{"fail"}},
			wantStage: StagePostprocessor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" failure propagates", func(t *testing.T) {
			t.Parallel()
			spec := mustLoad(t, tt.desc)
			_, err := spec.Scrape(shiningHTML)
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected the callback error to be preserved, got %v", err)
			}
			var ce *CallbackError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CallbackError, got %T", err)
			}
			if ce.Stage != tt.wantStage || ce.Name != "fail" {
				t.Errorf("expected %s \"fail\", got %s %q", tt.wantStage, ce.Stage, ce.Name)
			}
		})
	}
}

func TestScrapeConcurrently(t *testing.T) {
	t.Parallel()

	spec := mustLoad(t, map[string]any{
		"doctype": "html",
		"rules": []any{rule("cast", map[string]any{
			"foreach": `//table[@class="cast"]//tr`,
			"path":    "./td[1]/a/text()",
		})},
	})
	want := map[string]any{"cast": []any{"Jack Nicholson", "Shelley Duvall"}}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := spec.Scrape(shiningHTML)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("scrape mismatch (-want +got):\n%s", diff)
			}
		}()
	}
	wg.Wait()
}

func TestCollectorExtract(t *testing.T) {
	t.Parallel()

	spec := mustLoad(t, map[string]any{
		"rules": []any{rule("director", map[string]any{
			"root":  `//div[@class="director"]`,
			"rules": []any{rule("name", map[string]any{"path": "./a/text()"})},
		})},
	})
	root, err := document.Parse(shiningHTML, document.HTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	collector, ok := spec.Rules[0].Extractor.(*Collector)
	if !ok {
		t.Fatalf("expected *Collector, got %T", spec.Rules[0].Extractor)
	}
	got, ok, err := collector.Extract(root)
	if err != nil || !ok {
		t.Fatalf("expected a value, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Stanley Kubrick"}, got); diff != "" {
		t.Errorf("extract mismatch (-want +got):\n%s", diff)
	}
}
