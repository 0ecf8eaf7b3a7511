package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"github.com/nao1215/piculet/internal/database"
	"github.com/nao1215/piculet/internal/document"
	"github.com/nao1215/piculet/internal/piculet"
	"github.com/nao1215/piculet/internal/query"
)

const shiningHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>The Shining</title></head>
<body>
<h1>The Shining</h1>
<span class="year">1980</span>
</body>
</html>`

// titleSpec loads a spec extracting the title of an HTML page.
// It declares no document type, so detection decides.
func titleSpec(t *testing.T) *piculet.Spec {
	t.Helper()

	spec, err := piculet.Load(map[string]any{
		"rules": []any{
			map[string]any{"key": "title", "extractor": map[string]any{"path": "//title/text()"}},
		},
	}, piculet.Registry{})
	if err != nil {
		t.Fatalf("failed to load spec: %v", err)
	}
	return spec
}

// writeFile writes content to name in a temporary directory.
func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// gzipped compresses s.
func gzipped(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	return buf.Bytes()
}

// TestReadStep tests reading documents from their sources.
func TestReadStep(t *testing.T) {
	t.Parallel()

	t.Run("reads a file", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "shining.html", []byte(shiningHTML))
		job := NewJob(path, "movie")

		if err := NewReadStep().Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(job.Raw) != shiningHTML {
			t.Errorf("unexpected content %q", job.Raw)
		}
		if job.Result.Size != int64(len(shiningHTML)) || job.Result.Digest == "" {
			t.Errorf("expected size and digest, got %d %q", job.Result.Size, job.Result.Digest)
		}
	})

	t.Run("reads stdin", func(t *testing.T) {
		t.Parallel()

		job := NewJob("-", "movie")
		step := NewReadStep(WithStdin(strings.NewReader("<html></html>")))

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(job.Raw) != "<html></html>" {
			t.Errorf("unexpected content %q", job.Raw)
		}
	})

	t.Run("decompresses gzip content", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "shining.html.gz", gzipped(t, shiningHTML))
		job := NewJob(path, "movie")

		if err := NewReadStep().Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(job.Raw) != shiningHTML {
			t.Errorf("unexpected content %q", job.Raw)
		}
	})

	t.Run("decompresses gzip stdin", func(t *testing.T) {
		t.Parallel()

		job := NewJob("-", "movie")
		step := NewReadStep(WithStdin(bytes.NewReader(gzipped(t, "{}"))))

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(job.Raw) != "{}" {
			t.Errorf("unexpected content %q", job.Raw)
		}
	})

	t.Run("accepts a document of exactly the maximum size", func(t *testing.T) {
		t.Parallel()

		job := NewJob("-", "movie")
		step := NewReadStep(WithMaxDocumentSize(4), WithStdin(strings.NewReader("abcd")))

		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rejects documents over the maximum size", func(t *testing.T) {
		t.Parallel()

		job := NewJob("-", "movie")
		step := NewReadStep(WithMaxDocumentSize(4), WithStdin(strings.NewReader("abcde")))

		err := step.Do(context.Background(), job)
		if !errors.Is(err, ErrDocumentTooLarge) {
			t.Errorf("expected ErrDocumentTooLarge, got %v", err)
		}
		if job.Raw != nil {
			t.Error("expected no content")
		}
	})

	t.Run("reports missing files", func(t *testing.T) {
		t.Parallel()

		job := NewJob(filepath.Join(t.TempDir(), "missing.html"), "movie")
		err := NewReadStep().Do(context.Background(), job)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("ignores non-positive size limits", func(t *testing.T) {
		t.Parallel()

		if s := NewReadStep(WithMaxDocumentSize(0)); s.maxSize <= 0 {
			t.Errorf("expected default size, got %d", s.maxSize)
		}
	})
}

// TestParseStep tests document type resolution and parsing.
func TestParseStep(t *testing.T) {
	t.Parallel()

	t.Run("detects html", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte(shiningHTML)

		if err := NewParseStep(titleSpec(t)).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.DocType != document.HTML || job.Result.DocType != "html" {
			t.Errorf("expected html, got %q", job.DocType)
		}
		if _, ok := job.Root.(*document.HTMLNode); !ok {
			t.Errorf("expected HTML node, got %T", job.Root)
		}
		if job.Result.Charset == "" {
			t.Error("expected charset to be recorded")
		}
	})

	t.Run("detects json", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte(`{"title": "The Shining"}`)

		if err := NewParseStep(titleSpec(t)).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.DocType != document.JSON {
			t.Errorf("expected json, got %q", job.DocType)
		}
		if job.Result.Charset != "" {
			t.Errorf("expected no charset for json, got %q", job.Result.Charset)
		}
	})

	t.Run("forced type wins over detection", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte(`<movie><title>The Shining</title></movie>`)

		if err := NewParseStep(titleSpec(t), WithDocType(document.XML)).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := job.Root.(*document.XMLNode); !ok {
			t.Errorf("expected XML node, got %T", job.Root)
		}
	})

	t.Run("uses the spec's document type", func(t *testing.T) {
		t.Parallel()

		spec := titleSpec(t)
		spec.DocType = document.XML
		job := NewJob("doc", "movie")
		job.Raw = []byte(`<movie><title>x</title></movie>`)

		if err := NewParseStep(spec).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.DocType != document.XML {
			t.Errorf("expected xml, got %q", job.DocType)
		}
	})

	t.Run("decodes with the forced charset", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte("<html><head><title>Caf\xe9</title></head></html>")

		step := NewParseStep(titleSpec(t), WithDocType(document.HTML), WithCharset("iso-8859-1"))
		if err := step.Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := document.Text(job.Root); !strings.Contains(got, "Café") {
			t.Errorf("expected decoded title, got %q", got)
		}
	})

	t.Run("fails for undetectable content", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte("just some words")

		err := NewParseStep(titleSpec(t)).Do(context.Background(), job)
		if !errors.Is(err, ErrUnknownDocType) {
			t.Errorf("expected ErrUnknownDocType, got %v", err)
		}
	})

	t.Run("fails for malformed documents", func(t *testing.T) {
		t.Parallel()

		job := NewJob("doc", "movie")
		job.Raw = []byte(`{"title": `)

		err := NewParseStep(titleSpec(t), WithDocType(document.JSON)).Do(context.Background(), job)
		if !errors.Is(err, document.ErrParse) {
			t.Errorf("expected document.ErrParse, got %v", err)
		}
	})

	t.Run("fails without a document", func(t *testing.T) {
		t.Parallel()

		err := NewParseStep(titleSpec(t)).Do(context.Background(), NewJob("doc", "movie"))
		if !errors.Is(err, ErrNoDocument) {
			t.Errorf("expected ErrNoDocument, got %v", err)
		}
	})
}

// TestScrapeStep tests running the spec.
func TestScrapeStep(t *testing.T) {
	t.Parallel()

	t.Run("extracts data", func(t *testing.T) {
		t.Parallel()

		root, err := document.Parse(shiningHTML, document.HTML)
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		job := NewJob("doc", "movie")
		job.Root = root

		if err := NewScrapeStep(titleSpec(t)).Do(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"title": "The Shining"}, job.Result.Data); diff != "" {
			t.Errorf("data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reports kind mismatches", func(t *testing.T) {
		t.Parallel()

		root, err := document.Parse(`{"title": "x"}`, document.JSON)
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}
		job := NewJob("doc", "movie")
		job.Root = root

		err = NewScrapeStep(titleSpec(t)).Do(context.Background(), job)
		if !errors.Is(err, query.ErrKindMismatch) {
			t.Errorf("expected query.ErrKindMismatch, got %v", err)
		}
	})

	t.Run("fails without a document", func(t *testing.T) {
		t.Parallel()

		err := NewScrapeStep(titleSpec(t)).Do(context.Background(), NewJob("doc", "movie"))
		if !errors.Is(err, ErrNoDocument) {
			t.Errorf("expected ErrNoDocument, got %v", err)
		}
	})
}

// TestStoreStep tests saving results.
func TestStoreStep(t *testing.T) {
	t.Parallel()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	job := NewJob("shining.html", "movie")
	job.Result.Data = map[string]any{"title": "The Shining"}

	if err := NewStoreStep(db, nil).Do(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := db.GetLatestResult(context.Background(), "shining.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != job.Result.ID {
		t.Errorf("expected stored result %s, got %+v", job.Result.ID, got)
	}
}

// TestDefaultPipeline tests the assembled pipeline.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("scrapes a document", func(t *testing.T) {
		t.Parallel()

		spec := titleSpec(t)
		p := DefaultPipeline(spec, nil)
		if diff := cmp.Diff([]string{"read", "parse", "scrape"}, p.StepNames()); diff != "" {
			t.Errorf("step names mismatch (-want +got):\n%s", diff)
		}

		job := NewJob(writeFile(t, "shining.html", []byte(shiningHTML)), "movie")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"title": "The Shining"}, job.Result.Data); diff != "" {
			t.Errorf("data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stores failures when a database is configured", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		p := DefaultPipeline(titleSpec(t), nil,
			WithPipelineDB(db),
			WithPipelineStdin(strings.NewReader("just some words")),
		)
		if diff := cmp.Diff([]string{"read", "parse", "scrape", "store"}, p.StepNames()); diff != "" {
			t.Errorf("step names mismatch (-want +got):\n%s", diff)
		}

		job := NewJob("-", "movie")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("expected errors to be recorded, got %v", err)
		}
		if job.Result.Error != ErrUnknownDocType.Error() {
			t.Errorf("expected parse error, got %q", job.Result.Error)
		}

		history, err := db.GetHistoryWithMetadata(context.Background(), "-")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 1 || !history[0].Failed {
			t.Errorf("expected one failed record, got %+v", history)
		}
	})

	t.Run("applies the configured document type", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(titleSpec(t), nil,
			WithPipelineDocType(document.XML),
			WithPipelineCharset("utf-8"),
			WithPipelineMaxDocumentSize(1024),
			WithPipelineStdin(strings.NewReader(`<movie><title>The Shining</title></movie>`)),
		)

		job := NewJob("-", "movie")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(map[string]any{"title": "The Shining"}, job.Result.Data); diff != "" {
			t.Errorf("data mismatch (-want +got):\n%s", diff)
		}
	})
}
