package main

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/piculet/internal/config"
)

const shiningPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>The Shining</title></head>
<body><span class="year">1980</span></body>
</html>`

const titleSpecJSON = `{
  "doctype": "html",
  "rules": [
    {"key": "title", "extractor": {"path": "//title/text()"}},
    {"key": "year", "extractor": {"path": "//span[@class='year']/text()", "transforms": ["int"]}}
  ]
}`

// TestNewScrapeCmd tests the scrape command flags.
func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"spec", "s"},
		{"doctype", "d"},
		{"batch", "b"},
		{"timeout", "t"},
		{"json", "j"},
		{"markdown", "m"},
		{"output", "o"},
		{"charset", ""},
		{"spec-dir", ""},
		{"max-size", ""},
		{"save", ""},
		{"db-dir", ""},
		{"metrics-file", ""},
		{"full", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
		})
	}
}

// TestExpandInputs tests glob expansion of the arguments.
func TestExpandInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "title", "tt01"), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	a := writeTestFile(t, dir, "a.html", shiningPage)
	b := writeTestFile(t, filepath.Join(dir, "title", "tt01"), "b.html", shiningPage)
	writeTestFile(t, dir, "notes.txt", "")

	t.Run("keeps plain paths and stdin", func(t *testing.T) {
		t.Parallel()

		got, err := expandInputs([]string{"-", "missing.html"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"-", "missing.html"}, got); diff != "" {
			t.Errorf("inputs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("expands double star", func(t *testing.T) {
		t.Parallel()

		got, err := expandInputs([]string{filepath.Join(dir, "**", "*.html")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		slices.Sort(got)
		if diff := cmp.Diff([]string{a, b}, got); diff != "" {
			t.Errorf("inputs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("pattern without match is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := expandInputs([]string{filepath.Join(dir, "*.xml")}); err == nil {
			t.Error("expected error for pattern without match")
		}
	})
}

// TestGroupInputs tests how inputs are assigned to specs.
func TestGroupInputs(t *testing.T) {
	t.Parallel()

	file := &config.File{
		Defaults: config.SpecConfig{Charset: "utf-8"},
		Specs: map[string]config.SpecConfig{
			"movie":  {Spec: "imdb/movie", Patterns: []string{"pages/title/*.html"}},
			"person": {Spec: "imdb/person", DocType: "html", Patterns: []string{"pages/name/*.html"}},
		},
	}

	t.Run("spec name applies to all inputs", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SpecName = "movie"
		cfg.File = file
		cfg.Inputs = []string{"a.html", "pages/name/b.html"}

		groups, err := groupInputs(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
		if groups[0].settings.Spec != "imdb/movie" || groups[0].settings.Charset != "utf-8" {
			t.Errorf("unexpected settings %+v", groups[0].settings)
		}
		if diff := cmp.Diff([]int{0, 1}, groups[0].indexes); diff != "" {
			t.Errorf("indexes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("spec name without config file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SpecName = "specs/feed.yaml"
		cfg.Inputs = []string{"feed.xml"}

		groups, err := groupInputs(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if groups[0].settings.Spec != "specs/feed.yaml" {
			t.Errorf("expected spec to be the name, got %q", groups[0].settings.Spec)
		}
	})

	t.Run("patterns choose the spec", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.File = file
		cfg.Inputs = []string{"pages/name/nm1.html", "pages/title/tt1.html", "pages/name/nm2.html"}

		groups, err := groupInputs(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].settings.Spec != "imdb/person" || groups[0].settings.DocType != "html" {
			t.Errorf("unexpected first group settings %+v", groups[0].settings)
		}
		if diff := cmp.Diff([]int{0, 2}, groups[0].indexes); diff != "" {
			t.Errorf("first group mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]int{1}, groups[1].indexes); diff != "" {
			t.Errorf("second group mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unmatched input is an error", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.File = file
		cfg.Inputs = []string{"pages/other/x.html"}

		_, err := groupInputs(cfg)
		if !errors.Is(err, config.ErrNoSpec) {
			t.Errorf("expected ErrNoSpec, got %v", err)
		}
	})
}

// TestRunScrapeCmd tests the scrape command end to end.
func TestRunScrapeCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints data as JSON", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)

		out, err := runRoot(t, "scrape", "-s", spec, "--json", page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{`"title": "The Shining"`, `"year": 1980`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
		if strings.Contains(out, `"source"`) {
			t.Errorf("expected data only, got %q", out)
		}
	})

	t.Run("full JSON includes metadata", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)

		out, err := runRoot(t, "scrape", "-s", spec, "--json", "--full", page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `"source": "`+page+`"`) {
			t.Errorf("expected source in output, got %q", out)
		}
	})

	t.Run("finds spec by name in spec dir", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeTestFile(t, dir, "movie.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)

		out, err := runRoot(t, "scrape", "--spec-dir", dir, "-s", "movie", page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"PICULET RESULT", "[+] title: The Shining", "[+] year: 1980"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("reads stdin", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)

		cmd := NewRootCmd()
		var stdout strings.Builder
		cmd.SetOut(&stdout)
		cmd.SetErr(&strings.Builder{})
		cmd.SetIn(strings.NewReader(shiningPage))
		cmd.SetArgs([]string{"scrape", "-s", spec, "-j", "-"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), `"title": "The Shining"`) {
			t.Errorf("unexpected output %q", stdout.String())
		}
	})

	t.Run("writes markdown batch report to file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		writeTestFile(t, dir, "a.html", shiningPage)
		writeTestFile(t, dir, "b.html", shiningPage)
		report := filepath.Join(dir, "out", "report.md")

		if _, err := runRoot(t, "scrape", "-s", spec, "-m", "-o", report, filepath.Join(dir, "*.html")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(report)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Scrape Report") {
			t.Errorf("expected batch report, got %q", content)
		}
	})

	t.Run("picks spec from config patterns", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)
		conf := writeTestFile(t, dir, "piculet.yaml",
			"specs:\n  movie:\n    spec: "+spec+"\n    patterns:\n      - \""+filepath.ToSlash(dir)+"/*.html\"\n")

		out, err := runRoot(t, "scrape", "-c", conf, "-j", page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `"title": "The Shining"`) {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("writes metrics file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)
		metrics := filepath.Join(dir, "piculet.prom")

		if _, err := runRoot(t, "scrape", "-s", spec, "--metrics-file", metrics, page); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(metrics)
		if err != nil {
			t.Fatalf("failed to read metrics: %v", err)
		}
		if !strings.Contains(string(content), "piculet_documents_total") {
			t.Errorf("expected document counter, got %q", content)
		}
	})

	t.Run("saves results to database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		dbDir := filepath.Join(dir, "db")
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)

		if _, err := runRoot(t, "scrape", "-s", spec, "--save", "--db-dir", dbDir, page); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := runRoot(t, "history", "--db-dir", dbDir, "--list-sources")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, page) {
			t.Errorf("expected saved source %s, got %q", page, out)
		}
	})

	t.Run("failed document returns error after report", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		missing := filepath.Join(dir, "missing.html")

		out, err := runRoot(t, "scrape", "-s", spec, missing)
		if !errors.Is(err, errScrapeFailed) {
			t.Fatalf("expected errScrapeFailed, got %v", err)
		}
		if !strings.Contains(out, "Error - ") {
			t.Errorf("expected failure in report, got %q", out)
		}
	})

	t.Run("configuration errors", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		spec := writeTestFile(t, dir, "title.json", titleSpecJSON)
		page := writeTestFile(t, dir, "shining.html", shiningPage)

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"no input", []string{"scrape", "-s", spec}, config.ErrNoInput},
			{"json and markdown", []string{"scrape", "-s", spec, "-j", "-m", page}, config.ErrConflictingReportFormats},
			{"invalid doctype", []string{"scrape", "-s", spec, "-d", "pdf", page}, config.ErrInvalidDocType},
			{"invalid batch size", []string{"scrape", "-s", spec, "-b", "0", page}, config.ErrInvalidBatchSize},
		}

		for _, tt := range tests {
			if _, err := runRoot(t, tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})

	t.Run("unknown spec is an error", func(t *testing.T) {
		t.Parallel()

		page := writeTestFile(t, t.TempDir(), "shining.html", shiningPage)

		if _, err := runRoot(t, "scrape", "-s", "no-such-spec", page); err == nil {
			t.Error("expected error for unknown spec")
		}
	})
}
