package specfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ohler55/ojg/oj"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/piculet/internal/piculet"
)

// Format is the encoding of a spec file.
type Format string

// Supported spec file formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Extensions lists the file extensions recognized as spec files, in the
// order Find tries them.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

var (
	// ErrUnknownFormat is returned for a file extension or format name
	// that is not JSON, YAML or TOML.
	ErrUnknownFormat = errors.New("unknown spec file format")

	// ErrNotFound is returned by Find when no spec file matches a name.
	ErrNotFound = errors.New("spec not found")

	// ErrNotObject is returned when a spec file does not hold an object
	// at the top level.
	ErrNotObject = errors.New("spec file must contain an object")
)

// ParseFormat converts a format name to a Format. "yml" is accepted as
// an alias of YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatOf returns the format of a spec file from its extension.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext[1:])
}

// Decode parses a spec description. Numbers keep the types their
// decoder produces; a description only holds strings, lists and objects.
func Decode(data []byte, f Format) (map[string]any, error) {
	var (
		v   any
		err error
	)
	switch f {
	case JSON:
		v, err = oj.Parse(data)
	case YAML:
		var m map[string]any
		err = yaml.Unmarshal(data, &m)
		v = m
	case TOML:
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		v = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s spec: %w", f, err)
	}

	desc, ok := v.(map[string]any)
	if !ok || desc == nil {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return desc, nil
}

// Encode writes a description in the given format. JSON output is
// indented with sorted keys so that dumps are stable.
func Encode(desc map[string]any, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return []byte(oj.JSON(desc, &oj.Options{Indent: 2, Sort: true}) + "\n"), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return nil, fmt.Errorf("failed to encode yaml spec: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode yaml spec: %w", err)
		}
		return buf.Bytes(), nil
	case TOML:
		data, err := toml.Marshal(desc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode toml spec: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Read loads the description stored in a spec file.
func Read(path string) (map[string]any, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // User-provided spec path is intentional
	if err != nil {
		return nil, err
	}
	desc, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// Find resolves a spec name to a file.
//
// A name that is an existing file is returned as is. Otherwise every
// directory in dirs is searched, in order, for name followed by one of
// Extensions, so "movie" matches "movie.json" or "movie.yaml".
func Find(name string, dirs []string) (string, error) {
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name, nil
	}
	for _, dir := range dirs {
		for _, ext := range Extensions {
			path := filepath.Join(dir, name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q (searched %s)", ErrNotFound, name, strings.Join(dirs, ", "))
}

// Open finds a spec by name, reads it and loads it with reg.
func Open(name string, dirs []string, reg piculet.Registry) (*piculet.Spec, error) {
	path, err := Find(name, dirs)
	if err != nil {
		return nil, err
	}
	desc, err := Read(path)
	if err != nil {
		return nil, err
	}
	spec, err := piculet.Load(desc, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// List returns the names of the specs available in dirs, sorted. Files
// in subdirectories are named by their relative path without the
// extension. Directories that do not exist are skipped.
func List(dirs []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*.{json,yaml,yml,toml}"))
		if err != nil {
			return nil, fmt.Errorf("failed to list specs in %s: %w", dir, err)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(dir, match)
			if err != nil {
				continue
			}
			seen[filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
