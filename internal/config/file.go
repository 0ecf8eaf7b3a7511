package config

import (
	"maps"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// SpecConfig holds the settings for one spec alias.
type SpecConfig struct {
	// Spec is the spec file or name the alias stands for.
	// If empty, the alias itself is used as the spec name.
	Spec string `yaml:"spec,omitempty"`

	// DocType overrides the document type declared by the spec.
	DocType string `yaml:"doctype,omitempty"`

	// Charset forces the character set of HTML inputs instead of
	// detecting it.
	Charset string `yaml:"charset,omitempty"`

	// Patterns are glob patterns matched against input paths.
	// When no spec is given on the command line, an input is scraped with
	// the alias whose pattern matches it. "**" matches across directories.
	Patterns []string `yaml:"patterns,omitempty"`
}

// File represents the structure of the .piculet configuration file.
type File struct {
	// SpecDirs are additional directories searched for specs.
	SpecDirs []string `yaml:"specDirs,omitempty"`

	// Specs maps aliases to their settings.
	Specs map[string]SpecConfig `yaml:"specs,omitempty"`

	// Defaults contains settings applied to every alias unless
	// overridden in the alias configuration.
	Defaults SpecConfig `yaml:"defaults,omitempty"`
}

// GetSpecConfig returns the configuration for a spec alias.
// It merges the alias configuration with defaults. An unknown alias gets
// the defaults with Spec set to the alias itself.
func (cf *File) GetSpecConfig(alias string) SpecConfig {
	// Start with defaults
	result := cf.Defaults
	result.Spec = alias

	// Override with alias-specific configuration if present
	if specConfig, ok := cf.Specs[alias]; ok {
		if specConfig.Spec != "" {
			result.Spec = specConfig.Spec
		}
		if specConfig.DocType != "" {
			result.DocType = specConfig.DocType
		}
		if specConfig.Charset != "" {
			result.Charset = specConfig.Charset
		}
		if len(specConfig.Patterns) > 0 {
			result.Patterns = specConfig.Patterns
		}
	}

	return result
}

// HasPatterns reports whether any alias can be chosen by input pattern.
func (cf *File) HasPatterns() bool {
	for _, sc := range cf.Specs {
		if len(sc.Patterns) > 0 {
			return true
		}
	}
	return false
}

// MatchInput returns the alias whose patterns match an input path.
// Aliases are tried in name order, so the result is stable when several
// aliases match.
func (cf *File) MatchInput(input string) (string, bool) {
	for _, alias := range slices.Sorted(maps.Keys(cf.Specs)) {
		for _, pattern := range cf.Specs[alias].Patterns {
			if ok, err := doublestar.PathMatch(pattern, input); err == nil && ok {
				return alias, true
			}
		}
	}
	return "", false
}
