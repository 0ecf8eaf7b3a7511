package piculet

import (
	"maps"
	"slices"

	"github.com/nao1215/piculet/internal/document"
)

// Transform converts an extracted value.
type Transform func(any) (any, error)

// Preprocessor rewrites the root node before extraction. It may return a
// node of a different kind, such as a JSON value embedded in an HTML page.
type Preprocessor func(document.Node) (document.Node, error)

// Postprocessor rewrites the extracted data.
type Postprocessor func(map[string]any) (map[string]any, error)

// Registry holds the named functions a spec may refer to.
// Load looks names up once and keeps the functions on the loaded spec;
// the registry is never modified.
type Registry struct {
	Transforms     map[string]Transform
	Preprocessors  map[string]Preprocessor
	Postprocessors map[string]Postprocessor
}

// Merge returns a registry holding the functions of r and other.
// Names in other replace the same names in r.
func (r Registry) Merge(other Registry) Registry {
	out := Registry{
		Transforms:     maps.Clone(r.Transforms),
		Preprocessors:  maps.Clone(r.Preprocessors),
		Postprocessors: maps.Clone(r.Postprocessors),
	}
	if out.Transforms == nil {
		out.Transforms = make(map[string]Transform, len(other.Transforms))
	}
	if out.Preprocessors == nil {
		out.Preprocessors = make(map[string]Preprocessor, len(other.Preprocessors))
	}
	if out.Postprocessors == nil {
		out.Postprocessors = make(map[string]Postprocessor, len(other.Postprocessors))
	}
	maps.Copy(out.Transforms, other.Transforms)
	maps.Copy(out.Preprocessors, other.Preprocessors)
	maps.Copy(out.Postprocessors, other.Postprocessors)
	return out
}

// Names returns the sorted names of every function in the registry,
// grouped by stage.
func (r Registry) Names() map[Stage][]string {
	return map[Stage][]string{
		StageTransform:     slices.Sorted(maps.Keys(r.Transforms)),
		StagePreprocessor:  slices.Sorted(maps.Keys(r.Preprocessors)),
		StagePostprocessor: slices.Sorted(maps.Keys(r.Postprocessors)),
	}
}
