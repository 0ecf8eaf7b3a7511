package piculet

// Dump renders a spec back to its description. Queries become their
// source text and bound functions become their names. Optional fields
// with empty values are left out, so Load(Dump(s)) yields a spec equal
// to s.
func Dump(s *Spec) map[string]any {
	out := map[string]any{
		fieldRules: dumpRules(s.Rules),
	}
	if s.DocType != "" {
		out[fieldDocType] = string(s.DocType)
	}
	if s.Root != nil {
		out[fieldRoot] = s.Root.String()
	}
	if len(s.Pre) > 0 {
		out[fieldPre] = dumpNames(s.Pre)
	}
	if len(s.Post) > 0 {
		out[fieldPost] = dumpNames(s.Post)
	}
	return out
}

func dumpRules(rules []*Rule) []any {
	out := make([]any, 0, len(rules))
	for _, r := range rules {
		m := map[string]any{
			fieldExtractor: dumpExtractor(r.Extractor),
		}
		if r.Key.Picker != nil {
			m[fieldKey] = dumpPicker(r.Key.Picker)
		} else {
			m[fieldKey] = r.Key.Name
		}
		if r.Foreach != nil {
			m[fieldForeach] = r.Foreach.String()
		}
		out = append(out, m)
	}
	return out
}

func dumpExtractor(ex Extractor) map[string]any {
	switch e := ex.(type) {
	case *Picker:
		return dumpPicker(e)
	case *Collector:
		m := map[string]any{fieldRules: dumpRules(e.Rules)}
		dumpCommon(m, &e.Common)
		return m
	default:
		return nil
	}
}

func dumpPicker(p *Picker) map[string]any {
	m := map[string]any{fieldPath: p.Path.String()}
	if p.Sep != "" {
		m[fieldSep] = p.Sep
	}
	dumpCommon(m, &p.Common)
	return m
}

func dumpCommon(m map[string]any, c *Common) {
	if c.Root != nil {
		m[fieldRoot] = c.Root.String()
	}
	if c.Foreach != nil {
		m[fieldForeach] = c.Foreach.String()
	}
	if len(c.Transforms) > 0 {
		m[fieldTransforms] = dumpNames(c.Transforms)
	}
}

func dumpNames(names []string) []any {
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out
}
