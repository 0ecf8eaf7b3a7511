package transform

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ohler55/ojg/oj"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// stripPolicy removes every tag. Policies are safe for concurrent use
// once built.
var stripPolicy = bluemonday.StrictPolicy()

// Str formats any value as a string.
func Str(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// Int converts a string or number to an int. Strings are trimmed first.
func Int(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("int: %w", err)
		}
		return n, nil
	default:
		return nil, unsupported("int", v)
	}
}

// Float converts a string or number to a float64.
func Float(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("float: %w", err)
		}
		return f, nil
	default:
		return nil, unsupported("float", v)
	}
}

// Bool converts a string such as "true" or "0" to a bool.
func Bool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("bool: %w", err)
		}
		return b, nil
	default:
		return nil, unsupported("bool", v)
	}
}

// Lower converts a string to lower case.
func Lower(v any) (any, error) {
	return mapString("lower", v, cases.Lower(language.Und).String)
}

// Upper converts a string to upper case.
func Upper(v any) (any, error) {
	return mapString("upper", v, cases.Upper(language.Und).String)
}

// Title converts a string to title case.
func Title(v any) (any, error) {
	return mapString("title", v, cases.Title(language.Und).String)
}

// Strip removes leading and trailing white space.
func Strip(v any) (any, error) {
	return mapString("strip", v, strings.TrimSpace)
}

// Normalize puts a string in Unicode NFC form and collapses runs of
// white space into single spaces.
func Normalize(v any) (any, error) {
	return mapString("normalize", v, func(s string) string {
		return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	})
}

// Unescape replaces HTML character references with the characters they
// stand for.
func Unescape(v any) (any, error) {
	return mapString("unescape", v, html.UnescapeString)
}

// StripTags removes markup from a string, keeping its text.
func StripTags(v any) (any, error) {
	return mapString("strip_tags", v, func(s string) string {
		return html.UnescapeString(stripPolicy.Sanitize(s))
	})
}

// JSON decodes a JSON text into maps, slices and scalars.
func JSON(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("json", v)
	}
	out, err := oj.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return out, nil
}

// Div60 divides a whole number by 60, rounding down. It turns seconds
// into minutes.
func Div60(v any) (any, error) {
	n, err := Int(v)
	if err != nil {
		return nil, fmt.Errorf("div60: %w", err)
	}
	return int(math.Floor(float64(n.(int)) / 60)), nil //nolint:forcetypeassert // Int returns int
}

func mapString(name string, v any, fn func(string) string) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported(name, v)
	}
	return fn(s), nil
}
