package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Date builds an ISO date from a map with year, month and day numbers.
// It returns nil when any part is missing.
func Date(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, unsupported("date", v)
	}
	var parts [3]int
	for i, name := range []string{"year", "month", "day"} {
		part, ok := m[name]
		if !ok || part == nil {
			return nil, nil
		}
		n, err := Int(part)
		if err != nil {
			return nil, fmt.Errorf("date: %s: %w", name, err)
		}
		parts[i] = n.(int) //nolint:forcetypeassert // Int returns int
	}
	return fmt.Sprintf("%d-%02d-%02d", parts[0], parts[1], parts[2]), nil
}

var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// TextDate converts a date written as "16 May 1980 (United States)" to
// "1980-05-16". Text that is not a day, a month name and a year yields nil.
func TextDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("text_date", v)
	}
	s, _, _ = strings.Cut(s, "(")
	tokens := strings.Fields(s)
	if len(tokens) != 3 {
		return nil, nil
	}
	month, ok := monthNumbers[tokens[1]]
	if !ok {
		return nil, unsupported("text_date", v)
	}
	day, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, fmt.Errorf("text_date: %w", err)
	}
	return fmt.Sprintf("%s-%02d-%02d", tokens[2], month, day), nil
}

// MakeDict turns {"key": k, "value": v} into {k: v}. A missing value
// yields an empty map.
func MakeDict(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, unsupported("make_dict", v)
	}
	value, ok := m["value"]
	if !ok || value == nil {
		return map[string]any{}, nil
	}
	key, ok := m["key"].(string)
	if !ok {
		return nil, unsupported("make_dict", v)
	}
	return map[string]any{key: value}, nil
}

// Lang turns {"lang": l, "text": t} into {l: t}.
func Lang(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, unsupported("lang", v)
	}
	lang, ok := m["lang"].(string)
	if !ok {
		return nil, unsupported("lang", v)
	}
	return map[string]any{lang: m["text"]}, nil
}

// HrefID returns the last path segment of a link, ignoring the query
// string and a trailing slash: "/title/tt0081505/?ref_=x" gives "tt0081505".
func HrefID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("href_id", v)
	}
	s, _, _ = strings.Cut(s, "?")
	s = strings.TrimSuffix(s, "/")
	return s[strings.LastIndex(s, "/")+1:], nil
}

// TypeID turns a display name such as "TV Series" into an identifier
// such as "tvSeries".
func TypeID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("type_id", v)
	}
	words := strings.Split(strings.TrimSpace(s), " ")
	words[0] = strings.ToLower(words[0])
	return strings.Join(words, ""), nil
}

// YearRange parses "1980-1985" into {"year": 1980, "end_year": 1985}.
// An open range such as "2019-" has no end year.
func YearRange(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("year_range", v)
	}
	start, end, _ := strings.Cut(strings.TrimSpace(s), "-")
	year, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return nil, fmt.Errorf("year_range: %w", err)
	}
	out := map[string]any{"year": year}
	if end = strings.TrimSpace(end); end != "" {
		endYear, err := strconv.Atoi(end)
		if err != nil {
			return nil, fmt.Errorf("year_range: %w", err)
		}
		out["end_year"] = endYear
	}
	return out, nil
}

// CountryCode extracts the code from a ".../country/us" style link.
func CountryCode(v any) (any, error) {
	return afterLast("country_code", v, "/country/")
}

// LanguageCode extracts the code from a ".../language/en" style link.
func LanguageCode(v any) (any, error) {
	return afterLast("language_code", v, "/language/")
}

// Runtime parses "142 min" into 142.
func Runtime(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("runtime", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "min")))
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	return n, nil
}

// VoteCount parses "(1,234,567)" into 1234567.
func VoteCount(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("vote_count", v)
	}
	s = strings.Trim(strings.TrimSpace(s), "()")
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("vote_count: %w", err)
	}
	return n, nil
}

// Ranking parses "Top rated movie #12" into 12.
func Ranking(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("ranking", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[strings.LastIndex(s, "#")+1:]))
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	return n, nil
}

var localePattern = regexp.MustCompile(`locale: '([^']+)'`)

// Locale finds a "locale: 'en-US'" setting in script text. Text without
// one yields nil.
func Locale(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("locale", v)
	}
	m := localePattern.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}
	return m[1], nil
}

// SeasonNumber parses "Season 3" into "3".
func SeasonNumber(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("season_number", v)
	}
	_, number, found := strings.Cut(strings.TrimSpace(s), "Season ")
	if !found {
		return nil, unsupported("season_number", v)
	}
	return strings.TrimSpace(number), nil
}

var creditCategories = map[string]string{
	"director":                                     "directors",
	"writer":                                       "writers",
	"composer":                                     "composers",
	"cinematographer":                              "cinematographers",
	"editor":                                       "editors",
	"casting director":                             "casting_directors",
	"production designer":                          "production_designers",
	"art director":                                 "art_directors",
	"set decorator":                                "set_decorators",
	"costume designer":                             "costume_designers",
	"second unit directors or assistant directors": "assistant_directors",
	"choreographer":                                "choreographers",
	"camera and electrical department":             "camera_department",
	"costume and wardrobe department":              "costume_department",
	"script and continuity department":             "script_department",
	"miscellaneous":                                "additional_crew",
}

// CreditCategory maps a credit section heading to its key, for example
// "Casting Director" to "casting_directors". Unknown headings are lower
// cased with spaces replaced by underscores.
func CreditCategory(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("credit_category", v)
	}
	s = strings.ToLower(s)
	if category, ok := creditCategories[s]; ok {
		return category, nil
	}
	return strings.ReplaceAll(s, " ", "_"), nil
}

// CreditJob returns the job of a credit line, the text before any
// parenthesized note: "screenplay (as Stanley Kubrick)" gives
// "screenplay". A line with no job yields nil.
func CreditJob(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("credit_job", v)
	}
	job, _, _ := strings.Cut(s, "(")
	if job = strings.TrimSpace(job); job == "" {
		return nil, nil
	}
	return job, nil
}

var parenthesized = regexp.MustCompile(`\(([^)]*)\)`)

// CreditNotes returns the parenthesized notes of a credit line.
func CreditNotes(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("credit_notes", v)
	}
	notes := []any{}
	for _, m := range parenthesized.FindAllStringSubmatch(s, -1) {
		notes = append(notes, m[1])
	}
	return notes, nil
}

// CreditInfo splits a credit line into its role and non-empty notes:
// "Jack Torrance (voice)" gives {"role": "Jack Torrance", "notes": ["voice"]}.
func CreditInfo(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported("credit_info", v)
	}
	s = strings.TrimSpace(s)

	notes := []any{}
	for _, m := range parenthesized.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			notes = append(notes, m[1])
		}
	}
	role, _, _ := strings.Cut(s, "(")
	info := map[string]any{"role": nil, "notes": notes}
	if role = strings.TrimSpace(role); role != "" {
		info["role"] = role
	}
	return info, nil
}

func afterLast(name string, v any, sep string) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, unsupported(name, v)
	}
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):], nil
	}
	return s, nil
}
