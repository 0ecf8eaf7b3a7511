package transform

import (
	"errors"
	"fmt"

	"github.com/nao1215/piculet/internal/piculet"
)

// ErrUnsupportedValue is returned when a transform receives a value of a
// type or format it cannot convert.
var ErrUnsupportedValue = errors.New("unsupported value")

// ErrUnsupportedNode is returned when a preprocessor receives a node of
// the wrong kind.
var ErrUnsupportedNode = errors.New("unsupported node")

func unsupported(name string, v any) error {
	return fmt.Errorf("%s: %w: %#v (%T)", name, ErrUnsupportedValue, v, v)
}

// Standard returns a registry holding every function of this package.
// Each call returns fresh maps, so callers may modify the result.
func Standard() piculet.Registry {
	return piculet.Registry{
		Transforms: map[string]piculet.Transform{
			"str":        Str,
			"int":        Int,
			"float":      Float,
			"bool":       Bool,
			"lower":      Lower,
			"upper":      Upper,
			"title":      Title,
			"strip":      Strip,
			"normalize":  Normalize,
			"unescape":   Unescape,
			"strip_tags": StripTags,
			"json":       JSON,

			"div60":           Div60,
			"date":            Date,
			"text_date":       TextDate,
			"make_dict":       MakeDict,
			"lang":            Lang,
			"href_id":         HrefID,
			"type_id":         TypeID,
			"year_range":      YearRange,
			"country_code":    CountryCode,
			"language_code":   LanguageCode,
			"runtime":         Runtime,
			"vote_count":      VoteCount,
			"ranking":         Ranking,
			"locale":          Locale,
			"season_number":   SeasonNumber,
			"credit_category": CreditCategory,
			"credit_job":      CreditJob,
			"credit_notes":    CreditNotes,
			"credit_info":     CreditInfo,
		},
		Preprocessors: map[string]piculet.Preprocessor{
			"next_data":       NextData,
			"json_to_xml":     JSONToXML,
			"remove_see_more": RemoveSeeMore,
			"remove_scripts":  RemoveScripts,
		},
		Postprocessors: map[string]piculet.Postprocessor{
			"drop_internal_keys":          DropInternalKeys,
			"set_episodes_series":         SetEpisodesSeries,
			"set_episodes_plot_languages": SetEpisodesPlotLanguages,
			"build_episode_map":           BuildEpisodeMap,
		},
	}
}
