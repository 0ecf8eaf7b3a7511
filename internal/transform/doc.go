// Package transform provides the standard library of named functions that
// specs can refer to: value transforms, preprocessors and postprocessors.
//
// The engine itself knows no names. Standard returns a piculet.Registry
// holding everything in this package; callers may merge their own
// functions into it with Registry.Merge.
//
// # Transforms
//
// Generic conversions (str, int, float, bool, lower, upper, title, strip,
// normalize, unescape, strip_tags, json) work on any document. The rest
// (date, text_date, href_id, year_range, runtime, vote_count, credit_*,
// and so on) parse the formats found on movie database pages.
//
// # Preprocessors
//
//   - next_data: replaces an HTML page with the JSON payload of its
//     __NEXT_DATA__ script, so map paths can run over it
//   - json_to_xml: turns a JSON value into an XML tree, so tree paths can
//     run over it
//   - remove_see_more: deletes "See more »" links that would pollute text
//   - remove_scripts: deletes script and style elements
//
// # Postprocessors
//
//   - drop_internal_keys: removes top level keys starting with "_"
//   - set_episodes_series, set_episodes_plot_languages, build_episode_map:
//     reshape episode lists of a series page
package transform
