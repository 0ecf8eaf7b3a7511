package transform

import (
	"fmt"
	"strings"

	"github.com/nao1215/piculet/internal/piculet"
)

// DropInternalKeys removes the top level keys that start with
// piculet.ReservedKeyPrefix. Specs use such keys to hand values to
// the postprocessors that run before it.
func DropInternalKeys(data map[string]any) (map[string]any, error) {
	for key := range data {
		if strings.HasPrefix(key, piculet.ReservedKeyPrefix) {
			delete(data, key)
		}
	}
	return data, nil
}

// SetEpisodesSeries copies the "series" value into every episode.
func SetEpisodesSeries(data map[string]any) (map[string]any, error) {
	series, ok := data["series"]
	if !ok || series == nil {
		return data, nil
	}
	for _, episode := range episodes(data) {
		episode["series"] = series
	}
	return data, nil
}

// SetEpisodesPlotLanguages turns the plot of every episode into a map
// keyed by the page language found in "_page_lang".
func SetEpisodesPlotLanguages(data map[string]any) (map[string]any, error) {
	lang, ok := data["_page_lang"].(string)
	if !ok {
		return data, nil
	}
	for _, episode := range episodes(data) {
		if plot, ok := episode["plot"]; ok && plot != nil {
			episode["plot"] = map[string]any{lang: plot}
		}
	}
	return data, nil
}

// BuildEpisodeMap replaces the "episodes" list with a map keyed by each
// episode's "episode" value.
func BuildEpisodeMap(data map[string]any) (map[string]any, error) {
	list, ok := data["episodes"].([]any)
	if !ok {
		return data, nil
	}
	byNumber := make(map[string]any, len(list))
	for i, item := range list {
		episode, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("build_episode_map: episode %d: %w", i, ErrUnsupportedValue)
		}
		number, ok := episode["episode"]
		if !ok || number == nil {
			return nil, fmt.Errorf("build_episode_map: episode %d has no number: %w", i, ErrUnsupportedValue)
		}
		byNumber[fmt.Sprint(number)] = episode
	}
	data["episodes"] = byNumber
	return data, nil
}

func episodes(data map[string]any) []map[string]any {
	list, _ := data["episodes"].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if episode, ok := item.(map[string]any); ok {
			out = append(out, episode)
		}
	}
	return out
}
