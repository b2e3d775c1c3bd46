package ytdlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/forPelevin/ycsp/internal/types"
)

// timedTextExt is yt-dlp's name for YouTube timed-text format 3.
const timedTextExt = "srv3"

type subtitleItem struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// ytdlpOutput holds the subset of `yt-dlp -J` used here. Subtitles and
// AutomaticCaptions are keyed by language code.
type ytdlpOutput struct {
	ID                string                    `json:"id"`
	Title             string                    `json:"title"`
	Subtitles         map[string][]subtitleItem `json:"subtitles"`
	AutomaticCaptions map[string][]subtitleItem `json:"automatic_captions"`
}

func parseInfo(raw []byte) (types.SourceInfo, error) {
	var y ytdlpOutput
	if err := json.Unmarshal(raw, &y); err != nil {
		return types.SourceInfo{}, fmt.Errorf("unmarshal yt-dlp output: %w", err)
	}
	if strings.TrimSpace(y.Title) == "" {
		return types.SourceInfo{}, errors.New("yt-dlp output has no title")
	}

	info := types.SourceInfo{
		ID:       y.ID,
		Title:    y.Title,
		Captions: map[string][]types.CaptionTrack{},
	}
	// Manual tracks go first so they win over automatic ones for a language.
	addTracks(info.Captions, y.Subtitles, false)
	addTracks(info.Captions, y.AutomaticCaptions, true)
	return info, nil
}

func addTracks(dst map[string][]types.CaptionTrack, src map[string][]subtitleItem, automatic bool) {
	langs := make([]string, 0, len(src))
	for lang := range src {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		item, ok := pickItem(src[lang])
		if !ok {
			continue
		}
		dst[lang] = append(dst[lang], types.CaptionTrack{
			Language:  lang,
			Name:      item.Name,
			URL:       item.URL,
			Automatic: automatic,
		})
	}
}

// pickItem prefers the srv3 rendition and otherwise falls back to the first
// entry with a URL; the fetcher asks for srv3 explicitly.
func pickItem(items []subtitleItem) (subtitleItem, bool) {
	var fallback *subtitleItem
	for i := range items {
		if items[i].URL == "" {
			continue
		}
		if items[i].Ext == timedTextExt {
			return items[i], true
		}
		if fallback == nil {
			fallback = &items[i]
		}
	}
	if fallback == nil {
		return subtitleItem{}, false
	}
	return *fallback, true
}
