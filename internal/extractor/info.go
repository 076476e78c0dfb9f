package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/domain"
)

// infoJSON is the subset of yt-dlp's --dump-single-json output we read.
type infoJSON struct {
	Subtitles         map[string][]subJSON `json:"subtitles"`
	AutomaticCaptions map[string][]subJSON `json:"automatic_captions"`
	ID                string               `json:"id"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Uploader          string               `json:"uploader"`
	Channel           string               `json:"channel"`
	Thumbnail         string               `json:"thumbnail"`
	WebpageURL        string               `json:"webpage_url"`
	Language          string               `json:"language"`
	Thumbnails        []thumbJSON          `json:"thumbnails"`
	Formats           []formatJSON         `json:"formats"`
}

type thumbJSON struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
}

type formatJSON struct {
	Height *int     `json:"height"`
	VCodec *string  `json:"vcodec"`
	ACodec *string  `json:"acodec"`
	ABR    *float64 `json:"abr"`
	TBR    *float64 `json:"tbr"`
}

type subJSON struct {
	URL string `json:"url"`
	Ext string `json:"ext"`
}

func parseInfo(data []byte) (*domain.Metadata, error) {
	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}
	if info.ID == "" {
		return nil, ErrNoMetadata
	}
	return info.metadata(), nil
}

func (i *infoJSON) metadata() *domain.Metadata {
	creator := i.Uploader
	if creator == "" {
		creator = i.Channel
	}
	return &domain.Metadata{
		ID:            i.ID,
		Title:         i.Title,
		Description:   i.Description,
		Creator:       creator,
		Thumbnail:     i.pickThumb(),
		WebpageURL:    i.WebpageURL,
		Subtitle:      i.defaultSub(),
		MaxHeight:     i.maxHeight(),
		BestAudioKbps: i.bestAudioKbps(),
	}
}

// pickThumb prefers the explicit thumbnail, then the tallest listed one.
func (i *infoJSON) pickThumb() string {
	if i.Thumbnail != "" {
		return i.Thumbnail
	}
	best, bestH := "", -1
	for _, t := range i.Thumbnails {
		h := 0
		if t.Height != nil {
			h = *t.Height
		}
		if h >= bestH {
			best, bestH = t.URL, h
		}
	}
	return best
}

func (i *infoJSON) maxHeight() int {
	m := 0
	for _, f := range i.Formats {
		if f.Height != nil && *f.Height > m {
			m = *f.Height
		}
	}
	return m
}

// bestAudioKbps returns the highest bitrate among audio-only formats, or 0.
func (i *infoJSON) bestAudioKbps() int {
	best := 0.0
	for _, f := range i.Formats {
		if hasCodec(f.VCodec) || !hasCodec(f.ACodec) {
			continue
		}
		rate := 0.0
		switch {
		case f.ABR != nil && *f.ABR > 0:
			rate = *f.ABR
		case f.TBR != nil:
			rate = *f.TBR
		}
		if rate > best {
			best = rate
		}
	}
	return int(math.Round(best))
}

func hasCodec(c *string) bool {
	return c != nil && *c != "" && *c != "none"
}

// defaultSub picks the video language, then the first manual track,
// then English automatic captions, then the first automatic track.
func (i *infoJSON) defaultSub() *domain.Subtitle {
	lang, _, _ := strings.Cut(i.Language, "-")
	if lang != "" {
		if subs := i.Subtitles[lang]; len(subs) > 0 {
			return newSubtitle(subs[0], lang)
		}
	}
	if k := firstKey(i.Subtitles); k != "" {
		return newSubtitle(i.Subtitles[k][0], k)
	}
	if len(i.AutomaticCaptions["en"]) > 0 {
		return newSubtitle(i.AutomaticCaptions["en"][0], "en")
	}
	if k := firstKey(i.AutomaticCaptions); k != "" {
		return newSubtitle(i.AutomaticCaptions[k][0], k)
	}
	return nil
}

func firstKey(m map[string][]subJSON) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return keys[0]
}

func newSubtitle(s subJSON, lang string) *domain.Subtitle {
	ext := s.Ext
	if ext == "" {
		ext = constants.ExtVTT
	}
	return &domain.Subtitle{URL: s.URL, Ext: ext, Lang: lang}
}
