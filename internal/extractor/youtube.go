package extractor

import (
	"context"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/logger"
)

// YouTubeProber resolves YouTube metadata with the native client and falls
// back to the wrapped extractor when that fails. Fetch always delegates.
type YouTubeProber struct {
	Extractor
	client youtube.Client
	log    *logger.Logger
}

func NewYouTubeProber(next Extractor, log *logger.Logger) *YouTubeProber {
	return &YouTubeProber{
		Extractor: next,
		log:       log.WithComponent("youtube"),
	}
}

func (p *YouTubeProber) Probe(ctx context.Context, url string) (*domain.Metadata, error) {
	if !isYouTube(url) {
		return p.Extractor.Probe(ctx, url)
	}

	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		p.log.Debug("Native probe failed, falling back", "url", url, "error", err)
		return p.Extractor.Probe(ctx, url)
	}
	return videoMetadata(video), nil
}

func videoMetadata(v *youtube.Video) *domain.Metadata {
	m := &domain.Metadata{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Creator:     v.Author,
		WebpageURL:  "https://www.youtube.com/watch?v=" + v.ID,
	}

	if len(v.Thumbnails) > 0 {
		best := v.Thumbnails[0]
		for _, t := range v.Thumbnails[1:] {
			if t.Height >= best.Height {
				best = t
			}
		}
		m.Thumbnail = best.URL
	}

	bestAudio := 0
	for _, f := range v.Formats {
		if f.Height > m.MaxHeight {
			m.MaxHeight = f.Height
		}
		if strings.HasPrefix(f.MimeType, "audio/") {
			rate := f.AverageBitrate
			if rate == 0 {
				rate = f.Bitrate
			}
			if rate > bestAudio {
				bestAudio = rate
			}
		}
	}
	m.BestAudioKbps = (bestAudio + 500) / 1000

	m.Subtitle = captionSubtitle(v.CaptionTracks)
	return m
}

// captionSubtitle applies the same preference as yt-dlp output: first manual
// track by language code, then English auto captions, then any auto track.
func captionSubtitle(tracks []youtube.CaptionTrack) *domain.Subtitle {
	var manual, auto []youtube.CaptionTrack
	for _, t := range tracks {
		if t.Kind == "asr" {
			auto = append(auto, t)
		} else {
			manual = append(manual, t)
		}
	}
	byLang := func(ts []youtube.CaptionTrack) {
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].LanguageCode < ts[j].LanguageCode })
	}
	byLang(manual)
	byLang(auto)

	pick := func(t youtube.CaptionTrack) *domain.Subtitle {
		return &domain.Subtitle{URL: t.BaseURL + "&fmt=vtt", Ext: "vtt", Lang: t.LanguageCode}
	}
	if len(manual) > 0 {
		return pick(manual[0])
	}
	for _, t := range auto {
		if t.LanguageCode == "en" {
			return pick(t)
		}
	}
	if len(auto) > 0 {
		return pick(auto[0])
	}
	return nil
}

func isYouTube(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "youtube.com/") || strings.Contains(u, "youtu.be/")
}
