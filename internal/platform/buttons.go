package platform

import (
	"fmt"
	"strings"

	"github.com/cesargomez89/downtil/internal/domain"
)

// Button is one action link on a detail page.
type Button struct {
	Label string
	Href  string
}

// Buttons lists the actions offered for a probed source.
func Buttons(platform string, meta *domain.Metadata) []Button {
	id := meta.ID
	var out []Button

	switch platform {
	case YouTube:
		if meta.MaxHeight > 1080 {
			out = append(out, Button{fmt.Sprintf("Highest (%dp)", meta.MaxHeight), startHref(YouTube, id, "highest")})
		}
		out = append(out, Button{"HD (≤1080p)", startHref(YouTube, id, "hd")})
		if meta.BestAudioKbps > 0 {
			out = append(out, Button{fmt.Sprintf("Audio (%d kbps)", meta.BestAudioKbps), startHref(YouTube, id, "audio")})
		} else {
			out = append(out, Button{"Audio (best)", startHref(YouTube, id, "audio")})
		}
		out = append(out, Button{"Audio (FLAC)", startHref(YouTube, id, "flac")})
		if meta.Subtitle != nil && meta.Subtitle.URL != "" {
			out = append(out, Button{fmt.Sprintf("Subtitles (%s)", strings.ToUpper(meta.Subtitle.Lang)), "/yt/" + id + "/subs"})
		}
		if meta.Thumbnail != "" {
			out = append(out, Button{"Thumbnail", "/yt/" + id + "/thumb"})
		}
	case TikTok:
		out = append(out, Button{"Download Video", startHref(TikTok, id, "video")})
		if meta.Thumbnail != "" {
			out = append(out, Button{"Thumbnail", "/tt/" + id + "/thumb"})
		}
	case SoundCloud:
		out = append(out, Button{"Download MP3", startHref(SoundCloud, id, "mp3")})
		if meta.Thumbnail != "" {
			out = append(out, Button{"Cover", "/sc/" + id + "/cover"})
		}
	}
	return out
}

func startHref(platform, id, variant string) string {
	return "/" + platform + "/" + id + "/start/" + variant
}
