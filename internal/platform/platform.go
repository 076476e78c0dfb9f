// Package platform maps source URLs to supported sites and their download variants.
package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
)

const (
	YouTube    = "yt"
	TikTok     = "tt"
	SoundCloud = "sc"
)

var httpURL = regexp.MustCompile(`(?i)^https?://`)

// IsHTTPURL reports whether s starts with an http or https scheme.
func IsHTTPURL(s string) bool {
	return httpURL.MatchString(s)
}

var youTubeHosts = []string{
	"youtube.",
	"youtu.be",
	"youtube-nocookie.com",
	"youtubegaming.com",
	"music.youtube.com",
	"m.youtube.com",
}

// Detect returns the platform code for rawURL or "" when unsupported.
func Detect(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return ""
	}
	for _, h := range youTubeHosts {
		if strings.Contains(host, h) {
			return YouTube
		}
	}
	if strings.Contains(host, "tiktok.com") {
		return TikTok
	}
	if strings.Contains(host, "soundcloud.com") {
		return SoundCloud
	}
	return ""
}

// Name is the human label used in job titles.
func Name(platform string) string {
	switch platform {
	case YouTube:
		return "YouTube"
	case TikTok:
		return "TikTok"
	case SoundCloud:
		return "SoundCloud"
	default:
		return ""
	}
}

// CanonicalURL rebuilds a source URL from a media id.
func CanonicalURL(platform, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("empty %s id", platform)
	}
	switch platform {
	case YouTube:
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(id), nil
	case TikTok:
		return "https://www.tiktok.com/@_/video/" + url.PathEscape(id), nil
	case SoundCloud:
		return "https://api.soundcloud.com/tracks/" + url.PathEscape(id), nil
	default:
		return "", fmt.Errorf("unsupported platform %q", platform)
	}
}

// SoundCloudTrackURL is the public permalink for a user/track pair.
func SoundCloudTrackURL(user, track string) string {
	return "https://soundcloud.com/" + url.PathEscape(user) + "/" + url.PathEscape(track)
}

// Variant is one output flavour a platform offers.
type Variant struct {
	Kind     domain.Kind
	Platform string
	Name     string
	Ext      string
	Options  extractor.FetchOptions
	// Audio variants produce a sound-only file.
	Audio bool
	// TagInProcess runs the in-process tagger instead of relying on the extractor.
	TagInProcess bool
}

// Tag is the marker embedded in cached file names. It equals the kind so
// variants of different platforms never share a tag.
func (v Variant) Tag() string {
	return string(v.Kind)
}

func (v Variant) IsAudio() bool {
	return v.Audio
}

const (
	formatHighest = "bv*+ba/b"
	formatHD      = "bv*[height<=1080]+ba/b[height<=1080]"
	formatAudio   = "bestaudio/best"
)

var variants = map[string]map[string]Variant{
	YouTube: {
		"highest": {
			Kind: "yt-highest", Platform: YouTube, Name: "highest", Ext: constants.ExtMP4,
			Options: extractor.FetchOptions{Format: formatHighest, MergeOutputFormat: constants.ExtMP4, RemuxVideo: constants.ExtMP4},
		},
		"hd": {
			Kind: "yt-hd", Platform: YouTube, Name: "hd", Ext: constants.ExtMP4,
			Options: extractor.FetchOptions{Format: formatHD, MergeOutputFormat: constants.ExtMP4, RemuxVideo: constants.ExtMP4},
		},
		"audio": {
			Kind: "yt-audio", Platform: YouTube, Name: "audio", Ext: constants.ExtMP3, Audio: true, TagInProcess: true,
			Options: extractor.FetchOptions{Format: formatAudio, ExtractAudio: true, AudioFormat: constants.ExtMP3, AudioQuality: "0", EmbedMetadata: true},
		},
		"flac": {
			Kind: "yt-flac", Platform: YouTube, Name: "flac", Ext: constants.ExtFLAC, Audio: true, TagInProcess: true,
			Options: extractor.FetchOptions{Format: formatAudio, ExtractAudio: true, AudioFormat: constants.ExtFLAC, AudioQuality: "0"},
		},
	},
	TikTok: {
		"video": {
			Kind: "tt-video", Platform: TikTok, Name: "video", Ext: constants.ExtMP4,
			Options: extractor.FetchOptions{Format: formatHighest, MergeOutputFormat: constants.ExtMP4, RemuxVideo: constants.ExtMP4},
		},
	},
	SoundCloud: {
		"mp3": {
			Kind: "sc-mp3", Platform: SoundCloud, Name: "mp3", Ext: constants.ExtMP3, Audio: true,
			Options: extractor.FetchOptions{Format: formatAudio, ExtractAudio: true, AudioFormat: constants.ExtMP3, AudioQuality: "0", EmbedMetadata: true, EmbedThumbnail: true},
		},
	},
}

// VariantFor looks up a variant by platform and name.
func VariantFor(platform, name string) (Variant, bool) {
	v, ok := variants[platform][name]
	return v, ok
}

// JobTitle builds the title shown on the progress page, e.g. "YouTube - Clip".
func JobTitle(platform string, meta *domain.Metadata) string {
	fallback := "Video"
	if platform == SoundCloud {
		fallback = "Track"
	}
	title := meta.Title
	if platform == TikTok {
		title = meta.DisplayTitle(fallback)
	}
	if strings.TrimSpace(title) == "" {
		title = fallback
	}
	return Name(platform) + " - " + title
}
