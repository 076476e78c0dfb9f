package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/httpclient"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/internal/storage"
)

// MediaService resolves sources and proxies their side assets.
type MediaService struct {
	Prober extractor.Prober
	Client *httpclient.Client
	Logger *logger.Logger
}

func NewMediaService(prober extractor.Prober, client *httpclient.Client, log *logger.Logger) *MediaService {
	return &MediaService{
		Prober: prober,
		Client: client,
		Logger: log.WithComponent("media"),
	}
}

// Probe resolves metadata for an arbitrary source URL.
func (s *MediaService) Probe(ctx context.Context, url string) (*domain.Metadata, error) {
	meta, err := s.Prober.Probe(ctx, url)
	if err != nil {
		return nil, err
	}
	if meta.ID == "" {
		return nil, extractor.ErrNoMetadata
	}
	return meta, nil
}

// ProbeID resolves metadata for a media id on platform and returns the
// canonical URL it was resolved from.
func (s *MediaService) ProbeID(ctx context.Context, plat, id string) (*domain.Metadata, string, error) {
	url, err := platform.CanonicalURL(plat, id)
	if err != nil {
		return nil, "", err
	}
	meta, err := s.Probe(ctx, url)
	if err != nil {
		s.Logger.WithSource(plat, id).Debug("Probe failed", "error", err)
		return nil, url, err
	}
	return meta, url, nil
}

// Attachment is a proxied file ready to be served as a download.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Thumbnail fetches the best thumbnail or cover for a source.
func (s *MediaService) Thumbnail(ctx context.Context, plat string, meta *domain.Metadata) (*Attachment, error) {
	if meta.Thumbnail == "" {
		return nil, extractor.ErrNoThumbnail
	}
	asset, err := s.Client.Get(ctx, meta.Thumbnail)
	if err != nil {
		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}

	ct := asset.ContentType
	if ct == "" {
		ct = constants.MimeTypeJPEG
	}
	return &Attachment{
		Name:        storage.Sanitize(thumbnailBase(plat, meta), imageExt(ct)),
		ContentType: ct,
		Data:        asset.Data,
	}, nil
}

func thumbnailBase(plat string, meta *domain.Metadata) string {
	switch plat {
	case platform.TikTok:
		return meta.DisplayTitle("tiktok")
	case platform.SoundCloud:
		artist := meta.Creator
		if artist == "" {
			artist = "Artist"
		}
		title := meta.Title
		if title == "" {
			title = "cover"
		}
		return artist + " - " + title
	default:
		if meta.Title == "" {
			return "thumbnail"
		}
		return meta.Title
	}
}

func imageExt(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, constants.MimeTypePNG):
		return constants.ExtPNG
	case strings.HasPrefix(contentType, constants.MimeTypeWEBP):
		return constants.ExtWEBP
	default:
		return constants.ExtJPG
	}
}

// Subtitles fetches the default subtitle track for a source.
func (s *MediaService) Subtitles(ctx context.Context, meta *domain.Metadata) (*Attachment, error) {
	sub := meta.Subtitle
	if sub == nil || sub.URL == "" {
		return nil, extractor.ErrNoSubtitles
	}
	asset, err := s.Client.Get(ctx, sub.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch subtitles: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = "subtitles"
	}
	ext := sub.Ext
	if ext == "" {
		ext = constants.ExtVTT
	}
	return &Attachment{
		Name:        storage.Sanitize(fmt.Sprintf("%s [%s]", title, sub.Lang), ext),
		ContentType: constants.MimeTypeVTT,
		Data:        asset.Data,
	}, nil
}
