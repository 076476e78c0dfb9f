package tagging

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/httpclient"
	"github.com/cesargomez89/downtil/internal/logger"
)

// Tags is what gets written into an audio file.
type Tags struct {
	Title   string
	Artist  string
	Comment string
	URL     string
	Cover   []byte
}

// TagsFor builds tags from probed metadata. Cover is left empty.
func TagsFor(meta *domain.Metadata) *Tags {
	return &Tags{
		Title:   meta.DisplayTitle(""),
		Artist:  meta.Creator,
		Comment: meta.Description,
		URL:     meta.WebpageURL,
	}
}

// TagFile writes metadata tags to the audio file at filePath.
func TagFile(filePath string, tags *Tags) error {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".flac":
		return tagFLAC(filePath, tags)
	case ".mp3":
		return tagMP3(filePath, tags)
	default:
		return fmt.Errorf("unsupported file format: %s", ext)
	}
}

// Tagger fetches cover art and tags finished audio downloads.
type Tagger struct {
	client *httpclient.Client
	log    *logger.Logger
}

func NewTagger(client *httpclient.Client, log *logger.Logger) *Tagger {
	return &Tagger{
		client: client,
		log:    log.WithComponent("tagging"),
	}
}

// Tag writes title, artist and cover to filePath. A failed cover fetch only
// drops the picture.
func (t *Tagger) Tag(ctx context.Context, filePath string, meta *domain.Metadata) error {
	tags := TagsFor(meta)
	if meta.Thumbnail != "" && t.client != nil {
		asset, err := t.client.Get(ctx, meta.Thumbnail)
		if err != nil {
			t.log.Warn("Failed to fetch cover art", "url", meta.Thumbnail, "error", err)
		} else {
			tags.Cover = asset.Data
		}
	}
	return TagFile(filePath, tags)
}

// tagFLAC replaces the Vorbis comment block and adds a front cover picture.
func tagFLAC(filePath string, tags *Tags) error {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	kept := f.Meta[:0]
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			continue
		}
		if block.Type == flac.Picture && len(tags.Cover) > 0 {
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	vc, err := newVorbisComment(tags)
	if err != nil {
		return fmt.Errorf("failed to build vorbis comment: %w", err)
	}
	vcBlock := vc.Marshal()
	f.Meta = append(f.Meta, &vcBlock)

	if len(tags.Cover) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", tags.Cover, detectMime(tags.Cover))
		if err == nil {
			picBlock := pic.Marshal()
			f.Meta = append(f.Meta, &picBlock)
		}
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func newVorbisComment(tags *Tags) (*flacvorbis.MetaDataBlockVorbisComment, error) {
	vc := flacvorbis.New()

	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		return vc.Add(key, value)
	}

	for _, kv := range [][2]string{
		{flacvorbis.FIELD_TITLE, tags.Title},
		{flacvorbis.FIELD_ARTIST, tags.Artist},
		{flacvorbis.FIELD_DESCRIPTION, tags.Comment},
		{"URL", tags.URL},
	} {
		if err := add(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return vc, nil
}

// tagMP3 writes ID3v2 tags to an MP3 file.
func tagMP3(filePath string, tags *Tags) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)

	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        tags.Comment,
		})
	}
	if tags.URL != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "URL",
			Value:       tags.URL,
		})
	}

	if len(tags.Cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMime(tags.Cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     tags.Cover,
		})
	}

	return tag.Save()
}

// detectMime sniffs the image type so PNG covers aren't labelled as image/jpeg.
func detectMime(data []byte) string {
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
