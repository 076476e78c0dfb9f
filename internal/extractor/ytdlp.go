package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/logger"
)

// YTDLP drives the yt-dlp binary through go-ytdlp.
type YTDLP struct {
	log         *logger.Logger
	cookiesFile string
	userAgent   string
}

type YTDLPConfig struct {
	// CookiesFile is passed through only when non-empty.
	CookiesFile string
	UserAgent   string
}

func NewYTDLP(cfg YTDLPConfig, log *logger.Logger) *YTDLP {
	ua := cfg.UserAgent
	if ua == "" {
		ua = constants.DefaultUserAgent
	}
	return &YTDLP{
		log:         log.WithComponent("ytdlp"),
		cookiesFile: cfg.CookiesFile,
		userAgent:   ua,
	}
}

// base applies the options every invocation shares.
func (y *YTDLP) base() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoCheckCertificates().
		NoCacheDir().
		WindowsFilenames().
		AddHeaders("User-Agent:" + y.userAgent).
		Retries(constants.ExtractorRetries).
		FragmentRetries(constants.ExtractorFragmentRetries).
		ConcurrentFragments(constants.ExtractorFragments)
	if y.cookiesFile != "" {
		cmd = cmd.Cookies(y.cookiesFile)
	}
	return cmd
}

func (y *YTDLP) Probe(ctx context.Context, url string) (*domain.Metadata, error) {
	res, err := y.base().
		DumpSingleJSON().
		SkipDownload().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	if res == nil || strings.TrimSpace(res.Stdout) == "" {
		return nil, ErrNoMetadata
	}
	return parseInfo([]byte(res.Stdout))
}

func (y *YTDLP) Fetch(ctx context.Context, url string, opts FetchOptions, progress ProgressFunc) (string, error) {
	pp := &postprocessTracker{name: postprocessorName(opts), progress: progress}
	cmd := y.fetchCommand(opts).
		ProgressFunc(constants.DefaultProgressFreq, func(update ytdlp.ProgressUpdate) {
			switch update.Status {
			case ytdlp.ProgressStatusDownloading:
				progress.emit(downloadEvent(update))
			case ytdlp.ProgressStatusFinished:
				progress.emit(Event{Kind: EventFinished})
			case ytdlp.ProgressStatusPostProcessing:
				pp.start()
			}
		})

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	pp.finish()

	path, err := reportedPath(res)
	if err != nil {
		y.log.Debug("No extracted info after fetch", "url", url, "error", err)
	}
	return path, nil
}

// fetchCommand builds the download invocation. The info JSON is printed so
// the result carries the output file name.
func (y *YTDLP) fetchCommand(opts FetchOptions) *ytdlp.Command {
	cmd := y.base().Output(opts.OutputTemplate).PrintJSON()
	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeOutputFormat).
			PostProcessorArgs("ffmpeg:-movflags faststart")
	}
	if opts.RemuxVideo != "" {
		cmd = cmd.RemuxVideo(opts.RemuxVideo)
	}
	if opts.ExtractAudio {
		cmd = cmd.ExtractAudio()
		if opts.AudioFormat != "" {
			cmd = cmd.AudioFormat(opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			cmd = cmd.AudioQuality(opts.AudioQuality)
		}
	}
	if opts.EmbedMetadata {
		cmd = cmd.EmbedMetadata()
	}
	if opts.EmbedThumbnail {
		cmd = cmd.EmbedThumbnail()
	}
	return cmd
}

// reportedPath pulls the output file name from the printed info JSON. It may
// name the pre-postprocessing file, so callers must still check the disk.
func reportedPath(res *ytdlp.Result) (string, error) {
	if res == nil {
		return "", nil
	}
	info, err := res.GetExtractedInfo()
	if err != nil {
		return "", err
	}
	for _, i := range info {
		if i.Filename != nil && *i.Filename != "" {
			return *i.Filename, nil
		}
		if i.AltFilename != nil && *i.AltFilename != "" {
			return *i.AltFilename, nil
		}
	}
	return "", nil
}

func downloadEvent(update ytdlp.ProgressUpdate) Event {
	e := Event{
		Kind:       EventDownloading,
		Downloaded: int64(update.DownloadedBytes),
		Total:      int64(update.TotalBytes),
	}
	if !update.Started.IsZero() {
		if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
			speed := float64(update.DownloadedBytes) / elapsed
			e.Speed = &speed
		}
	}
	if eta := update.ETA(); eta > 0 {
		secs := eta.Seconds()
		e.ETA = &secs
	}
	return e
}

// postprocessorName names the stage shown while ffmpeg runs.
func postprocessorName(opts FetchOptions) string {
	switch {
	case opts.ExtractAudio:
		return "ExtractAudio"
	case opts.RemuxVideo != "":
		return "VideoRemuxer"
	case strings.Contains(opts.Format, "+"):
		return "Merger"
	default:
		return "Postprocess"
	}
}

// postprocessTracker turns repeated post_processing updates into one
// started event and one finished event.
type postprocessTracker struct {
	progress ProgressFunc
	name     string
	mu       sync.Mutex
	started  bool
}

func (p *postprocessTracker) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.progress.emit(Event{Kind: EventPostprocess, Name: p.name})
}

func (p *postprocessTracker) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.progress.emit(Event{Kind: EventPostprocess, Name: p.name, Done: true})
}
