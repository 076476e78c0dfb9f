// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort           = "8080"
	DefaultDBPath         = "downtil.db"
	DefaultDownloadsDir   = "./downloads"
	DefaultCookiesFile    = "./cookies.txt"
	DefaultMaxWorkers     = 4
	DefaultQueueCapacity  = 256
	DefaultProbeCacheTTL  = 30 * time.Minute
	DefaultHTTPTimeout    = 20 * time.Second
	DefaultRetryCount     = 3
	DefaultRetryBase      = 1 * time.Second
	DefaultRequestsPerSec = 5
	DefaultProgressFreq   = 500 * time.Millisecond
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	ShutdownTimeout       = 5 * time.Second
)

// Extractor tuning passed to yt-dlp
const (
	ExtractorRetries         = "10"
	ExtractorFragmentRetries = "15"
	ExtractorFragments       = 1
	ExtractorTitleBytes      = 200
)

// MIME Types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeWEBP = "image/webp"
	MimeTypeVTT  = "text/vtt"
)

// File Extensions
const (
	ExtMP4  = "mp4"
	ExtMP3  = "mp3"
	ExtFLAC = "flac"
	ExtJPG  = "jpg"
	ExtPNG  = "png"
	ExtWEBP = "webp"
	ExtVTT  = "vtt"
)

// Partial files left behind by the extractor
var TempExtensions = []string{".part", ".ytdl", ".temp", ".tmp"}

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
