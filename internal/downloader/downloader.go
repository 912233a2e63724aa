package downloader

import (
	"context"
	"errors"
	"time"
)

// Options describes how handlers fetch and save media for a run.
type Options struct {
	OutputDir          string
	Quality            string
	AudioOnly          bool
	VideoFormat        string
	AudioFormat        string
	Subtitles          bool
	EmbedSubtitles     bool
	WriteInfoJSON      bool
	WriteThumbnail     bool
	PlaylistStart      int
	PlaylistEnd        int
	PlaylistItems      string
	CookiesFromBrowser string
	Cookies            string
	UserAgent          string
	Retries            int
	OnDuplicate        DuplicatePolicy
	Extractor          string
	Jobs               int
	Quiet              bool
	Timeout            time.Duration
}

// DefaultOptions returns the options used when neither config nor flags
// say otherwise.
func DefaultOptions() Options {
	return Options{
		OutputDir:     "./downloads",
		Quality:       "best",
		VideoFormat:   "mp4",
		AudioFormat:   "mp3",
		PlaylistStart: 1,
		Extractor:     "auto",
		Jobs:          1,
		Timeout:       3 * time.Minute,
	}
}

// Selection returns the playlist window and item expression of o.
func (o Options) Selection() Selection {
	return Selection{Start: o.PlaylistStart, End: o.PlaylistEnd, Items: o.PlaylistItems}
}

// MediaInfo is the metadata of a single downloadable item.
type MediaInfo struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Uploader    string            `json:"uploader,omitempty"`
	Description string            `json:"description,omitempty"`
	Duration    time.Duration     `json:"duration,omitempty"`
	UploadDate  string            `json:"upload_date,omitempty"`
	Views       int64             `json:"view_count,omitempty"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// PlaylistInfo lists the entries of a playlist in source order.
type PlaylistInfo struct {
	ID       string      `json:"id,omitempty"`
	Title    string      `json:"title"`
	Uploader string      `json:"uploader,omitempty"`
	Entries  []MediaInfo `json:"entries"`
}

// Format is one downloadable rendition reported by a handler.
type Format struct {
	ID         string `json:"id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	Note       string `json:"note,omitempty"`
	Size       int64  `json:"filesize,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	HasVideo   bool   `json:"has_video"`
	HasAudio   bool   `json:"has_audio"`
}

// Handler downloads media from one platform.
type Handler interface {
	Name() string
	CanHandle(rawURL string) bool
	IsPlaylist(rawURL string) bool
	FetchMetadata(ctx context.Context, rawURL string) (*MediaInfo, error)
	FetchPlaylistMetadata(ctx context.Context, rawURL string) (*PlaylistInfo, error)
	// DownloadOne saves a single item and returns the written file path.
	DownloadOne(ctx context.Context, rawURL string) (string, error)
}

// FormatLister is implemented by handlers that can enumerate formats.
type FormatLister interface {
	ListFormats(ctx context.Context, rawURL string) ([]Format, error)
}

// Describer is implemented by handlers that advertise example URLs.
type Describer interface {
	Examples() []string
}

// Factory builds a handler bound to a set of options.
type Factory func(opts Options) (Handler, error)

type reportedError struct {
	err error
}

func (e reportedError) Error() string {
	return e.err.Error()
}

func (e reportedError) Unwrap() error {
	return e.err
}

// MarkReported wraps err so callers know it was already printed.
func MarkReported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported returns true if the error has already been printed to stderr.
func IsReported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}
