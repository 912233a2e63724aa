// Package cbn downloads videos from cbn.com, including Flying House
// episodes, through yt-dlp.
package cbn

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/ytdlp"
)

const Name = "cbn"

var matcher = downloader.MustPatternMatcher(
	`(?:https?://)?(?:www\.)?cbn\.com/video/[\w-]+`,
	`(?:https?://)?(?:www\.)?cbn\.com/video/flying-house-episode-\d+`,
	`(?:https?://)?(?:www\.)?cbn\.com/shows/[\w-]+/[\w-]+`,
)

// Runner is the part of the yt-dlp client the handler uses.
type Runner interface {
	Info(ctx context.Context, rawURL string) (*ytdlp.Info, error)
	Download(ctx context.Context, rawURL string, opts ytdlp.DownloadOptions) (string, error)
}

// Handler implements downloader.Handler for CBN.
type Handler struct {
	opts    downloader.Options
	printer *downloader.Printer
	runner  Runner
}

// New fails when yt-dlp is not installed.
func New(opts downloader.Options, printer *downloader.Printer) (*Handler, error) {
	client := &ytdlp.Client{
		Cookies:            opts.Cookies,
		CookiesFromBrowser: opts.CookiesFromBrowser,
		UserAgent:          opts.UserAgent,
	}
	if !client.Available() {
		return nil, downloader.Wrap(downloader.CategoryUnsupported, fmt.Errorf("cbn downloads need yt-dlp: %w", ytdlp.ErrNotInstalled))
	}
	return NewWithRunner(opts, printer, client), nil
}

func NewWithRunner(opts downloader.Options, printer *downloader.Printer, runner Runner) *Handler {
	return &Handler{opts: opts, printer: printer, runner: runner}
}

func Factory(printer *downloader.Printer) downloader.Factory {
	return func(opts downloader.Options) (downloader.Handler, error) {
		return New(opts, printer)
	}
}

func (h *Handler) Name() string { return Name }

func (h *Handler) Examples() []string {
	return []string{
		"https://www.cbn.com/video/flying-house-episode-1",
		"https://www.cbn.com/shows/superbook/some-episode",
	}
}

func (h *Handler) CanHandle(rawURL string) bool {
	return matcher.Match(rawURL)
}

// IsPlaylist is always false. CBN pages hold a single video.
func (h *Handler) IsPlaylist(string) bool {
	return false
}

func (h *Handler) FetchMetadata(ctx context.Context, rawURL string) (*downloader.MediaInfo, error) {
	info, err := h.runner.Info(ctx, rawURL)
	if err != nil {
		return nil, wrap(ctx, err, "fetching CBN video info")
	}
	return &downloader.MediaInfo{
		ID:          info.ID,
		Title:       downloader.StringsOrFallback(info.Title, "Unknown Title"),
		URL:         rawURL,
		Uploader:    downloader.StringsOrFallback(info.Uploader, "CBN"),
		Description: info.Description,
		Duration:    info.DurationValue(),
		UploadDate:  info.UploadDateISO(),
		Views:       info.ViewCount,
		Thumbnail:   info.Thumbnail,
	}, nil
}

// FetchPlaylistMetadata returns the single video as a one-entry playlist.
func (h *Handler) FetchPlaylistMetadata(ctx context.Context, rawURL string) (*downloader.PlaylistInfo, error) {
	info, err := h.FetchMetadata(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &downloader.PlaylistInfo{ID: info.ID, Title: info.Title, Uploader: info.Uploader, Entries: []downloader.MediaInfo{*info}}, nil
}

func (h *Handler) DownloadOne(ctx context.Context, rawURL string) (string, error) {
	info, err := h.runner.Info(ctx, rawURL)
	if err != nil {
		return "", wrap(ctx, err, "fetching CBN video info")
	}

	ext := downloader.StringsOrFallback(info.Ext, "mp4")
	if h.opts.AudioOnly {
		ext = downloader.StringsOrFallback(h.opts.AudioFormat, "%(ext)s")
	}
	filename := EpisodeFilename(rawURL, downloader.StringsOrFallback(info.Title, "CBN Video"), info.Description, ext)
	h.printer.Log(downloader.LogInfo, "saving as: "+filename)

	format := "best"
	if h.opts.AudioOnly {
		format = "bestaudio/best"
	} else if q := strings.TrimSuffix(strings.ToLower(h.opts.Quality), "p"); q != "" && q != "best" {
		if q == "worst" {
			format = "worst"
		} else if height, convErr := strconv.Atoi(q); convErr == nil {
			format = fmt.Sprintf("best[height<=%d]/best[height<=%d]/best", height, height+100)
		}
	}

	path, err := h.runner.Download(ctx, rawURL, ytdlp.DownloadOptions{
		OutputTemplate:  filepath.Join(h.opts.OutputDir, filename),
		Format:          format,
		AudioOnly:       h.opts.AudioOnly,
		AudioFormat:     h.opts.AudioFormat,
		Subtitles:       h.opts.Subtitles,
		EmbedSubtitles:  h.opts.EmbedSubtitles,
		WriteInfoJSON:   h.opts.WriteInfoJSON,
		WriteThumbnail:  h.opts.WriteThumbnail,
		ForceOverwrites: h.opts.OnDuplicate.OrDefault() == downloader.DuplicatePolicyOverwrite,
	})
	if err != nil {
		return "", wrap(ctx, err, "downloading CBN video")
	}
	return path, nil
}

func (h *Handler) ListFormats(ctx context.Context, rawURL string) ([]downloader.Format, error) {
	info, err := h.runner.Info(ctx, rawURL)
	if err != nil {
		return nil, wrap(ctx, err, "listing CBN formats")
	}
	out := make([]downloader.Format, 0, len(info.Formats))
	for _, f := range info.Formats {
		out = append(out, downloader.Format{
			ID:         f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Note:       f.FormatNote,
			Size:       f.Size(),
			Bitrate:    int(f.TBR * 1000),
			HasVideo:   f.HasVideo(),
			HasAudio:   f.HasAudio(),
		})
	}
	return out, nil
}

func wrap(ctx context.Context, err error, action string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return downloader.Wrap(downloader.CategoryExtraction, fmt.Errorf("%s: %w", action, err))
}

var (
	flyingHouseURL = regexp.MustCompile(`flying-house-episode-(\d+)`)
	titleEpisode   = regexp.MustCompile(`(?i)episode\s*(\d+)`)
	stripSeries    = regexp.MustCompile(`(?i)flying\s*house\s*-?\s*`)
	stripEpisode   = regexp.MustCompile(`(?i)episode\s*\d+\s*-?\s*`)
	unsafeChars    = regexp.MustCompile(`[^\w\-_\. ]`)
	multiSpace     = regexp.MustCompile(`\s+`)
	doubleDash     = regexp.MustCompile(`-\s*-`)
)

// Episode is the parsed series, episode number and title of a video.
type Episode struct {
	Series string
	Number int
	Title  string
}

// ParseEpisode derives series and episode data from the URL and title.
// A description longer than three characters replaces the title.
func ParseEpisode(rawURL, title, description string) Episode {
	ep := Episode{Series: "CBN Video", Title: title}
	if d := strings.TrimSpace(description); len(d) > 3 {
		ep.Title = d
	}

	if m := flyingHouseURL.FindStringSubmatch(rawURL); m != nil {
		ep.Series = "Flying House"
		ep.Number, _ = strconv.Atoi(m[1])
	}
	if ep.Number == 0 {
		if m := titleEpisode.FindStringSubmatch(title); m != nil {
			ep.Number, _ = strconv.Atoi(m[1])
		}
	}

	clean := stripSeries.ReplaceAllString(ep.Title, "")
	clean = stripEpisode.ReplaceAllString(clean, "")
	clean = strings.Trim(clean, " -")
	if clean != "" {
		ep.Title = clean
	}
	return ep
}

// EpisodeFilename builds "Series - E01 - Title.ext", or "Series - Title.ext"
// when there is no episode number.
func EpisodeFilename(rawURL, title, description, ext string) string {
	ep := ParseEpisode(rawURL, title, description)
	series := unsafeChars.ReplaceAllString(ep.Series, "")
	name := unsafeChars.ReplaceAllString(ep.Title, "")

	var filename string
	if ep.Number > 0 {
		filename = fmt.Sprintf("%s - E%02d - %s.%s", series, ep.Number, name, ext)
	} else {
		filename = fmt.Sprintf("%s - %s.%s", series, name, ext)
	}
	filename = multiSpace.ReplaceAllString(filename, " ")
	return doubleDash.ReplaceAllString(filename, "-")
}
