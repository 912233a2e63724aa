// Package youtube downloads videos, audio and playlists from YouTube.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/fetch"
	"github.com/abedl/abedl/internal/ytdlp"
)

// Name is the registry name of the handler.
const Name = "youtube"

// MaxPlaylistEntries caps how many playlist entries are listed.
const MaxPlaylistEntries = 100

const (
	ExtractorAuto   = "auto"
	ExtractorNative = "native"
	ExtractorYTDLP  = "yt-dlp"
)

var matcher = downloader.MustPatternMatcher(
	`(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/watch\?v=[\w-]+`,
	`(?:https?://)?(?:www\.|m\.|music\.)?youtube\.com/playlist\?list=[\w-]+`,
	`(?:https?://)?youtu\.be/[\w-]+`,
	`(?:https?://)?(?:www\.|m\.)?youtube\.com/(?:shorts|live)/[\w-]+`,
	`(?:https?://)?(?:www\.)?youtube\.com/channel/[\w-]+`,
	`(?:https?://)?(?:www\.)?youtube\.com/@[\w.-]+`,
	`(?:https?://)?(?:www\.)?youtube\.com/c/[\w-]+`,
)

type source interface {
	name() string
	info(ctx context.Context, rawURL string) (*downloader.MediaInfo, error)
	playlist(ctx context.Context, rawURL string, limit int) (*downloader.PlaylistInfo, error)
	formats(ctx context.Context, rawURL string) ([]downloader.Format, error)
	download(ctx context.Context, rawURL string) (string, error)
}

// Handler implements downloader.Handler for YouTube.
type Handler struct {
	opts    downloader.Options
	printer *downloader.Printer
	src     source
}

// New picks a source from opts.Extractor. "auto" uses yt-dlp when it is
// installed and the native client otherwise.
func New(opts downloader.Options, printer *downloader.Printer) (*Handler, error) {
	yt := &ytdlp.Client{
		Cookies:            opts.Cookies,
		CookiesFromBrowser: opts.CookiesFromBrowser,
		UserAgent:          opts.UserAgent,
	}

	extractor := strings.ToLower(strings.TrimSpace(opts.Extractor))
	if extractor == "" || extractor == ExtractorAuto {
		extractor = ExtractorNative
		if yt.Available() {
			extractor = ExtractorYTDLP
		}
	}

	h := &Handler{opts: opts, printer: printer}
	switch extractor {
	case ExtractorYTDLP:
		if !yt.Available() {
			return nil, downloader.Wrap(downloader.CategoryUnsupported, ytdlp.ErrNotInstalled)
		}
		h.src = &ytdlpSource{client: yt, opts: opts, printer: printer}
	case ExtractorNative:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Minute
		}
		httpClient := fetch.New(fetch.Options{UserAgent: opts.UserAgent, Timeout: timeout, Retry: fetch.RetryAttempts(opts.Retries)}).HTTP()
		h.src = &nativeSource{client: newKkdaiClient(httpClient), opts: opts, printer: printer}
	default:
		return nil, downloader.Wrapf(downloader.CategoryUnsupported, "unknown youtube extractor %q (want auto, native or yt-dlp)", opts.Extractor)
	}
	return h, nil
}

// NewWithClient returns a handler on the native source backed by client.
func NewWithClient(opts downloader.Options, printer *downloader.Printer, client Client) *Handler {
	return &Handler{opts: opts, printer: printer, src: &nativeSource{client: client, opts: opts, printer: printer}}
}

// Factory returns a registry factory bound to printer.
func Factory(printer *downloader.Printer) downloader.Factory {
	return func(opts downloader.Options) (downloader.Handler, error) {
		return New(opts, printer)
	}
}

func (h *Handler) Name() string { return Name }

// Extractor names the source in use.
func (h *Handler) Extractor() string { return h.src.name() }

func (h *Handler) Examples() []string {
	return []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/playlist?list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf",
	}
}

func (h *Handler) CanHandle(rawURL string) bool {
	return matcher.Match(rawURL)
}

func (h *Handler) IsPlaylist(rawURL string) bool {
	return isPlaylistURL(rawURL)
}

func (h *Handler) FetchMetadata(ctx context.Context, rawURL string) (*downloader.MediaInfo, error) {
	info, err := h.src.info(ctx, normalizeURL(rawURL))
	if err != nil {
		return nil, classify(err, "fetching video info")
	}
	return info, nil
}

func (h *Handler) FetchPlaylistMetadata(ctx context.Context, rawURL string) (*downloader.PlaylistInfo, error) {
	pl, err := h.src.playlist(ctx, playlistURL(rawURL), MaxPlaylistEntries)
	if err != nil {
		return nil, classify(err, "fetching playlist")
	}
	if len(pl.Entries) > MaxPlaylistEntries {
		pl.Entries = pl.Entries[:MaxPlaylistEntries]
	}
	return pl, nil
}

func (h *Handler) DownloadOne(ctx context.Context, rawURL string) (string, error) {
	path, err := h.src.download(ctx, normalizeURL(rawURL))
	if err != nil {
		return "", classify(err, "download failed")
	}
	return path, nil
}

func (h *Handler) ListFormats(ctx context.Context, rawURL string) ([]downloader.Format, error) {
	formats, err := h.src.formats(ctx, normalizeURL(rawURL))
	if err != nil {
		return nil, classify(err, "listing formats")
	}
	return formats, nil
}

// classify tags source errors. Bot checks become restricted errors that
// point at browser cookies.
func classify(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if downloader.CategoryOf(err) != downloader.CategoryUnknown {
		return err
	}
	if errors.Is(err, ytdlp.ErrNotInstalled) {
		return downloader.Wrap(downloader.CategoryUnsupported, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "bot") || strings.Contains(msg, "sign in"):
		return downloader.Wrap(downloader.CategoryRestricted,
			fmt.Errorf("%s: YouTube requires sign-in (try --cookies-from-browser firefox): %w", action, err))
	case strings.Contains(msg, "private") || strings.Contains(msg, "login required"):
		return downloader.Wrap(downloader.CategoryRestricted, fmt.Errorf("%s: %w", action, err))
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("%s: %w", action, err))
	}
	return downloader.Wrap(downloader.CategoryExtraction, fmt.Errorf("%s: %w", action, err))
}
