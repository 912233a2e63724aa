// Package keysforkids downloads Keys for Kids daily devotional audio and
// finds devotionals by date in the site's podcast archive.
package keysforkids

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/fetch"
)

const (
	Name = "keysforkids"

	siteDomain = "keysforkids.org"
	artist     = "Keys for Kids"
	album      = "Keys for Kids Devotional"
)

// Client is the HTTP access the handler needs. *fetch.Client satisfies it.
type Client interface {
	PageSource
	Stream(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error)
}

// Handler implements downloader.Handler for keysforkids.org.
type Handler struct {
	opts     downloader.Options
	printer  *downloader.Printer
	client   Client
	maxPages int
	baseURL  string
}

// New builds a handler on the shared HTTP client.
func New(opts downloader.Options, printer *downloader.Printer) *Handler {
	client := fetch.New(fetch.Options{UserAgent: opts.UserAgent, Timeout: opts.Timeout, Retry: fetch.RetryAttempts(opts.Retries)})
	return NewWithClient(opts, printer, client)
}

// NewWithClient builds a handler on client, for tests and custom transports.
func NewWithClient(opts downloader.Options, printer *downloader.Printer, client Client) *Handler {
	return &Handler{opts: opts, printer: printer, client: client, maxPages: DefaultMaxPages, baseURL: DefaultBaseURL}
}

// Factory returns a registry factory bound to printer.
func Factory(printer *downloader.Printer) downloader.Factory {
	return func(opts downloader.Options) (downloader.Handler, error) {
		return New(opts, printer), nil
	}
}

// SetMaxPages bounds archive searches. Values below 1 keep the default.
func (h *Handler) SetMaxPages(n int) {
	if n > 0 {
		h.maxPages = n
	}
}

// SetBaseURL points the archive search at another site root.
func (h *Handler) SetBaseURL(base string) {
	if base != "" {
		h.baseURL = base
	}
}

// Locator returns a date locator sharing the handler's client.
func (h *Handler) Locator() *Locator {
	l := NewLocator(h.client, h.printer.Logger())
	l.MaxPages = h.maxPages
	l.BaseURL = h.baseURL
	return l
}

func (h *Handler) Name() string { return Name }

func (h *Handler) Examples() []string {
	return []string{"https://www.keysforkids.org/podcast/keys-for-kids/a-devotional-title/"}
}

// CanHandle accepts any URL whose registrable domain is keysforkids.org.
func (h *Handler) CanHandle(rawURL string) bool {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
	return err == nil && domain == siteDomain
}

// IsPlaylist is always false. Each page holds one devotional.
func (h *Handler) IsPlaylist(string) bool {
	return false
}

// FetchDevotional loads and parses a devotional page.
func (h *Handler) FetchDevotional(ctx context.Context, pageURL string) (Devotional, error) {
	html, err := h.client.Page(ctx, pageURL)
	if err != nil {
		return Devotional{}, fetchError(ctx, err, "fetching devotional page")
	}
	return ParsePage(pageURL, html), nil
}

func (h *Handler) FetchMetadata(ctx context.Context, rawURL string) (*downloader.MediaInfo, error) {
	d, err := h.FetchDevotional(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	info := mediaInfo(d)
	return &info, nil
}

func (h *Handler) FetchPlaylistMetadata(ctx context.Context, rawURL string) (*downloader.PlaylistInfo, error) {
	info, err := h.FetchMetadata(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &downloader.PlaylistInfo{Title: info.Title, Uploader: artist, Entries: []downloader.MediaInfo{*info}}, nil
}

func (h *Handler) DownloadOne(ctx context.Context, rawURL string) (string, error) {
	d, err := h.FetchDevotional(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if d.AudioURL == "" {
		return "", downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("no audio file found on page: %s", rawURL))
	}
	h.printer.Log(downloader.LogDebug, "found audio URL: "+d.AudioURL)

	outputPath, keep, err := downloader.TargetPath(h.opts.OutputDir, d.Filename(), h.opts.OnDuplicate)
	if err != nil {
		return "", err
	}
	if keep {
		h.printer.Log(downloader.LogInfo, "already downloaded: "+outputPath)
		return outputPath, nil
	}

	body, size, err := h.client.Stream(ctx, d.AudioURL)
	if err != nil {
		return "", fetchError(ctx, err, "downloading audio")
	}
	defer body.Close()
	if _, err := h.printer.SaveStream(ctx, outputPath, body, size, downloader.StringsOrFallback(d.Title, d.DateISO())); err != nil {
		return "", err
	}

	metadata := downloader.BuildItemMetadata(Name, mediaInfo(d), outputPath, nil)
	metadata.Artist = artist
	metadata.Album = album
	metadata.Comment = d.Verse
	downloader.EmbedAudioTags(metadata, outputPath, h.printer)
	if h.opts.WriteInfoJSON {
		if err := downloader.WriteSidecar(outputPath, metadata); err != nil {
			h.printer.Log(downloader.LogWarn, fmt.Sprintf("warning: %v", err))
		}
	}
	return outputPath, nil
}

func mediaInfo(d Devotional) downloader.MediaInfo {
	info := downloader.MediaInfo{
		Title:       downloader.StringsOrFallback(d.Title, "Unknown Title"),
		URL:         d.URL,
		Uploader:    artist,
		Description: d.Verse,
		Extra:       map[string]string{},
	}
	if !d.Date.IsZero() {
		info.UploadDate = d.DateISO()
	}
	if d.Verse != "" {
		info.Extra["verse"] = d.Verse
	}
	if d.AudioURL != "" {
		info.Extra["audio_url"] = d.AudioURL
	}
	return info
}

func fetchError(ctx context.Context, err error, action string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var se *fetch.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("%s: %w", action, err))
	}
	return downloader.Wrap(downloader.CategoryNetwork, fmt.Errorf("%s: %w", action, err))
}
