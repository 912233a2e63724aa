package keysforkids

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abedl/abedl/internal/downloader"
)

const (
	// DefaultBaseURL is the site root the archive lives under.
	DefaultBaseURL = "https://www.keysforkids.org"
	// DefaultMaxPages bounds the archive pages a search may probe.
	DefaultMaxPages = 324

	entriesPerPage = 10
	probeRadius    = 5
	linkWindow     = 1000
	dateLiteral    = "January 2, 2006"
	archivePath    = "/podcasts/keys-for-kids/"
)

// ErrNotFound means no archive page within the probe budget listed the date.
var ErrNotFound = errors.New("devotional not found")

// PageSource fetches a page body. *fetch.Client satisfies it.
type PageSource interface {
	Page(ctx context.Context, rawURL string) (string, error)
}

// Located is a devotional found for a date.
type Located struct {
	Date time.Time
	URL  string
}

// Locator finds the devotional page published on a given date.
type Locator struct {
	Source   PageSource
	BaseURL  string
	MaxPages int
	Today    func() time.Time
	Logger   *log.Logger
}

// NewLocator returns a locator over source with default settings.
func NewLocator(source PageSource, logger *log.Logger) *Locator {
	return &Locator{Source: source, BaseURL: DefaultBaseURL, MaxPages: DefaultMaxPages, Logger: logger}
}

// Locate returns the devotional URL for date. It tries the date search
// first, then pages around an estimate of where the date falls in the
// archive, then page 1.
func (l *Locator) Locate(ctx context.Context, date time.Time) (string, error) {
	literal := date.Format(dateLiteral)
	link := l.linkPattern()

	body, err := l.Source.Page(ctx, l.searchURL(date))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		l.debug("date search failed", "date", date.Format(time.DateOnly), "err", err)
	} else if found := scanForDate(body, literal, link); found != "" {
		return found, nil
	}

	pages := l.ProbeOrder(date)
	l.debug("probing archive", "date", date.Format(time.DateOnly), "estimate", pages[0], "pages", len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		body, err := l.Source.Page(ctx, l.PageURL(page))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			l.debug("archive page failed", "page", page, "err", err)
			continue
		}
		if found := scanForDate(body, literal, link); found != "" {
			return found, nil
		}
	}
	return "", downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("%w for %s", ErrNotFound, date.Format(time.DateOnly)))
}

// LocateRange locates every day from start to end inclusive. Days that
// cannot be found are skipped.
func (l *Locator) LocateRange(ctx context.Context, start, end time.Time) ([]Located, error) {
	var out []Located
	for _, day := range Days(start, end) {
		url, err := l.Locate(ctx, day)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				l.warn("no devotional found", "date", day.Format(time.DateOnly))
				continue
			}
			return out, err
		}
		out = append(out, Located{Date: day, URL: url})
	}
	return out, nil
}

// ProbeOrder lists the archive pages searched for date after the date
// search misses: the estimate, then up to five pages either side, then
// page 1 when it was not already included.
func (l *Locator) ProbeOrder(date time.Time) []int {
	maxPages := l.maxPages()
	estimate := daysBetween(date, l.today()) / entriesPerPage
	if estimate < 1 {
		estimate = 1
	}
	if estimate > maxPages {
		estimate = maxPages
	}

	pages := []int{estimate}
	seen := map[int]bool{estimate: true}
	add := func(p int) {
		if p < 1 || p > maxPages || seen[p] {
			return
		}
		seen[p] = true
		pages = append(pages, p)
	}
	for k := 1; k <= probeRadius; k++ {
		add(estimate - k)
		add(estimate + k)
	}
	add(1)
	return pages
}

// PageURL returns the archive listing URL for a 1-based page number.
func (l *Locator) PageURL(page int) string {
	if page <= 1 {
		return l.baseURL() + archivePath
	}
	return fmt.Sprintf("%s%spage/%d/", l.baseURL(), archivePath, page)
}

func (l *Locator) searchURL(date time.Time) string {
	return l.baseURL() + archivePath + "?date=" + date.Format(time.DateOnly)
}

func (l *Locator) linkPattern() *regexp.Regexp {
	return regexp.MustCompile(`href="(` + regexp.QuoteMeta(l.baseURL()) + `/podcast/(?:keys-for-kids|default)/[^/"]+/)"`)
}

func (l *Locator) baseURL() string {
	if l.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimSuffix(l.BaseURL, "/")
}

func (l *Locator) maxPages() int {
	if l.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return l.MaxPages
}

func (l *Locator) today() time.Time {
	if l.Today != nil {
		return l.Today()
	}
	return time.Now()
}

func (l *Locator) debug(msg string, kv ...any) {
	if l.Logger != nil {
		l.Logger.Debug(msg, kv...)
	}
}

func (l *Locator) warn(msg string, kv ...any) {
	if l.Logger != nil {
		l.Logger.Warn(msg, kv...)
	}
}

// scanForDate finds the first occurrence of literal and returns the first
// devotional link in the window that follows it.
func scanForDate(body, literal string, link *regexp.Regexp) string {
	idx := strings.Index(body, literal)
	if idx < 0 {
		return ""
	}
	end := idx + linkWindow
	if end > len(body) {
		end = len(body)
	}
	m := link.FindStringSubmatch(body[idx:end])
	if m == nil {
		return ""
	}
	return m[1]
}

// Days lists the calendar days from start to end inclusive.
func Days(start, end time.Time) []time.Time {
	start = dateOnly(start)
	end = dateOnly(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
