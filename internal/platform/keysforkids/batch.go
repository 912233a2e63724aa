package keysforkids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abedl/abedl/internal/app"
	"github.com/abedl/abedl/internal/downloader"
)

// DayResult is the outcome for one day of a range download.
type DayResult struct {
	Date time.Time
	URL  string
	Path string
	Err  error
}

// Found reports whether the day's devotional was located.
func (r DayResult) Found() bool {
	return r.URL != ""
}

// DownloadByDate locates the devotional for date and downloads it.
func (h *Handler) DownloadByDate(ctx context.Context, date time.Time) (string, error) {
	pageURL, err := h.Locator().Locate(ctx, date)
	if err != nil {
		return "", err
	}
	h.printer.Log(downloader.LogInfo, fmt.Sprintf("found devotional for %s: %s", date.Format(time.DateOnly), pageURL))
	return h.DownloadOne(ctx, pageURL)
}

// DownloadRange downloads every day from start to end inclusive with up
// to jobs days in flight. Missing or failed days are reported and
// skipped. Results are in date order.
func (h *Handler) DownloadRange(ctx context.Context, start, end time.Time, jobs int) ([]DayResult, error) {
	days := Days(start, end)
	if len(days) == 0 {
		return nil, downloader.Wrap(downloader.CategoryInvalidURL, errors.New("date range is empty"))
	}
	if jobs > 1 {
		h.printer.DisableProgress()
	}
	locator := h.Locator()

	results := make([]DayResult, 0, len(days))
	var ok, failed, skipped int
	var totalBytes int64

	fetchDay := func(ctx context.Context, i int) DayResult {
		res := DayResult{Date: days[i]}
		res.URL, res.Err = locator.Locate(ctx, days[i])
		if res.Err != nil {
			return res
		}
		res.Path, res.Err = h.DownloadOne(ctx, res.URL)
		return res
	}
	emit := func(i int, res DayResult) {
		prefix := h.printer.Prefix(i+1, len(days), res.Date.Format(time.DateOnly))
		switch {
		case errors.Is(res.Err, ErrNotFound):
			skipped++
			h.printer.ItemSkipped(prefix, "no devotional found")
		case res.Err != nil:
			failed++
			h.printer.ItemResult(prefix, downloader.ItemResult{}, res.Err)
		default:
			ok++
			size := app.SizeOf(res.Path)
			totalBytes += size
			h.printer.ItemResult(prefix, downloader.ItemResult{Path: res.Path, Bytes: size}, nil)
		}
		results = append(results, res)
	}

	err := app.RunOrdered(ctx, len(days), jobs, fetchDay, emit)
	h.printer.Summary(len(days), ok, failed, skipped, totalBytes)
	return results, err
}

// Files returns the paths of the successful results.
func Files(results []DayResult) []string {
	var files []string
	for _, r := range results {
		if r.Err == nil && r.Path != "" {
			files = append(files, r.Path)
		}
	}
	return files
}
