package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/app"
	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/platform/keysforkids"
)

type devotionalFlags struct {
	date          string
	from          string
	to            string
	last          int
	maxPages      int
	locateOnly    bool
	output        string
	jobs          int
	writeInfoJSON bool
	baseURL       string
}

type locatedDay struct {
	Date  string `json:"date"`
	URL   string `json:"url,omitempty"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// today is the current UTC calendar date.
var today = func() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func newDevotionalCmd(e *env) *cobra.Command {
	var f devotionalFlags
	cmd := &cobra.Command{
		Use:     "devotional",
		Aliases: []string{"kfk"},
		Short:   "Download Keys for Kids devotionals by date",
		Long: "Find Keys for Kids devotionals in the podcast archive by publication date and\n" +
			"download their audio. Without a date, today's devotional is fetched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevotional(cmd, e, &f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.date, "date", "", "devotional date (YYYY-MM-DD)")
	fs.StringVar(&f.from, "from", "", "first date of a range (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last date of a range (YYYY-MM-DD, default today)")
	fs.IntVar(&f.last, "last", 0, "download the last N days including today")
	fs.IntVar(&f.maxPages, "max-pages", 0, "archive pages to search (default archive_max_pages)")
	fs.BoolVar(&f.locateOnly, "locate-only", false, "print devotional URLs without downloading")
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "days downloaded concurrently (default max_concurrent_downloads)")
	fs.BoolVar(&f.writeInfoJSON, "write-info-json", false, "write a .json metadata sidecar")
	fs.StringVar(&f.baseURL, "base-url", "", "site root to search")
	_ = fs.MarkHidden("base-url")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsMutuallyExclusive("date", "last")
	cmd.MarkFlagsMutuallyExclusive("from", "last")
	return cmd
}

// dateRange turns the date flags into an inclusive range.
func (f *devotionalFlags) dateRange() (time.Time, time.Time, error) {
	now := today()
	switch {
	case f.date != "":
		d, err := parseDate("--date", f.date)
		return d, d, err
	case f.from != "":
		start, err := parseDate("--from", f.from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end := now
		if f.to != "" {
			if end, err = parseDate("--to", f.to); err != nil {
				return time.Time{}, time.Time{}, err
			}
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, downloader.Wrapf(downloader.CategoryInvalidURL, "--to %s is before --from %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
		}
		return start, end, nil
	case f.last > 0:
		return now.AddDate(0, 0, -(f.last - 1)), now, nil
	case f.to != "":
		return time.Time{}, time.Time{}, downloader.Wrapf(downloader.CategoryInvalidURL, "--to needs --from")
	default:
		return now, now, nil
	}
}

func parseDate(flag, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, downloader.Wrapf(downloader.CategoryInvalidURL, "invalid %s %q, expected YYYY-MM-DD", flag, value)
	}
	return d, nil
}

func runDevotional(cmd *cobra.Command, e *env, f *devotionalFlags) error {
	start, end, err := f.dateRange()
	if err != nil {
		return err
	}

	opts := e.options()
	changed := cmd.Flags().Changed
	if changed("output") {
		opts.OutputDir = f.output
	}
	if changed("write-info-json") {
		opts.WriteInfoJSON = f.writeInfoJSON
	}
	jobs := opts.Jobs
	if f.jobs > 0 {
		jobs = f.jobs
	}

	handler := keysforkids.New(opts, e.printer)
	handler.SetMaxPages(e.cfg.ArchiveMaxPages)
	handler.SetMaxPages(f.maxPages)
	handler.SetBaseURL(f.baseURL)

	ctx := cmd.Context()
	if f.locateOnly {
		return locateDevotionals(ctx, e, handler, start, end)
	}

	rec, closeRecorder := e.recorder()
	defer closeRecorder()
	runID := uuid.NewString()

	if start.Equal(end) {
		return downloadDevotional(ctx, e, handler, start, rec, runID)
	}

	results, err := handler.DownloadRange(ctx, start, end, jobs)
	for _, r := range results {
		if r.Err == nil && r.Path != "" {
			recordDevotional(e, rec, runID, r.URL, r.Path)
		}
	}
	if e.jsonOut {
		days := make([]locatedDay, 0, len(results))
		for _, r := range results {
			days = append(days, dayOf(r.Date, r.URL, r.Path, r.Err))
		}
		if jsonErr := printJSON(e.stdout, days); jsonErr != nil {
			return jsonErr
		}
	}
	if err != nil {
		return err
	}
	if len(keysforkids.Files(results)) == 0 {
		return exitError{code: downloader.ExitCode(downloader.Wrap(downloader.CategoryNotFound, keysforkids.ErrNotFound))}
	}
	return nil
}

func downloadDevotional(ctx context.Context, e *env, handler *keysforkids.Handler, date time.Time, rec app.Recorder, runID string) error {
	label := date.Format(time.DateOnly)
	pageURL, err := withSpinner(ctx, e, "Searching the archive for "+label, func(ctx context.Context) (string, error) {
		return handler.Locator().Locate(ctx, date)
	})
	if err != nil {
		if errors.Is(err, keysforkids.ErrNotFound) {
			return downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("no devotional found for %s: %w", label, err))
		}
		return err
	}
	e.printer.Log(downloader.LogInfo, fmt.Sprintf("found devotional for %s: %s", label, pageURL))

	prefix := e.printer.Prefix(1, 1, label)
	path, err := handler.DownloadOne(ctx, pageURL)
	e.printer.ItemResult(prefix, downloader.ItemResult{Path: path, Bytes: app.SizeOf(path)}, err)
	if e.jsonOut {
		if jsonErr := printJSON(e.stdout, dayOf(date, pageURL, path, err)); jsonErr != nil {
			return jsonErr
		}
	}
	if err != nil {
		return downloader.MarkReported(err)
	}
	recordDevotional(e, rec, runID, pageURL, path)
	return nil
}

func locateDevotionals(ctx context.Context, e *env, handler *keysforkids.Handler, start, end time.Time) error {
	locator := handler.Locator()
	label := start.Format(time.DateOnly)
	if !start.Equal(end) {
		label += " to " + end.Format(time.DateOnly)
	}
	found, err := withSpinner(ctx, e, "Searching the archive for "+label, func(ctx context.Context) ([]keysforkids.Located, error) {
		return locator.LocateRange(ctx, start, end)
	})
	if err != nil {
		return err
	}

	if e.jsonOut {
		days := make([]locatedDay, 0, len(found))
		for _, l := range found {
			days = append(days, dayOf(l.Date, l.URL, "", nil))
		}
		if err := printJSON(e.stdout, days); err != nil {
			return err
		}
	} else {
		for _, l := range found {
			fmt.Fprintf(e.stdout, "%s  %s\n", l.Date.Format(time.DateOnly), l.URL)
		}
	}
	if len(found) == 0 {
		return downloader.Wrap(downloader.CategoryNotFound, fmt.Errorf("no devotionals found for %s: %w", label, keysforkids.ErrNotFound))
	}
	return nil
}

func dayOf(date time.Time, url, path string, err error) locatedDay {
	d := locatedDay{Date: date.Format(time.DateOnly), URL: url, Path: path}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

func recordDevotional(e *env, rec app.Recorder, runID, pageURL, path string) {
	info := downloader.MediaInfo{URL: pageURL}
	if err := app.RecordFile(rec, runID, keysforkids.Name, info, path, true); err != nil {
		e.logger.Warn("recording download history", "path", path, "err", err)
	}
}
