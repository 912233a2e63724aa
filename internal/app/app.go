package app

import (
	"context"

	"github.com/abedl/abedl/internal/downloader"
)

// Result is the outcome of one URL given to Run.
type Result struct {
	URL   string   `json:"url"`
	Files []string `json:"files,omitempty"`
	Err   error    `json:"-"`
	Error string   `json:"error,omitempty"`
}

// Run resolves and downloads each URL in turn. The exit code is zero when
// at least one file was produced.
func Run(ctx context.Context, reg *downloader.Registry, urls []string, opts downloader.Options, printer *downloader.Printer, rec Recorder, runID string) ([]Result, int) {
	results := make([]Result, 0, len(urls))
	produced := 0
	exitCode := 0

	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		res := Result{URL: rawURL}
		res.Files, res.Err = runOne(ctx, reg, rawURL, opts, printer, rec, runID)
		if res.Err != nil {
			res.Error = res.Err.Error()
			if code := downloader.ExitCode(res.Err); code > exitCode {
				exitCode = code
			}
		}
		produced += len(res.Files)
		results = append(results, res)
	}

	if produced > 0 {
		return results, 0
	}
	if ctx.Err() != nil {
		return results, 130
	}
	if exitCode == 0 {
		exitCode = 1
	}
	return results, exitCode
}

func runOne(ctx context.Context, reg *downloader.Registry, rawURL string, opts downloader.Options, printer *downloader.Printer, rec Recorder, runID string) ([]string, error) {
	handler, err := reg.Resolve(rawURL, opts)
	if err != nil {
		return nil, err
	}
	if matches := reg.Matches(rawURL, opts); len(matches) > 1 {
		printer.Log(downloader.LogDebug, "multiple downloaders match, using "+handler.Name())
	}
	session := &Session{
		Handler:  handler,
		Options:  opts,
		Printer:  printer,
		Recorder: rec,
		RunID:    runID,
	}
	return session.Run(ctx, rawURL)
}
