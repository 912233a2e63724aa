package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abedl/abedl/internal/db"
	"github.com/abedl/abedl/internal/downloader"
)

// Recorder stores finished downloads. *db.DB satisfies it.
type Recorder interface {
	AddEntry(entry db.Entry) (int64, error)
}

// Session downloads URLs with one handler and reports each item.
type Session struct {
	Handler  downloader.Handler
	Options  downloader.Options
	Printer  *downloader.Printer
	Recorder Recorder
	RunID    string
}

type itemOutcome struct {
	path string
	err  error
}

// Run downloads rawURL, expanding playlists, and returns the written files.
func (s *Session) Run(ctx context.Context, rawURL string) ([]string, error) {
	if s.Handler.IsPlaylist(rawURL) {
		return s.runPlaylist(ctx, rawURL)
	}

	prefix := s.Printer.Prefix(1, 1, rawURL)
	path, err := s.Handler.DownloadOne(ctx, rawURL)
	s.Printer.ItemResult(prefix, downloader.ItemResult{Path: path, Bytes: SizeOf(path)}, err)
	if err != nil {
		return nil, downloader.MarkReported(err)
	}
	s.record(downloader.MediaInfo{URL: rawURL, Title: titleFromPath(path)}, path, nil, 0)
	return []string{path}, nil
}

func (s *Session) runPlaylist(ctx context.Context, rawURL string) ([]string, error) {
	playlist, err := s.Handler.FetchPlaylistMetadata(ctx, rawURL)
	if err != nil {
		return nil, downloader.Wrap(downloader.CategoryExtraction, fmt.Errorf("fetching playlist: %w", err))
	}

	entries, warnings := downloader.SelectEntries(playlist.Entries, s.Options.Selection())
	s.Printer.Warnings(warnings)
	if len(entries) == 0 {
		return nil, downloader.Wrap(downloader.CategoryUnsupported, errors.New("no playlist entries selected"))
	}
	s.Printer.Log(downloader.LogInfo, fmt.Sprintf("playlist: %s (%d of %d entries)",
		downloader.StringsOrFallback(playlist.Title, playlist.ID, rawURL), len(entries), len(playlist.Entries)))

	if s.Options.Jobs > 1 {
		s.Printer.DisableProgress()
	}

	total := len(entries)
	var files []string
	var ok, failed, skipped int
	var totalBytes int64

	download := func(ctx context.Context, i int) itemOutcome {
		if entries[i].URL == "" {
			return itemOutcome{}
		}
		path, err := s.Handler.DownloadOne(ctx, entries[i].URL)
		return itemOutcome{path: path, err: err}
	}
	emit := func(i int, out itemOutcome) {
		entry := entries[i]
		prefix := s.Printer.Prefix(i+1, total, downloader.StringsOrFallback(entry.Title, entry.URL))
		switch {
		case entry.URL == "":
			skipped++
			s.Printer.ItemSkipped(prefix, "missing url")
		case out.err != nil:
			failed++
			s.Printer.ItemResult(prefix, downloader.ItemResult{}, out.err)
			s.Printer.Log(downloader.LogWarn, fmt.Sprintf("failed to download %s: %v", downloader.StringsOrFallback(entry.Title, entry.URL), out.err))
		default:
			ok++
			size := SizeOf(out.path)
			totalBytes += size
			files = append(files, out.path)
			s.Printer.ItemResult(prefix, downloader.ItemResult{Path: out.path, Bytes: size}, nil)
			s.record(entry, out.path, playlist, i+1)
		}
	}

	runErr := RunOrdered(ctx, total, s.Options.Jobs, download, emit)
	s.Printer.Summary(total, ok, failed, skipped, totalBytes)
	if runErr != nil {
		return files, runErr
	}
	if ok == 0 {
		return nil, downloader.MarkReported(downloader.Wrap(downloader.CategoryExtraction, errors.New("no playlist entries downloaded successfully")))
	}
	return files, nil
}

func (s *Session) record(info downloader.MediaInfo, path string, playlist *downloader.PlaylistInfo, index int) {
	if s.Recorder == nil || path == "" {
		return
	}
	entry := newEntry(s.RunID, s.Handler.Name(), info, path, s.Options.AudioOnly)
	if playlist != nil {
		entry.PlaylistTitle = playlist.Title
		entry.PlaylistIndex = index
	}
	if _, err := s.Recorder.AddEntry(entry); err != nil {
		s.Printer.Log(downloader.LogWarn, fmt.Sprintf("warning: recording history failed: %v", err))
	}
}

// RecordFile stores one finished file. A nil rec records nothing.
func RecordFile(rec Recorder, runID, platform string, info downloader.MediaInfo, path string, audioOnly bool) error {
	if rec == nil || path == "" {
		return nil
	}
	_, err := rec.AddEntry(newEntry(runID, platform, info, path, audioOnly))
	return err
}

func newEntry(runID, platform string, info downloader.MediaInfo, path string, audioOnly bool) db.Entry {
	return db.Entry{
		RunID:     runID,
		Platform:  platform,
		Title:     downloader.StringsOrFallback(info.Title, titleFromPath(path)),
		MediaType: db.ClassifyMediaType(platform, path, audioOnly),
		FilePath:  absPath(path),
		SourceURL: info.URL,
		FileSize:  SizeOf(path),
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// SizeOf returns the size of the file at path, or 0.
func SizeOf(path string) int64 {
	if path == "" {
		return 0
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
