package cbn

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/ytdlp"
)

type fakeRunner struct {
	info    *ytdlp.Info
	err     error
	gotOpts ytdlp.DownloadOptions
}

func (f *fakeRunner) Info(ctx context.Context, rawURL string) (*ytdlp.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeRunner) Download(ctx context.Context, rawURL string, opts ytdlp.DownloadOptions) (string, error) {
	f.gotOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return opts.OutputTemplate, nil
}

func testPrinter() *downloader.Printer {
	var buf bytes.Buffer
	return downloader.NewPrinter(&buf, log.New(&buf), true)
}

func TestCanHandle(t *testing.T) {
	h := NewWithRunner(downloader.DefaultOptions(), testPrinter(), &fakeRunner{})
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.cbn.com/video/flying-house-episode-3", true},
		{"cbn.com/video/some-clip", true},
		{"https://cbn.com/shows/superbook/episode-name", true},
		{"https://www.cbn.com/news", false},
		{"https://www.youtube.com/watch?v=abc", false},
	}
	for _, tt := range tests {
		if got := h.CanHandle(tt.url); got != tt.want {
			t.Fatalf("CanHandle(%q): expected %v, got %v", tt.url, tt.want, got)
		}
	}
	if h.IsPlaylist("https://www.cbn.com/video/flying-house-episode-3") {
		t.Fatalf("CBN URLs are never playlists")
	}
}

func TestEpisodeFilename(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		title       string
		description string
		ext         string
		want        string
	}{
		{
			name:  "flying house from url",
			url:   "https://www.cbn.com/video/flying-house-episode-3",
			title: "Flying House Episode 3 - The Storm",
			ext:   "mp4",
			want:  "Flying House - E03 - The Storm.mp4",
		},
		{
			name:        "description replaces title",
			url:         "https://www.cbn.com/video/flying-house-episode-12",
			title:       "Flying House Episode 12",
			description: "The Lost Coin",
			ext:         "mp4",
			want:        "Flying House - E12 - The Lost Coin.mp4",
		},
		{
			name:  "episode number from title",
			url:   "https://www.cbn.com/video/superbook-clip",
			title: "Superbook Episode 7: Jonah!",
			ext:   "mp4",
			want:  "CBN Video - E07 - Superbook Jonah.mp4",
		},
		{
			name:  "no episode",
			url:   "https://www.cbn.com/video/news-clip",
			title: "Daily News?",
			ext:   "mp3",
			want:  "CBN Video - Daily News.mp3",
		},
		{
			name:        "short description ignored",
			url:         "https://www.cbn.com/video/x",
			title:       "A Title",
			description: "ok",
			ext:         "mp4",
			want:        "CBN Video - A Title.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EpisodeFilename(tt.url, tt.title, tt.description, tt.ext); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDownloadOneUsesEpisodeName(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{info: &ytdlp.Info{Title: "Flying House Episode 3 - The Storm", Ext: "mp4"}}
	opts := downloader.DefaultOptions()
	opts.OutputDir = dir
	opts.Quality = "720p"

	h := NewWithRunner(opts, testPrinter(), runner)
	path, err := h.DownloadOne(context.Background(), "https://www.cbn.com/video/flying-house-episode-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "Flying House - E03 - The Storm.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	if runner.gotOpts.Format != "best[height<=720]/best[height<=820]/best" {
		t.Fatalf("unexpected format %q", runner.gotOpts.Format)
	}
	if !runner.gotOpts.ForceOverwrites {
		t.Fatalf("expected the default policy to overwrite existing files")
	}
}

func TestDownloadOneAudioUsesAudioExt(t *testing.T) {
	runner := &fakeRunner{info: &ytdlp.Info{Title: "Flying House Episode 3", Ext: "mp4"}}
	opts := downloader.DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.AudioOnly = true

	h := NewWithRunner(opts, testPrinter(), runner)
	path, err := h.DownloadOne(context.Background(), "https://www.cbn.com/video/flying-house-episode-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Ext(path) != ".mp3" || runner.gotOpts.Format != "bestaudio/best" || !runner.gotOpts.AudioOnly {
		t.Fatalf("unexpected audio download %q %+v", path, runner.gotOpts)
	}
}

func TestErrorsAreExtractionCategory(t *testing.T) {
	h := NewWithRunner(downloader.DefaultOptions(), testPrinter(), &fakeRunner{err: errors.New("boom")})
	_, err := h.FetchMetadata(context.Background(), "https://www.cbn.com/video/x")
	if downloader.CategoryOf(err) != downloader.CategoryExtraction {
		t.Fatalf("expected extraction category, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.DownloadOne(ctx, "https://www.cbn.com/video/x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
