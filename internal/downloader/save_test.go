package downloader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSaveStreamWritesAndRenames(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, log.New(&buf), true)
	path := filepath.Join(t.TempDir(), "episode.mp3")

	n, err := p.SaveStream(context.Background(), path, strings.NewReader("audio"), 5, "episode")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "audio" {
		t.Fatalf("unexpected file contents %q (%v)", data, err)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatalf("expected part file to be gone")
	}
}

func TestSaveStreamShortBodyFails(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, log.New(&buf), true)
	path := filepath.Join(t.TempDir(), "short.mp3")

	_, err := p.SaveStream(context.Background(), path, strings.NewReader("abc"), 10, "short")
	if CategoryOf(err) != CategoryNetwork {
		t.Fatalf("expected network category, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file after failure")
	}
}

func TestSaveStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	p := NewPrinter(&buf, log.New(&buf), true)

	_, err := p.SaveStream(ctx, filepath.Join(t.TempDir(), "x.mp4"), strings.NewReader("data"), 0, "x")
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
