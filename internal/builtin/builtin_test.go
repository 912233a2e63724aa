package builtin

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/abedl/abedl/internal/downloader"
)

func withYTDLP(t *testing.T, available bool) {
	t.Helper()
	prev := ytdlpAvailable
	ytdlpAvailable = func() bool { return available }
	t.Cleanup(func() { ytdlpAvailable = prev })
}

func TestRegisterOrder(t *testing.T) {
	withYTDLP(t, true)
	var buf bytes.Buffer
	reg := NewRegistry(downloader.NewPrinter(&buf, log.New(&buf), true))

	want := []string{"youtube", "cbn", "keysforkids"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRegisterSkipsCBNWithoutYTDLP(t *testing.T) {
	withYTDLP(t, false)
	var buf bytes.Buffer
	reg := NewRegistry(downloader.NewPrinter(&buf, log.New(&buf), false))

	want := []string{"youtube", "keysforkids"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !strings.Contains(buf.String(), "skipping the cbn downloader") {
		t.Fatalf("expected a warning, got %q", buf.String())
	}
}

func TestResolveBuiltins(t *testing.T) {
	withYTDLP(t, false)
	var buf bytes.Buffer
	reg := NewRegistry(downloader.NewPrinter(&buf, log.New(&buf), true))
	opts := downloader.DefaultOptions()
	opts.Extractor = "native"

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube"},
		{"https://youtu.be/dQw4w9WgXcQ", "youtube"},
		{"https://www.keysforkids.org/podcast/keys-for-kids/a-title/", "keysforkids"},
	}
	for _, tt := range tests {
		h, err := reg.Resolve(tt.url, opts)
		if err != nil {
			t.Fatalf("Resolve(%q): unexpected error: %v", tt.url, err)
		}
		if h.Name() != tt.want {
			t.Fatalf("Resolve(%q): expected %s, got %s", tt.url, tt.want, h.Name())
		}
	}

	if _, err := reg.Resolve("https://example.com/video", opts); downloader.CategoryOf(err) != downloader.CategoryNoHandler {
		t.Fatalf("expected no_handler, got %v", err)
	}
}

func TestResolveSkipsUnavailableYouTube(t *testing.T) {
	withYTDLP(t, false)
	t.Setenv("PATH", t.TempDir())
	var buf bytes.Buffer
	reg := NewRegistry(downloader.NewPrinter(&buf, log.New(&buf), true))
	opts := downloader.DefaultOptions()
	opts.Extractor = "yt-dlp"

	h, err := reg.Resolve("https://www.keysforkids.org/podcast/keys-for-kids/a-title/", opts)
	if err != nil {
		t.Fatalf("expected keysforkids to resolve, got %v", err)
	}
	if h.Name() != "keysforkids" {
		t.Fatalf("expected keysforkids, got %s", h.Name())
	}

	_, err = reg.Resolve("https://www.youtube.com/watch?v=dQw4w9WgXcQ", opts)
	if downloader.CategoryOf(err) != downloader.CategoryNoHandler {
		t.Fatalf("expected no_handler, got %v", err)
	}
	if !strings.Contains(err.Error(), "youtube downloader unavailable") {
		t.Fatalf("expected the youtube failure in the message, got %v", err)
	}
}
