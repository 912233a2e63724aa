package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kkdai/youtube/v2"

	"github.com/abedl/abedl/internal/downloader"
)

type mockClient struct {
	video    *youtube.Video
	playlist *youtube.Playlist
	err      error
	body     string
	streamed *youtube.Format
}

func (m *mockClient) GetVideoContext(ctx context.Context, url string) (*youtube.Video, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.video, nil
}

func (m *mockClient) GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.playlist, nil
}

func (m *mockClient) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	m.streamed = format
	return io.NopCloser(strings.NewReader(m.body)), int64(len(m.body)), nil
}

func testPrinter() *downloader.Printer {
	var buf bytes.Buffer
	return downloader.NewPrinter(&buf, log.New(&buf), true)
}

func sampleVideo() *youtube.Video {
	return &youtube.Video{
		ID:          "abc123def45",
		Title:       "Sample: Video",
		Author:      "Channel",
		Duration:    90 * time.Second,
		PublishDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1"`, Width: 640, Height: 360, AudioChannels: 2, Bitrate: 500000, QualityLabel: "360p"},
			{ItagNo: 22, MimeType: `video/mp4; codecs="avc1"`, Width: 1280, Height: 720, AudioChannels: 2, Bitrate: 1500000, QualityLabel: "720p"},
			{ItagNo: 43, MimeType: `video/webm; codecs="vp8"`, Width: 1920, Height: 1080, AudioChannels: 2, Bitrate: 3000000, QualityLabel: "1080p"},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a"`, AudioChannels: 2, Bitrate: 128000},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, AudioChannels: 2, Bitrate: 160000},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1"`, Width: 1920, Height: 1080},
		},
	}
}

func TestCanHandle(t *testing.T) {
	h := NewWithClient(downloader.DefaultOptions(), testPrinter(), &mockClient{})
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://music.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"youtube.com/playlist?list=PL123", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/abc", true},
		{"https://www.youtube.com/@somechannel", true},
		{"HTTPS://WWW.YOUTUBE.COM/watch?v=x", true},
		{"https://vimeo.com/123", false},
		{"https://example.com/?u=youtube.com/watch?v=x", false},
	}
	for _, tt := range tests {
		if got := h.CanHandle(tt.url); got != tt.want {
			t.Fatalf("CanHandle(%q): expected %v, got %v", tt.url, tt.want, got)
		}
	}
}

func TestIsPlaylistAndPlaylistURL(t *testing.T) {
	h := NewWithClient(downloader.DefaultOptions(), testPrinter(), &mockClient{})
	if !h.IsPlaylist("https://www.youtube.com/playlist?list=PL123") {
		t.Fatalf("expected playlist URL to be a playlist")
	}
	if !h.IsPlaylist("https://www.youtube.com/watch?v=abc&list=PL123") {
		t.Fatalf("expected watch URL with list to be a playlist")
	}
	if h.IsPlaylist("https://www.youtube.com/watch?v=abc") {
		t.Fatalf("expected plain watch URL not to be a playlist")
	}
	if got := playlistURL("https://www.youtube.com/watch?v=abc&list=PL123&index=2"); got != "https://www.youtube.com/playlist?list=PL123" {
		t.Fatalf("unexpected playlist URL %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://youtu.be/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://www.youtube.com/shorts/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://youtube.com/live/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://music.youtube.com/watch?v=abc123&si=x", "https://www.youtube.com/watch?v=abc123"},
		{"https://m.youtube.com/watch?v=abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://www.youtube.com/watch?v=abc123", "https://www.youtube.com/watch?v=abc123"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Fatalf("normalizeURL(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		quality string
		audio   bool
		want    string
	}{
		{"best", false, "best"},
		{"", false, "best"},
		{"worst", false, "worst"},
		{"720p", false, "best[height<=720]/best[height<=820]/best"},
		{"480", false, "best[height<=480]/best[height<=580]/best"},
		{"garbage", false, "best"},
		{"720p", true, "bestaudio/best"},
	}
	for _, tt := range tests {
		if got := formatString(tt.quality, tt.audio); got != tt.want {
			t.Fatalf("formatString(%q, %v): expected %q, got %q", tt.quality, tt.audio, tt.want, got)
		}
	}
}

func TestSelectFormat(t *testing.T) {
	video := sampleVideo()
	tests := []struct {
		name     string
		opts     downloader.Options
		wantItag int
	}{
		{name: "best prefers mp4 container", opts: downloader.Options{Quality: "best", VideoFormat: "mp4"}, wantItag: 22},
		{name: "best any container", opts: downloader.Options{Quality: "best"}, wantItag: 43},
		{name: "height cap", opts: downloader.Options{Quality: "480p", VideoFormat: "mp4"}, wantItag: 18},
		{name: "below every height", opts: downloader.Options{Quality: "144p"}, wantItag: 18},
		{name: "worst", opts: downloader.Options{Quality: "worst"}, wantItag: 18},
		{name: "audio picks highest bitrate", opts: downloader.Options{AudioOnly: true}, wantItag: 251},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := selectFormat(video, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.ItagNo != tt.wantItag {
				t.Fatalf("expected itag %d, got %d", tt.wantItag, f.ItagNo)
			}
		})
	}

	if _, err := selectFormat(video, downloader.Options{Quality: "huge"}); downloader.CategoryOf(err) != downloader.CategoryUnsupported {
		t.Fatalf("expected unsupported for invalid quality, got %v", err)
	}
	if _, err := selectFormat(&youtube.Video{}, downloader.Options{}); downloader.CategoryOf(err) != downloader.CategoryUnsupported {
		t.Fatalf("expected unsupported with no formats, got %v", err)
	}
}

func TestNativeDownloadWritesFile(t *testing.T) {
	dir := t.TempDir()
	client := &mockClient{video: sampleVideo(), body: "video-bytes"}
	opts := downloader.DefaultOptions()
	opts.OutputDir = dir
	opts.Quality = "720p"
	opts.WriteInfoJSON = true

	h := NewWithClient(opts, testPrinter(), client)
	path, err := h.DownloadOne(context.Background(), "https://youtu.be/abc123def45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "Sample- Video.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected contents %q", data)
	}
	if client.streamed == nil || client.streamed.ItagNo != 22 {
		t.Fatalf("expected itag 22 to be streamed, got %+v", client.streamed)
	}
	if _, err := os.Stat(path + ".json"); err != nil {
		t.Fatalf("expected sidecar: %v", err)
	}
}

func TestFetchPlaylistCapsEntries(t *testing.T) {
	pl := &youtube.Playlist{ID: "PL1", Title: "Big", Author: "Someone"}
	for i := 0; i < 150; i++ {
		pl.Videos = append(pl.Videos, &youtube.PlaylistEntry{ID: fmt.Sprintf("vid%08d", i), Title: fmt.Sprintf("Video %d", i)})
	}
	h := NewWithClient(downloader.DefaultOptions(), testPrinter(), &mockClient{playlist: pl})

	info, err := h.FetchPlaylistMetadata(context.Background(), "https://www.youtube.com/watch?v=x&list=PL1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.Entries) != MaxPlaylistEntries {
		t.Fatalf("expected %d entries, got %d", MaxPlaylistEntries, len(info.Entries))
	}
	if info.Entries[0].URL != "https://www.youtube.com/watch?v=vid00000000" {
		t.Fatalf("unexpected entry URL %q", info.Entries[0].URL)
	}
}

func TestFetchMetadata(t *testing.T) {
	h := NewWithClient(downloader.DefaultOptions(), testPrinter(), &mockClient{video: sampleVideo()})
	info, err := h.FetchMetadata(context.Background(), "https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Title != "Sample: Video" || info.UploadDate != "2024-03-05" || info.Duration != 90*time.Second {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestListFormats(t *testing.T) {
	h := NewWithClient(downloader.DefaultOptions(), testPrinter(), &mockClient{video: sampleVideo()})
	formats, err := h.ListFormats(context.Background(), "https://www.youtube.com/watch?v=abc123def45")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(formats) != 6 {
		t.Fatalf("expected 6 formats, got %d", len(formats))
	}
	if formats[3].Resolution != "audio only" || formats[3].HasVideo || !formats[3].HasAudio {
		t.Fatalf("unexpected audio format %+v", formats[3])
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		err  error
		want downloader.Category
	}{
		{errors.New("Sign in to confirm you're not a bot"), downloader.CategoryRestricted},
		{errors.New("video is private"), downloader.CategoryRestricted},
		{errors.New("Video unavailable"), downloader.CategoryNotFound},
		{errors.New("something odd"), downloader.CategoryExtraction},
		{downloader.Wrap(downloader.CategoryNetwork, errors.New("reset")), downloader.CategoryNetwork},
	}
	for _, tt := range tests {
		if got := downloader.CategoryOf(classify(tt.err, "download")); got != tt.want {
			t.Fatalf("classify(%v): expected %s, got %s", tt.err, tt.want, got)
		}
	}
	if err := classify(context.Canceled, "download"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to pass through")
	}
	if !strings.Contains(classify(errors.New("bot check"), "download").Error(), "--cookies-from-browser") {
		t.Fatalf("expected cookie hint in bot error")
	}
}

func TestNewRejectsUnknownExtractor(t *testing.T) {
	opts := downloader.DefaultOptions()
	opts.Extractor = "quantum"
	if _, err := New(opts, testPrinter()); err == nil {
		t.Fatalf("expected error for unknown extractor")
	}
	opts.Extractor = ExtractorNative
	h, err := New(opts, testPrinter())
	if err != nil || h.Extractor() != "native" {
		t.Fatalf("expected native handler, got %v %v", h, err)
	}
}
