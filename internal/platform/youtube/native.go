package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/abedl/abedl/internal/downloader"
)

const (
	minChunkSize     int64 = 256 * 1024      // 256KB keeps progress responsive on small files
	maxChunkSize     int64 = 2 * 1024 * 1024 // cap to avoid excessive requests on large files
	targetChunkCount int64 = 64
)

// Client is the part of the kkdai client the native source uses.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

var _ Client = (*youtube.Client)(nil)

// newKkdaiClient builds a library client on httpClient.
func newKkdaiClient(httpClient *http.Client) *youtube.Client {
	return &youtube.Client{HTTPClient: httpClient, ChunkSize: minChunkSize}
}

// nativeSource extracts and downloads with the pure Go client.
type nativeSource struct {
	client  Client
	opts    downloader.Options
	printer *downloader.Printer
}

func (s *nativeSource) name() string { return "native" }

func (s *nativeSource) info(ctx context.Context, rawURL string) (*downloader.MediaInfo, error) {
	video, err := s.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	info := mediaFromVideo(video)
	return &info, nil
}

func (s *nativeSource) playlist(ctx context.Context, rawURL string, limit int) (*downloader.PlaylistInfo, error) {
	pl, err := s.client.GetPlaylistContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	out := &downloader.PlaylistInfo{ID: pl.ID, Title: pl.Title, Uploader: pl.Author}
	for i, entry := range pl.Videos {
		if limit > 0 && i >= limit {
			break
		}
		if entry == nil {
			continue
		}
		out.Entries = append(out.Entries, downloader.MediaInfo{
			ID:       entry.ID,
			Title:    entry.Title,
			URL:      watchURLForID(entry.ID),
			Uploader: entry.Author,
			Duration: entry.Duration,
		})
	}
	return out, nil
}

func (s *nativeSource) formats(ctx context.Context, rawURL string) ([]downloader.Format, error) {
	video, err := s.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	out := make([]downloader.Format, 0, len(video.Formats))
	for _, f := range video.Formats {
		out = append(out, downloader.Format{
			ID:         strconv.Itoa(f.ItagNo),
			Ext:        downloader.MimeToExt(f.MimeType),
			Resolution: resolution(f),
			Note:       strings.TrimSpace(f.QualityLabel + " " + f.AudioQuality),
			Size:       f.ContentLength,
			Bitrate:    bitrateForFormat(&f),
			HasVideo:   f.Width > 0 || f.Height > 0,
			HasAudio:   f.AudioChannels > 0,
		})
	}
	return out, nil
}

func (s *nativeSource) download(ctx context.Context, rawURL string) (string, error) {
	video, err := s.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return "", err
	}
	format, err := selectFormat(video, s.opts)
	if err != nil {
		return "", err
	}

	ext := downloader.MimeToExt(format.MimeType)
	outputPath, keep, err := downloader.TargetPath(s.opts.OutputDir, downloader.Sanitize(video.Title)+"."+ext, s.opts.OnDuplicate)
	if err != nil {
		return "", err
	}
	if keep {
		s.printer.Log(downloader.LogInfo, "already downloaded: "+outputPath)
		return outputPath, nil
	}

	if kc, ok := s.client.(*youtube.Client); ok {
		adjustChunkSize(kc, format.ContentLength)
	}
	stream, size, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", downloader.Wrap(downloader.CategoryNetwork, fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Close()
	if size <= 0 && format.ContentLength > 0 {
		size = format.ContentLength
	}
	if _, err := s.printer.SaveStream(ctx, outputPath, stream, size, video.Title); err != nil {
		return "", err
	}

	if s.opts.AudioOnly {
		outputPath = s.convertAudio(outputPath)
	}

	info := mediaFromVideo(video)
	info.URL = rawURL
	metadata := downloader.BuildItemMetadata(Name, info, outputPath, nil)
	metadata.Quality = format.QualityLabel
	if s.opts.AudioOnly {
		downloader.EmbedAudioTags(metadata, outputPath, s.printer)
	}
	if s.opts.WriteInfoJSON {
		if err := downloader.WriteSidecar(outputPath, metadata); err != nil {
			s.printer.Log(downloader.LogWarn, fmt.Sprintf("warning: %v", err))
		}
	}
	return outputPath, nil
}

// convertAudio re-encodes path into the configured audio format when it
// differs from what was downloaded and ffmpeg is available.
func (s *nativeSource) convertAudio(path string) string {
	want := strings.ToLower(strings.TrimPrefix(s.opts.AudioFormat, "."))
	have := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if want == "" || want == have {
		return path
	}
	if !downloader.FFmpegAvailable() {
		s.printer.Log(downloader.LogWarn, fmt.Sprintf("warning: ffmpeg not found, keeping %s audio", have))
		return path
	}
	converted := strings.TrimSuffix(path, filepath.Ext(path)) + "." + want
	if err := downloader.ConvertAudio(path, converted); err != nil {
		s.printer.Log(downloader.LogWarn, fmt.Sprintf("warning: audio conversion failed: %v", err))
		os.Remove(converted)
		return path
	}
	os.Remove(path)
	return converted
}

func mediaFromVideo(video *youtube.Video) downloader.MediaInfo {
	info := downloader.MediaInfo{
		ID:          video.ID,
		Title:       video.Title,
		URL:         watchURLForID(video.ID),
		Uploader:    video.Author,
		Description: video.Description,
		Duration:    video.Duration,
		Views:       int64(video.Views),
	}
	if !video.PublishDate.IsZero() {
		info.UploadDate = video.PublishDate.Format("2006-01-02")
	}
	var best uint
	for _, th := range video.Thumbnails {
		if th.Width >= best {
			best = th.Width
			info.Thumbnail = th.URL
		}
	}
	return info
}

// adjustChunkSize picks a smaller chunk size for the client to keep
// progress updates frequent without spawning thousands of requests.
func adjustChunkSize(client *youtube.Client, contentLength int64) {
	if client == nil || contentLength <= 0 {
		return
	}
	chunk := contentLength / targetChunkCount
	if chunk < minChunkSize {
		chunk = minChunkSize
	} else if chunk > maxChunkSize {
		chunk = maxChunkSize
	}
	client.ChunkSize = chunk
}

func selectFormat(video *youtube.Video, opts downloader.Options) (*youtube.Format, error) {
	candidates := make([]*youtube.Format, 0, len(video.Formats))
	for i := range video.Formats {
		format := &video.Formats[i]
		if opts.AudioOnly {
			if format.AudioChannels == 0 || format.Width != 0 || format.Height != 0 {
				continue
			}
		} else if format.AudioChannels == 0 || format.Width == 0 || format.Height == 0 {
			continue
		}
		candidates = append(candidates, format)
	}

	if len(candidates) == 0 {
		reason := "no progressive (audio+video) formats available (try --audio or the yt-dlp extractor)"
		if opts.AudioOnly {
			reason = "no audio-only formats available (try without --audio)"
		}
		return nil, downloader.Wrap(downloader.CategoryUnsupported, errors.New(reason))
	}

	// Prefer the requested container but fall back to anything.
	if !opts.AudioOnly && opts.VideoFormat != "" {
		var preferred []*youtube.Format
		for _, f := range candidates {
			if strings.EqualFold(downloader.MimeToExt(f.MimeType), opts.VideoFormat) {
				preferred = append(preferred, f)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}

	if opts.AudioOnly {
		return pickAudioFormat(candidates), nil
	}
	return pickVideoFormat(candidates, opts.Quality)
}

func pickVideoFormat(candidates []*youtube.Format, quality string) (*youtube.Format, error) {
	targetHeight, preferLowest, err := parseVideoQuality(quality)
	if err != nil {
		return nil, downloader.Wrap(downloader.CategoryUnsupported, err)
	}

	var best *youtube.Format
	switch {
	case preferLowest:
		for _, f := range candidates {
			if best == nil || f.Height < best.Height || (f.Height == best.Height && bitrateForFormat(f) > bitrateForFormat(best)) {
				best = f
			}
		}
	case targetHeight > 0:
		for _, f := range candidates {
			if f.Height > targetHeight {
				continue
			}
			if best == nil || betterVideoFormat(f, best) {
				best = f
			}
		}
		if best == nil {
			// Nothing at or under the target: take the closest above it.
			for _, f := range candidates {
				if best == nil || f.Height < best.Height || (f.Height == best.Height && bitrateForFormat(f) > bitrateForFormat(best)) {
					best = f
				}
			}
		}
	default:
		for _, f := range candidates {
			if best == nil || betterVideoFormat(f, best) {
				best = f
			}
		}
	}
	return best, nil
}

func pickAudioFormat(candidates []*youtube.Format) *youtube.Format {
	var best *youtube.Format
	for _, f := range candidates {
		if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
			best = f
		}
	}
	return best
}

// parseVideoQuality reads "best", "worst" or a height such as "720p".
func parseVideoQuality(q string) (target int, preferLowest bool, err error) {
	q = strings.TrimSpace(strings.ToLower(q))
	switch q {
	case "", "best":
		return 0, false, nil
	case "worst":
		return 0, true, nil
	}
	value, convErr := strconv.Atoi(strings.TrimSuffix(q, "p"))
	if convErr != nil || value <= 0 {
		return 0, false, fmt.Errorf("invalid quality value %q (expected best, worst or a height like 720p)", q)
	}
	return value, false, nil
}

func betterVideoFormat(candidate, current *youtube.Format) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return bitrateForFormat(candidate) > bitrateForFormat(current)
}

func bitrateForFormat(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func resolution(f youtube.Format) string {
	if f.Width == 0 && f.Height == 0 {
		return "audio only"
	}
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}
