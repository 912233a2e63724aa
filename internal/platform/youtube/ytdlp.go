package youtube

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/ytdlp"
)

// ytdlpSource drives the yt-dlp binary.
type ytdlpSource struct {
	client  *ytdlp.Client
	opts    downloader.Options
	printer *downloader.Printer
}

func (s *ytdlpSource) name() string { return "yt-dlp" }

func (s *ytdlpSource) info(ctx context.Context, rawURL string) (*downloader.MediaInfo, error) {
	info, err := s.client.Info(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	out := MediaFromYTDLP(*info)
	return &out, nil
}

func (s *ytdlpSource) playlist(ctx context.Context, rawURL string, limit int) (*downloader.PlaylistInfo, error) {
	info, err := s.client.FlatPlaylist(ctx, rawURL, limit)
	if err != nil {
		return nil, err
	}
	out := &downloader.PlaylistInfo{ID: info.ID, Title: info.Title, Uploader: downloader.StringsOrFallback(info.Uploader, info.Channel)}
	for _, entry := range info.Entries {
		media := MediaFromYTDLP(entry)
		if media.URL == "" {
			media.URL = watchURLForID(entry.ID)
		}
		out.Entries = append(out.Entries, media)
	}
	return out, nil
}

func (s *ytdlpSource) formats(ctx context.Context, rawURL string) ([]downloader.Format, error) {
	info, err := s.client.Info(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	out := make([]downloader.Format, 0, len(info.Formats))
	for _, f := range info.Formats {
		res := f.Resolution
		if res == "" && f.Height > 0 {
			res = fmt.Sprintf("%dx%d", f.Width, f.Height)
		}
		out = append(out, downloader.Format{
			ID:         f.FormatID,
			Ext:        f.Ext,
			Resolution: res,
			Note:       f.FormatNote,
			Size:       f.Size(),
			Bitrate:    int(f.TBR * 1000),
			HasVideo:   f.HasVideo(),
			HasAudio:   f.HasAudio(),
		})
	}
	return out, nil
}

func (s *ytdlpSource) download(ctx context.Context, rawURL string) (string, error) {
	opts := s.downloadOptions(formatString(s.opts.Quality, s.opts.AudioOnly))
	path, err := s.client.Download(ctx, rawURL, opts)
	if err != nil && isFormatError(err) {
		fallback := "best"
		if s.opts.AudioOnly {
			fallback = "bestaudio"
		}
		s.printer.Log(downloader.LogWarn, fmt.Sprintf("requested format unavailable, retrying with %s", fallback))
		path, err = s.client.Download(ctx, rawURL, s.downloadOptions(fallback))
	}
	return path, err
}

func (s *ytdlpSource) downloadOptions(format string) ytdlp.DownloadOptions {
	return ytdlp.DownloadOptions{
		OutputTemplate:  filepath.Join(s.opts.OutputDir, "%(title)s.%(ext)s"),
		Format:          format,
		MergeFormat:     s.opts.VideoFormat,
		AudioOnly:       s.opts.AudioOnly,
		AudioFormat:     s.opts.AudioFormat,
		Subtitles:       s.opts.Subtitles,
		EmbedSubtitles:  s.opts.EmbedSubtitles,
		WriteInfoJSON:   s.opts.WriteInfoJSON,
		WriteThumbnail:  s.opts.WriteThumbnail,
		ForceOverwrites: s.opts.OnDuplicate.OrDefault() == downloader.DuplicatePolicyOverwrite,
		Progress:        logProgress(s.printer),
	}
}

// logProgress forwards yt-dlp output to debug logging.
func logProgress(printer *downloader.Printer) func(ytdlp.OutputStream, string) {
	return func(stream ytdlp.OutputStream, line string) {
		if printer == nil || strings.TrimSpace(line) == "" {
			return
		}
		printer.Log(downloader.LogDebug, fmt.Sprintf("yt-dlp %s: %s", stream, line))
	}
}

// formatString maps a quality name to a yt-dlp format selector.
func formatString(quality string, audioOnly bool) string {
	if audioOnly {
		return "bestaudio/best"
	}
	q := strings.TrimSpace(strings.ToLower(quality))
	switch q {
	case "", "best":
		return "best"
	case "worst":
		return "worst"
	}
	height, _, err := parseVideoQuality(q)
	if err != nil || height == 0 {
		return "best"
	}
	return fmt.Sprintf("best[height<=%d]/best[height<=%d]/best", height, height+100)
}

func isFormatError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "requested format") || strings.Contains(msg, "format is not available")
}

// MediaFromYTDLP converts yt-dlp metadata.
func MediaFromYTDLP(info ytdlp.Info) downloader.MediaInfo {
	return downloader.MediaInfo{
		ID:          info.ID,
		Title:       info.Title,
		URL:         info.PageURL(),
		Uploader:    downloader.StringsOrFallback(info.Uploader, info.Channel),
		Description: info.Description,
		Duration:    info.DurationValue(),
		UploadDate:  info.UploadDateISO(),
		Views:       info.ViewCount,
		Thumbnail:   info.Thumbnail,
	}
}
