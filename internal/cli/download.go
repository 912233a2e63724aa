package cli

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/app"
	"github.com/abedl/abedl/internal/downloader"
)

type downloadFlags struct {
	output         string
	quality        string
	audioOnly      bool
	audioFormat    string
	videoFormat    string
	subtitles      bool
	embedSubtitles bool
	writeInfoJSON  bool
	writeThumbnail bool
	playlistStart  int
	playlistEnd    int
	playlistItems  string
	jobs           int
	timeout        time.Duration
}

func newDownloadCmd(e *env) *cobra.Command {
	var f downloadFlags
	cmd := &cobra.Command{
		Use:     "download URL...",
		Aliases: []string{"dl", "get"},
		Short:   "Download videos, audio or playlists",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, e, &f, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVarP(&f.quality, "quality", "q", "", "video quality: best, worst, 1080p, 720p, ...")
	fs.BoolVarP(&f.audioOnly, "audio-only", "a", false, "download audio only")
	fs.StringVar(&f.audioFormat, "audio-format", "", "audio format for audio-only downloads (mp3, m4a, opus, ...)")
	fs.StringVar(&f.videoFormat, "video-format", "", "preferred video container (mp4, webm, ...)")
	fs.BoolVar(&f.subtitles, "subtitles", false, "download subtitles")
	fs.BoolVar(&f.embedSubtitles, "embed-subtitles", false, "embed subtitles in the video")
	fs.BoolVar(&f.writeInfoJSON, "write-info-json", false, "write a .json metadata sidecar")
	fs.BoolVar(&f.writeThumbnail, "write-thumbnail", false, "save the thumbnail image")
	fs.IntVar(&f.playlistStart, "playlist-start", 1, "first playlist entry to download (1-based)")
	fs.IntVar(&f.playlistEnd, "playlist-end", 0, "last playlist entry to download (0 = last)")
	fs.StringVar(&f.playlistItems, "playlist-items", "", "playlist entries to download, e.g. 1,3,5-7")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "concurrent playlist downloads (default max_concurrent_downloads)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout")
	return cmd
}

// downloadOptions layers changed flags over the config-derived options.
func downloadOptions(cmd *cobra.Command, e *env, f *downloadFlags) downloader.Options {
	opts := e.options()
	changed := cmd.Flags().Changed
	if changed("output") {
		opts.OutputDir = f.output
	}
	if changed("quality") {
		opts.Quality = f.quality
	}
	if changed("audio-only") {
		opts.AudioOnly = f.audioOnly
	}
	if changed("audio-format") {
		opts.AudioFormat = f.audioFormat
	}
	if changed("video-format") {
		opts.VideoFormat = f.videoFormat
	}
	if changed("subtitles") {
		opts.Subtitles = f.subtitles
	}
	if changed("embed-subtitles") {
		opts.EmbedSubtitles = f.embedSubtitles
	}
	if changed("write-info-json") {
		opts.WriteInfoJSON = f.writeInfoJSON
	}
	if changed("write-thumbnail") {
		opts.WriteThumbnail = f.writeThumbnail
	}
	if changed("jobs") && f.jobs > 0 {
		opts.Jobs = f.jobs
	}
	if changed("timeout") && f.timeout > 0 {
		opts.Timeout = f.timeout
	}
	opts.PlaylistStart = f.playlistStart
	opts.PlaylistEnd = f.playlistEnd
	opts.PlaylistItems = f.playlistItems
	return opts
}

func runDownload(cmd *cobra.Command, e *env, f *downloadFlags, urls []string) error {
	opts := downloadOptions(cmd, e, f)
	rec, closeRecorder := e.recorder()
	defer closeRecorder()

	runID := uuid.NewString()
	e.logger.Debug("starting download run", "run_id", runID, "urls", len(urls), "jobs", opts.Jobs)
	results, code := app.Run(cmd.Context(), e.registry(), urls, opts, e.printer, rec, runID)

	if e.jsonOut {
		if err := printJSON(e.stdout, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Err != nil && !downloader.IsReported(res.Err) {
				e.printer.Log(downloader.LogError, res.URL+": "+res.Err.Error())
			}
		}
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}
