package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/ytdlp"
)

func newInfoCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "info URL",
		Short: "Show metadata for a video, devotional or playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := e.resolve(args[0])
			if err != nil {
				return err
			}
			if handler.IsPlaylist(args[0]) {
				playlist, err := handler.FetchPlaylistMetadata(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if e.jsonOut {
					return printJSON(e.stdout, playlist)
				}
				printPlaylist(e, playlist)
				return nil
			}
			info, err := handler.FetchMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(e.stdout, info)
			}
			printMedia(e, handler.Name(), info)
			return nil
		},
	}
}

func printMedia(e *env, platform string, info *downloader.MediaInfo) {
	w := e.stdout
	fmt.Fprintln(w, headingStyle.Render(downloader.StringsOrFallback(info.Title, info.URL)))
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
	}
	row("Platform", platform)
	row("Uploader", info.Uploader)
	if info.Duration > 0 {
		row("Duration", formatDuration(info.Duration))
	}
	row("Date", info.UploadDate)
	if info.Views > 0 {
		row("Views", strconv.FormatInt(info.Views, 10))
	}
	row("URL", info.URL)
	row("Verse", info.Extra["verse"])
}

func printPlaylist(e *env, playlist *downloader.PlaylistInfo) {
	w := e.stdout
	fmt.Fprintln(w, headingStyle.Render(downloader.StringsOrFallback(playlist.Title, playlist.ID, "Playlist")))
	if playlist.Uploader != "" {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Uploader:"), playlist.Uploader)
	}
	fmt.Fprintf(w, "  %s %d\n", labelStyle.Render("Entries:"), len(playlist.Entries))
	width := len(strconv.Itoa(len(playlist.Entries)))
	for i, entry := range playlist.Entries {
		line := fmt.Sprintf("  [%*d] %s", width, i+1, downloader.StringsOrFallback(entry.Title, entry.ID, entry.URL))
		if entry.Duration > 0 {
			line += " (" + formatDuration(entry.Duration) + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func newFormatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "formats URL",
		Short: "List the formats available for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := e.resolve(args[0])
			if err != nil {
				return err
			}
			lister, ok := handler.(downloader.FormatLister)
			if !ok {
				return downloader.Wrapf(downloader.CategoryUnsupported, "%s does not list formats", handler.Name())
			}
			formats, err := lister.ListFormats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e.jsonOut {
				return printJSON(e.stdout, formats)
			}
			fmt.Fprintln(e.stdout, formatsTable(formats))
			return nil
		},
	}
}

func formatsTable(formats []downloader.Format) string {
	rows := make([][]string, 0, len(formats))
	for _, f := range formats {
		size := ""
		if f.Size > 0 {
			size = downloader.HumanBytes(f.Size)
		}
		bitrate := ""
		if f.Bitrate > 0 {
			bitrate = fmt.Sprintf("%dk", f.Bitrate/1000)
		}
		rows = append(rows, []string{f.ID, f.Ext, f.Resolution, size, bitrate, f.Note})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headingStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("ID", "EXT", "RESOLUTION", "SIZE", "BITRATE", "NOTE").
		Rows(rows...).
		String()
}

func newPlatformsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms with example URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			platforms := e.registry().Platforms(e.options())
			if e.jsonOut {
				return printJSON(e.stdout, platforms)
			}
			fmt.Fprintln(e.stdout, headingStyle.Render("Supported platforms:"))
			for _, p := range platforms {
				fmt.Fprintf(e.stdout, "  %s\n", p.Name)
				for _, example := range p.Examples {
					fmt.Fprintf(e.stdout, "    %s\n", labelStyle.Render(example))
				}
			}
			return nil
		},
	}
}

type selfTestReport struct {
	Platforms int      `json:"platforms"`
	Names     []string `json:"names"`
	ytdlp.DependencyReport
}

func newTestCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check registered platforms and external tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := e.registry()
			report := selfTestReport{
				Platforms:        reg.Len(),
				Names:            reg.Names(),
				DependencyReport: ytdlp.DependencyStatus(),
			}
			if e.jsonOut {
				if err := printJSON(e.stdout, report); err != nil {
					return err
				}
			} else {
				printSelfTest(e, report)
			}
			if report.Platforms == 0 {
				return downloader.Wrapf(downloader.CategoryNoHandler, "no platforms registered")
			}
			return nil
		},
	}
}

func printSelfTest(e *env, r selfTestReport) {
	w := e.stdout
	check := func(found bool, name, path string) {
		if found {
			fmt.Fprintf(w, "  %s %s (%s)\n", okStyle.Render("OK  "), name, path)
			return
		}
		fmt.Fprintf(w, "  %s %s not found on PATH\n", missStyle.Render("MISS"), name)
	}
	fmt.Fprintf(w, "%s %d\n", headingStyle.Render("Registered platforms:"), r.Platforms)
	for _, name := range r.Names {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, headingStyle.Render("External tools:"))
	check(r.YTDLPFound, "yt-dlp", r.YTDLPPath)
	check(r.FFmpegFound, "ffmpeg", r.FFmpegPath)
}
