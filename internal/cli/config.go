package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/config"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage abedl configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			if e.jsonOut {
				return printJSON(e.stdout, cfg)
			}
			w := e.stdout
			fmt.Fprintln(w, "Current configuration:")
			fmt.Fprintf(w, "  Output dir:        %s\n", cfg.OutputDir)
			fmt.Fprintf(w, "  Quality:           %s\n", cfg.Quality)
			fmt.Fprintf(w, "  Audio format:      %s\n", cfg.AudioFormat)
			fmt.Fprintf(w, "  Video format:      %s\n", cfg.VideoFormat)
			fmt.Fprintf(w, "  Write info JSON:   %t\n", cfg.WriteInfoJSON)
			fmt.Fprintf(w, "  Write thumbnail:   %t\n", cfg.WriteThumbnail)
			fmt.Fprintf(w, "  Subtitles:         %t (embed %t)\n", cfg.Subtitles, cfg.EmbedSubtitles)
			fmt.Fprintf(w, "  Concurrent:        %d\n", cfg.MaxConcurrentDownloads)
			fmt.Fprintf(w, "  Retry attempts:    %d\n", cfg.RetryAttempts)
			fmt.Fprintf(w, "  User agent:        %s\n", orNone(cfg.UserAgent))
			fmt.Fprintf(w, "  YouTube extractor: %s\n", cfg.YouTubeExtractor)
			fmt.Fprintf(w, "  Archive max pages: %d\n", cfg.ArchiveMaxPages)
			fmt.Fprintf(w, "  History:           %s (record %t)\n", cfg.HistoryDB, cfg.RecordHistory)
			fmt.Fprintf(w, "  Config:            %s\n", e.configPath)
			if !config.Exists(e.configPath) {
				fmt.Fprintln(w, "\nNo config file found. Run 'abedl config init' to create one.")
			}
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(e.stdout, e.configPath)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := config.Init(e.configPath)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(e.stdout, "Wrote default configuration to %s\n", e.configPath)
			} else {
				fmt.Fprintf(e.stdout, "Configuration already exists at %s\n", e.configPath)
			}
			return nil
		},
	}

	cmd.AddCommand(showCmd, pathCmd, initCmd)
	return cmd
}

func orNone(value string) string {
	if value == "" {
		return "(default)"
	}
	return value
}
