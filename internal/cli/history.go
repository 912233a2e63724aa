package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/db"
	"github.com/abedl/abedl/internal/downloader"
)

type historyRow struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	Platform      string    `json:"platform"`
	Title         string    `json:"title"`
	MediaType     string    `json:"media_type"`
	FilePath      string    `json:"file_path"`
	SourceURL     string    `json:"source_url,omitempty"`
	FileSize      int64     `json:"file_size"`
	PlaylistTitle string    `json:"playlist_title,omitempty"`
	PlaylistIndex int       `json:"playlist_index,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newHistoryCmd(e *env) *cobra.Command {
	var (
		limit    int
		platform string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently downloaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.Open(e.cfg.HistoryDB)
			if err != nil {
				return downloader.Wrap(downloader.CategoryFilesystem, err)
			}
			defer store.Close()

			entries, err := store.ListEntries(platform, limit, 0)
			if err != nil {
				return err
			}
			if e.jsonOut {
				rows := make([]historyRow, 0, len(entries))
				for _, en := range entries {
					rows = append(rows, historyRow(en))
				}
				return printJSON(e.stdout, rows)
			}
			if len(entries) == 0 {
				fmt.Fprintln(e.stdout, "No downloads recorded.")
				return nil
			}
			for _, en := range entries {
				fmt.Fprintf(e.stdout, "%s  %-12s %-6s %s\n",
					labelStyle.Render(en.CreatedAt.Local().Format("2006-01-02 15:04")),
					en.Platform, en.MediaType, en.Title)
				fmt.Fprintf(e.stdout, "  %s (%s)\n", en.FilePath, downloader.HumanBytes(en.FileSize))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVar(&platform, "platform", "", "only show one platform")
	return cmd
}
