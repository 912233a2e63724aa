package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abedl/abedl/internal/downloader"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONError(w io.Writer, url string, err error) {
	payload := struct {
		Type     string `json:"type"`
		URL      string `json:"url,omitempty"`
		Category string `json:"category"`
		Error    string `json:"error"`
	}{
		Type:     "error",
		URL:      url,
		Category: string(downloader.CategoryOf(err)),
		Error:    err.Error(),
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "unknown"
	}
	return downloader.FormatDuration(d)
}
