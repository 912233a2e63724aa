package downloader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ItemMetadata is written next to a download as a JSON sidecar and feeds
// audio tag embedding.
type ItemMetadata struct {
	ID              string       `json:"id,omitempty"`
	Title           string       `json:"title"`
	Artist          string       `json:"artist,omitempty"`
	Album           string       `json:"album,omitempty"`
	Track           int          `json:"track,omitempty"`
	ReleaseDate     string       `json:"release_date,omitempty"`
	ReleaseYear     int          `json:"release_year,omitempty"`
	DurationSeconds int          `json:"duration_seconds,omitempty"`
	ThumbnailURL    string       `json:"thumbnail_url,omitempty"`
	Comment         string       `json:"comment,omitempty"`
	SourceURL       string       `json:"source_url"`
	Platform        string       `json:"platform"`
	Output          string       `json:"output,omitempty"`
	Quality         string       `json:"quality,omitempty"`
	Status          string       `json:"status"`
	Error           string       `json:"error,omitempty"`
	Playlist        *PlaylistRef `json:"playlist,omitempty"`
	DownloadedAt    time.Time    `json:"downloaded_at"`
}

type PlaylistRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Index int    `json:"index,omitempty"`
	Count int    `json:"count,omitempty"`
}

// BuildItemMetadata describes a finished download of info by platform.
func BuildItemMetadata(platform string, info MediaInfo, outputPath string, err error) ItemMetadata {
	metadata := ItemMetadata{
		ID:              info.ID,
		Title:           info.Title,
		Artist:          info.Uploader,
		ReleaseDate:     info.UploadDate,
		DurationSeconds: int(info.Duration.Seconds()),
		ThumbnailURL:    info.Thumbnail,
		SourceURL:       info.URL,
		Platform:        platform,
		Output:          outputPath,
		Status:          "ok",
		DownloadedAt:    time.Now().UTC(),
	}
	if t, perr := time.Parse("2006-01-02", info.UploadDate); perr == nil {
		metadata.ReleaseYear = t.Year()
	}
	if err != nil {
		metadata.Status = "error"
		metadata.Error = err.Error()
	}
	return metadata
}

// WriteSidecar writes metadata to outputPath + ".json".
func WriteSidecar(outputPath string, metadata ItemMetadata) error {
	if outputPath == "" {
		return nil
	}
	path := sidecarPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Wrap(CategoryFilesystem, fmt.Errorf("creating sidecar directory: %w", err))
	}

	file, err := os.Create(path)
	if err != nil {
		return Wrap(CategoryFilesystem, fmt.Errorf("creating sidecar: %w", err))
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadata); err != nil {
		return Wrap(CategoryFilesystem, fmt.Errorf("writing sidecar: %w", err))
	}
	return nil
}

func sidecarPath(outputPath string) string {
	return outputPath + ".json"
}
