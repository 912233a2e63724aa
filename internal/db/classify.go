package db

import (
	"path/filepath"
	"strings"
)

// ClassifyMediaType labels a download for the history table.
//
//   - podcast: the Keys for Kids devotional handler
//   - music:   audio-only downloads, or an audio file extension
//   - video:   everything else
func ClassifyMediaType(platform, filePath string, audioOnly bool) string {
	if strings.EqualFold(platform, "keysforkids") {
		return "podcast"
	}
	if audioOnly {
		return "music"
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3", ".m4a", ".opus", ".ogg", ".flac", ".wav", ".aac":
		return "music"
	}
	return "video"
}
