package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// Sanitize replaces characters that are invalid in file names.
func Sanitize(name string) string {
	clean := invalidFilenameChars.ReplaceAllString(name, "-")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "video"
	}
	return clean
}

// OutputPath joins name onto dir, refusing names that escape dir, and
// creates dir when missing.
func OutputPath(dir, name string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", Wrap(CategoryFilesystem, fmt.Errorf("creating output directory: %w", err))
	}
	path, err := safeOutputPath(name, dir)
	if err != nil {
		return "", Wrap(CategoryFilesystem, err)
	}
	return path, nil
}

func safeOutputPath(resolved string, baseDir string) (string, error) {
	cleaned := filepath.Clean(resolved)
	if baseDir == "" {
		return cleaned, nil
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute output paths are not allowed with output directory %q", baseDir)
	}
	baseClean := filepath.Clean(baseDir)
	combined := filepath.Join(baseClean, cleaned)
	rel, err := filepath.Rel(baseClean, combined)
	if err != nil {
		return "", fmt.Errorf("resolve output path relative to %q: %w", baseClean, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path escapes base directory %q", baseClean)
	}
	return combined, nil
}

// MimeToExt maps a MIME type such as "audio/mp4; codecs=..." to an extension.
func MimeToExt(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(strings.TrimSpace(mime), "/")
	if len(parts) == 2 {
		switch parts[1] {
		case "3gpp":
			return "3gp"
		case "mpeg":
			return "mp3"
		default:
			return parts[1]
		}
	}
	return "bin"
}

// HumanBytes formats n using binary units.
func HumanBytes(n int64) string {
	return humanBytes(n)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for n >= unit*div && exp < 4 {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f%s", value, suffix[exp])
}
