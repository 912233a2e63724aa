// Package config loads and saves the abedl JSON settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/abedl/abedl/internal/downloader"
)

const (
	// EnvPath overrides the default config file location.
	EnvPath = "ABEDL_CONFIG"

	envOutputDir = "ABEDL_OUTPUT_DIR"
	envQuality   = "ABEDL_QUALITY"
	envUserAgent = "ABEDL_USER_AGENT"
)

// Config mirrors config.json. Keys missing from the file keep their
// defaults and unknown keys are ignored.
type Config struct {
	OutputDir              string `json:"default_output_dir"`
	Quality                string `json:"default_quality"`
	AudioFormat            string `json:"default_audio_format"`
	VideoFormat            string `json:"default_video_format"`
	WriteInfoJSON          bool   `json:"write_info_json"`
	WriteThumbnail         bool   `json:"write_thumbnail"`
	Subtitles              bool   `json:"subtitles"`
	EmbedSubtitles         bool   `json:"embed_subtitles"`
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads"`
	RetryAttempts          int    `json:"retry_attempts"`
	// UserAgent is sent on HTTP requests. Empty means a browser-like default.
	UserAgent        string `json:"user_agent"`
	YouTubeExtractor string `json:"youtube_extractor"`
	ArchiveMaxPages  int    `json:"archive_max_pages"`
	HistoryDB        string `json:"history_db"`
	RecordHistory    bool   `json:"record_history"`
	// OnDuplicate is overwrite, skip or rename.
	OnDuplicate string `json:"on_duplicate"`
}

// Defaults returns the settings used when no file exists.
func Defaults() Config {
	return Config{
		OutputDir:              "./downloads",
		Quality:                "best",
		AudioFormat:            "mp3",
		VideoFormat:            "mp4",
		MaxConcurrentDownloads: 1,
		RetryAttempts:          3,
		YouTubeExtractor:       "auto",
		ArchiveMaxPages:        324,
		HistoryDB:              filepath.Join(dir(), "history.db"),
		RecordHistory:          true,
		OnDuplicate:            string(downloader.DuplicatePolicyOverwrite),
	}
}

func dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".", ".abedl")
	}
	return filepath.Join(home, ".config", "abedl")
}

// Path returns $ABEDL_CONFIG or ~/.config/abedl/config.json.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return filepath.Join(dir(), "config.json")
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error. A malformed file is logged and ignored.
func Load(path string, logger *log.Logger) Config {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		warn(logger, "could not read config, using defaults", "path", path, "err", err)
	default:
		loaded := Defaults()
		if err := json.Unmarshal(data, &loaded); err != nil {
			warn(logger, "could not parse config, using defaults", "path", path, "err", err)
		} else {
			cfg = loaded
		}
	}
	cfg.applyEnv()
	return cfg
}

func warn(logger *log.Logger, msg string, keyvals ...any) {
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn(msg, keyvals...)
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envOutputDir)); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(envQuality)); v != "" {
		c.Quality = v
	}
	if v := strings.TrimSpace(os.Getenv(envUserAgent)); v != "" {
		c.UserAgent = v
	}
}

// Save writes c to path as indented JSON, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return downloader.Wrap(downloader.CategoryFilesystem, fmt.Errorf("creating config dir: %w", err))
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return downloader.Wrap(downloader.CategoryFilesystem, fmt.Errorf("writing config: %w", err))
	}
	return nil
}

// Init writes the defaults to path unless a file is already there.
func Init(path string) (bool, error) {
	if Exists(path) {
		return false, nil
	}
	return true, Defaults().Save(path)
}

// Options converts the config to download options.
func (c Config) Options() downloader.Options {
	opts := downloader.DefaultOptions()
	opts.OutputDir = downloader.StringsOrFallback(c.OutputDir, opts.OutputDir)
	opts.Quality = downloader.StringsOrFallback(c.Quality, opts.Quality)
	opts.AudioFormat = downloader.StringsOrFallback(c.AudioFormat, opts.AudioFormat)
	opts.VideoFormat = downloader.StringsOrFallback(c.VideoFormat, opts.VideoFormat)
	opts.Extractor = downloader.StringsOrFallback(c.YouTubeExtractor, opts.Extractor)
	opts.WriteInfoJSON = c.WriteInfoJSON
	opts.WriteThumbnail = c.WriteThumbnail
	opts.Subtitles = c.Subtitles
	opts.EmbedSubtitles = c.EmbedSubtitles
	opts.UserAgent = c.UserAgent
	opts.Retries = c.RetryAttempts
	opts.OnDuplicate = downloader.DuplicatePolicy(c.OnDuplicate).OrDefault()
	return opts
}

// Jobs returns max_concurrent_downloads, at least 1.
func (c Config) Jobs() int {
	if c.MaxConcurrentDownloads < 1 {
		return 1
	}
	return c.MaxConcurrentDownloads
}
