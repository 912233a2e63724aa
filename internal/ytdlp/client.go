// Package ytdlp drives the yt-dlp command line tool.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

const defaultBinary = "yt-dlp"

// ErrNotInstalled is returned when the yt-dlp binary cannot be found.
var ErrNotInstalled = errors.New("yt-dlp is not installed or not on PATH")

type OutputStream string

const (
	StreamStdout OutputStream = "stdout"
	StreamStderr OutputStream = "stderr"
)

// Client runs yt-dlp with shared cookie settings.
type Client struct {
	Binary             string
	Cookies            string
	CookiesFromBrowser string
	UserAgent          string
}

// DownloadOptions configures one download.
type DownloadOptions struct {
	// OutputTemplate is a yt-dlp output template including directory.
	OutputTemplate string
	Format         string
	MergeFormat    string
	AudioOnly      bool
	AudioFormat    string
	Subtitles      bool
	EmbedSubtitles bool
	WriteInfoJSON  bool
	WriteThumbnail bool
	// ForceOverwrites replaces existing files instead of skipping them.
	ForceOverwrites bool
	Progress        func(stream OutputStream, line string)
}

// ExecError carries the tail of yt-dlp's stderr.
type ExecError struct {
	Err    error
	Stderr string
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("yt-dlp failed: %v", e.Err)
	}
	return fmt.Sprintf("yt-dlp failed: %v: %s", e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

type DependencyReport struct {
	YTDLPFound  bool   `json:"yt_dlp_found"`
	YTDLPPath   string `json:"yt_dlp_path,omitempty"`
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

// DependencyStatus looks up yt-dlp and ffmpeg on PATH.
func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath(defaultBinary); err == nil {
		report.YTDLPFound = true
		report.YTDLPPath = path
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

// Available reports whether the client's binary can be found.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

// Version returns the output of yt-dlp --version.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.output(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Info returns metadata for a single video without downloading it.
func (c *Client) Info(ctx context.Context, rawURL string) (*Info, error) {
	return c.dumpJSON(ctx, []string{"-J", "--no-playlist", "--no-warnings"}, rawURL)
}

// FlatPlaylist lists playlist entries without resolving each video.
// limit caps the number of entries when positive.
func (c *Client) FlatPlaylist(ctx context.Context, rawURL string, limit int) (*Info, error) {
	args := []string{"--flat-playlist", "-J", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	return c.dumpJSON(ctx, args, rawURL)
}

// Download fetches rawURL and returns the final file path.
func (c *Client) Download(ctx context.Context, rawURL string, opts DownloadOptions) (string, error) {
	if strings.TrimSpace(opts.OutputTemplate) == "" {
		return "", fmt.Errorf("output template is required")
	}
	if dir := filepath.Dir(opts.OutputTemplate); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}

	args := []string{
		"--no-playlist",
		"--newline",
		"--progress",
		"--print", "after_move:filepath",
		"-o", opts.OutputTemplate,
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.AudioOnly {
		args = append(args, "-x")
		if opts.AudioFormat != "" {
			args = append(args, "--audio-format", opts.AudioFormat)
		}
	} else if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	if opts.Subtitles {
		args = append(args, "--write-subs", "--sub-langs", "en.*,en")
	}
	if opts.EmbedSubtitles {
		args = append(args, "--embed-subs")
	}
	if opts.WriteInfoJSON {
		args = append(args, "--write-info-json")
	}
	if opts.WriteThumbnail {
		args = append(args, "--write-thumbnail")
	}
	if opts.ForceOverwrites {
		args = append(args, "--force-overwrites")
	}
	args = append(c.commonArgs(), args...)
	args = append(args, rawURL)

	var lastPath string
	progress := func(stream OutputStream, line string) {
		if stream == StreamStdout && !strings.HasPrefix(line, "[") && strings.TrimSpace(line) != "" {
			lastPath = strings.TrimSpace(line)
		}
		if opts.Progress != nil {
			opts.Progress(stream, line)
		}
	}
	if err := c.run(ctx, args, progress); err != nil {
		return "", err
	}
	if lastPath == "" {
		return "", fmt.Errorf("yt-dlp did not report an output file")
	}
	return lastPath, nil
}

func (c *Client) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return defaultBinary
}

func (c *Client) commonArgs() []string {
	var args []string
	if strings.TrimSpace(c.Cookies) != "" {
		args = append(args, "--cookies", c.Cookies)
	}
	if strings.TrimSpace(c.CookiesFromBrowser) != "" {
		args = append(args, "--cookies-from-browser", c.CookiesFromBrowser)
	}
	if strings.TrimSpace(c.UserAgent) != "" {
		args = append(args, "--user-agent", c.UserAgent)
	}
	return args
}

func (c *Client) dumpJSON(ctx context.Context, args []string, rawURL string) (*Info, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("source URL is required")
	}
	args = append(c.commonArgs(), args...)
	args = append(args, rawURL)

	out, err := c.output(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decoding yt-dlp output: %w", err)
	}
	return &info, nil
}

func (c *Client) output(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrNotInstalled
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExecError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return stdout.Bytes(), nil
}

func (c *Client) run(ctx context.Context, args []string, progress func(OutputStream, string)) error {
	cmd := exec.CommandContext(ctx, c.binary(), args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("setup stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("setup stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ErrNotInstalled
		}
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	var errBuf strings.Builder
	var mu sync.Mutex
	var wg sync.WaitGroup

	read := func(stream OutputStream, r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		scanner.Split(splitByNewlineOrCR)
		for scanner.Scan() {
			line := scanner.Text()
			mu.Lock()
			if stream == StreamStderr {
				appendLimited(&errBuf, line)
			}
			if progress != nil {
				progress(stream, line)
			}
			mu.Unlock()
		}
	}

	wg.Add(2)
	go read(StreamStdout, stdoutPipe)
	go read(StreamStderr, stderrPipe)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExecError{Err: err, Stderr: strings.TrimSpace(errBuf.String())}
	}
	return nil
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendLimited(b *strings.Builder, line string) {
	const maxKeep = 8192
	if b.Len() >= maxKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
