package downloader

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// ItemResult is what a finished download reports to the printer.
type ItemResult struct {
	Path  string
	Bytes int64
}

type Printer struct {
	out        io.Writer
	logger     *log.Logger
	quiet      bool
	color      bool
	columns    int
	titleWidth int

	progressEnabled bool
	mu              sync.Mutex

	okStyle   lipgloss.Style
	failStyle lipgloss.Style
	skipStyle lipgloss.Style
}

// NewPrinter writes item lines to out and routes log messages to logger.
// A nil logger gets a default one on out.
func NewPrinter(out io.Writer, logger *log.Logger, quiet bool) *Printer {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = log.NewWithOptions(out, log.Options{Level: log.InfoLevel})
	}
	columns := terminalColumns()
	if columns <= 0 {
		columns = 100
	}

	titleWidth := columns - 44
	if titleWidth < 20 {
		titleWidth = 20
	}
	if titleWidth > 60 {
		titleWidth = 60
	}

	color := out == os.Stderr && supportsColor()
	return &Printer{
		out:             out,
		logger:          logger,
		quiet:           quiet,
		color:           color,
		columns:         columns,
		titleWidth:      titleWidth,
		progressEnabled: !quiet && color,
		okStyle:         lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skipStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	}
}

// Logger returns the structured logger behind the printer.
func (p *Printer) Logger() *log.Logger {
	return p.logger
}

// Quiet reports whether item output is suppressed.
func (p *Printer) Quiet() bool {
	return p.quiet
}

// DisableProgress turns off in-place progress lines, e.g. for parallel runs.
func (p *Printer) DisableProgress() {
	p.mu.Lock()
	p.progressEnabled = false
	p.mu.Unlock()
}

func (p *Printer) Log(level LogLevel, msg string) {
	switch level {
	case LogDebug:
		p.logger.Debug(msg)
	case LogInfo:
		if p.quiet {
			return
		}
		p.logger.Info(msg)
	case LogWarn:
		p.logger.Warn(msg)
	default:
		p.logger.Error(msg)
	}
}

// Warnings logs each message at warn level.
func (p *Printer) Warnings(msgs []string) {
	for _, msg := range msgs {
		p.Log(LogWarn, msg)
	}
}

func (p *Printer) Prefix(index, total int, title string) string {
	if total <= 0 {
		total = 1
	}
	width := len(strconv.Itoa(total))
	idx := fmt.Sprintf("%*d/%d", width, index, total)
	return fmt.Sprintf("[%s] %-*s", idx, p.titleWidth, truncateText(title, p.titleWidth))
}

func (p *Printer) progressLine(prefix string, current, total int64, elapsed time.Duration, bar string) string {
	speed := ""
	if elapsed > 0 {
		speed = humanBytes(int64(float64(current)/elapsed.Seconds())) + "/s"
	}

	if total > 0 {
		percent := float64(current) * 100 / float64(total)
		if bar != "" {
			return fmt.Sprintf("%s %s %6.2f%% %s", prefix, bar, percent, padLeft(speed, 10))
		}
		return fmt.Sprintf("%s %6.2f%% %s / %s %s",
			prefix,
			percent,
			padLeft(humanBytes(current), 9),
			padLeft(humanBytes(total), 9),
			padLeft(speed, 10),
		)
	}

	return fmt.Sprintf("%s %s %s",
		prefix,
		padLeft(humanBytes(current), 9),
		padLeft(speed, 10),
	)
}

func (p *Printer) writeProgressLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.progressEnabled {
		return
	}
	if line == "\n" {
		fmt.Fprint(p.out, "\n")
		return
	}
	fmt.Fprintf(p.out, "\r%s", truncateText(line, p.columns))
}

func (p *Printer) ItemResult(prefix string, result ItemResult, err error) {
	if err == nil && p.quiet {
		return
	}

	statusText := "OK"
	style := p.okStyle
	detail := fmt.Sprintf("%s %s", padLeft(humanBytes(result.Bytes), 9), result.Path)
	if err != nil {
		statusText = "FAIL"
		style = p.failStyle
		detail = err.Error()
	}

	maxDetail := p.columns - len(prefix) - len(statusText) - 3
	if maxDetail < 0 {
		maxDetail = 0
	}
	detail = truncateText(detail, maxDetail)

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s %s\n", prefix, p.colorize(statusText, style), detail)
}

func (p *Printer) ItemSkipped(prefix, reason string) {
	if p.quiet {
		return
	}
	maxDetail := p.columns - len(prefix) - len("SKIP") - 3
	if maxDetail < 0 {
		maxDetail = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s %s\n", prefix, p.colorize("SKIP", p.skipStyle), truncateText(reason, maxDetail))
}

func (p *Printer) Summary(total, ok, failed, skipped int, bytes int64) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "Summary: %s %d | %s %d | %s %d | TOTAL %d | SIZE %s\n",
		p.colorize("OK", p.okStyle), ok,
		p.colorize("FAIL", p.failStyle), failed,
		p.colorize("SKIP", p.skipStyle), skipped,
		total, humanBytes(bytes))
}

func (p *Printer) colorize(text string, style lipgloss.Style) string {
	if !p.color {
		return text
	}
	return style.Render(text)
}

func padLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat(" ", width-len(value)) + value
}

func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

func terminalColumns() int {
	if columns := os.Getenv("COLUMNS"); columns != "" {
		if val, err := strconv.Atoi(columns); err == nil && val > 0 {
			return val
		}
	}
	return 0
}

func supportsColor() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" || os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
