// Package cli implements the abedl command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abedl/abedl/internal/app"
	"github.com/abedl/abedl/internal/builtin"
	"github.com/abedl/abedl/internal/config"
	"github.com/abedl/abedl/internal/db"
	"github.com/abedl/abedl/internal/downloader"
)

// Version is printed by --version.
const Version = "1.0.0"

// env holds the state shared by every command of one invocation.
type env struct {
	stdout io.Writer
	stderr io.Writer

	configPath         string
	logLevel           string
	verbose            bool
	quiet              bool
	noColor            bool
	jsonOut            bool
	extractor          string
	cookies            string
	cookiesFromBrowser string
	onDuplicate        string

	cfg     config.Config
	logger  *log.Logger
	printer *downloader.Printer
	reg     *downloader.Registry
}

// exitError carries an exit status for failures that were already shown.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command line against os.Args and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes args with the given output streams.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	e := &env{stdout: stdout, stderr: stderr}
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if e.jsonOut {
		writeJSONError(stdout, "", err)
	} else if !downloader.IsReported(err) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	if code := downloader.ExitCode(err); code != 0 {
		return code
	}
	return 1
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "abedl",
		Short:         "Download videos and audio from YouTube, CBN and Keys for Kids",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.configPath, "config", "", "config file (default $ABEDL_CONFIG or ~/.config/abedl/config.json)")
	pf.StringVar(&e.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&e.quiet, "quiet", false, "suppress progress output (errors still shown)")
	pf.BoolVar(&e.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&e.jsonOut, "json", false, "emit JSON output")
	pf.StringVar(&e.extractor, "extractor", "", "YouTube extractor: auto, native, yt-dlp")
	pf.StringVar(&e.cookies, "cookies", "", "Netscape cookies file passed to yt-dlp")
	pf.StringVar(&e.cookiesFromBrowser, "cookies-from-browser", "", "browser to read cookies from (yt-dlp)")
	pf.StringVar(&e.onDuplicate, "on-duplicate", "", "existing files: overwrite, skip, rename (default on_duplicate)")

	root.AddCommand(
		newDownloadCmd(e),
		newInfoCmd(e),
		newFormatsCmd(e),
		newPlatformsCmd(e),
		newTestCmd(e),
		newDevotionalCmd(e),
		newHistoryCmd(e),
		newConfigCmd(e),
	)
	return root
}

// setup loads config and builds the logger and printer.
func (e *env) setup() error {
	level := log.InfoLevel
	if e.logLevel != "" {
		parsed, err := log.ParseLevel(strings.ToLower(e.logLevel))
		if err != nil {
			return downloader.Wrapf(downloader.CategoryInvalidURL, "invalid --log-level %q", e.logLevel)
		}
		level = parsed
	}
	if e.verbose {
		level = log.DebugLevel
	}
	if e.onDuplicate != "" {
		if _, err := downloader.ParseDuplicatePolicy(e.onDuplicate); err != nil {
			return err
		}
	}
	if e.noColor {
		os.Setenv("NO_COLOR", "1")
	}

	e.logger = log.NewWithOptions(e.stderr, log.Options{Level: level})
	if e.configPath == "" {
		e.configPath = config.Path()
	}
	e.cfg = config.Load(e.configPath, e.logger)
	e.printer = downloader.NewPrinter(e.stderr, e.logger, e.quiet || e.jsonOut)
	return nil
}

// registry builds the handler registry on first use.
func (e *env) registry() *downloader.Registry {
	if e.reg == nil {
		e.reg = builtin.NewRegistry(e.printer)
	}
	return e.reg
}

// options returns config-derived options with the global flags applied.
func (e *env) options() downloader.Options {
	opts := e.cfg.Options()
	opts.Jobs = e.cfg.Jobs()
	opts.Quiet = e.quiet || e.jsonOut
	if e.extractor != "" {
		opts.Extractor = e.extractor
	}
	if e.cookies != "" {
		opts.Cookies = e.cookies
	}
	if e.cookiesFromBrowser != "" {
		opts.CookiesFromBrowser = e.cookiesFromBrowser
	}
	if e.onDuplicate != "" {
		opts.OnDuplicate = downloader.DuplicatePolicy(e.onDuplicate).OrDefault()
	}
	return opts
}

// recorder opens the history database when recording is enabled. The
// returned recorder is nil when nothing should be recorded.
func (e *env) recorder() (app.Recorder, func()) {
	if !e.cfg.RecordHistory || e.cfg.HistoryDB == "" {
		return nil, func() {}
	}
	store, err := db.Open(e.cfg.HistoryDB)
	if err != nil {
		e.logger.Warn("download history disabled", "err", err)
		return nil, func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			e.logger.Debug("closing history database", "err", err)
		}
	}
}

// resolve finds the handler for rawURL.
func (e *env) resolve(rawURL string) (downloader.Handler, error) {
	return e.registry().Resolve(rawURL, e.options())
}

func (e *env) interactive() bool {
	return !e.quiet && !e.jsonOut && e.stderr == os.Stderr && stderrIsTTY()
}

func stderrIsTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
