// Package builtin registers the handlers shipped with abedl.
package builtin

import (
	"github.com/abedl/abedl/internal/downloader"
	"github.com/abedl/abedl/internal/platform/cbn"
	"github.com/abedl/abedl/internal/platform/keysforkids"
	"github.com/abedl/abedl/internal/platform/youtube"
	"github.com/abedl/abedl/internal/ytdlp"
)

var ytdlpAvailable = func() bool {
	return (&ytdlp.Client{}).Available()
}

// Register adds YouTube, CBN and Keys for Kids to reg in that order.
// CBN is left out with a warning when yt-dlp is missing.
func Register(reg *downloader.Registry, printer *downloader.Printer) {
	reg.Register(youtube.Name, youtube.Factory(printer))
	if ytdlpAvailable() {
		reg.Register(cbn.Name, cbn.Factory(printer))
	} else {
		printer.Log(downloader.LogWarn, "yt-dlp not found, skipping the cbn downloader")
	}
	reg.Register(keysforkids.Name, keysforkids.Factory(printer))
}

// NewRegistry returns a registry holding the built-in handlers.
func NewRegistry(printer *downloader.Printer) *downloader.Registry {
	reg := downloader.NewRegistry()
	Register(reg, printer)
	return reg
}
