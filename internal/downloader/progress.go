package downloader

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

const progressBarWidth = 24

// ProgressWriter counts bytes written through it and redraws a progress
// line at most every 100ms.
type ProgressWriter struct {
	size       int64
	total      atomic.Int64
	start      time.Time
	lastUpdate atomic.Int64 // Unix nanoseconds
	finished   atomic.Bool
	prefix     string
	printer    *Printer
	bar        progress.Model
}

// NewProgressWriter starts tracking a transfer of size bytes. A size of
// zero or less means unknown.
func (p *Printer) NewProgressWriter(size int64, prefix string) *ProgressWriter {
	now := time.Now()
	pw := &ProgressWriter{
		size:    size,
		start:   now,
		prefix:  prefix,
		printer: p,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(progressBarWidth),
			progress.WithoutPercentage(),
		),
	}
	pw.lastUpdate.Store(now.UnixNano())
	return pw
}

func (p *ProgressWriter) Write(b []byte) (int, error) {
	n := len(b)
	p.total.Add(int64(n))

	now := time.Now()
	lastUpdateNano := p.lastUpdate.Load()
	if now.UnixNano()-lastUpdateNano >= 100*time.Millisecond.Nanoseconds() {
		if p.lastUpdate.CompareAndSwap(lastUpdateNano, now.UnixNano()) {
			p.print()
		}
	}
	return n, nil
}

// Written returns the number of bytes seen so far.
func (p *ProgressWriter) Written() int64 {
	return p.total.Load()
}

func (p *ProgressWriter) print() {
	if p.finished.Load() || p.printer == nil {
		return
	}
	total := p.total.Load()
	bar := ""
	if p.size > 0 {
		bar = p.bar.ViewAs(float64(total) / float64(p.size))
	}
	line := p.printer.progressLine(p.prefix, total, p.size, time.Since(p.start), bar)
	p.printer.writeProgressLine(line)
}

// Finish draws the final state and ends the line.
func (p *ProgressWriter) Finish() {
	if p.finished.Swap(true) || p.printer == nil {
		return
	}
	if p.size <= 0 {
		p.size = p.total.Load()
	}
	p.finished.Store(false)
	p.print()
	p.finished.Store(true)
	p.printer.writeProgressLine("\n")
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}

// CopyWithContext copies src to dst and stops once ctx is done.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, &contextReader{ctx: ctx, r: src})
}
