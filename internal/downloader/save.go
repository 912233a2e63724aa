package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
)

// SaveStream copies src into path through a ".part" file and renames it
// on success. Progress is drawn under label unless the printer is quiet.
func (p *Printer) SaveStream(ctx context.Context, path string, src io.Reader, size int64, label string) (int64, error) {
	partPath := path + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return 0, Wrap(CategoryFilesystem, fmt.Errorf("opening output file: %w", err))
	}

	var writer io.Writer = file
	var progress *ProgressWriter
	if p != nil && !p.Quiet() {
		progress = p.NewProgressWriter(size, label)
		writer = io.MultiWriter(file, progress)
	}

	written, copyErr := CopyWithContext(ctx, writer, src)
	closeErr := file.Close()
	if copyErr != nil {
		os.Remove(partPath)
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, Wrap(CategoryNetwork, fmt.Errorf("download failed: %w", copyErr))
	}
	if closeErr != nil {
		os.Remove(partPath)
		return written, Wrap(CategoryFilesystem, closeErr)
	}
	if size > 0 && written < size {
		os.Remove(partPath)
		return written, Wrap(CategoryNetwork, fmt.Errorf("incomplete download: got %d of %d bytes", written, size))
	}
	if progress != nil {
		progress.Finish()
	}
	if err := os.Rename(partPath, path); err != nil {
		os.Remove(partPath)
		return written, Wrap(CategoryFilesystem, fmt.Errorf("finalizing output file: %w", err))
	}
	return written, nil
}
