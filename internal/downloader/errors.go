package downloader

import (
	"context"
	"errors"
	"fmt"
)

// Category groups failures so the CLI can pick an exit code.
type Category string

const (
	CategoryNoHandler   Category = "no_handler"
	CategoryExtraction  Category = "extraction"
	CategoryNetwork     Category = "network"
	CategoryFilesystem  Category = "filesystem"
	CategoryInvalidURL  Category = "invalid_url"
	CategoryUnsupported Category = "unsupported"
	CategoryRestricted  Category = "restricted"
	CategoryNotFound    Category = "not_found"
	CategoryUnknown     Category = "unknown"
)

// ErrNoHandler is returned when no registered handler accepts a URL.
var ErrNoHandler = errors.New("no downloader found")

// CategorizedError attaches a Category to an underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

// Wrap tags err with cat. An error that already carries a category keeps it.
func Wrap(cat Category, err error) error {
	if err == nil {
		return nil
	}
	var ce CategorizedError
	if errors.As(err, &ce) {
		return err
	}
	return CategorizedError{Category: cat, Err: err}
}

// Wrapf is Wrap over a formatted error.
func Wrapf(cat Category, format string, args ...any) error {
	return Wrap(cat, fmt.Errorf(format, args...))
}

// CategoryOf reports the category carried by err.
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, ErrNoHandler) {
		return CategoryNoHandler
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	return CategoryUnknown
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch CategoryOf(err) {
	case CategoryInvalidURL:
		return 2
	case CategoryNoHandler, CategoryUnsupported:
		return 3
	case CategoryRestricted:
		return 4
	case CategoryNetwork:
		return 5
	case CategoryFilesystem:
		return 6
	case CategoryNotFound:
		return 7
	default:
		return 1
	}
}

func noHandlerError(rawURL string) error {
	return CategorizedError{
		Category: CategoryNoHandler,
		Err:      fmt.Errorf("%w for URL: %s", ErrNoHandler, rawURL),
	}
}
