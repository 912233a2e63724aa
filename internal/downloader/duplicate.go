package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DuplicatePolicy decides what happens when a download's target file
// already exists.
type DuplicatePolicy string

const (
	DuplicatePolicyOverwrite DuplicatePolicy = "overwrite"
	DuplicatePolicySkip      DuplicatePolicy = "skip"
	DuplicatePolicyRename    DuplicatePolicy = "rename"
)

func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", string(DuplicatePolicyOverwrite):
		return DuplicatePolicyOverwrite, nil
	case string(DuplicatePolicySkip):
		return DuplicatePolicySkip, nil
	case string(DuplicatePolicyRename):
		return DuplicatePolicyRename, nil
	default:
		return "", Wrapf(CategoryInvalidURL, "invalid on-duplicate policy: %q", raw)
	}
}

// OrDefault maps empty or unknown policies to overwrite.
func (p DuplicatePolicy) OrDefault() DuplicatePolicy {
	normalized, err := ParseDuplicatePolicy(string(p))
	if err != nil {
		return DuplicatePolicyOverwrite
	}
	return normalized
}

// TargetPath builds the output path for name in dir and applies policy
// when the file exists. keep is true when the existing file should be
// reported as the result instead of downloading again.
func TargetPath(dir, name string, policy DuplicatePolicy) (path string, keep bool, err error) {
	path, err = OutputPath(dir, name)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return path, false, nil
		}
		return "", false, Wrap(CategoryFilesystem, err)
	}
	if info.IsDir() {
		return "", false, Wrap(CategoryFilesystem, fmt.Errorf("output path is a directory: %s", path))
	}

	switch policy.OrDefault() {
	case DuplicatePolicySkip:
		return path, true, nil
	case DuplicatePolicyRename:
		renamed, err := nextAvailablePath(path)
		return renamed, false, err
	default:
		return path, false, nil
	}
}

// nextAvailablePath returns "name (N).ext" for the first free N.
func nextAvailablePath(path string) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	for i := 1; i < 10000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", name, i, ext))
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", Wrap(CategoryFilesystem, err)
		}
	}
	return "", Wrap(CategoryFilesystem, fmt.Errorf("unable to find available filename for %s", path))
}
