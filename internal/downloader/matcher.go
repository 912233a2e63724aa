package downloader

import (
	"fmt"
	"regexp"
)

// PatternMatcher reports whether a URL starts with any of a set of
// case-insensitive patterns. Matches are anchored at the start of the
// URL only, so trailing query strings do not matter.
type PatternMatcher struct {
	patterns []*regexp.Regexp
}

// NewPatternMatcher compiles patterns in order.
func NewPatternMatcher(patterns ...string) (*PatternMatcher, error) {
	m := &PatternMatcher{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)^(?:` + p + `)`)
		if err != nil {
			return nil, fmt.Errorf("compiling url pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// MustPatternMatcher is NewPatternMatcher that panics on a bad pattern.
func MustPatternMatcher(patterns ...string) *PatternMatcher {
	m, err := NewPatternMatcher(patterns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns true if any pattern matches at the start of rawURL.
func (m *PatternMatcher) Match(rawURL string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *PatternMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}
