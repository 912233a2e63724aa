package downloader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection picks a subset of playlist entries. A non-empty Items
// expression wins over the Start/End window when it yields any index.
// End of zero means the last entry.
type Selection struct {
	Start int
	End   int
	Items string
}

// ParseItems expands an expression like "1,3,5-7" into sorted, unique
// 1-based indices within 1..total. Malformed tokens and out-of-range
// indices are skipped and reported as warnings.
func ParseItems(expr string, total int) ([]int, []string) {
	var warnings []string
	seen := make(map[int]struct{})

	for _, raw := range strings.Split(expr, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		lo, hi, ok := parseItemToken(token)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("invalid playlist item %q", token))
			continue
		}
		if lo > hi {
			continue
		}
		// Clamp to 1..total before expanding.
		first, last := max(lo, 1), min(hi, total)
		if first != lo || last != hi {
			warnings = append(warnings, outOfRange(lo, hi, total))
		}
		for i := first; i <= last; i++ {
			seen[i] = struct{}{}
		}
	}

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, warnings
}

func outOfRange(lo, hi, total int) string {
	if lo == hi {
		return fmt.Sprintf("playlist item %d out of range (1-%d)", lo, total)
	}
	return fmt.Sprintf("playlist items %d-%d out of range (1-%d)", lo, hi, total)
}

func parseItemToken(token string) (int, int, bool) {
	if before, after, found := strings.Cut(token, "-"); found && before != "" {
		lo, err := strconv.Atoi(strings.TrimSpace(before))
		if err != nil {
			return 0, 0, false
		}
		hi, err := strconv.Atoi(strings.TrimSpace(after))
		if err != nil {
			return 0, 0, false
		}
		return lo, hi, true
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}

// SelectEntries applies sel to entries and returns the chosen entries in
// ascending index order along with any warnings.
func SelectEntries[T any](entries []T, sel Selection) ([]T, []string) {
	total := len(entries)
	var warnings []string

	if strings.TrimSpace(sel.Items) != "" {
		indices, w := ParseItems(sel.Items, total)
		warnings = append(warnings, w...)
		if len(indices) > 0 {
			out := make([]T, 0, len(indices))
			for _, i := range indices {
				out = append(out, entries[i-1])
			}
			return out, warnings
		}
		warnings = append(warnings, "no valid playlist items selected, using playlist range")
	}

	start := max(1, sel.Start) - 1
	end := total
	if sel.End > 0 {
		end = min(total, sel.End)
	}
	if start >= total || start >= end {
		warnings = append(warnings, fmt.Sprintf("playlist range %d-%d selects no entries (playlist has %d)", start+1, end, total))
		return nil, warnings
	}
	return entries[start:end], warnings
}
