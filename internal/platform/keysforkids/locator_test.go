package keysforkids

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

const testBase = "https://www.keysforkids.org"

type fakeSource struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	requests []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeSource) Page(ctx context.Context, rawURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, rawURL)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := f.failures[rawURL]; ok {
		return "", err
	}
	if body, ok := f.pages[rawURL]; ok {
		return body, nil
	}
	return "<html><body>nothing here</body></html>", nil
}

func listing(date, slug string) string {
	return fmt.Sprintf(`<div class="episode"><span class="date">%s</span>
<a href="%s/podcast/keys-for-kids/%s/">Listen</a></div>`, date, testBase, slug)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testLocator(src PageSource, today time.Time) *Locator {
	return &Locator{
		Source:   src,
		BaseURL:  testBase,
		MaxPages: DefaultMaxPages,
		Today:    func() time.Time { return today },
	}
}

func pageURL(n int) string {
	if n == 1 {
		return testBase + "/podcasts/keys-for-kids/"
	}
	return fmt.Sprintf("%s/podcasts/keys-for-kids/page/%d/", testBase, n)
}

func TestLocateFastPathSkipsProbing(t *testing.T) {
	src := newFakeSource()
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-05"] = listing("March 5, 2024", "the-lost-sheep")

	l := testLocator(src, day(2024, 12, 31))
	got, err := l.Locate(context.Background(), day(2024, 3, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testBase+"/podcast/keys-for-kids/the-lost-sheep/" {
		t.Fatalf("unexpected URL %q", got)
	}
	if len(src.requests) != 1 {
		t.Fatalf("expected a single request, got %v", src.requests)
	}
}

func TestLocateDefaultCategoryLink(t *testing.T) {
	src := newFakeSource()
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-05"] = `March 5, 2024 <a href="` + testBase + `/podcast/default/a-gift/">x</a>`

	got, err := testLocator(src, day(2024, 3, 6)).Locate(context.Background(), day(2024, 3, 5))
	if err != nil || got != testBase+"/podcast/default/a-gift/" {
		t.Fatalf("expected default category link, got %q (%v)", got, err)
	}
}

func TestProbeOrder(t *testing.T) {
	tests := []struct {
		name     string
		date     time.Time
		today    time.Time
		maxPages int
		want     []int
	}{
		{
			name:     "estimate with full radius then page 1",
			date:     day(2024, 6, 4),
			today:    day(2024, 12, 31),
			maxPages: DefaultMaxPages,
			want:     []int{21, 20, 22, 19, 23, 18, 24, 17, 25, 16, 26, 1},
		},
		{
			name:     "recent date starts at page 1",
			date:     day(2024, 12, 28),
			today:    day(2024, 12, 31),
			maxPages: DefaultMaxPages,
			want:     []int{1, 2, 3, 4, 5, 6},
		},
		{
			name:     "estimate clamped to max pages",
			date:     day(2010, 1, 1),
			today:    day(2024, 12, 31),
			maxPages: 30,
			want:     []int{30, 29, 28, 27, 26, 25, 1},
		},
		{
			name:     "near the start keeps pages above 1",
			date:     day(2024, 11, 21),
			today:    day(2024, 12, 31),
			maxPages: DefaultMaxPages,
			want:     []int{4, 3, 5, 2, 6, 1, 7, 8, 9},
		},
		{
			name:     "future date",
			date:     day(2025, 2, 1),
			today:    day(2024, 12, 31),
			maxPages: 3,
			want:     []int{1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLocator(nil, tt.today)
			l.MaxPages = tt.maxPages
			got := l.ProbeOrder(tt.date)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for _, p := range got {
				if p < 1 || p > tt.maxPages {
					t.Fatalf("page %d outside [1, %d]", p, tt.maxPages)
				}
			}
		})
	}
}

func TestLocateProbesAroundEstimate(t *testing.T) {
	src := newFakeSource()
	src.pages[pageURL(19)] = listing("June 4, 2024", "found-it")

	got, err := testLocator(src, day(2024, 12, 31)).Locate(context.Background(), day(2024, 6, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != testBase+"/podcast/keys-for-kids/found-it/" {
		t.Fatalf("unexpected URL %q", got)
	}
	want := []string{
		testBase + "/podcasts/keys-for-kids/?date=2024-06-04",
		pageURL(21), pageURL(20), pageURL(22), pageURL(19),
	}
	if !reflect.DeepEqual(src.requests, want) {
		t.Fatalf("unexpected requests:\n%v\nwant:\n%v", src.requests, want)
	}
}

func TestLocateSwallowsFetchErrors(t *testing.T) {
	src := newFakeSource()
	src.failures[testBase+"/podcasts/keys-for-kids/?date=2024-06-04"] = errors.New("connection reset")
	src.failures[pageURL(21)] = errors.New("timeout")
	src.pages[pageURL(20)] = listing("June 4, 2024", "after-errors")

	got, err := testLocator(src, day(2024, 12, 31)).Locate(context.Background(), day(2024, 6, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(got, "/after-errors/") {
		t.Fatalf("unexpected URL %q", got)
	}
}

func TestLocateFallsBackToPageOne(t *testing.T) {
	src := newFakeSource()
	src.pages[pageURL(1)] = listing("June 4, 2024", "page-one")

	got, err := testLocator(src, day(2024, 12, 31)).Locate(context.Background(), day(2024, 6, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(got, "/page-one/") {
		t.Fatalf("unexpected URL %q", got)
	}
	if last := src.requests[len(src.requests)-1]; last != pageURL(1) {
		t.Fatalf("expected page 1 to be probed last, got %s", last)
	}
}

func TestLocateNotFound(t *testing.T) {
	src := newFakeSource()
	_, err := testLocator(src, day(2024, 12, 31)).Locate(context.Background(), day(2024, 6, 4))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(src.requests) != 13 {
		t.Fatalf("expected 13 requests (search + 12 pages), got %d", len(src.requests))
	}
}

func TestLocateIgnoresLinksOutsideWindow(t *testing.T) {
	src := newFakeSource()
	body := "March 5, 2024" + strings.Repeat(" ", 1200) + `<a href="` + testBase + `/podcast/keys-for-kids/too-far/">x</a>`
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-05"] = body

	l := testLocator(src, day(2024, 3, 6))
	l.MaxPages = 1
	if _, err := l.Locate(context.Background(), day(2024, 3, 5)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected link beyond the window to be ignored, got %v", err)
	}
}

func TestLocateDayIsNotZeroPadded(t *testing.T) {
	src := newFakeSource()
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-05"] = listing("March 05, 2024", "padded")

	l := testLocator(src, day(2024, 3, 6))
	l.MaxPages = 1
	if _, err := l.Locate(context.Background(), day(2024, 3, 5)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected zero padded date not to match, got %v", err)
	}
}

func TestLocateContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testLocator(newFakeSource(), day(2024, 12, 31)).Locate(ctx, day(2024, 6, 4))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLocateRangeSkipsMissingDays(t *testing.T) {
	src := newFakeSource()
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-04"] = listing("March 4, 2024", "day-one")
	src.pages[testBase+"/podcasts/keys-for-kids/?date=2024-03-06"] = listing("March 6, 2024", "day-three")

	l := testLocator(src, day(2024, 3, 10))
	got, err := l.LocateRange(context.Background(), day(2024, 3, 4), day(2024, 3, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(got), got)
	}
	if !got[0].Date.Equal(day(2024, 3, 4)) || !got[1].Date.Equal(day(2024, 3, 6)) {
		t.Fatalf("unexpected dates %v, %v", got[0].Date, got[1].Date)
	}
}

func TestDays(t *testing.T) {
	got := Days(time.Date(2024, 2, 28, 15, 0, 0, 0, time.UTC), day(2024, 3, 1))
	if len(got) != 3 || !got[1].Equal(day(2024, 2, 29)) {
		t.Fatalf("unexpected days %v", got)
	}
	if Days(day(2024, 3, 2), day(2024, 3, 1)) != nil {
		t.Fatalf("expected no days for an inverted range")
	}
}
