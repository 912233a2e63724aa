package keysforkids

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	pageDatePattern = regexp.MustCompile(`(\w+ \d+, \d{4})`)
	versePattern    = regexp.MustCompile(`<a[^>]*>([^<]*\d+:\d+[^<]*)</a>`)
	mp3Pattern      = regexp.MustCompile(`https?://[^\s<>"]+\.mp3`)
	titleUnsafe     = regexp.MustCompile(`[^\w\s-]`)
	spaces          = regexp.MustCompile(`\s+`)
)

// Devotional is what a devotional page says about itself.
type Devotional struct {
	URL      string
	Title    string
	Date     time.Time
	Verse    string
	AudioURL string
}

// DateISO returns the devotional date as YYYY-MM-DD, or "unknown".
func (d Devotional) DateISO() string {
	if d.Date.IsZero() {
		return "unknown"
	}
	return d.Date.Format(time.DateOnly)
}

// Filename returns "{date}_{title}.mp3".
func (d Devotional) Filename() string {
	title := titleUnsafe.ReplaceAllString(d.Title, "")
	title = spaces.ReplaceAllString(strings.TrimSpace(title), "_")
	if title == "" {
		title = "devotional"
	}
	return d.DateISO() + "_" + title + ".mp3"
}

// ParsePage extracts devotional metadata and the audio link from a page.
func ParsePage(pageURL, html string) Devotional {
	d := Devotional{URL: pageURL}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		d.Title = strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
	}

	for _, m := range pageDatePattern.FindAllStringSubmatch(html, -1) {
		if t, err := time.Parse(dateLiteral, m[1]); err == nil {
			d.Date = t
			break
		}
	}

	if m := versePattern.FindStringSubmatch(html); m != nil {
		d.Verse = strings.TrimSpace(m[1])
	}
	d.AudioURL = findAudioURL(html)
	return d
}

// findAudioURL prefers the site's podcast player links over other mp3s.
func findAudioURL(html string) string {
	matches := mp3Pattern.FindAllString(html, -1)
	for _, u := range matches {
		if strings.Contains(u, "keysforkids.org/podcast-player/") {
			return u
		}
	}
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
