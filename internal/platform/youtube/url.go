package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	playlistURLRegex = regexp.MustCompile(`youtube\.com/(?:playlist\?list=|watch\?.*list=)`)
	listParamRegex   = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`)
)

// isPlaylistURL reports whether rawURL names a playlist, either directly or
// as a watch URL carrying a list parameter.
func isPlaylistURL(rawURL string) bool {
	return playlistURLRegex.MatchString(rawURL)
}

// playlistURL rewrites a watch URL with a list parameter into the
// canonical playlist URL. Other URLs are returned unchanged.
func playlistURL(rawURL string) string {
	m := listParamRegex.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}
	return "https://www.youtube.com/playlist?list=" + m[1]
}

func normalizeHostname(parsed *url.URL) string {
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimPrefix(host, "m.")
}

// normalizeURL converts youtu.be, shorts, live and music links into a
// www.youtube.com watch URL.
func normalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.Contains(parsed.Scheme, "http") {
		if parsed, err = url.Parse("https://" + raw); err != nil {
			return raw
		}
	}

	query := parsed.Query()
	switch normalizeHostname(parsed) {
	case "youtu.be":
		id := strings.Trim(parsed.Path, "/")
		if id == "" {
			return raw
		}
		query.Set("v", id)
		return watchURL(query)
	case "music.youtube.com":
		query.Del("si")
		parsed.Host = "www.youtube.com"
		parsed.RawQuery = query.Encode()
		return parsed.String()
	case "youtube.com":
		parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
		if len(parts) >= 2 && (parts[0] == "live" || parts[0] == "shorts") && parts[1] != "" {
			if query.Get("v") == "" {
				query.Set("v", parts[1])
			}
			return watchURL(query)
		}
		if parsed.Host != "www.youtube.com" {
			parsed.Host = "www.youtube.com"
			return parsed.String()
		}
	}
	return raw
}

func watchURL(query url.Values) string {
	u := url.URL{Scheme: "https", Host: "www.youtube.com", Path: "/watch", RawQuery: query.Encode()}
	return u.String()
}

func watchURLForID(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
