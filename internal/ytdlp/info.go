package ytdlp

import (
	"fmt"
	"time"
)

// Info is the subset of yt-dlp's -J output that abedl reads.
type Info struct {
	Type        string   `json:"_type"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Uploader    string   `json:"uploader"`
	Channel     string   `json:"channel"`
	UploadDate  string   `json:"upload_date"`
	Duration    float64  `json:"duration"`
	ViewCount   int64    `json:"view_count"`
	WebpageURL  string   `json:"webpage_url"`
	URL         string   `json:"url"`
	Ext         string   `json:"ext"`
	Thumbnail   string   `json:"thumbnail"`
	Entries     []Info   `json:"entries"`
	Formats     []Format `json:"formats"`
}

type Format struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Resolution     string  `json:"resolution"`
	FormatNote     string  `json:"format_note"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	TBR            float64 `json:"tbr"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
}

// DurationValue converts the duration in seconds.
func (i Info) DurationValue() time.Duration {
	return time.Duration(i.Duration * float64(time.Second))
}

// PageURL returns the best URL for the entry.
func (i Info) PageURL() string {
	if i.WebpageURL != "" {
		return i.WebpageURL
	}
	return i.URL
}

// UploadDateISO turns yt-dlp's YYYYMMDD into YYYY-MM-DD.
func (i Info) UploadDateISO() string {
	if len(i.UploadDate) != 8 {
		return i.UploadDate
	}
	return fmt.Sprintf("%s-%s-%s", i.UploadDate[:4], i.UploadDate[4:6], i.UploadDate[6:])
}

// HasVideo and HasAudio treat an empty codec as present, as yt-dlp leaves
// codecs blank for some extractors.
func (f Format) HasVideo() bool {
	return f.VCodec != "none"
}

func (f Format) HasAudio() bool {
	return f.ACodec != "none"
}

// Size prefers the exact size over the estimate.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}
