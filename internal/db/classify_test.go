package db

import "testing"

func TestClassifyMediaType(t *testing.T) {
	tests := []struct {
		name      string
		platform  string
		filePath  string
		audioOnly bool
		want      string
	}{
		{
			name:     "devotional",
			platform: "keysforkids",
			filePath: "/tmp/2025-11-10_Title.mp3",
			want:     "podcast",
		},
		{
			name:      "audio only download",
			platform:  "youtube",
			filePath:  "/tmp/song.webm",
			audioOnly: true,
			want:      "music",
		},
		{
			name:     "audio extension",
			platform: "youtube",
			filePath: "/tmp/song.M4A",
			want:     "music",
		},
		{
			name:     "video fallback",
			platform: "cbn",
			filePath: "/tmp/Flying House - E01 - Pilot.mp4",
			want:     "video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyMediaType(tt.platform, tt.filePath, tt.audioOnly)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
