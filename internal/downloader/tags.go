package downloader

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// EmbedAudioTags writes metadata into the audio file at outputPath.
// MP3 files get ID3v2 tags. Other containers go through ffmpeg.
func EmbedAudioTags(metadata ItemMetadata, outputPath string, printer *Printer) {
	if outputPath == "" || metadata.Status != "ok" {
		return
	}
	ext := strings.ToLower(filepath.Ext(outputPath))
	switch ext {
	case ".mp3":
		if err := embedID3Tags(metadata, outputPath); err != nil && printer != nil {
			printer.Log(LogWarn, fmt.Sprintf("warning: metadata tag embedding failed: %v", err))
		}
	case ".m4a", ".mp4", ".webm", ".opus", ".ogg", ".mkv":
		if err := embedFFmpegTags(metadata, outputPath); err != nil && printer != nil {
			printer.Log(LogWarn, fmt.Sprintf("warning: ffmpeg metadata embedding failed for %s: %v", ext, err))
		}
	}
}

func embedID3Tags(metadata ItemMetadata, outputPath string) error {
	tag, err := id3v2.Open(outputPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if metadata.Title != "" {
		tag.SetTitle(metadata.Title)
	}
	if metadata.Artist != "" {
		tag.SetArtist(metadata.Artist)
	}
	if metadata.Album != "" {
		tag.SetAlbum(metadata.Album)
	}
	if metadata.ReleaseYear != 0 {
		tag.SetYear(strconv.Itoa(metadata.ReleaseYear))
	}
	if metadata.Track != 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), strconv.Itoa(metadata.Track))
	}
	if metadata.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "",
			Text:        metadata.Comment,
		})
	}
	return tag.Save()
}

func embedFFmpegTags(metadata ItemMetadata, outputPath string) error {
	if !FFmpegAvailable() {
		return fmt.Errorf("ffmpeg not found")
	}

	kwargs := ffmpeg.KwArgs{"c": "copy"}
	var meta []string
	if metadata.Title != "" {
		meta = append(meta, "title="+metadata.Title)
	}
	if metadata.Artist != "" {
		meta = append(meta, "artist="+metadata.Artist)
	}
	if metadata.Album != "" {
		meta = append(meta, "album="+metadata.Album)
	}
	if metadata.ReleaseYear != 0 {
		meta = append(meta, "date="+strconv.Itoa(metadata.ReleaseYear))
	}
	if metadata.Comment != "" {
		meta = append(meta, "comment="+metadata.Comment)
	}
	if len(meta) == 0 {
		return nil
	}
	kwargs["metadata"] = meta

	dir := filepath.Dir(outputPath)
	tmpFile := filepath.Join(dir, ".tmp_tagged_"+filepath.Base(outputPath))
	err := ffmpeg.Input(outputPath).
		Output(tmpFile, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to embed metadata for output format %s: %w", filepath.Ext(outputPath), err)
	}

	if err := os.Rename(tmpFile, outputPath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to replace original file with tagged version: %w", err)
	}
	return nil
}

// ConvertAudio re-encodes inputPath into outputPath, picking the codec
// from the output extension.
func ConvertAudio(inputPath, outputPath string) error {
	ext := strings.ToLower(filepath.Ext(outputPath))
	kwargs := ffmpeg.KwArgs{"vn": ""}

	switch ext {
	case ".mp3":
		kwargs["acodec"] = "libmp3lame"
		kwargs["q:a"] = "2"
	case ".m4a", ".aac":
		kwargs["acodec"] = "aac"
		kwargs["b:a"] = "192k"
	case ".opus", ".webm", ".ogg":
		kwargs["acodec"] = "libopus"
		kwargs["b:a"] = "160k"
	case ".flac":
		kwargs["acodec"] = "flac"
	case ".wav":
		kwargs["acodec"] = "pcm_s16le"
	default:
		kwargs["acodec"] = "copy"
	}

	return ffmpeg.Input(inputPath).
		Output(outputPath, kwargs).
		OverWriteOutput().
		Silent(true).
		Run()
}

// FFmpegAvailable reports whether ffmpeg is on PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
