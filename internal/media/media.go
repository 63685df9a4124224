// Package media wraps the external ffmpeg and ffprobe tools: probing a file
// for its streams, running a filter transform, sampling still frames and
// copying files through unchanged.
package media

import (
	"path/filepath"
	"strings"
)

// VideoExtensions maps supported video container extensions to MIME types.
var VideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4v":  "video/x-m4v",
}

// AudioExtensions maps supported audio extensions to MIME types.
var AudioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
}

// MIMEType returns the MIME type for path based on its extension, or
// application/octet-stream when the extension is not recognised.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := VideoExtensions[ext]; ok {
		return m
	}
	if m, ok := AudioExtensions[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsSupported reports whether path has a recognised audio or video extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, v := VideoExtensions[ext]
	_, a := AudioExtensions[ext]
	return v || a
}
