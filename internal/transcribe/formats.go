package transcribe

import (
	"path/filepath"
	"strings"
)

// supportedFormats maps accepted upload extensions to MIME content types.
var supportedFormats = map[string]string{
	"mp3": "audio/mpeg",
	"wav": "audio/wav",
	"m4a": "audio/mp4",
	"ogg": "audio/ogg",
}

// SupportedFormat reports whether the filename carries an accepted audio
// extension, returning the normalized extension (without the dot) and its
// content type.
func SupportedFormat(filename string) (ext, contentType string, ok bool) {
	ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	ct, ok := supportedFormats[ext]
	if !ok {
		return "", "", false
	}
	return ext, ct, true
}

// SupportedExtensions returns the accepted extensions for error messages.
func SupportedExtensions() []string {
	return []string{"mp3", "wav", "m4a", "ogg"}
}
