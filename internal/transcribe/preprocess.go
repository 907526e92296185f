package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// Preprocess converts uploaded audio (mp3, m4a, ogg, wav) to the 16kHz mono WAV
// that STT models expect:
//
//	ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
//
// Returns the path to a temporary WAV file and a cleanup function.
// If ffmpeg is unavailable, returns the original path with a no-op cleanup —
// the hosted providers decode common containers themselves.
func Preprocess(ctx context.Context, inputPath string) (string, func(), error) {
	noop := func() {}

	if !CheckFFmpeg() {
		return inputPath, noop, nil
	}

	tmpDir := os.TempDir()
	base := filepath.Base(inputPath)
	outPath := filepath.Join(tmpDir, fmt.Sprintf("voxsum-preprocess-%d-%s.wav", os.Getpid(), base))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		outPath,
	)
	if err := cmd.Run(); err != nil {
		// Clean up partial output
		os.Remove(outPath)
		return inputPath, noop, fmt.Errorf("ffmpeg preprocess: %w", err)
	}

	cleanup := func() {
		os.Remove(outPath)
	}
	return outPath, cleanup, nil
}
