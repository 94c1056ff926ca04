// Package audio wraps ffmpeg for the one conversion the pipeline needs:
// normalizing an arbitrary input recording to 16kHz mono 16-bit PCM WAV,
// the format the transcription model expects.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrAudioError means ffmpeg exited non-zero: the input is not a
// recognizable or decodable audio file.
var ErrAudioError = errors.New("audio conversion failed")

// ErrTimeout means the conversion did not finish within the configured
// timeout.
var ErrTimeout = errors.New("audio conversion timed out")

// ConvertToWAV runs ffmpeg against inputPath and writes a 16kHz mono
// PCM16 WAV file alongside it, returning the output path. If inputPath
// already has a .wav extension, it is returned unchanged without
// invoking ffmpeg.
func ConvertToWAV(ctx context.Context, inputPath string, timeout time.Duration) (string, error) {
	if strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		return inputPath, nil
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".converted.wav"

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", inputPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: ffmpeg did not finish within %s", ErrTimeout, timeout)
		}
		return "", fmt.Errorf("%w: %v: %s", ErrAudioError, err, string(output))
	}

	return outputPath, nil
}
