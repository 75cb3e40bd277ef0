package audio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tefkah/seek-tune/internal/util"
)

// ConvertToWAV shells out to ffmpeg to transcode any container ffmpeg
// understands into a 16-bit PCM WAV file. The output is mono unless the
// FINGERPRINT_STEREO env variable is set to true, which keeps two
// channels.
func ConvertToWAV(inputFilePath string) (string, error) {
	if _, err := os.Stat(inputFilePath); err != nil {
		return "", fmt.Errorf("input file does not exist: %w", err)
	}

	stereo, err := strconv.ParseBool(util.GetEnv("FINGERPRINT_STEREO", "false"))
	if err != nil {
		return "", fmt.Errorf("invalid FINGERPRINT_STEREO value: %w", err)
	}
	channels := 1
	if stereo {
		channels = 2
	}

	if err := util.CreateFolder("tmp"); err != nil {
		return "", err
	}

	ext := filepath.Ext(inputFilePath)
	outputFile := strings.TrimSuffix(filepath.Base(inputFilePath), ext) + ".wav"
	outputPath := filepath.Join("tmp", outputFile)

	cmd := exec.Command(
		"ffmpeg", "-y",
		"-i", inputFilePath,
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", fmt.Sprint(channels),
		outputPath,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg conversion failed: %w, output: %s", err, out)
	}

	return outputPath, nil
}

// ExtractChunkAsWAV pulls a bounded time segment out of any audio file
// ffmpeg can read, writing it as 16-bit PCM mono WAV. This bounds the
// memory used to fingerprint an arbitrarily long file to one chunk at
// a time.
func ExtractChunkAsWAV(inputPath string, startSec, durationSec float64) (string, error) {
	if err := util.CreateFolder("tmp"); err != nil {
		return "", err
	}

	outputFile := filepath.Join("tmp", fmt.Sprintf("chunk_%d_%.0f.wav", time.Now().UnixNano(), startSec))

	cmd := exec.Command(
		"ffmpeg", "-y",
		"-ss", fmt.Sprintf("%.3f", startSec),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-i", inputPath,
		"-c", "pcm_s16le",
		"-ar", "44100",
		"-ac", "1",
		outputFile,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg chunk extraction failed: %w, output: %s", err, out)
	}
	return outputFile, nil
}

// Duration returns the duration in seconds of any audio file ffprobe
// can read.
func Duration(inputPath string) (float64, error) {
	cmd := exec.Command(
		"ffprobe", "-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration query failed: %w", err)
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}
