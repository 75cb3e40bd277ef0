// Package audio is the engine's decoder: the external collaborator
// that turns an audio file into mono/stereo PCM channels at a known
// sample rate, plus a content hash used to skip re-ingesting the same
// file. It sits outside the fingerprinting core, which only ever sees
// a []float64 channel.
package audio

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// Channels is the decode result: one []float64 PCM channel per audio
// channel, sampled at SampleRate.
type Channels struct {
	Samples     [][]float64
	SampleRate  int
	ContentHash string
	DurationSec float64
}

// Read decodes filepath into PCM channels resampled to targetFs (pass
// 0 to keep the file's native rate). Non-WAV containers are transcoded
// to WAV with ffmpeg first (ConvertToWAV), which already resamples to
// 44100, so the in-process resample path mainly matters for WAV inputs
// recorded at a different rate. If limitSec > 0, each channel is
// truncated to limitSec seconds after decoding.
func Read(path string, targetFs int, limitSec float64) (Channels, error) {
	wavPath := path
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		converted, err := ConvertToWAV(path)
		if err != nil {
			return Channels{}, fmt.Errorf("audio: convert to wav: %w", err)
		}
		defer os.Remove(converted)
		wavPath = converted
	}

	contentHash, err := UniqueHash(path)
	if err != nil {
		return Channels{}, fmt.Errorf("audio: content hash: %w", err)
	}

	channels, sampleRate, duration, err := decodeWAV(wavPath)
	if err != nil {
		return Channels{}, fmt.Errorf("audio: decode wav: %w", err)
	}

	if targetFs > 0 && sampleRate != targetFs {
		for i := range channels {
			resampled, err := Resample(channels[i], sampleRate, targetFs)
			if err != nil {
				return Channels{}, fmt.Errorf("audio: resample: %w", err)
			}
			channels[i] = resampled
		}
		sampleRate = targetFs
	}

	if limitSec > 0 {
		limit := int(limitSec * float64(sampleRate))
		for i := range channels {
			if len(channels[i]) > limit {
				channels[i] = channels[i][:limit]
			}
		}
	}

	return Channels{
		Samples:     channels,
		SampleRate:  sampleRate,
		ContentHash: contentHash,
		DurationSec: duration,
	}, nil
}

// decodeWAV reads a PCM WAV file into one float64 slice per channel,
// de-interleaving go-audio/audio's IntBuffer.
func decodeWAV(path string) ([][]float64, int, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, err
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	sampleRate := buf.Format.SampleRate

	channels := make([][]float64, numChannels)
	frames := len(buf.Data) / numChannels
	for c := range channels {
		channels[c] = make([]float64, 0, frames)
	}

	for i, v := range buf.Data {
		c := i % numChannels
		channels[c] = append(channels[c], float64(v))
	}

	duration := float64(frames) / float64(sampleRate)
	return channels, sampleRate, duration, nil
}

// MonoMix averages all channels down to one, used when the engine is
// configured to fingerprint a single PCM stream regardless of the
// source's channel count.
func MonoMix(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		return channels[0]
	}

	n := len(channels[0])
	for _, c := range channels {
		if len(c) < n {
			n = len(c)
		}
	}

	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for _, c := range channels {
			sum += c[i]
		}
		mono[i] = sum / float64(len(channels))
	}
	return mono
}

// UniqueHash returns the SHA-1 content hash of the raw file bytes.
// Used both as the store's dedup key and as the result's file_sha1
// field.
func UniqueHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
