package audio

import (
	"fmt"
	"math"
)

// LowPassFilter is a first-order RC low-pass, applied before
// downsampling to suppress content above the new Nyquist frequency.
func LowPassFilter(cutoffHz, sampleRate float64, input []float64) []float64 {
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	alpha := dt / (rc + dt)

	out := make([]float64, len(input))
	var prev float64
	for i, x := range input {
		if i == 0 {
			out[i] = x * alpha
		} else {
			out[i] = alpha*x + (1-alpha)*prev
		}
		prev = out[i]
	}
	return out
}

// Resample converts input from one integer sample rate to another by
// block-averaging (downsample) or linear interpolation (upsample). The
// decoder uses this to bring a file's native rate to the engine's
// configured Fs when ffmpeg isn't available to do it up front.
func Resample(input []float64, from, to int) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("audio: sample rates must be positive")
	}
	if from == to {
		return input, nil
	}
	if to < from {
		return downsample(input, from, to), nil
	}
	return upsample(input, from, to), nil
}

func downsample(input []float64, from, to int) []float64 {
	filtered := LowPassFilter(float64(to)/2, float64(from), input)

	ratio := from / to
	if ratio < 1 {
		ratio = 1
	}

	out := make([]float64, 0, len(filtered)/ratio+1)
	for i := 0; i < len(filtered); i += ratio {
		end := i + ratio
		if end > len(filtered) {
			end = len(filtered)
		}
		var sum float64
		for j := i; j < end; j++ {
			sum += filtered[j]
		}
		out = append(out, sum/float64(end-i))
	}
	return out
}

func upsample(input []float64, from, to int) []float64 {
	if len(input) == 0 {
		return input
	}
	ratio := float64(to) / float64(from)
	n := int(float64(len(input)) * ratio)
	out := make([]float64, n)
	for i := range out {
		srcPos := float64(i) / ratio
		lo := int(srcPos)
		hi := lo + 1
		if hi >= len(input) {
			hi = len(input) - 1
		}
		frac := srcPos - float64(lo)
		out[i] = input[lo]*(1-frac) + input[hi]*frac
	}
	return out
}
