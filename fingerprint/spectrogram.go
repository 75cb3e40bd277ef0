package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// logFloor is the minimum linear magnitude a bin is clamped to before
// log10, so silence collapses to log10(1e-10) = -10 instead of -Inf.
const logFloor = 1e-10

// hannWindow returns a window-size Hann taper. Must be identical
// between ingest and query or the resulting hashes won't compare.
func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		theta := 2 * math.Pi * float64(i) / float64(size-1)
		w[i] = 0.5 - 0.5*math.Cos(theta)
	}
	return w
}

// Spectrogram computes a log10-magnitude time-frequency grid S[t][f]
// (values bottom out at -10, see logFloor) from a mono PCM channel
// sampled at cfg.Fs. Frames past the
// end of x are zero-padded; if len(x) < cfg.WindowSize the result is a
// single zero-padded frame.
func Spectrogram(x []float64, cfg Config) [][]float64 {
	window := hannWindow(cfg.WindowSize)
	hop := cfg.Hop()
	if hop <= 0 {
		hop = cfg.WindowSize
	}

	n := len(x)
	bins := cfg.WindowSize/2 + 1
	var spec [][]float64

	frame := make([]float64, cfg.WindowSize)
	for start := 0; ; start += hop {
		for i := range frame {
			frame[i] = 0
		}
		if start < n {
			end := start + cfg.WindowSize
			if end > n {
				end = n
			}
			copy(frame, x[start:end])
		}
		for i := range frame {
			frame[i] *= window[i]
		}

		transformed := fft.FFTReal(frame)
		magnitude := make([]float64, bins)
		for f := 0; f < bins; f++ {
			m := cmplx.Abs(transformed[f])
			if m <= logFloor {
				m = logFloor
			}
			magnitude[f] = math.Log10(m)
		}
		spec = append(spec, magnitude)

		// stop once the window no longer overlaps any real sample
		if start+cfg.WindowSize >= n {
			break
		}
	}

	return spec
}

// TruncateToLimit truncates x to cfg.FingerprintLimitSec * Fs samples
// when a positive limit is configured. Engine.ChannelHashes applies it
// to every channel it hashes, at ingest as well as at query time.
func TruncateToLimit(x []float64, cfg Config) []float64 {
	if cfg.FingerprintLimitSec <= 0 {
		return x
	}
	limit := int(cfg.FingerprintLimitSec * float64(cfg.Fs))
	if limit <= 0 || limit >= len(x) {
		return x
	}
	return x[:limit]
}
