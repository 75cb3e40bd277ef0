package fingerprint

// Peak is a time-frequency constellation point: a frame index and a
// frequency bin, the set of which forms a song's "starfield".
type Peak struct {
	Time int // frame index
	Freq int // frequency bin index
}

// ExtractPeaks performs 2-D non-maximum suppression (morphological
// dilation with a constant (2r+1)x(2r+1) structuring element) over a
// magnitude spectrogram: a cell survives iff no neighbor is louder, at
// least one neighbor is strictly quieter, and its magnitude is
// >= cfg.AMin, so a neighborhood that is entirely flat yields no peak.
// Among equal cells within the radius of one another only the first in
// scan order survives; cells of one plateau that lie farther apart than
// the radius are tested independently, so a plateau wider than the
// radius can yield more than one peak. DC (bin 0) and the Nyquist bin
// are excluded. Peaks are returned sorted by time then frequency.
func ExtractPeaks(spec [][]float64, cfg Config) []Peak {
	if len(spec) == 0 {
		return nil
	}
	r := cfg.PeakRadius
	if r < 1 {
		r = 1
	}

	nFrames := len(spec)
	nBins := len(spec[0])

	peaks := make([]Peak, 0, nFrames)
	seenPlateau := make(map[[2]int]bool)

	for t := 0; t < nFrames; t++ {
		for f := 1; f < nBins-1; f++ { // exclude DC and Nyquist
			mag := spec[t][f]
			if mag < cfg.AMin {
				continue
			}

			isMax := true
			tiedWithEarlier := false
			hasLower := false
			for dt := -r; dt <= r && isMax; dt++ {
				tt := t + dt
				if tt < 0 || tt >= nFrames {
					continue
				}
				for df := -r; df <= r; df++ {
					ff := f + df
					if ff < 1 || ff >= nBins-1 {
						continue
					}
					if dt == 0 && df == 0 {
						continue
					}
					other := spec[tt][ff]
					if other > mag {
						isMax = false
						break
					}
					if other < mag {
						hasLower = true
					}
					if other == mag && (tt < t || (tt == t && ff < f)) {
						// an equal-magnitude cell earlier in scan order
						// already owns this plateau
						tiedWithEarlier = true
					}
				}
			}

			if !isMax || tiedWithEarlier || !hasLower {
				continue
			}

			key := [2]int{t, f}
			if seenPlateau[key] {
				continue
			}
			seenPlateau[key] = true
			peaks = append(peaks, Peak{Time: t, Freq: f})
		}
	}

	return peaks
}

// ExtractPeaksBanded is an alternate, cheaper peak strategy: per
// frame, take the loudest bin in each of the given frequency bands and
// keep it if it beats the frame's band-average. It trades the strict
// 2-D neighborhood test for a cheaper adaptive threshold. The engine
// does not call it: every Config profile, AudiobookConfig included,
// goes through ExtractPeaks.
func ExtractPeaksBanded(spec [][]float64, bands [][2]int) []Peak {
	if len(spec) == 0 {
		return nil
	}
	nBins := len(spec[0])

	var peaks []Peak
	for t, frame := range spec {
		var mags []float64
		var idxs []int

		for _, band := range bands {
			lo, hi := band[0], band[1]
			if hi > nBins {
				hi = nBins
			}
			if lo >= hi {
				continue
			}
			best, bestIdx := frame[lo], lo
			for i := lo + 1; i < hi; i++ {
				if frame[i] > best {
					best, bestIdx = frame[i], i
				}
			}
			mags = append(mags, best)
			idxs = append(idxs, bestIdx)
		}
		if len(mags) == 0 {
			continue
		}

		var sum float64
		for _, m := range mags {
			sum += m
		}
		avg := sum / float64(len(mags))

		for i, m := range mags {
			if m > avg {
				peaks = append(peaks, Peak{Time: t, Freq: idxs[i]})
			}
		}
	}
	return peaks
}
