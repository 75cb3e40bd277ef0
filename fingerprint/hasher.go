package fingerprint

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// bit widths for the packed token: enough headroom for a 4096-window
// spectrogram's Nyquist bin count and a couple-hundred-frame max delta.
const (
	freqBits  = 20
	deltaBits = 20
)

// HashToken is the opaque, fixed-width identifier stored for a peak
// pair. It is either a bit-packed uint64 rendered as 16 hex chars or a
// truncated SHA-1 digest rendered as 20, depending on Config.TokenEncoding;
// callers should treat it as an opaque string key either way.
type HashToken string

// Hash is a (token, anchor_time) pair: the join key between query and
// index, and the frame at which the anchor peak of the pair occurred.
type Hash struct {
	Token      HashToken
	AnchorTime int
}

// Anchor pairs each peak with up to cfg.Fanout companions found later
// in time, within [cfg.DeltaTMin, cfg.DeltaTMax] frames, and emits one
// hash per pair. Pairing walks peaks in time-then-frequency order (the
// order ExtractPeaks already returns); unsorted input is sorted into
// that order first.
func Anchor(peaks []Peak, cfg Config) []Hash {
	if !sort.SliceIsSorted(peaks, func(i, j int) bool {
		if peaks[i].Time != peaks[j].Time {
			return peaks[i].Time < peaks[j].Time
		}
		return peaks[i].Freq < peaks[j].Freq
	}) {
		sorted := make([]Peak, len(peaks))
		copy(sorted, peaks)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Time != sorted[j].Time {
				return sorted[i].Time < sorted[j].Time
			}
			return sorted[i].Freq < sorted[j].Freq
		})
		peaks = sorted
	}

	hashes := make([]Hash, 0, len(peaks)*cfg.Fanout)

	for i, anchor := range peaks {
		paired := 0
		for j := i + 1; j < len(peaks) && paired < cfg.Fanout; j++ {
			companion := peaks[j]
			dt := companion.Time - anchor.Time
			if dt < cfg.DeltaTMin {
				continue
			}
			if dt > cfg.DeltaTMax {
				break // peaks are time-sorted; no later j will satisfy dt <= max
			}

			token := encodeToken(anchor.Freq, companion.Freq, dt, cfg.TokenEncoding)
			hashes = append(hashes, Hash{Token: token, AnchorTime: anchor.Time})
			paired++
		}
	}

	return hashes
}

func encodeToken(f1, f2, deltaT int, enc TokenEncoding) HashToken {
	switch enc {
	case TokenSHA1:
		return sha1Token(f1, f2, deltaT)
	default:
		return packedToken(f1, f2, deltaT)
	}
}

func packedToken(f1, f2, deltaT int) HashToken {
	v := (uint64(f1)&mask(freqBits))<<(freqBits+deltaBits) |
		(uint64(f2)&mask(freqBits))<<deltaBits |
		(uint64(deltaT) & mask(deltaBits))

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return HashToken(hex.EncodeToString(buf[:]))
}

func mask(bits int) uint64 {
	return (uint64(1) << bits) - 1
}

// sha1Token renders the canonical "f1|f2|deltaT" triple and truncates
// its SHA-1 digest to 20 hex chars, matching the hash-token width
// convention of SHA-1-keyed Shazam-style stores.
func sha1Token(f1, f2, deltaT int) HashToken {
	h := sha1.New()
	var buf [24]byte
	n := binary.PutVarint(buf[0:8], int64(f1))
	n += binary.PutVarint(buf[n:n+8], int64(f2))
	n += binary.PutVarint(buf[n:n+8], int64(deltaT))
	h.Write(buf[:n])
	sum := h.Sum(nil)
	return HashToken(hex.EncodeToString(sum)[:20])
}
