// Package fingerprint implements the constellation fingerprinting and
// histogram-consensus matching engine: PCM -> spectrogram -> peaks ->
// hash tokens, and query hash set -> aligned song + offset.
package fingerprint

// TokenEncoding selects how a peak pair (f1, f2, deltaT) is packed into
// a hash token. Both encodings are deterministic and collision-tolerant;
// the choice only affects token width and cross-implementation wire
// compatibility -- whichever is chosen must stay fixed for an index to
// remain queryable.
type TokenEncoding int

const (
	// TokenPacked bit-packs the triple into a uint64. Cheap, no crypto
	// dependency, plenty of headroom for the bit widths below.
	TokenPacked TokenEncoding = iota
	// TokenSHA1 truncates a SHA-1 digest of the canonical triple to 20
	// hex chars, matching stores keyed on the original Shazam-style
	// hex hash column.
	TokenSHA1
)

// Config controls every tunable parameter of the spectrogram, peak
// extraction, and hashing stages. All stored hashes were produced under
// one Config; changing any field invalidates cross-comparison against
// an existing index.
type Config struct {
	Fs         int // sample rate in Hz the engine operates at
	WindowSize int // FFT window size in samples, power of two
	Overlap    float64 // overlap ratio in (0, 1)

	PeakRadius int     // neighborhood radius (cells) for 2-D peak picking
	AMin       float64 // amplitude floor, log-magnitude units

	Fanout       int // number of companion peaks paired with each anchor
	DeltaTMin    int // minimum anchor-companion time gap, frames
	DeltaTMax    int // maximum anchor-companion time gap, frames
	TokenEncoding TokenEncoding

	FingerprintLimitSec float64 // 0 = no limit; truncates input to Fs*limit samples
	ChunkDurationSec    float64 // 0 = ingest whole file in one pass; >0 = chunked ingestion
}

// Hop returns the stride between consecutive frames, in samples.
func (c Config) Hop() int {
	return int(float64(c.WindowSize) * (1 - c.Overlap))
}

// DefaultConfig returns the on-disk compatibility defaults from the
// engine's DSP parameter table. Any store populated under these values
// can only be queried under these values.
func DefaultConfig() Config {
	return Config{
		Fs:         44100,
		WindowSize: 4096,
		Overlap:    0.5,

		PeakRadius: 20,
		AMin:       10,

		Fanout:        15,
		DeltaTMin:     0,
		DeltaTMax:     200,
		TokenEncoding: TokenPacked,

		FingerprintLimitSec: 0,
	}
}

// AudiobookConfig trades time/frequency resolution for a far lower peak
// density, suited to long-form spoken word where a Shazam-density index
// (~430 fingerprints/sec) would make multi-hour files impractical to
// store. Produces roughly 16 fingerprints/sec instead.
func AudiobookConfig() Config {
	cfg := DefaultConfig()
	cfg.Fs = 5512
	cfg.WindowSize = 2048
	cfg.Overlap = 0
	cfg.PeakRadius = 8
	cfg.AMin = 6
	cfg.Fanout = 3
	cfg.DeltaTMax = 400
	cfg.ChunkDurationSec = 300 // 5-minute chunks keep a multi-hour book off the heap all at once
	return cfg
}
