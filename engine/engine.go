// Package engine wires the decoder, the fingerprinting core, and a
// storage backend together into the two operations a caller actually
// wants: fingerprint a file into the index, or recognize a query clip
// against it. Everything it does is delegate to fingerprint/audio/store
// and apply the bookkeeping (content-hash cache, fingerprinted flag)
// needed to keep ingest and query consistent with each other.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mdobak/go-xerrors"

	"github.com/tefkah/seek-tune/audio"
	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/models"
	"github.com/tefkah/seek-tune/store"
)

// Engine binds one Store and one Config. All songs it indexes, and all
// queries it serves, are only comparable to each other if they share
// this Config -- DSP parameters must be fixed across ingest and query.
type Engine struct {
	Store  store.Store
	Config fingerprint.Config

	mu                sync.RWMutex
	fingerprintedHash map[string]bool // content-hash cache, refreshed after every successful ingest
}

// New constructs an Engine and primes its fingerprinted-content-hash
// cache from the store.
func New(s store.Store, cfg fingerprint.Config) (*Engine, error) {
	e := &Engine{Store: s, Config: cfg}
	if err := e.refreshHashCache(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) refreshHashCache() error {
	songs, err := e.Store.GetSongs()
	if err != nil {
		return err
	}

	cache := make(map[string]bool, len(songs))
	for _, s := range songs {
		if s.Fingerprinted {
			cache[s.FileSHA1] = true
		}
	}

	e.mu.Lock()
	e.fingerprintedHash = cache
	e.mu.Unlock()
	return nil
}

// AlreadyFingerprinted reports whether a content hash is already
// indexed, via the driver-side cache that avoids redundant ingest work.
func (e *Engine) AlreadyFingerprinted(contentHash string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fingerprintedHash[contentHash]
}

// ChannelHashes runs the core pipeline (spectrogram -> peaks -> hasher)
// over one PCM channel, truncating to the configured fingerprint limit
// first.
func (e *Engine) ChannelHashes(channel []float64) []fingerprint.Hash {
	truncated := fingerprint.TruncateToLimit(channel, e.Config)
	spec := fingerprint.Spectrogram(truncated, e.Config)
	peaks := fingerprint.ExtractPeaks(spec, e.Config)
	return fingerprint.Anchor(peaks, e.Config)
}

// channelUnion hashes every channel and unions the resulting hash sets
// by token, keeping one AnchorTime per token (first one seen). This
// gives channel-union idempotence: an N-channel signal whose channels
// are identical produces the same hash set as its mono mix.
func channelUnion(perChannel [][]fingerprint.Hash) []fingerprint.Hash {
	seen := make(map[fingerprint.HashToken]fingerprint.Hash)
	for _, hashes := range perChannel {
		for _, h := range hashes {
			if _, ok := seen[h.Token]; !ok {
				seen[h.Token] = h
			}
		}
	}

	out := make([]fingerprint.Hash, 0, len(seen))
	for _, h := range seen {
		out = append(out, h)
	}
	return out
}

// FingerprintFile decodes, fingerprints, and durably indexes a single
// audio file as songName/artist. It returns store.ErrDuplicateContent
// if the file's content hash is already fingerprinted. Whole-file
// decoding holds the entire PCM signal in memory at once; when
// Config.ChunkDurationSec is set (the audiobook profile), the file is
// probed and fingerprinted chunk by chunk instead so a multi-hour
// recording never needs to fit in memory all at once.
func (e *Engine) FingerprintFile(path, songName, artist, creativeID string) (uint32, int, error) {
	var (
		hashes      []fingerprint.Hash
		contentHash string
		durationSec float64
		err         error
	)

	if e.Config.ChunkDurationSec > 0 {
		hashes, contentHash, durationSec, err = e.fingerprintChunked(path)
	} else {
		hashes, contentHash, durationSec, err = e.fingerprintWhole(path)
	}
	if err != nil {
		return 0, 0, err
	}

	if e.AlreadyFingerprinted(contentHash) {
		return 0, 0, store.ErrDuplicateContent
	}

	songID, err := e.Store.InsertSong(songName, artist, contentHash, durationSec, creativeID)
	if err != nil {
		return 0, 0, err
	}

	if err := e.Store.InsertHashes(songID, hashes); err != nil {
		// a partial insert leaves the song unflagged; callers should
		// treat it as incomplete rather than delete it out from under
		// a concurrent reader
		return songID, 0, err
	}

	if err := e.Store.SetSongFingerprinted(songID); err != nil {
		return songID, len(hashes), err
	}

	if err := e.refreshHashCache(); err != nil {
		slog.Warn("failed to refresh fingerprinted-hash cache", slog.Any("error", err))
	}

	return songID, len(hashes), nil
}

// fingerprintWhole decodes path in one pass and returns the union of
// every channel's hashes, its content hash, and its duration.
func (e *Engine) fingerprintWhole(path string) ([]fingerprint.Hash, string, float64, error) {
	decoded, err := audio.Read(path, e.Config.Fs, 0)
	if err != nil {
		return nil, "", 0, xerrors.New(fmt.Errorf("decode %s: %w", path, err))
	}

	perChannel := make([][]fingerprint.Hash, len(decoded.Samples))
	for i, ch := range decoded.Samples {
		perChannel[i] = e.ChannelHashes(ch)
	}
	return channelUnion(perChannel), decoded.ContentHash, decoded.DurationSec, nil
}

// fingerprintChunked fingerprints path ChunkDurationSec at a time,
// shelling out per chunk the way the audiobook ingest path needs to so
// a multi-hour file is never fully resident in memory. Each chunk's
// hashes are re-anchored by the chunk's start offset (converted to
// frames, rounded down) so the resulting AnchorTime values stay on one
// continuous timeline. Each chunk is mono-mixed and hashed on its own,
// so peak pairs that span a chunk boundary are not hashed and the result
// is not identical to a single whole-file pass.
func (e *Engine) fingerprintChunked(path string) ([]fingerprint.Hash, string, float64, error) {
	contentHash, err := audio.UniqueHash(path)
	if err != nil {
		return nil, "", 0, xerrors.New(fmt.Errorf("hash %s: %w", path, err))
	}

	total, err := audio.Duration(path)
	if err != nil {
		return nil, "", 0, xerrors.New(fmt.Errorf("probe duration of %s: %w", path, err))
	}

	chunkSec := e.Config.ChunkDurationSec
	hopSeconds := float64(e.Config.Hop()) / float64(e.Config.Fs)

	var all []fingerprint.Hash
	for start := 0.0; start < total; start += chunkSec {
		dur := chunkSec
		if start+dur > total {
			dur = total - start
		}

		chunkPath, err := audio.ExtractChunkAsWAV(path, start, dur)
		if err != nil {
			return nil, "", 0, xerrors.New(fmt.Errorf("extract chunk at %.0fs of %s: %w", start, path, err))
		}

		decoded, err := audio.Read(chunkPath, e.Config.Fs, 0)
		os.Remove(chunkPath)
		if err != nil {
			return nil, "", 0, xerrors.New(fmt.Errorf("decode chunk at %.0fs of %s: %w", start, path, err))
		}

		mono := audio.MonoMix(decoded.Samples)
		frameOffset := int(start / hopSeconds)
		for _, h := range e.ChannelHashes(mono) {
			all = append(all, fingerprint.Hash{Token: h.Token, AnchorTime: h.AnchorTime + frameOffset})
		}
	}

	return all, contentHash, total, nil
}

// Recognize fingerprints a query clip and aligns it against the index.
// It returns fingerprint.ErrNoMatch (not a Go error the caller needs to
// treat as a failure) when the clip produces no votes or its winning
// song has since been deleted.
func (e *Engine) Recognize(path string) (models.Result, error) {
	decoded, err := audio.Read(path, e.Config.Fs, e.Config.FingerprintLimitSec)
	if err != nil {
		return models.Result{}, xerrors.New(fmt.Errorf("decode %s: %w", path, err))
	}

	mono := audio.MonoMix(decoded.Samples)
	hashes := e.ChannelHashes(mono)
	if len(hashes) == 0 {
		return models.Result{}, fingerprint.ErrNoMatch
	}

	votes, err := fingerprint.FindMatches(hashes, e.Store.ReturnMatches)
	if err != nil {
		return models.Result{}, err
	}

	return fingerprint.Align(votes, e.Config.Hop(), e.Config.Fs, e.Store)
}
