package fingerprint

import (
	"errors"
	"math"
	"sort"

	"github.com/tefkah/seek-tune/models"
)

// ErrNoMatch is returned when a query produces no votes, or when the
// winning song_id cannot be resolved to a song record. Per the error
// handling design, this is the uniform "no match" outcome, not a
// caller-visible error for most code paths.
var ErrNoMatch = errors.New("fingerprint: no match")

// SongStore is the subset of store.Store the matcher needs: resolving
// a winning song_id back to metadata. Kept minimal and local to avoid
// an import cycle between fingerprint and store.
type SongStore interface {
	GetSongByID(id uint32) (*models.Song, bool, error)
}

// FindMatches looks up every (token, anchorTime) hash in an index and
// returns the votes it produces. lookup is store.Store.ReturnMatches;
// it is passed in rather than imported to keep fingerprint free of a
// storage dependency. hashes is a set of pairs, not a map keyed by
// token -- two anchors in the same query can share a token (a repeated
// peak-pair interval, common around periodic beats), and each such
// pair must be joined against the index independently or its vote is
// lost and the consensus offset it would have supported never counted.
func FindMatches(hashes []Hash, lookup func(queries []Hash) ([]models.Vote, error)) ([]models.Vote, error) {
	return lookup(hashes)
}

type songBest struct {
	count  int
	offset int32
}

// Align runs the histogram-consensus alignment algorithm over a vote
// stream: build C[(song_id, offset)] = votes, track the single global
// max cell, and independently track each song's own best (count,
// offset) regardless of whether that vote ever set the global max.
// A naive port mutates the per-song map only inside the global-max
// branch, which makes a song's recorded offset reflect the last time
// it set a new global maximum rather than its own best alignment --
// this version tracks every song's best independently of the winner.
func Align(votes []models.Vote, hop int, fs int, store SongStore) (models.Result, error) {
	if len(votes) == 0 {
		return models.Result{}, ErrNoMatch
	}

	type cell struct {
		songID uint32
		offset int32
	}
	histogram := make(map[cell]int, len(votes))
	perSong := make(map[uint32]songBest, len(votes)/4+1)

	var winner cell
	winnerCount := 0

	for _, v := range votes {
		c := cell{v.SongID, v.Offset}
		histogram[c]++
		count := histogram[c]

		if count > winnerCount {
			winnerCount = count
			winner = c
		}

		if best, ok := perSong[v.SongID]; !ok || count > best.count {
			perSong[v.SongID] = songBest{count: count, offset: v.Offset}
		}
	}

	song, ok, err := store.GetSongByID(winner.songID)
	if err != nil {
		return models.Result{}, err
	}
	if !ok || song == nil {
		return models.Result{}, ErrNoMatch
	}

	result := models.Result{
		Match: models.Match{
			SongID:        song.ID,
			SongTitle:     song.Title,
			SongArtist:    song.Artist,
			SongDuration:  song.DurationSec,
			CreativeID:    song.CreativeID,
			FileSHA1:      song.FileSHA1,
			Confidence:    winnerCount,
			Offset:        winner.offset,
			OffsetSeconds: offsetSeconds(winner.offset, hop, fs),
		},
	}

	var fallbacks []fallbackCandidate
	for sid, best := range perSong {
		if sid == winner.songID {
			continue
		}
		if float64(best.count) >= 0.1*float64(winnerCount) {
			fallbacks = append(fallbacks, fallbackCandidate{sid, best})
		}
	}

	// deterministic descending-count order, tie-broken by song ID since
	// count alone doesn't total-order the fallback list
	sort.Slice(fallbacks, func(i, j int) bool {
		if fallbacks[i].count != fallbacks[j].count {
			return fallbacks[i].count > fallbacks[j].count
		}
		return fallbacks[i].songID < fallbacks[j].songID
	})

	for _, fb := range fallbacks {
		fsong, ok, err := store.GetSongByID(fb.songID)
		if err != nil || !ok || fsong == nil {
			continue
		}
		result.FallbackMatches = append(result.FallbackMatches, models.Match{
			SongID:        fsong.ID,
			SongTitle:     fsong.Title,
			SongArtist:    fsong.Artist,
			SongDuration:  fsong.DurationSec,
			CreativeID:    fsong.CreativeID,
			FileSHA1:      fsong.FileSHA1,
			Confidence:    fb.count,
			Offset:        fb.offset,
			OffsetSeconds: offsetSeconds(fb.offset, hop, fs),
		})
	}

	return result, nil
}

func offsetSeconds(offset int32, hop, fs int) float64 {
	secs := float64(offset) * float64(hop) / float64(fs)
	return roundTo(secs, 5)
}

// roundTo rounds half-up to the given number of decimal places, applied
// identically at every offsetSeconds call site.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	if v >= 0 {
		return math.Floor(v*p+0.5) / p
	}
	return math.Ceil(v*p-0.5) / p
}

type fallbackCandidate struct {
	songID uint32
	songBest
}
