package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tefkah/seek-tune/models"
)

type fakeSongStore struct {
	songs map[uint32]*models.Song
}

func (f *fakeSongStore) GetSongByID(id uint32) (*models.Song, bool, error) {
	s, ok := f.songs[id]
	return s, ok, nil
}

func newFakeSongStore(songs ...*models.Song) *fakeSongStore {
	m := make(map[uint32]*models.Song, len(songs))
	for _, s := range songs {
		m[s.ID] = s
	}
	return &fakeSongStore{songs: m}
}

func TestAlign_NoVotesIsNoMatch(t *testing.T) {
	_, err := Align(nil, 2048, 44100, newFakeSongStore())
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestAlign_UnknownWinnerIsNoMatch(t *testing.T) {
	votes := []models.Vote{{SongID: 1, Offset: 5}}
	_, err := Align(votes, 2048, 44100, newFakeSongStore())
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestAlign_PicksHighestVoteCell(t *testing.T) {
	store := newFakeSongStore(&models.Song{ID: 1, Title: "A", Artist: "Artist A"})

	votes := []models.Vote{
		{SongID: 1, Offset: 10},
		{SongID: 1, Offset: 10},
		{SongID: 1, Offset: 10},
		{SongID: 1, Offset: 20}, // loses the vote, should not change the winner offset
	}

	result, err := Align(votes, 2048, 44100, store)
	require.NoError(t, err)
	assert.Equal(t, int32(10), result.Offset)
	assert.Equal(t, 3, result.Confidence)
}

// TestAlign_PerSongBestIsIndependentOfGlobalMax is the corrected
// alignment semantics: a song's reported offset is its own
// highest-voted cell, not whatever cell happened to be the global max
// the last time this song's count increased past it.
func TestAlign_PerSongBestIsIndependentOfGlobalMax(t *testing.T) {
	store := newFakeSongStore(
		&models.Song{ID: 1, Title: "Winner", Artist: "A"},
		&models.Song{ID: 2, Title: "Runner-up", Artist: "B"},
	)

	votes := []models.Vote{
		// song 2's first vote briefly sets the global max
		{SongID: 2, Offset: 7},
		// song 1 takes over the global max
		{SongID: 1, Offset: 5},
		{SongID: 1, Offset: 5},
		{SongID: 1, Offset: 5},
		{SongID: 1, Offset: 5},
		// song 2 builds its real best cell without touching the global
		// max -- a buggy implementation that only updates perSong inside
		// the global-max branch would still report song 2's offset as 7
		{SongID: 2, Offset: 99},
		{SongID: 2, Offset: 99},
	}

	result, err := Align(votes, 2048, 44100, store)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.SongID)

	require.Len(t, result.FallbackMatches, 1)
	assert.EqualValues(t, 2, result.FallbackMatches[0].SongID)
	assert.Equal(t, int32(99), result.FallbackMatches[0].Offset)
	assert.Equal(t, 2, result.FallbackMatches[0].Confidence)
}

func TestAlign_FallbackThresholdAndOrder(t *testing.T) {
	store := newFakeSongStore(
		&models.Song{ID: 1, Title: "Winner", Artist: "A"},
		&models.Song{ID: 2, Title: "Strong fallback", Artist: "B"},
		&models.Song{ID: 3, Title: "At threshold", Artist: "C"},
	)

	votes := []models.Vote{}
	for i := 0; i < 10; i++ {
		votes = append(votes, models.Vote{SongID: 1, Offset: 1})
	}
	for i := 0; i < 2; i++ { // 20% of winner, clears the 10% floor
		votes = append(votes, models.Vote{SongID: 2, Offset: 2})
	}
	votes = append(votes, models.Vote{SongID: 3, Offset: 3}) // 10% exactly: included

	result, err := Align(votes, 2048, 44100, store)
	require.NoError(t, err)
	require.Len(t, result.FallbackMatches, 2)
	assert.EqualValues(t, 2, result.FallbackMatches[0].SongID)
	assert.EqualValues(t, 3, result.FallbackMatches[1].SongID)
}

func TestAlign_ExcludesSongsBelowFallbackFloor(t *testing.T) {
	store := newFakeSongStore(
		&models.Song{ID: 1, Title: "Winner", Artist: "A"},
		&models.Song{ID: 2, Title: "Noise", Artist: "B"},
	)

	votes := []models.Vote{}
	for i := 0; i < 20; i++ {
		votes = append(votes, models.Vote{SongID: 1, Offset: 1})
	}
	votes = append(votes, models.Vote{SongID: 2, Offset: 2}) // 5%, below the 10% floor

	result, err := Align(votes, 2048, 44100, store)
	require.NoError(t, err)
	assert.Empty(t, result.FallbackMatches)
}

func TestOffsetSeconds_RoundsHalfUpToFiveDecimals(t *testing.T) {
	// hop=2048, fs=44100 -> one frame is 2048/44100 s ~= 0.046439909...
	got := offsetSeconds(1, 2048, 44100)
	assert.Equal(t, 0.04644, got)
}

func TestRoundTo_HalfUpBothSigns(t *testing.T) {
	// 1.234575 * 1e5 is exactly 123457.5 in float64, a true tie
	assert.Equal(t, 1.23458, roundTo(1.234575, 5))
	assert.Equal(t, -1.23458, roundTo(-1.234575, 5))
}

func TestFindMatches_PassesEveryQueryPairThroughUnmodified(t *testing.T) {
	hashes := []Hash{
		{Token: "a", AnchorTime: 1},
		{Token: "b", AnchorTime: 2},
	}

	var captured []Hash
	_, err := FindMatches(hashes, func(queries []Hash) ([]models.Vote, error) {
		captured = queries
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, hashes, captured)
}

func TestFindMatches_RepeatedTokenKeepsBothAnchorTimes(t *testing.T) {
	// a repeated peak-pair interval (e.g. a periodic motif) produces two
	// anchors sharing the same token; both must reach the lookup, not
	// just the last one written.
	hashes := []Hash{
		{Token: "a", AnchorTime: 1},
		{Token: "a", AnchorTime: 50},
	}

	var captured []Hash
	_, err := FindMatches(hashes, func(queries []Hash) ([]models.Vote, error) {
		captured = queries
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, captured, 2)
	assert.Contains(t, captured, Hash{Token: "a", AnchorTime: 1})
	assert.Contains(t, captured, Hash{Token: "a", AnchorTime: 50})
}
