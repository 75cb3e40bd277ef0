package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchor_RespectsFanoutAndDeltaWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fanout = 2
	cfg.DeltaTMin = 1
	cfg.DeltaTMax = 3

	peaks := []Peak{
		{Time: 0, Freq: 10},
		{Time: 1, Freq: 20}, // dt=1, within window
		{Time: 2, Freq: 30}, // dt=2, within window
		{Time: 3, Freq: 40}, // dt=3, within window but fanout already exhausted
		{Time: 10, Freq: 50},
	}

	hashes := Anchor(peaks, cfg)

	anchorAtZero := 0
	for _, h := range hashes {
		if h.AnchorTime == 0 {
			anchorAtZero++
		}
	}
	assert.Equal(t, 2, anchorAtZero)
}

func TestAnchor_SkipsBelowDeltaTMin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fanout = 10
	cfg.DeltaTMin = 5
	cfg.DeltaTMax = 100

	peaks := []Peak{
		{Time: 0, Freq: 10},
		{Time: 2, Freq: 20}, // dt=2, below min, must be skipped not just stopped
		{Time: 6, Freq: 30}, // dt=6, valid
	}

	hashes := Anchor(peaks, cfg)
	require.Len(t, hashes, 1)
	assert.Equal(t, 0, hashes[0].AnchorTime)
}

func TestAnchor_SortsUnsortedPeaksFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fanout = 10
	cfg.DeltaTMin = 0
	cfg.DeltaTMax = 100

	sorted := Anchor([]Peak{{Time: 0, Freq: 1}, {Time: 5, Freq: 2}}, cfg)
	unsorted := Anchor([]Peak{{Time: 5, Freq: 2}, {Time: 0, Freq: 1}}, cfg)

	assert.Equal(t, sorted, unsorted)
}

func TestAnchor_IsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	peaks := []Peak{
		{Time: 0, Freq: 10}, {Time: 3, Freq: 15}, {Time: 7, Freq: 40}, {Time: 50, Freq: 100},
	}

	first := Anchor(peaks, cfg)
	second := Anchor(peaks, cfg)
	assert.Equal(t, first, second)
}

func TestPackedToken_DistinctForDistinctInput(t *testing.T) {
	a := packedToken(10, 20, 5)
	b := packedToken(10, 20, 6)
	c := packedToken(10, 21, 5)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, string(a), 16)
}

func TestSHA1Token_DistinctForDistinctInput(t *testing.T) {
	a := sha1Token(10, 20, 5)
	b := sha1Token(10, 20, 6)
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 20)
}

func TestEncodeToken_DispatchesOnConfig(t *testing.T) {
	packed := encodeToken(1, 2, 3, TokenPacked)
	sha := encodeToken(1, 2, 3, TokenSHA1)
	assert.Len(t, string(packed), 16)
	assert.Len(t, string(sha), 20)
}
