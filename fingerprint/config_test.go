package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Hop(t *testing.T) {
	cfg := Config{WindowSize: 4096, Overlap: 0.5}
	assert.Equal(t, 2048, cfg.Hop())

	noOverlap := Config{WindowSize: 2048, Overlap: 0}
	assert.Equal(t, 2048, noOverlap.Hop())
}

func TestDefaultConfig_MatchesDocumentedDSPParameters(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 44100, cfg.Fs)
	assert.Equal(t, 4096, cfg.WindowSize)
	assert.Equal(t, 0.5, cfg.Overlap)
	assert.Equal(t, 20, cfg.PeakRadius)
	assert.Equal(t, 10.0, cfg.AMin)
	assert.Equal(t, 15, cfg.Fanout)
	assert.Equal(t, 0, cfg.DeltaTMin)
	assert.Equal(t, 200, cfg.DeltaTMax)
	assert.Equal(t, TokenPacked, cfg.TokenEncoding)
}

func TestAudiobookConfig_LowersPeakDensity(t *testing.T) {
	music := DefaultConfig()
	audiobook := AudiobookConfig()

	assert.Less(t, audiobook.Fs, music.Fs)
	assert.Less(t, audiobook.Fanout, music.Fanout)
	assert.Less(t, audiobook.AMin, music.AMin)
}
