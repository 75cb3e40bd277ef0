package audio

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteWAVThenRead_RoundTripsSampleRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := make([]float64, 4410) // 0.1s at 44100
	for i := range samples {
		samples[i] = 1000 * math.Sin(2*math.Pi*440*float64(i)/44100)
	}
	require.NoError(t, WriteWAV(path, samples, 44100))

	decoded, err := Read(path, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 44100, decoded.SampleRate)
	require.Len(t, decoded.Samples, 1)
	assert.InDelta(t, 0.1, decoded.DurationSec, 0.01)
	assert.NotEmpty(t, decoded.ContentHash)
}

func TestRead_ResamplesToTargetRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := make([]float64, 8000)
	require.NoError(t, WriteWAV(path, samples, 8000))

	decoded, err := Read(path, 16000, 0)
	require.NoError(t, err)
	assert.Equal(t, 16000, decoded.SampleRate)
	assert.InDelta(t, len(samples[0:])*2, len(decoded.Samples[0]), float64(len(samples))*0.05)
}

func TestRead_TruncatesToLimitSec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := make([]float64, 44100*2)
	require.NoError(t, WriteWAV(path, samples, 44100))

	decoded, err := Read(path, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 44100, len(decoded.Samples[0]))
}

func TestUniqueHash_IsStableForIdenticalBytes(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")

	samples := []float64{1, 2, 3, 4, 5}
	require.NoError(t, WriteWAV(a, samples, 8000))
	require.NoError(t, WriteWAV(b, samples, 8000))

	ha, err := UniqueHash(a)
	require.NoError(t, err)
	hb, err := UniqueHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestMonoMix_AveragesChannels(t *testing.T) {
	mixed := MonoMix([][]float64{{2, 4}, {0, 0}})
	assert.Equal(t, []float64{1, 2}, mixed)
}

func TestMonoMix_SingleChannelIsUnchanged(t *testing.T) {
	mixed := MonoMix([][]float64{{1, 2, 3}})
	assert.Equal(t, []float64{1, 2, 3}, mixed)
}

func TestResample_SameRateReturnsInputUnchanged(t *testing.T) {
	in := []float64{1, 2, 3}
	out, err := Resample(in, 8000, 8000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResample_InvalidRatesError(t *testing.T) {
	_, err := Resample([]float64{1}, 0, 100)
	assert.Error(t, err)
}

func TestResample_DownsampleHalvesLength(t *testing.T) {
	in := make([]float64, 1000)
	out, err := Resample(in, 8000, 4000)
	require.NoError(t, err)
	assert.InDelta(t, 500, len(out), 2)
}

func TestResample_UpsampleDoublesLength(t *testing.T) {
	in := make([]float64, 500)
	out, err := Resample(in, 4000, 8000)
	require.NoError(t, err)
	assert.Equal(t, 1000, len(out))
}
