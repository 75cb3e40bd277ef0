package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoID(t *testing.T) {
	body := []byte(`{"items":[{"id":"dQw4w9WgXcQ"}]}`)
	id, err := ParseVideoID(body)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
}

func TestParseVideoID_MissingItemsErrors(t *testing.T) {
	_, err := ParseVideoID([]byte(`{"items":[]}`))
	assert.Error(t, err)
}

func TestParseDurationSeconds(t *testing.T) {
	body := []byte(`{"items":[{"contentDetails":{"duration":"PT4M13S"}}]}`)
	secs, err := ParseDurationSeconds(body)
	require.NoError(t, err)
	assert.Equal(t, 253.0, secs)
}

func TestParseDurationSeconds_HoursMinutesSeconds(t *testing.T) {
	body := []byte(`{"items":[{"contentDetails":{"duration":"PT1H2M3S"}}]}`)
	secs, err := ParseDurationSeconds(body)
	require.NoError(t, err)
	assert.Equal(t, float64(3600+2*60+3), secs)
}

func TestParseDurationSeconds_NoDurationErrors(t *testing.T) {
	_, err := ParseDurationSeconds([]byte(`{"items":[{}]}`))
	assert.Error(t, err)
}

func TestParseISO8601Duration_RejectsMalformedInput(t *testing.T) {
	_, err := parseISO8601Duration("garbage")
	assert.Error(t, err)

	_, err = parseISO8601Duration("P1DT2H")
	assert.Error(t, err) // day component unsupported, matches YouTube's video-duration contract
}
