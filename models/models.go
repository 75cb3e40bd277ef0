// Package models holds the data types shared between the fingerprinting
// engine, the store backends, and the CLI/HTTP front end.
package models

import "time"

// Song is a stable catalog entry. It is created on ingest and, aside
// from the Fingerprinted flag, immutable thereafter.
type Song struct {
	ID            uint32    `json:"id"`
	Title         string    `json:"title"`
	Artist        string    `json:"artist"`
	DurationSec   float64   `json:"durationSec"`
	CreativeID    string    `json:"creativeId,omitempty"`
	FileSHA1      string    `json:"fileSha1"`
	TotalHashes   int       `json:"totalHashes"`
	Fingerprinted bool      `json:"fingerprinted"`
	DateCreated   time.Time `json:"dateCreated"`
}

// Vote is one (song, offset) emission produced by joining a query's
// hash tokens against the index; ReturnMatches emits a stream of these.
type Vote struct {
	SongID uint32
	Offset int32 // song_time - query_anchor_time, in frames
}

// Match is the per-song alignment result: the strongest offset found
// for that song and how many votes support it.
type Match struct {
	SongID        uint32  `json:"songId"`
	SongTitle     string  `json:"songTitle"`
	SongArtist    string  `json:"songArtist"`
	SongDuration  float64 `json:"songDuration"`
	CreativeID    string  `json:"creativeId,omitempty"`
	FileSHA1      string  `json:"fileSha1"`
	Confidence    int     `json:"confidence"` // vote count at the winning cell
	Offset        int32   `json:"offset"`     // frames
	OffsetSeconds float64 `json:"offsetSeconds"`
}

// Result is the full query response: the best match plus weaker
// fallback candidates, ordered by descending confidence.
type Result struct {
	Match
	FallbackMatches []Match `json:"fallbackMatches"`
}
