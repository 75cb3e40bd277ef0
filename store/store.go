// Package store implements the persistent hash index and song catalog
// behind the fingerprint.SongStore interface and this package's own
// Store interface. It is a
// replaceable backend: the engine only ever talks to the Store
// interface, never to a concrete driver.
package store

import (
	"errors"
	"fmt"

	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/models"
)

// ErrSongNotFound names a missing song record. The backends in this
// package do not return it: GetSongByID/GetSongByKey report a miss
// through their bool result with a nil error.
var ErrSongNotFound = errors.New("store: song not found")

// ErrDuplicateContent is returned by InsertSong when a song with the
// same content hash has already been registered.
var ErrDuplicateContent = errors.New("store: content hash already indexed")

// maxFanout bounds how many (song_id, song_time) rows ReturnMatches
// will join per token, so one extremely popular hash in a large corpus
// can't blow up a query's cost.
const maxFanout = 500

// Store is the capability set the engine needs from a persistence
// backend: song catalog CRUD plus the hash index join that produces
// match votes. Implementations are selected at construction by New.
type Store interface {
	GetSongs() ([]models.Song, error)
	GetSongByID(id uint32) (*models.Song, bool, error)
	GetSongByKey(key string) (*models.Song, bool, error)
	HasContentHash(sha1 string) (bool, error)

	InsertSong(title, artist, fileSHA1 string, durationSec float64, creativeID string) (uint32, error)
	InsertHashes(songID uint32, hashes []fingerprint.Hash) error
	SetSongFingerprinted(songID uint32) error
	DeleteSongByID(songID uint32) error

	ReturnMatches(queries []fingerprint.Hash) ([]models.Vote, error)

	TotalSongs() (int, error)
	TotalHashes() (int, error)

	Close() error
}

// Kind selects a Store implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMongo  Kind = "mongo"
)

// New dispatches to a concrete Store implementation by kind, the way
// a pluggable-backend factory in this corpus switches on a configured
// database type. dsn is a sqlite file path for KindSQLite, or a mongo
// connection URI for KindMongo.
func New(kind Kind, dsn string) (Store, error) {
	switch kind {
	case KindSQLite, "":
		return newSQLiteStore(dsn)
	case KindMongo:
		return newMongoStore(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported backend %q", kind)
	}
}
