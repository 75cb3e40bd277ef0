package ingest

import (
	"sync"
	"time"

	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/models"
	"github.com/tefkah/seek-tune/store"
)

// fakeStore is a minimal in-memory store.Store used to drive the
// ingestion worker pool in tests without a real database.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint32
	songs  map[uint32]*models.Song
}

func newFakeStore() *fakeStore {
	return &fakeStore{songs: make(map[uint32]*models.Song)}
}

func (f *fakeStore) GetSongs() ([]models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) GetSongByID(id uint32) (*models.Song, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.songs[id]
	return s, ok, nil
}

func (f *fakeStore) GetSongByKey(key string) (*models.Song, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.Title+"::"+s.Artist == key {
			return s, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeStore) HasContentHash(sha1 string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.FileSHA1 == sha1 {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertSong(title, artist, fileSHA1 string, durationSec float64, creativeID string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.songs {
		if s.FileSHA1 == fileSHA1 {
			return 0, store.ErrDuplicateContent
		}
	}
	f.nextID++
	id := f.nextID
	f.songs[id] = &models.Song{
		ID: id, Title: title, Artist: artist, FileSHA1: fileSHA1,
		DurationSec: durationSec, CreativeID: creativeID, DateCreated: time.Now(),
	}
	return id, nil
}

func (f *fakeStore) InsertHashes(songID uint32, hashes []fingerprint.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.songs[songID]; ok {
		s.TotalHashes += len(hashes)
	}
	return nil
}

func (f *fakeStore) SetSongFingerprinted(songID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.songs[songID]; ok {
		s.Fingerprinted = true
	}
	return nil
}

func (f *fakeStore) DeleteSongByID(songID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.songs, songID)
	return nil
}

func (f *fakeStore) ReturnMatches(queries []fingerprint.Hash) ([]models.Vote, error) {
	return nil, nil
}

func (f *fakeStore) TotalSongs() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.songs), nil
}

func (f *fakeStore) TotalHashes() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.songs {
		n += s.TotalHashes
	}
	return n, nil
}

func (f *fakeStore) Close() error { return nil }
