package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS songs (
	id             INTEGER PRIMARY KEY,
	title          TEXT NOT NULL,
	artist         TEXT NOT NULL,
	duration_sec   REAL NOT NULL DEFAULT 0,
	creative_id    TEXT NOT NULL DEFAULT '',
	file_sha1      TEXT NOT NULL UNIQUE,
	fingerprinted  INTEGER NOT NULL DEFAULT 0,
	date_created   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS hashes (
	token          TEXT NOT NULL,
	song_id        INTEGER NOT NULL,
	anchor_time INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hashes_token ON hashes(token);
CREATE INDEX IF NOT EXISTS idx_hashes_song ON hashes(song_id);
`

// sqliteStore is the embedded, zero-ops backend: a single SQLite file
// holding both the song catalog and the hash index. Inserts are
// serialized through a mutex because database/sql's sqlite3 driver
// does not itself arbitrate writer concurrency.
type sqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

func newSQLiteStore(path string) (*sqliteStore, error) {
	if path == "" {
		path = "seektune.db"
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite only tolerates one writer at a time anyway

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate sqlite schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) GetSongs() ([]models.Song, error) {
	rows, err := s.db.Query(`SELECT id, title, artist, duration_sec, creative_id, file_sha1, fingerprinted, date_created FROM songs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Song
	for rows.Next() {
		var song models.Song
		var fingerprinted int
		if err := rows.Scan(&song.ID, &song.Title, &song.Artist, &song.DurationSec,
			&song.CreativeID, &song.FileSHA1, &fingerprinted, &song.DateCreated); err != nil {
			return nil, err
		}
		song.Fingerprinted = fingerprinted != 0
		out = append(out, song)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetSongByID(id uint32) (*models.Song, bool, error) {
	return s.scanSong(`SELECT id, title, artist, duration_sec, creative_id, file_sha1, fingerprinted, date_created FROM songs WHERE id = ?`, id)
}

func (s *sqliteStore) GetSongByKey(key string) (*models.Song, bool, error) {
	return s.scanSong(`SELECT id, title, artist, duration_sec, creative_id, file_sha1, fingerprinted, date_created FROM songs WHERE lower(title) || '::' || lower(artist) = lower(?)`, key)
}

func (s *sqliteStore) scanSong(query string, arg any) (*models.Song, bool, error) {
	row := s.db.QueryRow(query, arg)

	var song models.Song
	var fingerprinted int
	err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.DurationSec,
		&song.CreativeID, &song.FileSHA1, &fingerprinted, &song.DateCreated)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	song.Fingerprinted = fingerprinted != 0
	return &song, true, nil
}

func (s *sqliteStore) HasContentHash(sha1 string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM songs WHERE file_sha1 = ?`, sha1).Scan(&count)
	return count > 0, err
}

func (s *sqliteStore) InsertSong(title, artist, fileSHA1 string, durationSec float64, creativeID string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing int64
	err := s.db.QueryRow(`SELECT id FROM songs WHERE file_sha1 = ?`, fileSHA1).Scan(&existing)
	if err == nil {
		return 0, ErrDuplicateContent
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.Exec(
		`INSERT INTO songs (title, artist, duration_sec, creative_id, file_sha1, fingerprinted, date_created) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		title, artist, durationSec, creativeID, fileSHA1, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (s *sqliteStore) InsertHashes(songID uint32, hashes []fingerprint.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO hashes (token, song_id, anchor_time) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, h := range hashes {
		if _, err := stmt.Exec(string(h.Token), songID, h.AnchorTime); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) SetSongFingerprinted(songID uint32) error {
	_, err := s.db.Exec(`UPDATE songs SET fingerprinted = 1 WHERE id = ?`, songID)
	return err
}

func (s *sqliteStore) DeleteSongByID(songID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM hashes WHERE song_id = ?`, songID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM songs WHERE id = ?`, songID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) ReturnMatches(queries []fingerprint.Hash) ([]models.Vote, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	// a token can appear more than once in queries (the same peak-pair
	// interval recurring at different anchor times), so every query
	// anchor sharing a token must get its own vote per matching row.
	anchorsByToken := make(map[fingerprint.HashToken][]int, len(queries))
	tokenList := make([]string, 0, len(queries))
	for _, q := range queries {
		if _, seen := anchorsByToken[q.Token]; !seen {
			tokenList = append(tokenList, string(q.Token))
		}
		anchorsByToken[q.Token] = append(anchorsByToken[q.Token], q.AnchorTime)
	}

	placeholders := make([]byte, 0, len(tokenList)*2)
	args := make([]any, 0, len(tokenList))
	for i, t := range tokenList {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, t)
	}

	query := fmt.Sprintf(`SELECT token, song_id, anchor_time FROM hashes WHERE token IN (%s)`, placeholders)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perToken := make(map[fingerprint.HashToken]int)
	var votes []models.Vote
	for rows.Next() {
		var token string
		var songID uint32
		var songTime int64
		if err := rows.Scan(&token, &songID, &songTime); err != nil {
			return nil, err
		}

		ht := fingerprint.HashToken(token)
		if perToken[ht] >= maxFanout {
			continue
		}
		perToken[ht]++

		for _, anchorTime := range anchorsByToken[ht] {
			votes = append(votes, models.Vote{
				SongID: songID,
				Offset: int32(songTime) - int32(anchorTime),
			})
		}
	}

	return votes, rows.Err()
}

func (s *sqliteStore) TotalSongs() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM songs`).Scan(&n)
	return n, err
}

func (s *sqliteStore) TotalHashes() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM hashes`).Scan(&n)
	return n, err
}
