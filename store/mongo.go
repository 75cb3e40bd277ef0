package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tefkah/seek-tune/fingerprint"
	"github.com/tefkah/seek-tune/internal/util"
	"github.com/tefkah/seek-tune/models"
)

const (
	songsCollection  = "songs"
	hashesCollection = "fingerprints"
	mongoTimeout     = 10 * time.Second
)

// mongoStore is the document-store backend, keeping songs and hashes in
// the "songs" and "fingerprints" collections. The CLI's "erase" command
// clears it like any other backend, one DeleteSongByID call per song.
type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoSong struct {
	ID            uint32    `bson:"_id"`
	Title         string    `bson:"title"`
	Artist        string    `bson:"artist"`
	Key           string    `bson:"key"`
	DurationSec   float64   `bson:"durationSec"`
	CreativeID    string    `bson:"creativeId"`
	FileSHA1      string    `bson:"fileSha1"`
	Fingerprinted bool      `bson:"fingerprinted"`
	DateCreated   time.Time `bson:"dateCreated"`
}

type mongoHash struct {
	Token      string `bson:"token"`
	SongID     uint32 `bson:"songId"`
	AnchorTime int    `bson:"anchorTime"`
}

func newMongoStore(uri string) (*mongoStore, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database("seektune")

	_, err = db.Collection(hashesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "token", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	_, err = db.Collection(songsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "fileSha1", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	_, err = db.Collection(songsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "key", Value: 1}},
	})
	if err != nil {
		return nil, err
	}

	return &mongoStore{client: client, db: db}, nil
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *mongoStore) songs() *mongo.Collection  { return s.db.Collection(songsCollection) }
func (s *mongoStore) hashes() *mongo.Collection { return s.db.Collection(hashesCollection) }

func toModel(m mongoSong) models.Song {
	return models.Song{
		ID:            m.ID,
		Title:         m.Title,
		Artist:        m.Artist,
		DurationSec:   m.DurationSec,
		CreativeID:    m.CreativeID,
		FileSHA1:      m.FileSHA1,
		Fingerprinted: m.Fingerprinted,
		DateCreated:   m.DateCreated,
	}
}

func (s *mongoStore) GetSongs() ([]models.Song, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	cur, err := s.songs().Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Song
	for cur.Next(ctx) {
		var m mongoSong
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, toModel(m))
	}
	return out, cur.Err()
}

func (s *mongoStore) GetSongByID(id uint32) (*models.Song, bool, error) {
	return s.findOneSong(bson.D{{Key: "_id", Value: id}})
}

func (s *mongoStore) GetSongByKey(key string) (*models.Song, bool, error) {
	return s.findOneSong(bson.D{{Key: "key", Value: key}})
}

func (s *mongoStore) findOneSong(filter bson.D) (*models.Song, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	var m mongoSong
	err := s.songs().FindOne(ctx, filter).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	song := toModel(m)
	return &song, true, nil
}

func (s *mongoStore) HasContentHash(sha1 string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	n, err := s.songs().CountDocuments(ctx, bson.D{{Key: "fileSha1", Value: sha1}})
	return n > 0, err
}

func (s *mongoStore) InsertSong(title, artist, fileSHA1 string, durationSec float64, creativeID string) (uint32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	if exists, err := s.HasContentHash(fileSHA1); err != nil {
		return 0, err
	} else if exists {
		return 0, ErrDuplicateContent
	}

	id := util.GenerateSongID(title, artist, fileSHA1)
	_, err := s.songs().InsertOne(ctx, mongoSong{
		ID:          id,
		Title:       title,
		Artist:      artist,
		Key:         util.GenerateSongKey(title, artist),
		DurationSec: durationSec,
		CreativeID:  creativeID,
		FileSHA1:    fileSHA1,
		DateCreated: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return 0, ErrDuplicateContent
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *mongoStore) InsertHashes(songID uint32, hashes []fingerprint.Hash) error {
	if len(hashes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	docs := make([]interface{}, len(hashes))
	for i, h := range hashes {
		docs[i] = mongoHash{Token: string(h.Token), SongID: songID, AnchorTime: h.AnchorTime}
	}

	_, err := s.hashes().InsertMany(ctx, docs)
	return err
}

func (s *mongoStore) SetSongFingerprinted(songID uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	_, err := s.songs().UpdateOne(ctx,
		bson.D{{Key: "_id", Value: songID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "fingerprinted", Value: true}}}},
	)
	return err
}

func (s *mongoStore) DeleteSongByID(songID uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

	if _, err := s.hashes().DeleteMany(ctx, bson.D{{Key: "songId", Value: songID}}); err != nil {
		return err
	}
	_, err := s.songs().DeleteOne(ctx, bson.D{{Key: "_id", Value: songID}})
	return err
}

func (s *mongoStore) ReturnMatches(queries []fingerprint.Hash) ([]models.Vote, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()

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

	cur, err := s.hashes().Find(ctx, bson.D{{Key: "token", Value: bson.D{{Key: "$in", Value: tokenList}}}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	perToken := make(map[fingerprint.HashToken]int)
	var votes []models.Vote
	for cur.Next(ctx) {
		var h mongoHash
		if err := cur.Decode(&h); err != nil {
			return nil, err
		}

		ht := fingerprint.HashToken(h.Token)
		if perToken[ht] >= maxFanout {
			continue
		}
		perToken[ht]++

		for _, anchorTime := range anchorsByToken[ht] {
			votes = append(votes, models.Vote{
				SongID: h.SongID,
				Offset: int32(h.AnchorTime) - int32(anchorTime),
			})
		}
	}

	return votes, cur.Err()
}

func (s *mongoStore) TotalSongs() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	n, err := s.songs().CountDocuments(ctx, bson.D{})
	return int(n), err
}

func (s *mongoStore) TotalHashes() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	n, err := s.hashes().CountDocuments(ctx, bson.D{})
	return int(n), err
}
