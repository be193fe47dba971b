package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdobak/go-xerrors"

	"trackid/models"
	"trackid/utils"
)

// SQLiteStore implements SongStore and StreamStore over a single SQLite
// file: a songs table (title/artist/key metadata) and a streams table
// (streamid -> songid, last-writer-wins, at most one row per stream).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the database file named by
// SQLITE_PATH, defaulting to "songs.db", and ensures its tables exist.
func NewSQLiteStore() (*SQLiteStore, error) {
	path := utils.GetEnv("SQLITE_PATH", "songs.db")

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", xerrors.New(err))
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to sqlite database: %w", xerrors.New(err))
	}

	if err := createSQLiteTables(sqlDB); err != nil {
		return nil, fmt.Errorf("creating sqlite tables: %w", xerrors.New(err))
	}

	return &SQLiteStore{db: sqlDB}, nil
}

func createSQLiteTables(db *sql.DB) error {
	const songsTable = `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		ytID TEXT,
		key TEXT NOT NULL UNIQUE
	);`

	const streamsTable = `
	CREATE TABLE IF NOT EXISTS streams (
		streamid TEXT PRIMARY KEY,
		songid TEXT NOT NULL
	);`

	if _, err := db.Exec(songsTable); err != nil {
		return fmt.Errorf("creating songs table: %w", err)
	}
	if _, err := db.Exec(streamsTable); err != nil {
		return fmt.Errorf("creating streams table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RegisterSong inserts a new song row. The id is a locally-generated
// uint32 surrogate key used for fingerprint joins; the key column carries
// the string identity external surfaces report.
func (s *SQLiteStore) RegisterSong(title, artist, ytID string) (uint32, error) {
	songID := utils.GenerateUniqueID()
	key := utils.GenerateSongKey(title, artist)

	_, err := s.db.Exec(
		`INSERT INTO songs (id, title, artist, ytID, key) VALUES (?, ?, ?, ?, ?)`,
		int64(songID), title, artist, ytID, key,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting song: %w", err)
	}
	return songID, nil
}

func (s *SQLiteStore) getSong(column string, value interface{}) (models.Song, bool, error) {
	query := fmt.Sprintf(`SELECT id, title, artist, ytID, key FROM songs WHERE %s = ?`, column)

	var song models.Song
	var id int64
	err := s.db.QueryRow(query, value).Scan(&id, &song.Title, &song.Artist, &song.YoutubeID, &song.Key)
	if err == sql.ErrNoRows {
		return models.Song{}, false, nil
	}
	if err != nil {
		return models.Song{}, false, err
	}
	song.ID = uint32(id)
	return song, true, nil
}

func (s *SQLiteStore) GetSongByID(songID uint32) (models.Song, bool, error) {
	return s.getSong("id", int64(songID))
}

func (s *SQLiteStore) GetSongByKey(key string) (models.Song, bool, error) {
	return s.getSong("key", key)
}

func (s *SQLiteStore) GetAllSongs() ([]models.Song, error) {
	rows, err := s.db.Query(`SELECT id, title, artist, ytID, key FROM songs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		var id int64
		if err := rows.Scan(&id, &song.Title, &song.Artist, &song.YoutubeID, &song.Key); err != nil {
			return nil, err
		}
		song.ID = uint32(id)
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func (s *SQLiteStore) DeleteSongByID(songID uint32) error {
	_, err := s.db.Exec(`DELETE FROM songs WHERE id = ?`, int64(songID))
	return err
}

func (s *SQLiteStore) TotalSongs() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) DeleteSongs() error {
	_, err := s.db.Exec(`DELETE FROM songs`)
	return err
}

// Get returns the last song recognized for streamID, or ok=false if the
// stream has never been observed.
func (s *SQLiteStore) Get(streamID string) (string, bool, error) {
	var songID string
	err := s.db.QueryRow(`SELECT songid FROM streams WHERE streamid = ?`, streamID).Scan(&songID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return songID, true, nil
}

// Put upserts streamID's current song, last-writer-wins.
func (s *SQLiteStore) Put(streamID, songID string) error {
	_, err := s.db.Exec(
		`INSERT INTO streams (streamid, songid) VALUES (?, ?)
		 ON CONFLICT(streamid) DO UPDATE SET songid = excluded.songid`,
		streamID, songID,
	)
	return err
}
