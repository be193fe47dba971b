// Package db provides the persistence layer: a fingerprint store backed by
// MongoDB, and a song-metadata/stream-state store backed by SQLite.
package db

import (
	"trackid/models"
)

// FingerprintStore persists (hash, songid, anchor-time) rows and answers
// batched "which songs share these hashes" queries. Both operations must
// support arbitrarily many inputs; implementations partition requests into
// batches sized to respect an underlying transport payload limit.
type FingerprintStore interface {
	// StoreFingerprints appends one row per (hash, Couple) entry.
	StoreFingerprints(fingerprints map[uint64]models.Couple) error

	// GetCouples resolves a deduplicated set of hashes to every stored
	// Couple sharing that hash, across all songs.
	GetCouples(hashes []uint64) (map[uint64][]models.Couple, error)

	TotalFingerprints() (int, error)
	DeleteFingerprints() error

	Close() error
}

// SongStore persists song metadata: title, artist, and the dedup key
// derived from them.
type SongStore interface {
	RegisterSong(songTitle, songArtist, ytID string) (uint32, error)
	GetSongByID(songID uint32) (models.Song, bool, error)
	GetSongByKey(key string) (models.Song, bool, error)
	GetAllSongs() ([]models.Song, error)
	DeleteSongByID(songID uint32) error
	TotalSongs() (int, error)
	DeleteSongs() error

	Close() error
}

// StreamStore maps a streamid to its last-recognized songid, last-writer
// wins, at most one row per streamid.
type StreamStore interface {
	Get(streamID string) (songID string, ok bool, err error)
	Put(streamID, songID string) error

	Close() error
}

// Client bundles all three stores behind one handle. Each CLI command and
// each HTTP request builds its own Client with NewClient and closes it when
// done; no Client is shared across commands or requests.
type Client struct {
	FingerprintStore
	SongStore
	StreamStore
}

// Close shuts down every underlying connection. Errors are collected but
// all three Close calls are always attempted.
func (c *Client) Close() error {
	var first error
	if err := c.FingerprintStore.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.SongStore.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.StreamStore.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// NewClient wires together the Mongo-backed fingerprint store and the
// SQLite-backed song/stream store from process-wide environment
// configuration, which is read again on every call.
func NewClient() (*Client, error) {
	fpStore, err := NewMongoFingerprintStore()
	if err != nil {
		return nil, err
	}

	sqliteStore, err := NewSQLiteStore()
	if err != nil {
		fpStore.Close()
		return nil, err
	}

	return &Client{
		FingerprintStore: fpStore,
		SongStore:        sqliteStore,
		StreamStore:      sqliteStore,
	}, nil
}
