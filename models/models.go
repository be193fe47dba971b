// Package models holds the data shapes shared between the shazam, wav, and
// db packages.
package models

// Couple is the value half of a fingerprint entry: the anchor time of a hash
// and the song it belongs to. Keyed externally by the hash itself.
type Couple struct {
	AnchorTimeMs uint32
	SongID       uint32
}

// Song is a registered recording's metadata row.
type Song struct {
	ID        uint32
	Title     string
	Artist    string
	YoutubeID string
	Key       string
}

// Match is one ranked candidate returned for a query, sorted by Score
// descending by the caller. SongKey is the unique song identity (a
// deterministic key, not the display title) and is what external surfaces
// report and persist as "song"; SongTitle/SongArtist are display-only and
// may collide across distinct recordings.
type Match struct {
	SongID     uint32
	SongKey    string
	SongTitle  string
	SongArtist string
	Score      float64
}

// MatchPair is one (stored anchor time, query anchor time) pairing
// produced by a Store lookup for a single shared hash, both in
// milliseconds.
type MatchPair struct {
	StoredTimeMs uint32
	QueryTimeMs  uint32
}

// StreamRecord is the last-seen song for one stream.
type StreamRecord struct {
	StreamID string
	SongID   string
}

// NotRecognized is the sentinel song id seeded for a stream's first-ever
// observation when no match was found.
const NotRecognized = "Not Recognized"
