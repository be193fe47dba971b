package shazam

import (
	"testing"

	"trackid/db"
	"trackid/models"
)

// fakeFingerprintStore is an in-memory FingerprintStore used to exercise
// the extractor -> hasher -> store -> ranker pipeline end to end without a
// real MongoDB instance.
type fakeFingerprintStore struct {
	rows map[uint64][]models.Couple
}

func newFakeFingerprintStore() *fakeFingerprintStore {
	return &fakeFingerprintStore{rows: make(map[uint64][]models.Couple)}
}

func (f *fakeFingerprintStore) StoreFingerprints(fingerprints map[uint64]models.Couple) error {
	for hash, couple := range fingerprints {
		f.rows[hash] = append(f.rows[hash], couple)
	}
	return nil
}

func (f *fakeFingerprintStore) GetCouples(hashes []uint64) (map[uint64][]models.Couple, error) {
	seen := make(map[uint64]bool, len(hashes))
	result := make(map[uint64][]models.Couple)
	for _, h := range hashes {
		if seen[h] {
			continue
		}
		seen[h] = true
		if rows, ok := f.rows[h]; ok {
			result[h] = rows
		}
	}
	return result, nil
}

func (f *fakeFingerprintStore) TotalFingerprints() (int, error) {
	count := 0
	for _, rows := range f.rows {
		count += len(rows)
	}
	return count, nil
}

func (f *fakeFingerprintStore) DeleteFingerprints() error {
	f.rows = make(map[uint64][]models.Couple)
	return nil
}

func (f *fakeFingerprintStore) Close() error { return nil }

// fakeSongStore is an in-memory SongStore keyed by the songID assigned at
// registration time.
type fakeSongStore struct {
	songs map[uint32]models.Song
}

func newFakeSongStore() *fakeSongStore {
	return &fakeSongStore{songs: make(map[uint32]models.Song)}
}

func (f *fakeSongStore) RegisterSong(title, artist, ytID string) (uint32, error) {
	id := uint32(len(f.songs) + 1)
	f.songs[id] = models.Song{ID: id, Title: title, Artist: artist, YoutubeID: ytID, Key: title + "-" + artist}
	return id, nil
}

func (f *fakeSongStore) GetSongByID(songID uint32) (models.Song, bool, error) {
	song, ok := f.songs[songID]
	return song, ok, nil
}

func (f *fakeSongStore) GetSongByKey(key string) (models.Song, bool, error) {
	for _, s := range f.songs {
		if s.Key == key {
			return s, true, nil
		}
	}
	return models.Song{}, false, nil
}

func (f *fakeSongStore) GetAllSongs() ([]models.Song, error) {
	out := make([]models.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSongStore) DeleteSongByID(songID uint32) error {
	delete(f.songs, songID)
	return nil
}

func (f *fakeSongStore) TotalSongs() (int, error) { return len(f.songs), nil }

func (f *fakeSongStore) DeleteSongs() error {
	f.songs = make(map[uint32]models.Song)
	return nil
}

func (f *fakeSongStore) Close() error { return nil }

func extractPeaks(t *testing.T, samples []float64, cfg FingerprintConfig) []Peak {
	t.Helper()
	spec, err := ComputeSpectrogram(samples, cfg)
	if err != nil {
		t.Fatalf("ComputeSpectrogram: %v", err)
	}
	return FindPeaks(spec, cfg)
}

// TestSelfMatchScoresHighest: indexing a file and then querying with the
// same file should identify it as the highest-scoring candidate among
// several indexed songs.
func TestSelfMatchScoresHighest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PeakBoxSize = 10
	cfg.PointEfficiency = 0.5

	sineA := sineSamples(440, cfg, 10.0)
	sineB := sineSamples(880, cfg, 10.0)

	fpStore := newFakeFingerprintStore()
	songStore := newFakeSongStore()
	client := &db.Client{FingerprintStore: fpStore, SongStore: songStore}

	idA, err := songStore.RegisterSong("sineA", "test", "")
	if err != nil {
		t.Fatalf("RegisterSong sineA: %v", err)
	}
	idB, err := songStore.RegisterSong("sineB", "test", "")
	if err != nil {
		t.Fatalf("RegisterSong sineB: %v", err)
	}

	peaksA := extractPeaks(t, sineA, cfg)
	if err := fpStore.StoreFingerprints(Fingerprint(peaksA, idA, cfg)); err != nil {
		t.Fatalf("StoreFingerprints sineA: %v", err)
	}

	peaksB := extractPeaks(t, sineB, cfg)
	if err := fpStore.StoreFingerprints(Fingerprint(peaksB, idB, cfg)); err != nil {
		t.Fatalf("StoreFingerprints sineB: %v", err)
	}

	queryPeaks := extractPeaks(t, sineA, cfg)
	queryRecords := HashPoints(queryPeaks, cfg)
	queryFingerprint := make(map[uint64]uint32, len(queryRecords))
	for _, r := range queryRecords {
		queryFingerprint[r.Hash] = uint32(r.AnchorTime * 1000)
	}

	matches, _, err := FindMatchesFGP(queryFingerprint, client, cfg)
	if err != nil {
		t.Fatalf("FindMatchesFGP: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}

	best := matches[0]
	if best.SongID != idA {
		t.Errorf("best match songID = %d, want %d (sineA)", best.SongID, idA)
	}
	wantKey := "sineA-test"
	if best.SongKey != wantKey {
		t.Errorf("best match SongKey = %q, want %q (the unique songid identity, not the display title)", best.SongKey, wantKey)
	}
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			t.Errorf("best match is not the top score: %v scored higher than %v", m, best)
		}
	}
}

// TestNoMatchOnSilence: querying with silence against an indexed song
// should surface no matches.
func TestNoMatchOnSilence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PeakBoxSize = 10
	cfg.PointEfficiency = 0.5

	sineA := sineSamples(440, cfg, 5.0)

	fpStore := newFakeFingerprintStore()
	songStore := newFakeSongStore()
	client := &db.Client{FingerprintStore: fpStore, SongStore: songStore}

	idA, err := songStore.RegisterSong("sineA", "test", "")
	if err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}
	peaksA := extractPeaks(t, sineA, cfg)
	if err := fpStore.StoreFingerprints(Fingerprint(peaksA, idA, cfg)); err != nil {
		t.Fatalf("StoreFingerprints: %v", err)
	}

	silence := make([]float64, int(float64(cfg.SampleRate)*5.0))
	spec, err := ComputeSpectrogram(silence, cfg)
	if err != nil {
		t.Fatalf("ComputeSpectrogram(silence): %v", err)
	}
	silentPeaks := FindPeaks(spec, cfg)
	records := HashPoints(silentPeaks, cfg)

	queryFingerprint := make(map[uint64]uint32, len(records))
	for _, r := range records {
		queryFingerprint[r.Hash] = uint32(r.AnchorTime * 1000)
	}

	matches, _, err := FindMatchesFGP(queryFingerprint, client, cfg)
	if err != nil {
		t.Fatalf("FindMatchesFGP: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches against silence, got %v", matches)
	}
}

// TestExtractionDeterministic: the same audio and parameters always yield
// the same sorted hash list.
func TestExtractionDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	samples := sineSamples(523.25, cfg, 3.0)

	peaks1 := extractPeaks(t, samples, cfg)
	peaks2 := extractPeaks(t, samples, cfg)

	records1 := HashPoints(peaks1, cfg)
	records2 := HashPoints(peaks2, cfg)

	if len(records1) != len(records2) {
		t.Fatalf("non-deterministic hash count: %d vs %d", len(records1), len(records2))
	}
	for i := range records1 {
		if records1[i] != records2[i] {
			t.Fatalf("non-deterministic record at %d: %v vs %v", i, records1[i], records2[i])
		}
	}
}

// unpackDeltaMs extracts the quantized time-delta component packed by
// createHash, mirroring its bit layout.
func unpackDeltaMs(hash uint64) uint64 {
	return hash & ((1 << deltaBits) - 1)
}

// TestTargetZoneInvariantAcrossExtraction checks the target-zone bounds
// against real extracted peaks, not just hand-built ones: every emitted
// hash's packed time-delta component must fall within
// [TargetStart, TargetStart+TargetT] once converted back to seconds.
func TestTargetZoneInvariantAcrossExtraction(t *testing.T) {
	cfg := DefaultConfig()
	samples := sineSamples(660, cfg, 4.0)

	peaks := extractPeaks(t, samples, cfg)
	records := HashPoints(peaks, cfg)
	if len(records) == 0 {
		t.Fatal("expected at least one hash record from a real extraction")
	}

	loMs := cfg.TargetStart * 1000
	hiMs := (cfg.TargetStart + cfg.TargetT) * 1000

	for _, r := range records {
		deltaMs := float64(unpackDeltaMs(r.Hash))
		if deltaMs < loMs-1 || deltaMs > hiMs+1 {
			t.Errorf("hash %d: packed delta %v ms out of target-zone bounds [%v, %v]", r.Hash, deltaMs, loMs, hiMs)
		}
	}
}

// TestMatchesDistinguishSameTitleDifferentArtist: two songs sharing a
// display title but not an artist must still be reported under distinct
// identities, not collapse to the same title string.
func TestMatchesDistinguishSameTitleDifferentArtist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PeakBoxSize = 10
	cfg.PointEfficiency = 0.5

	// Both entries are indexed from the same underlying recording
	// (duplicate inserts are permitted), so both collide with the query
	// and must still be told apart by SongKey, not by title.
	recording := sineSamples(440, cfg, 8.0)

	fpStore := newFakeFingerprintStore()
	songStore := newFakeSongStore()
	client := &db.Client{FingerprintStore: fpStore, SongStore: songStore}

	idA, err := songStore.RegisterSong("Yesterday", "The Originals", "")
	if err != nil {
		t.Fatalf("RegisterSong coverA: %v", err)
	}
	idB, err := songStore.RegisterSong("Yesterday", "The Cover Band", "")
	if err != nil {
		t.Fatalf("RegisterSong coverB: %v", err)
	}

	peaksA := extractPeaks(t, recording, cfg)
	if err := fpStore.StoreFingerprints(Fingerprint(peaksA, idA, cfg)); err != nil {
		t.Fatalf("StoreFingerprints coverA: %v", err)
	}
	peaksB := extractPeaks(t, recording, cfg)
	if err := fpStore.StoreFingerprints(Fingerprint(peaksB, idB, cfg)); err != nil {
		t.Fatalf("StoreFingerprints coverB: %v", err)
	}

	queryRecords := HashPoints(extractPeaks(t, recording, cfg), cfg)
	queryFingerprint := make(map[uint64]uint32, len(queryRecords))
	for _, r := range queryRecords {
		queryFingerprint[r.Hash] = uint32(r.AnchorTime * 1000)
	}

	matches, _, err := FindMatchesFGP(queryFingerprint, client, cfg)
	if err != nil {
		t.Fatalf("FindMatchesFGP: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("expected both same-titled songs to appear as candidates, got %d", len(matches))
	}

	seenKeys := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.SongTitle != "Yesterday" {
			continue
		}
		if seenKeys[m.SongKey] {
			t.Errorf("two distinct songs reported under the same SongKey %q", m.SongKey)
		}
		seenKeys[m.SongKey] = true
		if m.SongKey == "" {
			t.Error("SongKey must not be empty for a registered song")
		}
	}
	if len(seenKeys) != 2 {
		t.Errorf("expected 2 distinct SongKeys among same-titled matches, got %d", len(seenKeys))
	}
}
