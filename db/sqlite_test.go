package db

import (
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "songs.db"))

	store, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRegisterAndLookupSong(t *testing.T) {
	store := newTestSQLiteStore(t)

	songID, err := store.RegisterSong("Bargad", "Arpit Bala", "yt123")
	if err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}

	byID, ok, err := store.GetSongByID(songID)
	if err != nil {
		t.Fatalf("GetSongByID: %v", err)
	}
	if !ok {
		t.Fatal("expected song to be found by id")
	}
	if byID.Title != "Bargad" || byID.Artist != "Arpit Bala" {
		t.Errorf("GetSongByID returned %+v", byID)
	}

	byKey, ok, err := store.GetSongByKey(byID.Key)
	if err != nil {
		t.Fatalf("GetSongByKey: %v", err)
	}
	if !ok || byKey.ID != songID {
		t.Errorf("GetSongByKey mismatch: %+v", byKey)
	}
}

func TestSQLiteStoreGetSongByIDMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, ok, err := store.GetSongByID(999999)
	if err != nil {
		t.Fatalf("GetSongByID: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unregistered song id")
	}
}

func TestSQLiteStoreGetAllAndDeleteSongs(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.RegisterSong("Song One", "Artist A", ""); err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}
	if _, err := store.RegisterSong("Song Two", "Artist B", ""); err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}

	total, err := store.TotalSongs()
	if err != nil {
		t.Fatalf("TotalSongs: %v", err)
	}
	if total != 2 {
		t.Fatalf("TotalSongs = %d, want 2", total)
	}

	all, err := store.GetAllSongs()
	if err != nil {
		t.Fatalf("GetAllSongs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetAllSongs returned %d songs, want 2", len(all))
	}

	if err := store.DeleteSongs(); err != nil {
		t.Fatalf("DeleteSongs: %v", err)
	}
	total, err = store.TotalSongs()
	if err != nil {
		t.Fatalf("TotalSongs after delete: %v", err)
	}
	if total != 0 {
		t.Fatalf("TotalSongs after DeleteSongs = %d, want 0", total)
	}
}

func TestSQLiteStoreDeleteSongByID(t *testing.T) {
	store := newTestSQLiteStore(t)

	songID, err := store.RegisterSong("Lonely Song", "Solo Artist", "")
	if err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}

	if err := store.DeleteSongByID(songID); err != nil {
		t.Fatalf("DeleteSongByID: %v", err)
	}

	_, ok, err := store.GetSongByID(songID)
	if err != nil {
		t.Fatalf("GetSongByID: %v", err)
	}
	if ok {
		t.Fatal("expected song to be gone after DeleteSongByID")
	}
}

func TestSQLiteStoreStreamStateAtMostOneRowPerStream(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, ok, err := store.Get("livefeed"); err != nil || ok {
		t.Fatalf("expected unseen stream to report ok=false, got ok=%v err=%v", ok, err)
	}

	if err := store.Put("livefeed", "sineA"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	song, ok, err := store.Get("livefeed")
	if err != nil || !ok || song != "sineA" {
		t.Fatalf("Get after first Put = (%q, %v, %v), want (sineA, true, nil)", song, ok, err)
	}

	// last-writer-wins upsert, not a second row
	if err := store.Put("livefeed", "sineB"); err != nil {
		t.Fatalf("Put (update): %v", err)
	}
	song, ok, err = store.Get("livefeed")
	if err != nil || !ok || song != "sineB" {
		t.Fatalf("Get after update = (%q, %v, %v), want (sineB, true, nil)", song, ok, err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM streams WHERE streamid = ?`, "livefeed").Scan(&count); err != nil {
		t.Fatalf("counting stream rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("streams table has %d rows for streamid, want 1 (last-writer-wins)", count)
	}
}
