package shazam

import (
	"testing"

	"trackid/models"
)

func TestBestMatchEmptyInput(t *testing.T) {
	song, score := BestMatch(map[string][]models.MatchPair{}, 100)
	if song != "" || score != 0 {
		t.Errorf("BestMatch(empty) = (%q, %d), want (\"\", 0)", song, score)
	}
}

func TestBestMatchPicksHighestHistogramPeak(t *testing.T) {
	matches := map[string][]models.MatchPair{
		"songA": {
			{StoredTimeMs: 1000, QueryTimeMs: 0}, // delta 1000
			{StoredTimeMs: 1000, QueryTimeMs: 0}, // delta 1000 (repeat, same bin)
			{StoredTimeMs: 2000, QueryTimeMs: 0}, // delta 2000 (different bin)
		},
		"songB": {
			{StoredTimeMs: 500, QueryTimeMs: 0},
		},
	}

	song, score := BestMatch(matches, 100)
	if song != "songA" {
		t.Errorf("BestMatch winner = %q, want songA", song)
	}
	if score != 2 {
		t.Errorf("BestMatch score = %d, want 2", score)
	}
}

func TestBestMatchTieBreaksByLexicographicallySmallerSongID(t *testing.T) {
	matches := map[string][]models.MatchPair{
		"zzz": {{StoredTimeMs: 100, QueryTimeMs: 0}},
		"aaa": {{StoredTimeMs: 100, QueryTimeMs: 0}},
		"mmm": {{StoredTimeMs: 100, QueryTimeMs: 0}},
	}

	song, score := BestMatch(matches, 100)
	if song != "aaa" {
		t.Errorf("BestMatch tie-break winner = %q, want aaa", song)
	}
	if score != 1 {
		t.Errorf("BestMatch score = %d, want 1", score)
	}
}

func TestBestMatchBinWidthQuantizes(t *testing.T) {
	// Deltas of 1000 and 1040ms should land in the same 100ms-wide bin,
	// giving songA a peak of 2 rather than two singleton bins.
	matches := map[string][]models.MatchPair{
		"songA": {
			{StoredTimeMs: 1000, QueryTimeMs: 0},
			{StoredTimeMs: 1040, QueryTimeMs: 0},
		},
	}

	_, score := BestMatch(matches, 100)
	if score != 2 {
		t.Errorf("BestMatch score = %d, want 2 (both deltas should quantize to the same bin)", score)
	}
}
