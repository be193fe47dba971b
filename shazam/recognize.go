package shazam

import (
	"sort"
	"time"

	"trackid/db"
	"trackid/models"
)

// FindMatchesFGP resolves a query fingerprint (hash -> query anchor time in
// ms, already deduplicated by virtue of being a map) against the
// fingerprint store, groups the resulting collisions per song, scores each
// song with the same histogram-peak rule BestMatch uses, and returns every
// candidate sorted by descending score (ties broken by the song's string
// key, ascending) so callers can display a ranked list, not just the
// single winner.
func FindMatchesFGP(queryFingerprint map[uint64]uint32, client *db.Client, cfg FingerprintConfig) ([]models.Match, time.Duration, error) {
	start := time.Now()

	hashes := make([]uint64, 0, len(queryFingerprint))
	for h := range queryFingerprint {
		hashes = append(hashes, h)
	}

	couples, err := client.GetCouples(hashes)
	if err != nil {
		return nil, time.Since(start), err
	}

	pairsBySong := make(map[uint32][]models.MatchPair)
	for hash, queryTime := range queryFingerprint {
		for _, couple := range couples[hash] {
			pairsBySong[couple.SongID] = append(pairsBySong[couple.SongID], models.MatchPair{
				StoredTimeMs: couple.AnchorTimeMs,
				QueryTimeMs:  queryTime,
			})
		}
	}

	if len(pairsBySong) == 0 {
		return nil, time.Since(start), nil
	}

	binWidthMs := FrameStep(cfg) * 1000

	matches := make([]models.Match, 0, len(pairsBySong))
	keys := make(map[uint32]string, len(pairsBySong))

	for songID, pairs := range pairsBySong {
		song, ok, err := client.GetSongByID(songID)
		if err != nil {
			return nil, time.Since(start), err
		}
		if !ok {
			continue
		}

		score := peakHistogramBin(pairs, binWidthMs)
		keys[songID] = song.Key
		matches = append(matches, models.Match{
			SongID:     song.ID,
			SongKey:    song.Key,
			SongTitle:  song.Title,
			SongArtist: song.Artist,
			Score:      float64(score),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return keys[matches[i].SongID] < keys[matches[j].SongID]
	})

	return matches, time.Since(start), nil
}
