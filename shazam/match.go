package shazam

import (
	"math"
	"sort"

	"trackid/models"
)

// BestMatch implements the Ranker contract: given, for each candidate song,
// the list of (stored_t, query_t) pairs produced by hash collisions, it
// computes the histogram of delta = stored_t - query_t quantized to
// binWidthMs, and returns the song whose histogram has the tallest peak
// bin along with that peak count as the score. Ties are broken by the
// lexicographically smaller songid. An empty input returns ("", 0).
func BestMatch(matches map[string][]models.MatchPair, binWidthMs float64) (string, int) {
	if binWidthMs <= 0 {
		binWidthMs = 1
	}

	bestSong := ""
	bestScore := -1

	songIDs := make([]string, 0, len(matches))
	for songID := range matches {
		songIDs = append(songIDs, songID)
	}
	sort.Strings(songIDs)

	for _, songID := range songIDs {
		score := peakHistogramBin(matches[songID], binWidthMs)
		if score > bestScore {
			bestScore = score
			bestSong = songID
		}
	}

	if bestScore < 0 {
		return "", 0
	}
	return bestSong, bestScore
}

func peakHistogramBin(pairs []models.MatchPair, binWidthMs float64) int {
	histogram := make(map[int]int, len(pairs))
	for _, p := range pairs {
		delta := float64(p.StoredTimeMs) - float64(p.QueryTimeMs)
		bin := int(math.Round(delta / binWidthMs))
		histogram[bin]++
	}

	peak := 0
	for _, count := range histogram {
		if count > peak {
			peak = count
		}
	}
	return peak
}
