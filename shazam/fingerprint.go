package shazam

import (
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"sort"
	"time"

	"trackid/models"
	"trackid/utils"
	"trackid/wav"
)

const (
	freqBits  = 16 // quantized to the nearest Hz, covers up to 65535 Hz
	deltaBits = 21 // quantized to the nearest ms, covers up to ~35 minutes
)

// HashRecord is the (hash, anchor_time) pair emitted for one anchor/target
// peak pairing.
type HashRecord struct {
	Hash       uint64
	AnchorTime float64 // seconds
}

// HashPoints enumerates, for every anchor peak (in the order FindPeaks
// returned them), all candidate partners in its forward target zone and
// emits one HashRecord per pairing. The target zone for anchor a is
//
//	p.Time  in [a.Time+TargetStart, a.Time+TargetStart+TargetT]
//	p.Freq  in [a.Freq-TargetF/2, a.Freq+TargetF/2]
//
// both bounds inclusive. Self-pairs are excluded by the strict lower time
// bound (TargetStart > 0). The returned list is sorted by anchor time
// ascending, stable on ties, so records with equal anchor times keep the
// order of peaks; the result is deterministic for a given peak list.
func HashPoints(peaks []Peak, cfg FingerprintConfig) []HashRecord {
	records := make([]HashRecord, 0, len(peaks)*4)

	halfF := cfg.TargetF / 2

	for _, anchor := range peaks {
		loTime := anchor.Time + cfg.TargetStart
		hiTime := anchor.Time + cfg.TargetStart + cfg.TargetT
		loFreq := anchor.Freq - halfF
		hiFreq := anchor.Freq + halfF

		for _, target := range peaks {
			if target.Time < loTime || target.Time > hiTime {
				continue
			}
			if target.Freq < loFreq || target.Freq > hiFreq {
				continue
			}

			records = append(records, HashRecord{
				Hash:       createHash(anchor, target),
				AnchorTime: anchor.Time,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].AnchorTime < records[j].AnchorTime
	})

	return records
}

// createHash derives a stable 64-bit hash from the triple
// (anchor freq, target freq, target time - anchor time), each quantized so
// the value is reproducible bit-for-bit across runs. Persisted hashes
// depend on this exact bit layout; changing it invalidates the index.
func createHash(anchor, target Peak) uint64 {
	anchorFreqBits := uint64(math.Round(anchor.Freq)) & ((1 << freqBits) - 1)
	targetFreqBits := uint64(math.Round(target.Freq)) & ((1 << freqBits) - 1)
	deltaMs := uint64(math.Round((target.Time - anchor.Time) * 1000))
	deltaBitsVal := deltaMs & ((1 << deltaBits) - 1)

	return (anchorFreqBits << (freqBits + deltaBits)) | (targetFreqBits << deltaBits) | deltaBitsVal
}

// Fingerprint turns a peak constellation into a map[hash]Couple, the shape
// the Store batches for persistence or the Ranker consumes for a query. It
// is a thin adapter over HashPoints that attaches songID to every record;
// the underlying hash/anchor-time pairing is identical.
func Fingerprint(peaks []Peak, songID uint32, cfg FingerprintConfig) map[uint64]models.Couple {
	records := HashPoints(peaks, cfg)

	fingerprints := make(map[uint64]models.Couple, len(records))
	for _, r := range records {
		fingerprints[r.Hash] = models.Couple{
			AnchorTimeMs: uint32(r.AnchorTime * 1000),
			SongID:       songID,
		}
	}
	return fingerprints
}

// FingerprintAudioChunked processes an audio file in bounded-memory chunks
// using ffmpeg for segment extraction. Each chunk is independently
// converted to WAV, decoded, and fingerprinted, and the results merged into
// one map. Memory usage is proportional to ChunkDurationSec, not total file
// length, which matters for multi-hour recordings.
func FingerprintAudioChunked(inputPath string, songID uint32, cfg FingerprintConfig) (map[uint64]models.Couple, error) {
	duration, err := wav.GetAudioDuration(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %v", err)
	}

	log.Printf("[fingerprint] file duration: %.0fs (%.1f hours), chunk size: %.0fs",
		duration, duration/3600, cfg.ChunkDurationSec)

	fingerprints := make(map[uint64]models.Couple)

	chunkDur := cfg.ChunkDurationSec
	if chunkDur <= 0 {
		chunkDur = duration
	}

	// small overlap avoids losing peak pairs that straddle chunk boundaries
	overlap := cfg.TargetStart + cfg.TargetT
	step := chunkDur - overlap
	if step <= 0 {
		step = chunkDur
	}

	chunkIdx := 0
	for start := 0.0; start < duration; start += step {
		dur := chunkDur
		if start+dur > duration {
			dur = duration - start
		}
		if dur <= 0 {
			break
		}

		chunkStart := time.Now()
		log.Printf("[chunk %d] extracting %.0fs - %.0fs", chunkIdx, start, start+dur)

		chunkPath, err := wav.ExtractChunkAsWAV(inputPath, start, dur)
		if err != nil {
			return nil, fmt.Errorf("chunk extraction at %.0fs failed: %v", start, err)
		}

		samples, err := wav.Decode(chunkPath)
		os.Remove(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk at %.0fs failed: %v", start, err)
		}

		spectro, err := ComputeSpectrogram(samples, cfg)
		if err != nil {
			return nil, fmt.Errorf("spectrogram at %.0fs failed: %v", start, err)
		}

		peaks := FindPeaks(spectro, cfg)

		// offset peak times so they reflect position in the full file
		for i := range peaks {
			peaks[i].Time += start
		}

		chunkFP := Fingerprint(peaks, songID, cfg)
		utils.ExtendMap(fingerprints, chunkFP)

		log.Printf("[chunk %d] %d peaks, %d fingerprints, took %s",
			chunkIdx, len(peaks), len(chunkFP), time.Since(chunkStart))

		spectro = Spectrogram{}
		runtime.GC()

		chunkIdx++
	}

	log.Printf("[fingerprint] total: %d fingerprints from %d chunks", len(fingerprints), chunkIdx)
	return fingerprints, nil
}

// FingerprintAudio is a convenience wrapper that processes a file with the
// default configuration.
func FingerprintAudio(songFilePath string, songID uint32) (map[uint64]models.Couple, error) {
	return FingerprintAudioChunked(songFilePath, songID, DefaultConfig())
}
