package shazam

// FingerprintConfig controls every tunable parameter in the spectrogram,
// peak extraction, and fingerprint generation pipeline. The defaults are
// part of the index contract: changing them invalidates persisted hashes.
type FingerprintConfig struct {
	SampleRate      int     // analysis rate in Hz; affects max representable frequency
	FFTWindowSize   float64 // spectrogram window length in seconds
	PeakBoxSize     int     // peak locality radius in bins, must be >= 3
	PointEfficiency float64 // fraction of theoretical peak capacity kept, in (0, 1]
	TargetStart     float64 // target-zone time offset from anchor, seconds
	TargetT         float64 // target-zone width, seconds
	TargetF         float64 // target-zone height, Hz

	// ChunkDurationSec bounds memory use on long recordings: the file is
	// fingerprinted in overlapping windows of this length rather than all
	// at once. Zero means "whole file". Not part of the hash contract,
	// purely a processing-time knob.
	ChunkDurationSec float64
}

// DefaultConfig returns the standard parameter set: 44.1kHz sample rate,
// 200ms analysis windows, a 30-bin peak box at 0.5 point efficiency, and a
// forward target zone spanning +50ms to +1.85s, +/-2kHz.
func DefaultConfig() FingerprintConfig {
	return FingerprintConfig{
		SampleRate:       44100,
		FFTWindowSize:    0.2,
		PeakBoxSize:      30,
		PointEfficiency:  0.5,
		TargetStart:      0.05,
		TargetT:          1.8,
		TargetF:          4000,
		ChunkDurationSec: 300,
	}
}
