package shazam

import (
	"testing"
)

func gridSpectrogram(rows, cols int, fill func(f, t int) float64) Spectrogram {
	sxx := make([][]float64, rows)
	freqs := make([]float64, rows)
	times := make([]float64, cols)
	for f := 0; f < rows; f++ {
		sxx[f] = make([]float64, cols)
		freqs[f] = float64(f) * 10
		for t := 0; t < cols; t++ {
			sxx[f][t] = fill(f, t)
		}
	}
	for t := 0; t < cols; t++ {
		times[t] = float64(t) * 0.1
	}
	return Spectrogram{Freqs: freqs, Times: times, Sxx: sxx}
}

func TestFindPeaksDetectsSingleSpike(t *testing.T) {
	spec := gridSpectrogram(20, 20, func(f, t int) float64 { return 0 })
	spec.Sxx[10][10] = 100

	cfg := DefaultConfig()
	cfg.PeakBoxSize = 5
	cfg.PointEfficiency = 1.0

	peaks := FindPeaks(spec, cfg)
	found := false
	for _, p := range peaks {
		if p.FreqIdx == 10 && p.TimeIdx == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected spike at (10,10) to be detected, peaks=%v", peaks)
	}
}

func TestFindPeaksDensityCapMonotoneInEfficiency(t *testing.T) {
	spec := gridSpectrogram(60, 60, func(f, t int) float64 { return float64((f*60 + t) % 37) })
	cfg := DefaultConfig()
	cfg.PeakBoxSize = 6

	cfg.PointEfficiency = 0.25
	low := FindPeaks(spec, cfg)

	cfg.PointEfficiency = 0.75
	high := FindPeaks(spec, cfg)

	if len(high) < len(low) {
		t.Errorf("increasing PointEfficiency decreased peak count: %d (low) -> %d (high)", len(low), len(high))
	}
}

func TestFindPeaksDensityCapMonotoneInBoxSize(t *testing.T) {
	spec := gridSpectrogram(60, 60, func(f, t int) float64 { return float64((f*60 + t) % 37) })
	cfg := DefaultConfig()
	cfg.PointEfficiency = 0.5

	cfg.PeakBoxSize = 4
	smallBox := FindPeaks(spec, cfg)

	cfg.PeakBoxSize = 12
	largeBox := FindPeaks(spec, cfg)

	if len(largeBox) > len(smallBox) {
		t.Errorf("increasing PeakBoxSize increased peak count: %d (small) -> %d (large)", len(smallBox), len(largeBox))
	}
}

func TestFindPeaksOrderedByDescendingPower(t *testing.T) {
	spec := gridSpectrogram(40, 40, func(f, t int) float64 { return float64((f+1) * (t + 1) % 53) })
	cfg := DefaultConfig()
	cfg.PeakBoxSize = 4
	cfg.PointEfficiency = 1.0

	peaks := FindPeaks(spec, cfg)
	for i := 1; i < len(peaks); i++ {
		if peaks[i].Power > peaks[i-1].Power {
			t.Fatalf("peaks not descending by power at index %d: %v > %v", i, peaks[i].Power, peaks[i-1].Power)
		}
	}
}

func TestFindPeaksEmptySpectrogram(t *testing.T) {
	if peaks := FindPeaks(Spectrogram{}, DefaultConfig()); peaks != nil {
		t.Errorf("expected nil peaks for empty spectrogram, got %v", peaks)
	}
}
