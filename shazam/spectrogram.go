package shazam

import (
	"fmt"
	"math"
)

// Spectrogram is a dense power spectrogram with its coordinate vectors.
// Sxx is indexed [frequency bin][time frame]; Freqs and Times are strictly
// monotonically increasing.
type Spectrogram struct {
	Freqs []float64
	Times []float64
	Sxx   [][]float64
}

// ComputeSpectrogram computes a Short-Time Fourier power spectrogram over
// samples following the standard periodogram convention: a Hann window,
// 50% overlap, and one-sided power-spectral-density scaling. The window
// length in samples is round(SampleRate * FFTWindowSize); freqs spans
// [0, SampleRate/2] with nperseg/2+1 bins, and times gives the center time
// of each window.
func ComputeSpectrogram(samples []float64, cfg FingerprintConfig) (Spectrogram, error) {
	if len(samples) == 0 {
		return Spectrogram{}, fmt.Errorf("shazam: no samples to analyze")
	}

	nperseg := int(math.Round(float64(cfg.SampleRate) * cfg.FFTWindowSize))
	if nperseg < 2 {
		return Spectrogram{}, fmt.Errorf("shazam: fft window size too small (nperseg=%d)", nperseg)
	}
	if len(samples) < nperseg {
		return Spectrogram{}, fmt.Errorf("shazam: sample buffer (%d) shorter than one analysis window (%d)", len(samples), nperseg)
	}

	noverlap := nperseg / 2
	hop := nperseg - noverlap
	if hop < 1 {
		hop = 1
	}

	window := hannWindow(nperseg)
	var winSumSq float64
	for _, w := range window {
		winSumSq += w * w
	}
	scale := 1.0 / (float64(cfg.SampleRate) * winSumSq)

	numBins := nperseg/2 + 1
	numFrames := (len(samples)-nperseg)/hop + 1

	freqs := make([]float64, numBins)
	for k := 0; k < numBins; k++ {
		freqs[k] = float64(k) * float64(cfg.SampleRate) / float64(nperseg)
	}

	times := make([]float64, 0, numFrames)
	sxx := make([][]float64, numBins)
	for k := range sxx {
		sxx[k] = make([]float64, 0, numFrames)
	}

	nyquistBin := nperseg / 2
	frame := make([]float64, nperseg)

	for start := 0; start+nperseg <= len(samples); start += hop {
		for i := 0; i < nperseg; i++ {
			frame[i] = samples[start+i] * window[i]
		}

		spectrum := FFT(frame)

		for k := 0; k < numBins; k++ {
			power := realSq(spectrum[k]) * scale
			if k != 0 && !(nperseg%2 == 0 && k == nyquistBin) {
				power *= 2
			}
			sxx[k] = append(sxx[k], power)
		}

		centerTime := (float64(start) + float64(nperseg)/2) / float64(cfg.SampleRate)
		times = append(times, centerTime)
	}

	return Spectrogram{Freqs: freqs, Times: times, Sxx: sxx}, nil
}

// FrameStep returns the spectrogram's time-frame step in seconds: the
// spacing between consecutive entries of Times, derived from the
// configured FFTWindowSize (200ms by default) at 50% overlap. The Ranker uses this as its histogram bin width
// so that perfectly time-aligned hash pairs always land in the same bin.
func FrameStep(cfg FingerprintConfig) float64 {
	nperseg := int(math.Round(float64(cfg.SampleRate) * cfg.FFTWindowSize))
	noverlap := nperseg / 2
	hop := nperseg - noverlap
	if hop < 1 {
		hop = 1
	}
	return float64(hop) / float64(cfg.SampleRate)
}

func realSq(c complex128) float64 {
	re, im := real(c), imag(c)
	return re*re + im*im
}

func hannWindow(n int) []float64 {
	win := make([]float64, n)
	for i := 0; i < n; i++ {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return win
}
