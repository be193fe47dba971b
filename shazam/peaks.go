package shazam

import (
	"sort"
)

// Peak is a point in the spectrogram's physical coordinates, produced by
// FindPeaks. Freq/Time are in Hz/seconds; FreqIdx/TimeIdx are the indices
// into the Spectrogram's Sxx/Freqs/Times that the peak was taken from.
type Peak struct {
	Freq    float64
	Time    float64
	Power   float64
	FreqIdx int
	TimeIdx int
}

// FindPeaks locates local maxima in spec.Sxx using a square neighborhood of
// side cfg.PeakBoxSize and boundary mode "constant zero" (positions outside
// the array are treated as power 0 when computing the local maximum). A
// point is a candidate peak iff its power equals the local maximum over its
// neighborhood; candidates are ranked by descending power with a stable
// row-major tie-break, then capped at
// floor((rows*cols/PeakBoxSize^2)*PointEfficiency) entries to hold roughly
// constant density regardless of file length.
func FindPeaks(spec Spectrogram, cfg FingerprintConfig) []Peak {
	rows := len(spec.Sxx)
	if rows == 0 {
		return nil
	}
	cols := len(spec.Sxx[0])
	if cols == 0 {
		return nil
	}

	localMax := boxMaxFilter(spec.Sxx, cfg.PeakBoxSize)

	type candidate struct {
		f, t  int
		power float64
	}

	candidates := make([]candidate, 0, rows)
	for f := 0; f < rows; f++ {
		for t := 0; t < cols; t++ {
			if spec.Sxx[f][t] == localMax[f][t] {
				candidates = append(candidates, candidate{f, t, spec.Sxx[f][t]})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].power > candidates[j].power
	})

	boxArea := cfg.PeakBoxSize * cfg.PeakBoxSize
	if boxArea < 1 {
		boxArea = 1
	}
	target := int((float64(rows*cols) / float64(boxArea)) * cfg.PointEfficiency)
	if target < 0 {
		target = 0
	}
	if target < len(candidates) {
		candidates = candidates[:target]
	}

	peaks := make([]Peak, len(candidates))
	for i, c := range candidates {
		peaks[i] = Peak{
			Freq:    spec.Freqs[c.f],
			Time:    spec.Times[c.t],
			Power:   c.power,
			FreqIdx: c.f,
			TimeIdx: c.t,
		}
	}

	return peaks
}

// boxMaxFilter computes, for every cell, the maximum value over a
// boxSize x boxSize neighborhood centered on it, padding out-of-bounds
// positions with 0 (constant-zero boundary mode). The box filter is
// separable, so it is applied as one 1D sliding-window max pass over rows
// followed by one over columns.
func boxMaxFilter(sxx [][]float64, boxSize int) [][]float64 {
	rows := len(sxx)
	cols := len(sxx[0])

	colMax := make([][]float64, rows)
	for f := 0; f < rows; f++ {
		colMax[f] = slidingWindowMax(sxx[f], boxSize)
	}

	result := make([][]float64, rows)
	for f := 0; f < rows; f++ {
		result[f] = make([]float64, cols)
	}

	column := make([]float64, rows)
	for t := 0; t < cols; t++ {
		for f := 0; f < rows; f++ {
			column[f] = colMax[f][t]
		}
		filtered := slidingWindowMax(column, boxSize)
		for f := 0; f < rows; f++ {
			result[f][t] = filtered[f]
		}
	}

	return result
}

// slidingWindowMax returns, for each index i, the max of values in the
// window [i-half1, i+half2] with out-of-range positions treated as 0, using
// a monotonic-deque sliding maximum so the whole pass is O(n) regardless of
// window size.
func slidingWindowMax(values []float64, boxSize int) []float64 {
	n := len(values)
	half1 := boxSize / 2
	half2 := boxSize - half1 - 1

	padded := make([]float64, n+half1+half2)
	for i := range padded {
		srcIdx := i - half1
		if srcIdx >= 0 && srcIdx < n {
			padded[i] = values[srcIdx]
		}
	}

	windowSize := half1 + half2 + 1
	out := make([]float64, n)
	deque := make([]int, 0, windowSize)

	for i := 0; i < len(padded); i++ {
		for len(deque) > 0 && padded[deque[len(deque)-1]] <= padded[i] {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)

		if deque[0] <= i-windowSize {
			deque = deque[1:]
		}

		outIdx := i - (windowSize - 1)
		if outIdx >= 0 && outIdx < n {
			out[outIdx] = padded[deque[0]]
		}
	}

	return out
}
