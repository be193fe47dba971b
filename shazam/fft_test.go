package shazam

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestFFTBasicSignal(t *testing.T) {
	sampleRate := 1000.0
	frequency := 10.0
	numSamples := 64

	signal := make([]float64, numSamples)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * frequency * float64(i) / sampleRate)
	}

	result := FFT(signal)
	if len(result) != numSamples {
		t.Fatalf("expected output length %d, got %d", numSamples, len(result))
	}

	expectedBin := int(frequency * float64(numSamples) / sampleRate)
	peakBin := 0
	maxMag := 0.0
	for i := 0; i < numSamples/2; i++ {
		mag := cmplx.Abs(result[i])
		if mag > maxMag {
			maxMag = mag
			peakBin = i
		}
	}

	if math.Abs(float64(peakBin-expectedBin)) > 2 {
		t.Errorf("expected peak near bin %d, got bin %d", expectedBin, peakBin)
	}
}

func TestFFTDCSignal(t *testing.T) {
	signal := make([]float64, 8)
	for i := range signal {
		signal[i] = 5.0
	}

	result := FFT(signal)

	dcValue := cmplx.Abs(result[0])
	expectedDC := 5.0 * float64(len(signal))
	if math.Abs(dcValue-expectedDC) > 0.01 {
		t.Errorf("expected DC component %.2f, got %.2f", expectedDC, dcValue)
	}

	for i := 1; i < len(result); i++ {
		if mag := cmplx.Abs(result[i]); mag > 0.01 {
			t.Errorf("expected near-zero magnitude at bin %d, got %.4f", i, mag)
		}
	}
}

func TestFFTNonPowerOfTwoLength(t *testing.T) {
	// exercises the Bluestein path: 37 is not a power of two
	signal := make([]float64, 37)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 5 * float64(i) / 37)
	}

	result := FFT(signal)
	if len(result) != len(signal) {
		t.Fatalf("expected output length %d, got %d", len(signal), len(result))
	}

	// Bluestein result should agree with a direct DFT within tolerance.
	want := directDFT(signal)
	for k := range want {
		if cmplx.Abs(result[k]-want[k]) > 1e-6 {
			t.Errorf("bin %d: got %v, want %v", k, result[k], want[k])
		}
	}
}

func TestFFTConjugateSymmetry(t *testing.T) {
	signal := []float64{1, 2, 3, 4, 4, 3, 2, 1}
	result := FFT(signal)

	n := len(result)
	for k := 1; k < n/2; k++ {
		expected := cmplx.Conj(result[n-k])
		if cmplx.Abs(result[k]-expected) > 1e-9 {
			t.Errorf("conjugate symmetry violated at bin %d", k)
		}
	}
}

func directDFT(x []float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			angle := -2 * math.Pi * float64(k) * float64(j) / float64(n)
			sum += complex(x[j], 0) * complex(math.Cos(angle), math.Sin(angle))
		}
		out[k] = sum
	}
	return out
}
