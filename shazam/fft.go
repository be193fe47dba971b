package shazam

import "math"

// FFT computes the discrete Fourier transform of a real-valued input,
// returning one complex coefficient per input sample. Internally it uses
// the recursive Cooley-Tukey divide-and-conquer algorithm when the input
// length is a power of two, and Bluestein's chirp z-transform otherwise
// (including the default 8820-sample spectrogram frame), which reduces an
// arbitrary-length DFT to a power-of-two convolution so the same recursive
// core stays O(n log n) regardless of window size.
func FFT(input []float64) []complex128 {
	complexArray := make([]complex128, len(input))
	for k, v := range input {
		complexArray[k] = complex(v, 0)
	}

	if isPowerOfTwo(len(complexArray)) {
		return recursiveFFT(complexArray)
	}
	return bluesteinFFT(complexArray)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func recursiveFFT(input []complex128) []complex128 {
	n := len(input)
	if n <= 1 {
		return input
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = input[2*i]
		odd[i] = input[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	result := make([]complex128, n)

	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		t := complex(math.Cos(angle), math.Sin(angle)) * odd[k]
		result[k] = even[k] + t
		result[k+n/2] = even[k] - t
	}

	return result
}

// bluesteinFFT evaluates the DFT of an arbitrary-length sequence by
// rewriting each coefficient as a chirp-modulated convolution, then running
// that convolution through the power-of-two recursiveFFT via zero-padding.
func bluesteinFFT(input []complex128) []complex128 {
	n := len(input)

	chirp := make([]complex128, n)
	for k := 0; k < n; k++ {
		// exponent uses k^2 mod 2n to keep the angle numerically small
		angle := math.Pi * float64((k*k)%(2*n)) / float64(n)
		chirp[k] = complex(math.Cos(angle), -math.Sin(angle))
	}

	m := 1
	for m < 2*n-1 {
		m *= 2
	}

	a := make([]complex128, m)
	for k := 0; k < n; k++ {
		a[k] = input[k] * chirp[k]
	}

	b := make([]complex128, m)
	b[0] = cmplxConj(chirp[0])
	for k := 1; k < n; k++ {
		b[k] = cmplxConj(chirp[k])
		b[m-k] = cmplxConj(chirp[k])
	}

	conv := circularConvolve(a, b, m)

	result := make([]complex128, n)
	for k := 0; k < n; k++ {
		result[k] = conv[k] * chirp[k]
	}
	return result
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func circularConvolve(a, b []complex128, n int) []complex128 {
	fa := recursiveFFT(a)
	fb := recursiveFFT(b)

	prod := make([]complex128, n)
	for i := range prod {
		prod[i] = fa[i] * fb[i]
	}

	inv := inverseFFT(prod)
	return inv
}

func inverseFFT(input []complex128) []complex128 {
	n := len(input)
	conjugated := make([]complex128, n)
	for i, v := range input {
		conjugated[i] = cmplxConj(v)
	}

	transformed := recursiveFFT(conjugated)

	result := make([]complex128, n)
	for i, v := range transformed {
		result[i] = cmplxConj(v) / complex(float64(n), 0)
	}
	return result
}
