package wav

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const canonicalSampleRate = 44100

// ErrNoAudioStream is returned when the input file contains no decodable
// audio stream at all. It is fatal: the caller should not retry.
var ErrNoAudioStream = errors.New("wav: no audio stream found")

// ErrEmptyAudio is returned when decoding produced zero samples.
var ErrEmptyAudio = errors.New("wav: zero decoded samples")

// Decode opens path, selects its audio stream, and decodes it to mono PCM
// at 44100 Hz, returned as float64 samples in the signed-16-bit range.
// Decoding is best-effort concatenation: a recoverable mid-stream codec
// error truncates the sample stream at the last good frame rather than
// failing the whole decode; only the absence of any audio stream
// (ErrNoAudioStream) or a fully empty result (ErrEmptyAudio) are fatal.
func Decode(path string) ([]float64, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var samples []float64
	var sampleRate int
	var err error

	switch ext {
	case ".wav":
		samples, sampleRate, err = decodeWAV(path)
	case ".mp3":
		samples, sampleRate, err = decodeMP3(path)
	default:
		samples, sampleRate, err = decodeViaFFmpeg(path)
	}

	if err != nil {
		return nil, err
	}

	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	if sampleRate != canonicalSampleRate {
		samples = resampleLinear(samples, sampleRate, canonicalSampleRate)
	}

	return samples, nil
}

func decodeWAV(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNoAudioStream, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, ErrNoAudioStream
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		// a recoverable mid-stream error still leaves a partially filled
		// buffer; FullPCMBuffer returns what it managed to decode.
		log.Printf("[wav] decode truncated for %s: %v", path, err)
		if buf == nil {
			return nil, 0, ErrEmptyAudio
		}
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, ErrNoAudioStream
	}

	samples := intBufferToMono(buf)
	return samples, buf.Format.SampleRate, nil
}

func decodeMP3(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNoAudioStream, err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNoAudioStream, err)
	}

	sampleRate := decoder.SampleRate()

	buf := make([]byte, 8192)
	var stereo []int16

	for {
		n, err := decoder.Read(buf)
		if n > 0 {
			for i := 0; i+1 < n; i += 2 {
				sample := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
				stereo = append(stereo, sample)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			// recoverable mid-stream decode error: stop, keep what we have
			log.Printf("[mp3] decode truncated for %s: %v", path, err)
			break
		}
	}

	if len(stereo) == 0 {
		return nil, sampleRate, nil
	}

	samples := make([]float64, len(stereo)/2)
	for i := range samples {
		left := int32(stereo[2*i])
		right := int32(stereo[2*i+1])
		samples[i] = float64((left + right) / 2)
	}

	return samples, sampleRate, nil
}

// decodeViaFFmpeg handles every container the native decoders above don't
// (AAC, FLAC, TS/ADTS, ...): shell out to ffmpeg to produce a 16-bit mono
// WAV at the canonical rate, then decode that with the native path.
func decodeViaFFmpeg(path string) ([]float64, int, error) {
	wavPath, err := ConvertToWAV(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNoAudioStream, err)
	}
	defer os.Remove(wavPath)

	return decodeWAV(wavPath)
}

// intBufferToMono averages interleaved channels down to one, leaving
// single-channel buffers untouched. Input already integral (as go-audio
// always decodes PCM to) passes through unscaled.
func intBufferToMono(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels <= 1 {
		samples := make([]float64, len(buf.Data))
		for i, v := range buf.Data {
			samples[i] = float64(v)
		}
		return samples
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = float64(sum) / float64(channels)
	}
	return samples
}

// resampleLinear maps samples from one sample rate to another by linear
// interpolation. It is not a brick-wall anti-aliasing resampler, but it
// keeps the canonical-rate invariant without pulling in a DSP dependency
// for what is, for fingerprinting purposes, a minor-rate correction (most
// inputs already arrive at 44100 Hz via the ffmpeg/codec decode path).
func resampleLinear(samples []float64, fromRate, toRate int) []float64 {
	if fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	if fromRate == toRate {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen < 1 {
		outLen = 1
	}

	out := make([]float64, outLen)
	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}
