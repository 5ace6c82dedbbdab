// Package analysis estimates tempo and musical key from mono audio
// samples. Tempo comes from autocorrelation of the amplitude envelope;
// key from average chroma correlated against Krumhansl-Schmuckler
// profiles.
package analysis

import (
	"math"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gopkg.in/music-theory.v0/key"
)

// Result contains audio analysis results
type Result struct {
	BPM           float64 `json:"bpm"`
	BPMConfidence float64 `json:"bpm_confidence"`
	Key           string  `json:"key"`
	KeyConfidence float64 `json:"key_confidence"`
}

// DefaultResult returns fallback values used when analysis fails
func DefaultResult() *Result {
	return &Result{
		BPM:           120,
		BPMConfidence: 0,
		Key:           "",
		KeyConfidence: 0,
	}
}

// Krumhansl-Schmuckler key profiles
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
	pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
)

// Analyze estimates BPM and key in one pass
func Analyze(samples []float64, sampleRate int) *Result {
	if len(samples) == 0 || sampleRate <= 0 {
		return DefaultResult()
	}

	res := DefaultResult()

	if bpm := DetectBPM(samples, sampleRate); bpm > 0 {
		res.BPM = bpm
		res.BPMConfidence = 0.5
	}

	if g := DetectKey(samples, sampleRate); g.Score > 0 {
		res.Key = g.Name
		res.KeyConfidence = g.Score
	}

	return res
}

// DetectBPM estimates tempo between 60 and 200 BPM from the energy
// envelope autocorrelation. Returns 0 when no periodicity is found.
func DetectBPM(samples []float64, sampleRate int) float64 {
	envelope := make([]float64, len(samples))
	for i, s := range samples {
		envelope[i] = math.Abs(s)
	}

	// Downsample the envelope to ~200Hz; beat periods live well below that
	targetRate := 200
	factor := sampleRate / targetRate
	if factor < 1 {
		factor = 1
	}
	envDown := make([]float64, 0, len(envelope)/factor)
	for i := 0; i < len(envelope); i += factor {
		var sum float64
		count := 0
		for j := i; j < i+factor && j < len(envelope); j++ {
			sum += envelope[j]
			count++
		}
		envDown = append(envDown, sum/float64(count))
	}

	newFs := sampleRate / factor
	minBPM, maxBPM := 60.0, 200.0
	minLag := int(float64(newFs) * 60.0 / maxBPM)
	maxLag := int(float64(newFs) * 60.0 / minBPM)
	if maxLag >= len(envDown) || minLag >= maxLag {
		return 0
	}

	autocorr := make([]float64, maxLag-minLag)
	for lag := minLag; lag < maxLag; lag++ {
		var sum float64
		for i := 0; i < len(envDown)-lag; i++ {
			sum += envDown[i] * envDown[i+lag]
		}
		autocorr[lag-minLag] = sum / float64(len(envDown)-lag)
	}

	bestIdx, bestVal := 0, autocorr[0]
	for i, v := range autocorr {
		if v > bestVal {
			bestVal = v
			bestIdx = i
		}
	}
	lag := minLag + bestIdx
	if lag == 0 {
		return 0
	}
	return 60.0 * float64(newFs) / float64(lag)
}

// Guess is one candidate key with its profile correlation score. Key
// carries the parsed music-theory key, Name the display form.
type Guess struct {
	Key   key.Key
	Name  string
	Score float64
}

// DetectKey estimates the musical key from the average chroma vector.
// A zero-score guess means no key could be determined.
func DetectKey(samples []float64, sampleRate int) Guess {
	chroma := computeChroma(samples, sampleRate)

	var guesses []Guess
	for root := 0; root < 12; root++ {
		major := pitchClasses[root] + " major"
		minor := pitchClasses[root] + " minor"
		guesses = append(guesses,
			Guess{Key: key.Of(major), Name: major, Score: correlate(chroma, shiftProfile(majorProfile, root))},
			Guess{Key: key.Of(minor), Name: minor, Score: correlate(chroma, shiftProfile(minorProfile, root))},
		)
	}
	sort.Slice(guesses, func(i, j int) bool { return guesses[i].Score > guesses[j].Score })

	if guesses[0].Score > 0 {
		return guesses[0]
	}
	return Guess{}
}

// computeChroma builds an average 12-bin chroma vector over Hann-windowed
// FFT frames
func computeChroma(samples []float64, sampleRate int) []float64 {
	chromaSum := make([]float64, 12)
	if len(samples) == 0 {
		return chromaSum
	}

	frameSize := 4096
	hopSize := 2048
	if frameSize > len(samples) {
		frameSize = len(samples)
		hopSize = frameSize / 2
		if hopSize < 1 {
			hopSize = 1
		}
	}

	binFreqs := make([]float64, frameSize/2+1)
	for bin := range binFreqs {
		binFreqs[bin] = float64(bin) * float64(sampleRate) / float64(frameSize)
	}

	frames := 0
	for pos := 0; pos+frameSize <= len(samples); pos += hopSize {
		frame := make([]float64, frameSize)
		copy(frame, samples[pos:pos+frameSize])
		window.Apply(frame, window.Hann)

		fftVals := fft.FFTReal(frame)
		for bin, freq := range binFreqs {
			if freq < 65 || freq > 2100 {
				continue
			}
			re := real(fftVals[bin])
			im := imag(fftVals[bin])
			mag := math.Sqrt(re*re + im*im)

			midi := 12*math.Log2(freq/440.0) + 69
			note := int(math.Round(midi)) % 12
			if note < 0 {
				note += 12
			}
			chromaSum[note] += mag
		}
		frames++
	}
	if frames == 0 {
		return chromaSum
	}

	for i := range chromaSum {
		chromaSum[i] /= float64(frames)
	}
	return chromaSum
}

func shiftProfile(profile []float64, shift int) []float64 {
	shifted := make([]float64, 12)
	for i := 0; i < 12; i++ {
		shifted[i] = profile[(i-shift+12)%12]
	}
	return shifted
}

// correlate computes the Pearson correlation between two vectors
func correlate(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
