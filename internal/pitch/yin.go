// Package pitch implements a YIN fundamental-frequency tracker
// (de Cheveigné & Kawahara, 2002). The difference function is computed
// via FFT cross-correlation, then cumulative-mean normalized; the first
// dip under the threshold gives the period estimate, refined by
// parabolic interpolation.
package pitch

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// Note C1, the lowest pitch the original contour search covered
	FreqC1 = 32.70319566257483
	// Note C8, the highest
	FreqC8 = 4186.009044809578
)

// Config holds tracker parameters
type Config struct {
	SampleRate int     // analysis rate, audio is resampled to this
	FrameSize  int     // samples per analysis frame
	HopSize    int     // samples between frame starts
	FMin       float64 // lowest detectable frequency
	FMax       float64 // highest detectable frequency
	Threshold  float64 // YIN aperiodicity threshold
}

// DefaultConfig returns the parameters used by the transcription pipeline
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		FrameSize:  2048,
		HopSize:    512,
		FMin:       FreqC1,
		FMax:       FreqC8,
		Threshold:  0.15,
	}
}

// Frame is one pitch estimate along the contour. Unvoiced frames carry
// Frequency 0.
type Frame struct {
	Time        float64 // seconds, frame center
	Frequency   float64 // Hz, 0 when unvoiced
	Harmonicity float64 // 1 - normalized difference at the chosen lag
	RMS         float64 // frame energy, used for velocity mapping
}

// Voiced reports whether the frame carries a pitch estimate
func (f Frame) Voiced() bool {
	return f.Frequency > 0
}

// Tracker extracts a pitch contour from mono samples
type Tracker struct {
	cfg     Config
	winSize int // integration window, FrameSize/2
	fftSize int
}

// NewTracker creates a tracker with the given configuration
func NewTracker(cfg Config) *Tracker {
	if cfg.FrameSize == 0 {
		cfg = DefaultConfig()
	}
	fftSize := 1
	for fftSize < 2*cfg.FrameSize {
		fftSize <<= 1
	}
	return &Tracker{
		cfg:     cfg,
		winSize: cfg.FrameSize / 2,
		fftSize: fftSize,
	}
}

// Track computes the pitch contour. Input shorter than one frame yields
// an empty contour.
func (t *Tracker) Track(samples []float64) []Frame {
	var frames []Frame
	for pos := 0; pos+t.cfg.FrameSize <= len(samples); pos += t.cfg.HopSize {
		frame := samples[pos : pos+t.cfg.FrameSize]
		f := t.analyzeFrame(frame)
		f.Time = float64(pos+t.winSize) / float64(t.cfg.SampleRate)
		frames = append(frames, f)
	}
	return frames
}

func (t *Tracker) analyzeFrame(x []float64) Frame {
	n := t.winSize
	rms := rms(x[:n])

	d := t.difference(x)
	dn := cumulativeMeanNormalize(d)

	lagMin := int(float64(t.cfg.SampleRate) / t.cfg.FMax)
	if lagMin < 2 {
		lagMin = 2
	}
	lagMax := int(float64(t.cfg.SampleRate) / t.cfg.FMin)
	if lagMax >= len(dn) {
		lagMax = len(dn) - 1
	}
	if lagMin >= lagMax {
		return Frame{RMS: rms}
	}

	lag := -1
	for tau := lagMin; tau <= lagMax; tau++ {
		if dn[tau] < t.cfg.Threshold {
			// descend to the bottom of this dip
			for tau+1 <= lagMax && dn[tau+1] < dn[tau] {
				tau++
			}
			lag = tau
			break
		}
	}
	if lag < 0 {
		// no dip under the threshold: unvoiced
		return Frame{RMS: rms}
	}

	refined := parabolicInterp(dn, lag)
	freq := float64(t.cfg.SampleRate) / refined
	if freq < t.cfg.FMin || freq > t.cfg.FMax {
		return Frame{RMS: rms}
	}

	harm := 1 - dn[lag]
	if harm < 0 {
		harm = 0
	}
	return Frame{Frequency: freq, Harmonicity: harm, RMS: rms}
}

// difference computes the YIN difference function
// d(tau) = sum_{j<W} (x_j - x_{j+tau})^2 for tau in [0, W)
// using FFT cross-correlation for the cross term.
func (t *Tracker) difference(x []float64) []float64 {
	n := t.winSize

	// cumulative energy: cum[i] = sum of x[j]^2 for j < i
	cum := make([]float64, len(x)+1)
	for i, v := range x {
		cum[i+1] = cum[i] + v*v
	}

	// cross-correlation of the integration window against the full frame
	a := make([]float64, t.fftSize)
	b := make([]float64, t.fftSize)
	copy(a, x[:n])
	copy(b, x)

	fa := fft.FFTReal(a)
	fb := fft.FFTReal(b)
	prod := make([]complex128, t.fftSize)
	for i := range prod {
		prod[i] = fb[i] * cmplx.Conj(fa[i])
	}
	corr := fft.IFFT(prod)

	d := make([]float64, n)
	e0 := cum[n]
	for tau := 0; tau < n; tau++ {
		d[tau] = e0 + (cum[tau+n] - cum[tau]) - 2*real(corr[tau])
		if d[tau] < 0 {
			d[tau] = 0
		}
	}
	return d
}

// cumulativeMeanNormalize converts d into d', with d'(0) = 1
func cumulativeMeanNormalize(d []float64) []float64 {
	dn := make([]float64, len(d))
	dn[0] = 1
	sum := 0.0
	for tau := 1; tau < len(d); tau++ {
		sum += d[tau]
		if sum == 0 {
			dn[tau] = 1
			continue
		}
		dn[tau] = d[tau] * float64(tau) / sum
	}
	return dn
}

// parabolicInterp refines the lag estimate by fitting a parabola through
// the dip and its neighbors
func parabolicInterp(dn []float64, lag int) float64 {
	if lag <= 0 || lag >= len(dn)-1 {
		return float64(lag)
	}
	s0, s1, s2 := dn[lag-1], dn[lag], dn[lag+1]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float64(lag)
	}
	return float64(lag) + (s2-s0)/denom
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
