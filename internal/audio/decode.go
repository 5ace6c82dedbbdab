package audio

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	apperrors "github.com/k-shaswat/Symphonia/internal/errors"
)

// Clip holds decoded audio as mono samples normalized to [-1, 1]
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length in seconds
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Decode reads an audio file and returns its samples downmixed to mono.
// The format must already have been established by ValidateInput.
func Decode(path string, format Format) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	var (
		stream beep.StreamSeekCloser
		bf     beep.Format
	)
	switch format {
	case FormatWAV:
		stream, bf, err = wav.Decode(f)
	case FormatMP3:
		stream, bf, err = mp3.Decode(f)
	case FormatFLAC:
		stream, bf, err = flac.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer stream.Close()

	clip := &Clip{SampleRate: int(bf.SampleRate)}
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			// Downmix stereo to mono
			clip.Samples = append(clip.Samples, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	if len(clip.Samples) == 0 {
		return nil, fmt.Errorf("%w: no audio data", apperrors.ErrCorruptedFile)
	}

	return clip, nil
}

// Resample converts the clip to a new sample rate using linear interpolation
func (c *Clip) Resample(toRate int) *Clip {
	if toRate == c.SampleRate || toRate <= 0 {
		return c
	}

	ratio := float64(c.SampleRate) / float64(toRate)
	newLength := int(float64(len(c.Samples)) / ratio)
	resampled := make([]float64, newLength)

	for i := 0; i < newLength; i++ {
		pos := float64(i) * ratio
		index := int(pos)
		frac := pos - float64(index)

		switch {
		case index+1 < len(c.Samples):
			resampled[i] = c.Samples[index]*(1-frac) + c.Samples[index+1]*frac
		case index < len(c.Samples):
			resampled[i] = c.Samples[index]
		default:
			resampled[i] = c.Samples[len(c.Samples)-1]
		}
	}

	return &Clip{Samples: resampled, SampleRate: toRate}
}

// Normalize scales samples so the peak sits at [-1, 1]
func (c *Clip) Normalize() {
	maxVal := 0.0
	for _, s := range c.Samples {
		if v := abs(s); v > maxVal {
			maxVal = v
		}
	}
	if maxVal > 1.0 {
		for i := range c.Samples {
			c.Samples[i] /= maxVal
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
