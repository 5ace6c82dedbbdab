// Package record captures audio from the default input device
package record

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const (
	// SampleRate for microphone captures
	SampleRate = 44100
	channels   = 1
	bufferSize = 4096
)

// Recorder wraps a portaudio input stream
type Recorder struct {
	stream *portaudio.Stream
	buffer []float32
}

// NewRecorder initializes portaudio and opens the default input stream
func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	r := &Recorder{buffer: make([]float32, bufferSize)}

	stream, err := portaudio.OpenDefaultStream(
		channels,
		0, // output channels
		float64(SampleRate),
		bufferSize,
		r.buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	r.stream = stream
	return r, nil
}

// Close releases the stream and portaudio
func (r *Recorder) Close() error {
	var err error
	if r.stream != nil {
		err = r.stream.Close()
	}
	portaudio.Terminate()
	return err
}

// Record captures duration seconds of mono audio, normalized to [-1, 1].
// Cancelling ctx stops the capture early and returns what was collected.
func (r *Recorder) Record(ctx context.Context, duration float64) ([]float64, error) {
	if err := r.stream.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	defer r.stream.Stop()

	totalSamples := int(SampleRate * duration)
	samples := make([]float64, 0, totalSamples)

	for len(samples) < totalSamples {
		select {
		case <-ctx.Done():
			return samples, nil
		default:
		}

		if err := r.stream.Read(); err != nil {
			return nil, fmt.Errorf("read capture buffer: %w", err)
		}

		toAdd := len(r.buffer)
		if remaining := totalSamples - len(samples); toAdd > remaining {
			toAdd = remaining
		}
		for i := 0; i < toAdd; i++ {
			samples = append(samples, float64(r.buffer[i]))
		}
	}

	normalize(samples)
	return samples, nil
}

// normalize scales samples in place so the peak fits [-1, 1]
func normalize(samples []float64) {
	maxVal := 0.0
	for _, s := range samples {
		v := s
		if v < 0 {
			v = -v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal > 1.0 {
		for i := range samples {
			samples[i] /= maxVal
		}
	}
}
