package audio

import (
	"fmt"
	"os"
	"path/filepath"

	gaudio "github.com/go-audio/audio"
	gwav "github.com/go-audio/wav"
)

// WriteWAV writes mono float64 samples to a 16-bit PCM WAV file
func WriteWAV(path string, samples []float64, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := gwav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(clamp(s) * 32767.0)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

// WriteWAVStereo writes interleaved stereo float32 samples to a 16-bit PCM WAV file
func WriteWAVStereo(path string, interleaved []float32, sampleRate int) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := gwav.NewEncoder(f, sampleRate, 16, 2, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(interleaved)),
	}
	for i, s := range interleaved {
		buf.Data[i] = int(clamp(float64(s)) * 32767.0)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

func clamp(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
