package notes

import (
	"math"

	"github.com/k-shaswat/Symphonia/internal/pitch"
)

// DefaultMinFrames is the minimum run length for a note to be kept.
// Shorter blips are treated as pitch-tracking noise.
const DefaultMinFrames = 5

// DefaultVelocity is used when a frame carries no energy information
const DefaultVelocity = 50

// Event is a single quantized note with absolute timing
type Event struct {
	Name     string  `json:"name" yaml:"name"`
	MIDI     int     `json:"midi" yaml:"midi"`
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
	Velocity int     `json:"velocity" yaml:"velocity"`
}

// End returns the event end time in seconds
func (e Event) End() float64 {
	return e.Start + e.Duration
}

// Segmenter turns a pitch contour into note events
type Segmenter struct {
	MinFrames int
}

// NewSegmenter creates a segmenter with the given sustain threshold;
// values below 1 fall back to DefaultMinFrames.
func NewSegmenter(minFrames int) *Segmenter {
	if minFrames < 1 {
		minFrames = DefaultMinFrames
	}
	return &Segmenter{MinFrames: minFrames}
}

// Segment quantizes each frame to a note name, drops runs sustained for
// fewer than MinFrames, and collapses the surviving runs into events.
// Unvoiced stretches become gaps between events, never events themselves.
func (s *Segmenter) Segment(frames []pitch.Frame) []Event {
	if len(frames) == 0 {
		return nil
	}

	names := make([]string, len(frames))
	for i, f := range frames {
		if n, ok := Name(f.Frequency); ok {
			names[i] = n
		}
	}

	names = dropShortRuns(names, s.MinFrames)

	var events []Event
	i := 0
	for i < len(names) {
		if names[i] == "" {
			i++
			continue
		}

		start := i
		for i < len(names) && names[i] == names[start] {
			i++
		}
		end := i - 1

		duration := frames[end].Time - frames[start].Time
		if duration <= 0 {
			continue
		}

		midi, err := Parse(names[start])
		if err != nil {
			continue
		}

		events = append(events, Event{
			Name:     names[start],
			MIDI:     midi,
			Start:    frames[start].Time,
			Duration: duration,
			Velocity: velocityFor(frames[start : end+1]),
		})
	}

	return events
}

// dropShortRuns blanks out runs of identical names shorter than minFrames
func dropShortRuns(names []string, minFrames int) []string {
	out := make([]string, len(names))
	i := 0
	for i < len(names) {
		start := i
		for i < len(names) && names[i] == names[start] {
			i++
		}
		count := i - start
		if count >= minFrames {
			for j := start; j < i; j++ {
				out[j] = names[start]
			}
		}
	}
	return out
}

// velocityFor maps the mean frame energy onto a MIDI velocity using a
// square-root loudness curve, clamped to a musically useful range.
func velocityFor(run []pitch.Frame) int {
	var sum float64
	for _, f := range run {
		sum += f.RMS
	}
	mean := sum / float64(len(run))
	if mean <= 0 {
		return DefaultVelocity
	}

	v := int(math.Round(math.Sqrt(mean) * 127))
	if v < 30 {
		v = 30
	}
	if v > 112 {
		v = 112
	}
	return v
}
