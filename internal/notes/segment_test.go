package notes

import (
	"testing"

	"github.com/k-shaswat/Symphonia/internal/pitch"
)

const frameSpacing = 512.0 / 22050.0

// contour builds a pitch contour from per-frame MIDI numbers; 0 means
// unvoiced.
func contour(midis ...int) []pitch.Frame {
	frames := make([]pitch.Frame, len(midis))
	for i, m := range midis {
		frames[i].Time = float64(i) * frameSpacing
		if m > 0 {
			frames[i].Frequency = Frequency(m)
			frames[i].RMS = 0.1
		}
	}
	return frames
}

func TestSegment(t *testing.T) {
	s := NewSegmenter(5)

	t.Run("SingleSustainedNote", func(t *testing.T) {
		events := s.Segment(contour(69, 69, 69, 69, 69, 69, 69, 69))
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		e := events[0]
		if e.Name != "A4" || e.MIDI != 69 {
			t.Errorf("got %s (midi %d), want A4 (69)", e.Name, e.MIDI)
		}
		if e.Start != 0 {
			t.Errorf("start = %f, want 0", e.Start)
		}
		want := 7 * frameSpacing
		if diff := e.Duration - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("duration = %f, want %f", e.Duration, want)
		}
	})

	t.Run("ShortRunsDropped", func(t *testing.T) {
		// 5x A4, 2x C5 blip, 5x A4: the blip disappears and the two
		// A4 runs remain separate events
		events := s.Segment(contour(69, 69, 69, 69, 69, 72, 72, 69, 69, 69, 69, 69))
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		for _, e := range events {
			if e.Name != "A4" {
				t.Errorf("unexpected note %s", e.Name)
			}
		}
	})

	t.Run("RestsBecomeGaps", func(t *testing.T) {
		events := s.Segment(contour(69, 69, 69, 69, 69, 0, 0, 0, 0, 0, 72, 72, 72, 72, 72))
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if events[1].Start <= events[0].End() {
			t.Errorf("second event should start after the first ends: %f <= %f",
				events[1].Start, events[0].End())
		}
	})

	t.Run("TimeOrderedNonOverlapping", func(t *testing.T) {
		events := s.Segment(contour(60, 60, 60, 60, 60, 62, 62, 62, 62, 62, 64, 64, 64, 64, 64))
		if len(events) != 3 {
			t.Fatalf("got %d events, want 3", len(events))
		}
		for i := 1; i < len(events); i++ {
			if events[i].Start < events[i-1].End() {
				t.Errorf("events overlap at %d", i)
			}
		}
		for _, e := range events {
			if e.Duration <= 0 {
				t.Errorf("event %s has non-positive duration", e.Name)
			}
		}
	})

	t.Run("AllUnvoiced", func(t *testing.T) {
		if events := s.Segment(contour(0, 0, 0, 0, 0, 0)); len(events) != 0 {
			t.Errorf("got %d events, want 0", len(events))
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if events := s.Segment(nil); events != nil {
			t.Errorf("got %v, want nil", events)
		}
	})
}

func TestSegmenterDefaults(t *testing.T) {
	if s := NewSegmenter(0); s.MinFrames != DefaultMinFrames {
		t.Errorf("MinFrames = %d, want %d", s.MinFrames, DefaultMinFrames)
	}
	if s := NewSegmenter(-3); s.MinFrames != DefaultMinFrames {
		t.Errorf("MinFrames = %d, want %d", s.MinFrames, DefaultMinFrames)
	}
}

func TestVelocity(t *testing.T) {
	t.Run("NoEnergyUsesDefault", func(t *testing.T) {
		frames := contour(69, 69, 69, 69, 69)
		for i := range frames {
			frames[i].RMS = 0
		}
		events := NewSegmenter(5).Segment(frames)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if events[0].Velocity != DefaultVelocity {
			t.Errorf("velocity = %d, want %d", events[0].Velocity, DefaultVelocity)
		}
	})

	t.Run("ClampedRange", func(t *testing.T) {
		frames := contour(69, 69, 69, 69, 69)
		for i := range frames {
			frames[i].RMS = 1.0 // full-scale
		}
		events := NewSegmenter(5).Segment(frames)
		if v := events[0].Velocity; v < 30 || v > 112 {
			t.Errorf("velocity %d outside clamp range", v)
		}
	})
}
