// Package midi exports note events as Standard MIDI Files
package midi

import (
	"fmt"
	"math"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/k-shaswat/Symphonia/internal/notes"
)

const ticksPerQuarter = 480

// WriteFile writes the events to a single-track SMF. The tempo meta
// event carries the detected BPM so DAWs place the notes on a sensible
// grid.
func WriteFile(path string, events []notes.Event, bpm float64) error {
	if bpm <= 0 {
		bpm = 120
	}

	sorted := make([]notes.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("Symphonia transcription"))
	tr.Add(0, smf.MetaTempo(bpm))
	tr.Add(0, gomidi.ProgramChange(0, 0))

	tick := func(sec float64) uint32 {
		return uint32(math.Round(sec * bpm / 60 * ticksPerQuarter))
	}

	var last uint32
	for _, e := range sorted {
		if e.MIDI < 0 || e.MIDI > 127 {
			continue
		}
		on, off := tick(e.Start), tick(e.End())
		if off <= on {
			continue
		}
		vel := uint8(e.Velocity)
		if vel == 0 {
			vel = notes.DefaultVelocity
		}
		tr.Add(on-last, gomidi.NoteOn(0, uint8(e.MIDI), vel))
		tr.Add(off-on, gomidi.NoteOff(0, uint8(e.MIDI)))
		last = off
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("write midi file: %w", err)
	}
	return nil
}
