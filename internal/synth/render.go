// Package synth renders note events through a SoundFont and plays the
// result on the default audio device.
package synth

import (
	"fmt"
	"sort"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/k-shaswat/Symphonia/internal/notes"
)

// SampleRate is the output rate for rendering and playback
const SampleRate = 44100

// releaseTail gives note releases and reverb time to decay
const releaseTail = 1.0 // seconds

// Renderer produces PCM audio from note events using a parsed soundfont
type Renderer struct {
	sf *meltysynth.SoundFont
}

// NewRenderer creates a renderer for the given soundfont
func NewRenderer(sf *meltysynth.SoundFont) *Renderer {
	return &Renderer{sf: sf}
}

// Render synthesizes the events into interleaved stereo float32 PCM at
// SampleRate, honoring each event's absolute start time so rests survive.
func (r *Renderer) Render(events []notes.Event) ([]float32, error) {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	s, err := meltysynth.NewSynthesizer(r.sf, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	// Flatten events into a time-ordered action list
	type action struct {
		time float64
		on   bool
		key  int32
		vel  int32
	}
	var actions []action
	end := 0.0
	for _, e := range events {
		if e.MIDI < 0 || e.MIDI > 127 || e.Duration <= 0 {
			continue
		}
		actions = append(actions,
			action{e.Start, true, int32(e.MIDI), int32(e.Velocity)},
			action{e.End(), false, int32(e.MIDI), 0},
		)
		if e.End() > end {
			end = e.End()
		}
	}
	if len(actions) == 0 {
		return nil, nil
	}
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].time < actions[j].time })

	total := int((end + releaseTail) * SampleRate)
	left := make([]float32, total)
	right := make([]float32, total)

	cursor := 0
	for _, a := range actions {
		until := int(a.time * SampleRate)
		if until > total {
			until = total
		}
		if until > cursor {
			s.Render(left[cursor:until], right[cursor:until])
			cursor = until
		}
		if a.on {
			s.NoteOn(0, a.key, a.vel)
		} else {
			s.NoteOff(0, a.key)
		}
	}
	if cursor < total {
		s.Render(left[cursor:], right[cursor:])
	}

	interleaved := make([]float32, 2*total)
	for i := 0; i < total; i++ {
		interleaved[2*i] = left[i]
		interleaved[2*i+1] = right[i]
	}
	return interleaved, nil
}
