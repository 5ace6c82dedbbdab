// Package notes quantizes a pitch contour to named musical notes and
// segments the contour into timed note events.
package notes

import (
	"fmt"
	"math"
	"strconv"
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const a4Freq = 440.0

// Name returns the tempered-scale note name (e.g. "A4", "C#5") nearest
// to the given frequency. ok is false for non-positive frequencies.
func Name(freq float64) (name string, ok bool) {
	if freq <= 0 || math.IsNaN(freq) {
		return "", false
	}
	semitones := int(math.Round(12 * math.Log2(freq/a4Freq)))
	idx := floorMod(semitones+9, 12)
	octave := 4 + floorDiv(semitones+9, 12)
	return noteNames[idx] + strconv.Itoa(octave), true
}

// MIDINumber returns the MIDI key number nearest to the given frequency
func MIDINumber(freq float64) int {
	return int(math.Round(69 + 12*math.Log2(freq/a4Freq)))
}

// Frequency returns the equal-temperament frequency of a MIDI key number
func Frequency(midi int) float64 {
	return a4Freq * math.Pow(2, float64(midi-69)/12)
}

// Parse converts a note name like "C#4" back to its MIDI key number
func Parse(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	var semitone int
	rest := name[1:]
	switch name[0] {
	case 'C':
		semitone = 0
	case 'D':
		semitone = 2
	case 'E':
		semitone = 4
	case 'F':
		semitone = 5
	case 'G':
		semitone = 7
	case 'A':
		semitone = 9
	case 'B':
		semitone = 11
	default:
		return 0, fmt.Errorf("invalid note name %q", name)
	}
	if rest[0] == '#' {
		semitone++
		rest = rest[1:]
	} else if rest[0] == 'b' {
		semitone--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	midi := (octave+1)*12 + semitone
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("note %q out of MIDI range", name)
	}
	return midi, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}
