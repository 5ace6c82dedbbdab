package notes

import (
	"math"
	"testing"
)

func TestName(t *testing.T) {
	cases := []struct {
		freq float64
		want string
	}{
		{440.0, "A4"},
		{261.63, "C4"},
		{466.16, "A#4"},
		{32.70, "C1"},
		{4186.01, "C8"},
		{27.5, "A0"},
		{452, "A4"}, // well within a half semitone of A4
	}
	for _, c := range cases {
		got, ok := Name(c.freq)
		if !ok {
			t.Errorf("Name(%.2f) not ok", c.freq)
			continue
		}
		if got != c.want {
			t.Errorf("Name(%.2f) = %s, want %s", c.freq, got, c.want)
		}
	}

	t.Run("Unvoiced", func(t *testing.T) {
		if _, ok := Name(0); ok {
			t.Error("Name(0) should not be ok")
		}
		if _, ok := Name(-10); ok {
			t.Error("Name(-10) should not be ok")
		}
		if _, ok := Name(math.NaN()); ok {
			t.Error("Name(NaN) should not be ok")
		}
	})
}

func TestMIDINumber(t *testing.T) {
	if got := MIDINumber(440); got != 69 {
		t.Errorf("MIDINumber(440) = %d, want 69", got)
	}
	if got := MIDINumber(261.63); got != 60 {
		t.Errorf("MIDINumber(261.63) = %d, want 60", got)
	}
}

func TestFrequencyRoundtrip(t *testing.T) {
	for midi := 24; midi <= 108; midi++ {
		freq := Frequency(midi)
		if got := MIDINumber(freq); got != midi {
			t.Errorf("MIDINumber(Frequency(%d)) = %d", midi, got)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"C4", 60},
		{"C#4", 61},
		{"Db4", 61},
		{"A4", 69},
		{"B3", 59},
		{"Bb3", 58},
		{"C-1", 0},
		{"G9", 127},
	}
	for _, c := range cases {
		got, err := Parse(c.name)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.name, got, c.want)
		}
	}

	t.Run("Invalid", func(t *testing.T) {
		for _, name := range []string{"", "H4", "C", "4", "C#x", "C99"} {
			if _, err := Parse(name); err == nil {
				t.Errorf("Parse(%q) should fail", name)
			}
		}
	})
}

func TestParseMatchesName(t *testing.T) {
	// a name produced by quantization must parse back to the same key
	for midi := 24; midi <= 108; midi++ {
		name, ok := Name(Frequency(midi))
		if !ok {
			t.Fatalf("Name(Frequency(%d)) not ok", midi)
		}
		got, err := Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got != midi {
			t.Errorf("Parse(Name(%d)) = %d", midi, got)
		}
	}
}
