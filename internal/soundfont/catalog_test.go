package soundfont

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/k-shaswat/Symphonia/internal/errors"
)

func fakeBankDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("RIFF"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScan(t *testing.T) {
	dir := fakeBankDir(t, "grand_piano.sf2", "violin.sf2", "flute.SF2", "readme.txt")

	cat, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(cat.Instruments) != 3 {
		t.Fatalf("got %d instruments, want 3", len(cat.Instruments))
	}

	// sorted by display name, non-sf2 files skipped
	want := []string{"Flute", "Grand Piano", "Violin"}
	for i, w := range want {
		if cat.Instruments[i].Name != w {
			t.Errorf("instrument %d = %q, want %q", i, cat.Instruments[i].Name, w)
		}
	}
}

func TestScanErrors(t *testing.T) {
	t.Run("MissingDir", func(t *testing.T) {
		_, err := Scan(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, apperrors.ErrNoSoundfonts) {
			t.Errorf("err = %v, want ErrNoSoundfonts", err)
		}
	})

	t.Run("EmptyDir", func(t *testing.T) {
		_, err := Scan(t.TempDir())
		if !errors.Is(err, apperrors.ErrNoSoundfonts) {
			t.Errorf("err = %v, want ErrNoSoundfonts", err)
		}
	})
}

func TestSelect(t *testing.T) {
	dir := fakeBankDir(t, "grand_piano.sf2", "violin.sf2")
	cat, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ByIndex", func(t *testing.T) {
		inst, err := cat.Select("1")
		if err != nil {
			t.Fatal(err)
		}
		if inst.Name != "Grand Piano" {
			t.Errorf("got %q, want Grand Piano", inst.Name)
		}
	})

	t.Run("ByName", func(t *testing.T) {
		inst, err := cat.Select("violin")
		if err != nil {
			t.Fatal(err)
		}
		if inst.Name != "Violin" {
			t.Errorf("got %q, want Violin", inst.Name)
		}
	})

	t.Run("WhitespaceTrimmed", func(t *testing.T) {
		if _, err := cat.Select("  2 \n"); err != nil {
			t.Errorf("padded index should resolve: %v", err)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, choice := range []string{"", "0", "3", "-1", "tuba"} {
			if _, err := cat.Select(choice); !errors.Is(err, apperrors.ErrInvalidSelection) {
				t.Errorf("Select(%q): err = %v, want ErrInvalidSelection", choice, err)
			}
		}
	})
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := fakeBankDir(t, "broken.sf2")
	cat, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Instruments[0].Load(); err == nil {
		t.Error("loading a non-soundfont file should fail")
	}
}
