package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/k-shaswat/Symphonia/internal/errors"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateInput(t *testing.T) {
	t.Run("WAVMagic", func(t *testing.T) {
		header := append([]byte("RIFF"), 0, 0, 0, 0)
		header = append(header, []byte("WAVE")...)
		path := writeTemp(t, "clip.bin", header)
		format, err := ValidateInput(path)
		if err != nil {
			t.Fatal(err)
		}
		if format != FormatWAV {
			t.Errorf("format = %s, want wav", format)
		}
	})

	t.Run("FLACMagic", func(t *testing.T) {
		path := writeTemp(t, "clip.bin", []byte("fLaC\x00\x00\x00\x22more"))
		format, err := ValidateInput(path)
		if err != nil {
			t.Fatal(err)
		}
		if format != FormatFLAC {
			t.Errorf("format = %s, want flac", format)
		}
	})

	t.Run("MP3ID3Tag", func(t *testing.T) {
		path := writeTemp(t, "clip.bin", []byte("ID3\x04\x00\x00\x00\x00\x00\x00\x00\x00"))
		format, err := ValidateInput(path)
		if err != nil {
			t.Fatal(err)
		}
		if format != FormatMP3 {
			t.Errorf("format = %s, want mp3", format)
		}
	})

	t.Run("MP3FrameSync", func(t *testing.T) {
		path := writeTemp(t, "clip.bin", []byte{0xFF, 0xFB, 0x90, 0x00, 0, 0, 0, 0, 0, 0, 0, 0})
		format, err := ValidateInput(path)
		if err != nil {
			t.Fatal(err)
		}
		if format != FormatMP3 {
			t.Errorf("format = %s, want mp3", format)
		}
	})

	t.Run("ExtensionFallback", func(t *testing.T) {
		path := writeTemp(t, "raw.wav", []byte("not a real header"))
		format, err := ValidateInput(path)
		if err != nil {
			t.Fatal(err)
		}
		if format != FormatWAV {
			t.Errorf("format = %s, want wav", format)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ValidateInput(filepath.Join(t.TempDir(), "nope.wav"))
		if !errors.Is(err, apperrors.ErrFileNotFound) {
			t.Errorf("err = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		path := writeTemp(t, "notes.txt", []byte("just some text here"))
		_, err := ValidateInput(path)
		if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
			t.Errorf("err = %v, want ErrUnsupportedFormat", err)
		}
	})
}
