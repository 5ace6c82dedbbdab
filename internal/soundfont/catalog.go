// Package soundfont discovers and loads SF2 instrument banks
package soundfont

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sinshu/go-meltysynth/meltysynth"

	apperrors "github.com/k-shaswat/Symphonia/internal/errors"
)

// Instrument is one selectable soundfont in the catalog
type Instrument struct {
	Name string // display name derived from the file name
	Path string // absolute path to the .sf2 file
}

// Catalog lists the soundfonts available in a directory
type Catalog struct {
	Dir         string
	Instruments []Instrument
}

// Scan builds a catalog from all .sf2 files in dir, sorted by name
func Scan(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory %s does not exist", apperrors.ErrNoSoundfonts, dir)
		}
		return nil, fmt.Errorf("read soundfont dir: %w", err)
	}

	cat := &Catalog{Dir: dir}
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".sf2" {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			abs = filepath.Join(dir, e.Name())
		}
		cat.Instruments = append(cat.Instruments, Instrument{
			Name: displayName(e.Name()),
			Path: abs,
		})
	}

	if len(cat.Instruments) == 0 {
		return nil, fmt.Errorf("%w: no .sf2 files in %s", apperrors.ErrNoSoundfonts, dir)
	}

	sort.Slice(cat.Instruments, func(i, j int) bool {
		return cat.Instruments[i].Name < cat.Instruments[j].Name
	})
	return cat, nil
}

// Select resolves a user selection, either a 1-based index or a
// case-insensitive instrument name.
func (c *Catalog) Select(choice string) (*Instrument, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return nil, fmt.Errorf("%w: empty selection", apperrors.ErrInvalidSelection)
	}

	if idx, err := strconv.Atoi(choice); err == nil {
		if idx < 1 || idx > len(c.Instruments) {
			return nil, fmt.Errorf("%w: %d is out of range 1..%d", apperrors.ErrInvalidSelection, idx, len(c.Instruments))
		}
		return &c.Instruments[idx-1], nil
	}

	for i := range c.Instruments {
		if strings.EqualFold(c.Instruments[i].Name, choice) {
			return &c.Instruments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidSelection, choice)
}

// Load parses the soundfont file behind the instrument
func (i *Instrument) Load() (*meltysynth.SoundFont, error) {
	data, err := os.ReadFile(i.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSoundFontNotFound, i.Path)
		}
		return nil, fmt.Errorf("read soundfont: %w", err)
	}

	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont %s: %w", filepath.Base(i.Path), err)
	}
	return sf, nil
}

// Presets returns the preset names bundled in the soundfont, bank/patch
// ordered
func (i *Instrument) Presets() ([]string, error) {
	sf, err := i.Load()
	if err != nil {
		return nil, err
	}

	type preset struct {
		bank, patch int32
		name        string
	}
	var ps []preset
	for _, p := range sf.Presets {
		ps = append(ps, preset{p.BankNumber, p.PatchNumber, p.Name})
	}
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].bank != ps[b].bank {
			return ps[a].bank < ps[b].bank
		}
		return ps[a].patch < ps[b].patch
	})

	names := make([]string, len(ps))
	for idx, p := range ps {
		names[idx] = p.name
	}
	return names, nil
}

// displayName turns "grand_piano.sf2" into "Grand Piano"
func displayName(file string) string {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
