// Package score persists transcriptions as human-editable YAML
package score

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/k-shaswat/Symphonia/internal/notes"
)

// Score is a complete transcription with its musical context
type Score struct {
	Title     string        `yaml:"title"`
	Source    string        `yaml:"source,omitempty"`
	BPM       float64       `yaml:"bpm"`
	Key       string        `yaml:"key,omitempty"`
	CreatedAt time.Time     `yaml:"created_at"`
	Events    []notes.Event `yaml:"events"`
}

// Save writes the score to path as YAML
func Save(path string, s *Score) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write score: %w", err)
	}
	return nil
}

// Load reads a YAML score from path
func Load(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score: %w", err)
	}
	var s Score
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse score: %w", err)
	}
	return &s, nil
}
