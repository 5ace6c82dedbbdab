package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptedFile     = errors.New("file corrupted or unreadable")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
	ErrNoSoundfonts      = errors.New("no soundfonts found")
	ErrSoundFontNotFound = errors.New("soundfont not found")
	ErrNoVoicedFrames    = errors.New("no pitched content detected")
	ErrInvalidSelection  = errors.New("invalid instrument selection")
)

// StageError represents a failure in a pipeline stage
type StageError struct {
	Stage string // "decode", "pitch", "analysis", "segment", "render"
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// IsRecoverable returns true if the pipeline can continue with defaults
func (e *StageError) IsRecoverable() bool {
	return e.Stage == "analysis"
}

// NewStageError creates a StageError
func NewStageError(stage string, cause error) *StageError {
	return &StageError{Stage: stage, Cause: cause}
}
