// Package pipeline coordinates the transcription stages:
// validate → decode → pitch → analyze → segment.
package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/k-shaswat/Symphonia/internal/analysis"
	"github.com/k-shaswat/Symphonia/internal/audio"
	"github.com/k-shaswat/Symphonia/internal/cache"
	apperrors "github.com/k-shaswat/Symphonia/internal/errors"
	"github.com/k-shaswat/Symphonia/internal/notes"
	"github.com/k-shaswat/Symphonia/internal/pitch"
	"github.com/k-shaswat/Symphonia/internal/progress"
)

// Config holds pipeline configuration
type Config struct {
	InputPath string
	MinFrames int  // sustain threshold in contour frames
	UseCache  bool // reuse cached transcriptions keyed by content hash
	Pitch     pitch.Config
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		MinFrames: notes.DefaultMinFrames,
		UseCache:  true,
		Pitch:     pitch.DefaultConfig(),
	}
}

// Result contains all pipeline outputs
type Result struct {
	Title         string
	Events        []notes.Event
	BPM           float64
	BPMConfidence float64
	Key           string
	KeyConfidence float64
	Duration      float64 // source audio length in seconds
	VoicedFrames  int
	TotalFrames   int
	CacheKey      string
	FromCache     bool
}

// Orchestrator coordinates the full processing pipeline
type Orchestrator struct {
	progress *progress.Reporter
	cache    *cache.Cache
}

// NewOrchestrator creates a new pipeline orchestrator. A nil cache
// disables transcription caching.
func NewOrchestrator(out io.Writer, verbose bool, c *cache.Cache) *Orchestrator {
	return &Orchestrator{
		progress: progress.NewReporter(out, verbose),
		cache:    c,
	}
}

// Execute runs the full pipeline
func (o *Orchestrator) Execute(ctx context.Context, cfg Config) (*Result, error) {
	result := &Result{Title: titleFor(cfg.InputPath)}

	// Stage 1: validate
	o.progress.StartStage(progress.StageValidate)
	format, err := audio.ValidateInput(cfg.InputPath)
	if err != nil {
		return nil, apperrors.NewStageError("validate", err)
	}
	o.progress.StageComplete("Format: %s", format)

	// Cache check before the expensive stages
	if cfg.UseCache && o.cache != nil {
		if key, err := cache.KeyForFile(cfg.InputPath); err == nil {
			result.CacheKey = key
			if entry, ok := o.cache.Get(key); ok {
				o.progress.StageComplete("Using cached transcription")
				result.Events = entry.Events
				result.Duration = entry.Duration
				result.TotalFrames = entry.TotalFrames
				result.VoicedFrames = entry.VoicedFrames
				result.FromCache = true
				applyAnalysis(result, entry.Analysis)
				return result, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: decode
	o.progress.StartStage(progress.StageDecode)
	clip, err := audio.Decode(cfg.InputPath, format)
	if err != nil {
		return nil, apperrors.NewStageError("decode", err)
	}
	result.Duration = clip.Duration()
	o.progress.StageComplete("%.1fs at %dHz", clip.Duration(), clip.SampleRate)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: pitch contour
	o.progress.StartStage(progress.StagePitch)
	o.progress.Update("resampling to %dHz", cfg.Pitch.SampleRate)
	analysisClip := clip.Resample(cfg.Pitch.SampleRate)
	tracker := pitch.NewTracker(cfg.Pitch)
	frames := tracker.Track(analysisClip.Samples)

	result.TotalFrames = len(frames)
	for _, f := range frames {
		if f.Voiced() {
			result.VoicedFrames++
		}
	}
	o.progress.StageComplete("%d frames, %d voiced", result.TotalFrames, result.VoicedFrames)
	if result.VoicedFrames == 0 {
		return nil, apperrors.NewStageError("pitch", apperrors.ErrNoVoicedFrames)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: analysis (recoverable; defaults apply on failure)
	o.progress.StartStage(progress.StageAnalyze)
	ar := analysis.Analyze(analysisClip.Samples, analysisClip.SampleRate)
	applyAnalysis(result, ar)
	if ar.Key != "" {
		o.progress.StageComplete("%.0f BPM, %s", ar.BPM, ar.Key)
	} else {
		o.progress.StageComplete("%.0f BPM", ar.BPM)
	}

	// Stage 5: segmentation
	o.progress.StartStage(progress.StageSegment)
	segmenter := notes.NewSegmenter(cfg.MinFrames)
	result.Events = segmenter.Segment(frames)
	o.progress.StageComplete("%d notes", len(result.Events))

	// Store in cache for next time
	if cfg.UseCache && o.cache != nil && result.CacheKey != "" {
		entry := &cache.Entry{
			Source:       filepath.Base(cfg.InputPath),
			Duration:     result.Duration,
			TotalFrames:  result.TotalFrames,
			VoicedFrames: result.VoicedFrames,
			Events:       result.Events,
			Analysis:     ar,
		}
		if err := o.cache.Put(result.CacheKey, entry); err != nil {
			o.progress.Warning("could not cache transcription: %v", err)
		}
	}

	o.progress.Done()
	return result, nil
}

func applyAnalysis(r *Result, ar *analysis.Result) {
	if ar == nil {
		ar = analysis.DefaultResult()
	}
	r.BPM = ar.BPM
	r.BPMConfidence = ar.BPMConfidence
	r.Key = ar.Key
	r.KeyConfidence = ar.KeyConfidence
}

// titleFor derives a display title from the input file name
func titleFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
