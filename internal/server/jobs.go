package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/k-shaswat/Symphonia/internal/cache"
	"github.com/k-shaswat/Symphonia/internal/midi"
	"github.com/k-shaswat/Symphonia/internal/pipeline"
	"github.com/k-shaswat/Symphonia/internal/workspace"
)

// Job status constants
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// Job represents a processing job
type Job struct {
	ID         string
	Status     JobStatus
	Stage      string
	Filename   string
	InputPath  string
	WorkDir    string
	Result     *pipeline.Result
	MIDIPath   string
	RenderPath string // set once an instrument render exists
	Instrument string
	Error      string
	CreatedAt  time.Time

	ws *workspace.Workspace
	mu sync.Mutex
}

// JobView is a consistent copy of the mutable job state, taken under
// the job lock. Handlers read this instead of the live fields.
type JobView struct {
	Status     JobStatus
	Stage      string
	Error      string
	Result     *pipeline.Result
	MIDIPath   string
	RenderPath string
	Instrument string
}

// Snapshot returns the job state safely for handlers
func (j *Job) Snapshot() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobView{
		Status:     j.Status,
		Stage:      j.Stage,
		Error:      j.Error,
		Result:     j.Result,
		MIDIPath:   j.MIDIPath,
		RenderPath: j.RenderPath,
		Instrument: j.Instrument,
	}
}

func (j *Job) setStage(stage string) {
	j.mu.Lock()
	j.Stage = stage
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.Status = StatusFailed
	j.Error = err.Error()
	j.mu.Unlock()
}

// JobManager manages processing jobs
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	useCache bool
}

// NewJobManager creates a new job manager
func NewJobManager(useCache bool) *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		useCache: useCache,
	}
}

// Create creates a new job with its own work directory
func (m *JobManager) Create() (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, err := workspace.Create()
	if err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%d", time.Now().UnixNano())
	job := &Job{
		ID:        id,
		Status:    StatusPending,
		Stage:     "Uploading...",
		WorkDir:   ws.Dir,
		CreatedAt: time.Now(),
		ws:        ws,
	}

	m.jobs[id] = job
	return job, nil
}

// Discard removes a job whose upload never made it to processing and
// deletes its workspace.
func (m *JobManager) Discard(job *Job) {
	job.ws.Cleanup()
	m.mu.Lock()
	delete(m.jobs, job.ID)
	m.mu.Unlock()
}

// Get retrieves a job by ID
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// Process runs the transcription pipeline for a job
func (m *JobManager) Process(job *Job) {
	defer func() {
		// Cleanup after an hour; renders stay downloadable until then
		time.AfterFunc(time.Hour, func() {
			job.ws.Cleanup()
			m.mu.Lock()
			delete(m.jobs, job.ID)
			m.mu.Unlock()
		})
	}()

	job.mu.Lock()
	job.Status = StatusProcessing
	job.mu.Unlock()

	var c *cache.Cache
	if m.useCache {
		c, _ = cache.New()
	}

	job.setStage("Transcribing...")
	orch := pipeline.NewOrchestrator(io.Discard, false, c)

	cfg := pipeline.DefaultConfig()
	cfg.InputPath = job.InputPath
	cfg.UseCache = m.useCache

	result, err := orch.Execute(context.Background(), cfg)
	if err != nil {
		job.fail(err)
		return
	}

	job.setStage("Writing MIDI...")
	midiPath := job.ws.MIDIFile()
	if err := midi.WriteFile(midiPath, result.Events, result.BPM); err != nil {
		job.fail(fmt.Errorf("write midi: %w", err))
		return
	}

	job.mu.Lock()
	job.Result = result
	job.MIDIPath = midiPath
	job.Status = StatusComplete
	job.Stage = "Done"
	job.mu.Unlock()
}
