package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/k-shaswat/Symphonia/internal/audio"
	"github.com/k-shaswat/Symphonia/internal/synth"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB

// handleIndex serves the main upload page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", map[string]any{
		"Instruments": s.catalog.Instruments,
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleUpload accepts an audio file and starts a transcription job
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.renderError(w, "File too large. Maximum size is 100MB.", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.renderError(w, "Please upload an audio file.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Validate file extension
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".wav" && ext != ".mp3" && ext != ".flac" {
		s.renderError(w, "Unsupported format. Please upload a WAV, MP3 or FLAC file.", http.StatusBadRequest)
		return
	}

	// Create job and save file
	job, err := s.jobs.Create()
	if err != nil {
		s.renderError(w, "Failed to create job.", http.StatusInternalServerError)
		return
	}

	inputPath := job.ws.InputCopy(ext)
	dst, err := os.Create(inputPath)
	if err != nil {
		s.jobs.Discard(job)
		s.renderError(w, "Failed to save file.", http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.jobs.Discard(job)
		s.renderError(w, "Failed to save file.", http.StatusInternalServerError)
		return
	}

	job.InputPath = inputPath
	job.Filename = header.Filename

	// Validate before queuing so obvious junk fails fast
	if _, err := audio.ValidateInput(inputPath); err != nil {
		s.jobs.Discard(job)
		s.renderError(w, fmt.Sprintf("Invalid audio file: %v", err), http.StatusBadRequest)
		return
	}

	go s.jobs.Process(job)

	s.render(w, "processing.html", map[string]string{"JobID": job.ID})
}

// handleStatus returns a status partial for polling
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		s.renderError(w, "Job not found.", http.StatusNotFound)
		return
	}

	view := job.Snapshot()
	s.render(w, "status.html", map[string]any{
		"JobID":  job.ID,
		"Status": string(view.Status),
		"Stage":  view.Stage,
		"Error":  view.Error,
	})
}

// handleResult shows the finished transcription with instrument choices
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		s.renderError(w, "Job not found.", http.StatusNotFound)
		return
	}

	view := job.Snapshot()
	if view.Status == StatusFailed {
		s.renderError(w, view.Error, http.StatusUnprocessableEntity)
		return
	}
	if view.Status != StatusComplete {
		s.renderError(w, "Job still processing.", http.StatusConflict)
		return
	}

	s.render(w, "result.html", map[string]any{
		"JobID":       job.ID,
		"Filename":    job.Filename,
		"Result":      view.Result,
		"Instruments": s.catalog.Instruments,
		"Rendered":    view.RenderPath != "",
		"Instrument":  view.Instrument,
	})
}

// handleRender renders the transcription with a selected soundfont
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		s.renderError(w, "Job not found.", http.StatusNotFound)
		return
	}
	view := job.Snapshot()
	if view.Status != StatusComplete {
		s.renderError(w, "Job not ready.", http.StatusConflict)
		return
	}

	inst, err := s.catalog.Select(r.FormValue("instrument"))
	if err != nil {
		s.renderError(w, fmt.Sprintf("Instrument selection failed: %v", err), http.StatusBadRequest)
		return
	}

	sf, err := inst.Load()
	if err != nil {
		s.renderError(w, fmt.Sprintf("Could not load soundfont: %v", err), http.StatusInternalServerError)
		return
	}

	pcm, err := synth.NewRenderer(sf).Render(view.Result.Events)
	if err != nil {
		s.renderError(w, fmt.Sprintf("Render failed: %v", err), http.StatusInternalServerError)
		return
	}

	renderPath := job.ws.RenderWAV()
	if err := audio.WriteWAVStereo(renderPath, pcm, synth.SampleRate); err != nil {
		s.renderError(w, fmt.Sprintf("Could not write render: %v", err), http.StatusInternalServerError)
		return
	}

	job.mu.Lock()
	job.RenderPath = renderPath
	job.Instrument = inst.Name
	job.mu.Unlock()

	http.Redirect(w, r, "/result/"+job.ID, http.StatusSeeOther)
}

// handleDownloadMIDI serves the transcription as a MIDI file
func (s *Server) handleDownloadMIDI(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.NotFound(w, r)
		return
	}
	view := job.Snapshot()
	if view.MIDIPath == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="transcription.mid"`)
	w.Header().Set("Content-Type", "audio/midi")
	http.ServeFile(w, r, view.MIDIPath)
}

// handleDownloadWAV serves the rendered audio
func (s *Server) handleDownloadWAV(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.NotFound(w, r)
		return
	}
	view := job.Snapshot()
	if view.RenderPath == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, view.RenderPath)
}
