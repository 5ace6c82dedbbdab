package server

import (
	"bytes"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/k-shaswat/Symphonia/internal/audio"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(Config{Port: 0, SoundfontDir: t.TempDir(), CacheDisabled: true})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHealth(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestIndex(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Symphonia") {
		t.Error("index page missing title")
	}
}

func TestUploadRejectsBadExtension(t *testing.T) {
	s := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio", "notes.txt")
	fw.Write([]byte("not audio"))
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	s := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("audio", "nope")
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadDiscardsJobOnInvalidAudio(t *testing.T) {
	s := testServer(t)

	// right extension, empty body: fails header validation after the
	// job and its workspace already exist
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.CreateFormFile("audio", "empty.wav")
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	s.jobs.mu.RLock()
	remaining := len(s.jobs.jobs)
	s.jobs.mu.RUnlock()
	if remaining != 0 {
		t.Errorf("%d jobs left registered after rejected upload", remaining)
	}
}

func TestDiscard(t *testing.T) {
	m := NewJobManager(false)
	job, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}

	m.Discard(job)

	if m.Get(job.ID) != nil {
		t.Error("job still registered after discard")
	}
	if _, err := os.Stat(job.WorkDir); !os.IsNotExist(err) {
		t.Errorf("workspace still present: %v", err)
	}
}

func TestSnapshotDuringRender(t *testing.T) {
	m := NewJobManager(false)
	job, err := m.Create()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Discard(job)

	// flip the render fields the way handleRender does while snapshots
	// are taken concurrently; both fields must move together
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			job.mu.Lock()
			job.RenderPath = job.ws.RenderWAV()
			job.Instrument = "Grand Piano"
			job.mu.Unlock()

			job.mu.Lock()
			job.RenderPath = ""
			job.Instrument = ""
			job.mu.Unlock()
		}
	}()

	for alive := true; alive; {
		select {
		case <-done:
			alive = false
		default:
		}
		view := job.Snapshot()
		if (view.RenderPath != "") != (view.Instrument != "") {
			t.Fatalf("torn snapshot: path=%q instrument=%q", view.RenderPath, view.Instrument)
		}
	}
}

func TestStatusUnknownJob(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/status/12345", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUploadAndProcess(t *testing.T) {
	s := testServer(t)

	// half a second of A4
	rate := 22050
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.6 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	wavPath := t.TempDir() + "/tone.wav"
	if err := audio.WriteWAV(wavPath, samples, rate); err != nil {
		t.Fatal(err)
	}
	wavData, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio", "tone.wav")
	fw.Write(wavData)
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	// exactly one job was queued
	s.jobs.mu.RLock()
	var job *Job
	for _, j := range s.jobs.jobs {
		job = j
	}
	s.jobs.mu.RUnlock()
	if job == nil {
		t.Fatal("no job created")
	}

	// wait for the background pipeline to finish
	deadline := time.After(30 * time.Second)
	for {
		view := job.Snapshot()
		if view.Status == StatusComplete {
			break
		}
		if view.Status == StatusFailed {
			t.Fatalf("job failed: %s", view.Error)
		}
		select {
		case <-deadline:
			t.Fatal("job did not finish in time")
		case <-time.After(100 * time.Millisecond):
		}
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/result/"+job.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tone.wav") {
		t.Error("result page missing filename")
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/"+job.ID+"/midi", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("midi download status = %d", rec.Code)
	}
}
