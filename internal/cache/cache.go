// Package cache stores finished transcriptions keyed by the content
// hash of the source audio, so repeated runs on the same file skip pitch
// extraction entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/k-shaswat/Symphonia/internal/analysis"
	"github.com/k-shaswat/Symphonia/internal/notes"
)

// version invalidates older cache layouts when the entry schema changes
const version = "3"

// Cache manages cached transcription results
type Cache struct {
	dir string
}

// Entry is one cached transcription
type Entry struct {
	Version      string           `json:"version"`
	Source       string           `json:"source"`
	Duration     float64          `json:"duration"`
	TotalFrames  int              `json:"total_frames"`
	VoicedFrames int              `json:"voiced_frames"`
	Events       []notes.Event    `json:"events"`
	Analysis     *analysis.Result `json:"analysis"`
	CreatedAt    time.Time        `json:"created_at"`
}

// New creates a cache under the user cache directory
func New() (*Cache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache dir: %w", err)
	}
	dir := filepath.Join(base, "symphonia", "transcriptions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// NewAt creates a cache rooted at an explicit directory (used by tests
// and the web server's per-deployment cache).
func NewAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// KeyForFile generates a cache key from a file's content hash
func KeyForFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil))[:16], nil
}

// Get retrieves a cached transcription for the given key
func (c *Cache) Get(key string) (*Entry, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Version != version {
		// stale layout, treat as a miss
		return nil, false
	}
	return &e, true
}

// Put stores a transcription under the given key
func (c *Cache) Put(key string, e *Entry) error {
	e.Version = version
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return os.Rename(tmp, c.path(key))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
