// Package library stores past transcriptions in a local SQLite database
package library

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/k-shaswat/Symphonia/internal/notes"
)

// Entry is one stored transcription
type Entry struct {
	ID        int64
	Title     string
	Source    string
	Checksum  string // sha256 of the source audio
	BPM       float64
	Key       string
	NoteCount int
	Events    []notes.Event
	CreatedAt time.Time
}

// Library wraps the SQLite store
type Library struct {
	db *sql.DB
}

// Open opens (creating if needed) the library database at dbPath
func Open(dbPath string) (*Library, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open library database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Library{db: db}, nil
}

// Close closes the underlying database
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS transcriptions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        source TEXT NOT NULL,
        checksum TEXT NOT NULL,
        bpm REAL NOT NULL,
        key TEXT,
        note_count INTEGER NOT NULL,
        events TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create transcriptions table: %w", err)
	}
	return nil
}

// Add stores an entry and returns its ID
func (l *Library) Add(e Entry) (int64, error) {
	eventsJSON, err := json.Marshal(e.Events)
	if err != nil {
		return 0, fmt.Errorf("encode events: %w", err)
	}

	result, err := l.db.Exec(
		"INSERT INTO transcriptions (title, source, checksum, bpm, key, note_count, events) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.Title, e.Source, e.Checksum, e.BPM, e.Key, len(e.Events), string(eventsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transcription: %w", err)
	}
	return result.LastInsertId()
}

// List returns all entries newest-first, without their event payloads
func (l *Library) List() ([]Entry, error) {
	rows, err := l.db.Query(
		"SELECT id, title, source, checksum, bpm, key, note_count, created_at FROM transcriptions ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var key sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Source, &e.Checksum, &e.BPM, &key, &e.NoteCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		e.Key = key.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a single entry with its events decoded
func (l *Library) Get(id int64) (*Entry, error) {
	var e Entry
	var key sql.NullString
	var eventsJSON string
	err := l.db.QueryRow(
		"SELECT id, title, source, checksum, bpm, key, note_count, events, created_at FROM transcriptions WHERE id = ?", id,
	).Scan(&e.ID, &e.Title, &e.Source, &e.Checksum, &e.BPM, &key, &e.NoteCount, &eventsJSON, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transcription %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcription: %w", err)
	}
	e.Key = key.String

	if err := json.Unmarshal([]byte(eventsJSON), &e.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return &e, nil
}

// Remove deletes an entry
func (l *Library) Remove(id int64) error {
	result, err := l.db.Exec("DELETE FROM transcriptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove transcription: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("transcription %d not found", id)
	}
	return nil
}
