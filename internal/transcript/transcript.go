// Package transcript keeps the conversation history on disk as a JSON
// array of entries, oldest first.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultLimit = 1000
)

type Entry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// tsLayout is a local timestamp with no zone offset, e.g. 2025-08-28T12:05:30.
const tsLayout = "2006-01-02T15:04:05"

type wireEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	TS      string `json:"ts"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{Role: e.Role, Content: e.Content}
	if !e.TS.IsZero() {
		w.TS = e.TS.In(time.Local).Format(tsLayout)
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as local ones without a
// zone offset.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := parseTS(w.TS)
	if err != nil {
		return err
	}
	*e = Entry{Role: w.Role, Content: w.Content, TS: ts}
	return nil
}

func parseTS(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{tsLayout, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}

// Log is safe for concurrent use. A Log with an empty path lives in memory
// only.
type Log struct {
	mu      sync.Mutex
	path    string
	limit   int
	entries []Entry
	now     func() time.Time
}

// Open loads the transcript at path. A missing or unreadable file starts an
// empty log. A corrupt file is moved aside to path+".corrupt" first.
func Open(path string, limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Log{path: path, limit: limit, now: time.Now}
	if path == "" {
		return l
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return l
	case err != nil:
		log.Warn("Failed to read transcript, starting fresh", "path", path, "err", err)
		return l
	case len(data) == 0:
		return l
	}
	if err := json.Unmarshal(data, &l.entries); err != nil {
		l.entries = nil
		log.Warn("Transcript is corrupt, starting fresh", "path", path, "err", err)
		if err := os.Rename(path, path+".corrupt"); err != nil {
			log.Warn("Failed to move corrupt transcript aside", "err", err)
		}
		return l
	}
	l.trim()
	return l
}

// Append records one message and persists the log. The oldest entries are
// dropped beyond the limit.
func (l *Log) Append(role, content string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{Role: role, Content: content, TS: l.now()}
	l.entries = append(l.entries, e)
	l.trim()
	return e, l.save()
}

// Entries returns a copy of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) trim() {
	if n := len(l.entries) - l.limit; n > 0 {
		l.entries = append([]Entry(nil), l.entries[n:]...)
	}
}

func (l *Log) save() error {
	if l.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".transcript-*")
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
