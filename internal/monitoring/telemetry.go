// Package monitoring - telemetry.go records events to JSONL files and an
// optional SQLite store.
//
// DESIGN: Tracker appends structured events as JSONL (one JSON object per
// line) immediately after each event for real-time logging. When a database
// path is configured, the same events are inserted into SQLite for ad-hoc
// querying. Only metadata is recorded; prompt text is never persisted.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// TelemetryConfig controls event recording.
type TelemetryConfig struct {
	LogPath string // JSONL file, empty disables file output
	DBPath  string // SQLite file, empty disables the store
}

// Tracker handles telemetry event recording.
type Tracker struct {
	config         TelemetryConfig
	requestLogPath string
	initLogPath    string
	store          *Store
	requestCount   int
	mu             sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{config: cfg}

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
			return nil, err
		}
		t.requestLogPath = cfg.LogPath
		t.initLogPath = filepath.Join(filepath.Dir(cfg.LogPath), "init.jsonl")
	}

	if cfg.DBPath != "" {
		store, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		t.store = store
	}

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// RecordRequest records a request event.
func (t *Tracker) RecordRequest(event *RequestEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.requestLogPath != "" {
		if err := appendJSONL(t.requestLogPath, event); err != nil {
			log.Error().Err(err).Str("path", t.requestLogPath).Msg("telemetry: failed to write request event")
		} else {
			t.requestCount++
		}
	}

	if t.store != nil {
		if err := t.store.InsertRequest(event); err != nil {
			log.Error().Err(err).Msg("telemetry: failed to store request event")
		}
	}
}

// RecordInit records a startup event to a dedicated init JSONL.
func (t *Tracker) RecordInit(event *InitEvent) {
	if t.initLogPath == "" || event == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := appendJSONL(t.initLogPath, event); err != nil {
		log.Error().Err(err).Str("path", t.initLogPath).Msg("telemetry: failed to write init event")
	}
}

// Close flushes and releases the tracker's resources.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.requestLogPath != "" && t.requestCount > 0 {
		log.Info().
			Str("path", t.requestLogPath).
			Int("events", t.requestCount).
			Msg("telemetry: session complete")
	}

	if t.store != nil {
		return t.store.Close()
	}
	return nil
}
