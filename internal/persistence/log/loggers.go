// Package log writes append-only JSONL records, zstd-compressed and
// rotated by UTC day. These files are the durable record; the sqlite
// index is derived and can always be rebuilt from them.
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForDay(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

// MissionLogEntry records one generated mission.
type MissionLogEntry struct {
	Time     string `json:"time"`
	Level    string `json:"level"`
	Seed     int64  `json:"seed"`
	Attempts int    `json:"attempts,omitempty"`
	Digest   string `json:"digest"`
	Text     string `json:"text"`
}

// StepLogEntry records one episode step and its verdict.
type StepLogEntry struct {
	Time       string `json:"time"`
	EpisodeID  string `json:"episode_id"`
	Step       int    `json:"step"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	StrictNode string `json:"strict_node,omitempty"`
}

// MissionLogger writes one JSONL entry per generated mission (compressed).
type MissionLogger struct{ w *JSONLZstdWriter }

func NewMissionLogger(dataDir string) *MissionLogger {
	return &MissionLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "missions"), "missions")}
}

func (l *MissionLogger) WriteMission(v MissionLogEntry) error { return l.w.Write(v) }
func (l *MissionLogger) Close() error                         { return l.w.Close() }

// EpisodeLogger writes step JSONL entries (compressed).
type EpisodeLogger struct{ w *JSONLZstdWriter }

func NewEpisodeLogger(dataDir string) *EpisodeLogger {
	return &EpisodeLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "episodes"), "steps")}
}

func (l *EpisodeLogger) WriteStep(v StepLogEntry) error { return l.w.Write(v) }
func (l *EpisodeLogger) Close() error                   { return l.w.Close() }
