// Package archive moves finished day-rotated log files out of the hot
// mission and episode log directories into per-month archive folders.
// The current day's files are still being appended to and are never
// touched.
package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const dayFormat = "2006-01-02"

var logDirs = []string{"missions", "episodes"}

// Meta describes one month's archive folder.
type Meta struct {
	Month     string   `json:"month"`
	Files     []string `json:"files"`
	UpdatedAt string   `json:"updated_at"`
}

// Result reports what one sweep moved.
type Result struct {
	Moved []string
}

// Sweep archives every day-rotated log file whose day stamp is strictly
// before now's UTC day. Files it cannot date are left alone.
func Sweep(dataDir string, now time.Time) (Result, error) {
	var res Result
	today := now.UTC().Format(dayFormat)

	for _, sub := range logDirs {
		dir := filepath.Join(dataDir, sub)
		ents, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return res, err
		}
		for _, e := range ents {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".jsonl.zst") {
				continue
			}
			day, ok := fileDay(name)
			if !ok || day >= today {
				continue
			}

			monthDir := filepath.Join(dataDir, "archive", day[:7])
			if err := os.MkdirAll(monthDir, 0o755); err != nil {
				return res, err
			}
			if err := os.Rename(filepath.Join(dir, name), filepath.Join(monthDir, name)); err != nil {
				return res, err
			}
			res.Moved = append(res.Moved, name)
			if err := updateMeta(monthDir, day[:7], name, now); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// fileDay extracts the rotation day from names like
// missions-2026-08-29.jsonl.zst.
func fileDay(name string) (string, bool) {
	base := strings.TrimSuffix(name, ".jsonl.zst")
	if len(base) < len(dayFormat)+1 {
		return "", false
	}
	day := base[len(base)-len(dayFormat):]
	if _, err := time.Parse(dayFormat, day); err != nil {
		return "", false
	}
	return day, true
}

func updateMeta(monthDir, month, name string, now time.Time) error {
	metaPath := filepath.Join(monthDir, "meta.json")
	meta := Meta{Month: month}
	if b, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(b, &meta)
	}
	for _, f := range meta.Files {
		if f == name {
			return nil
		}
	}
	meta.Files = append(meta.Files, name)
	sort.Strings(meta.Files)
	meta.UpdatedAt = now.UTC().Format(time.RFC3339Nano)

	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath, b, 0o644)
}
