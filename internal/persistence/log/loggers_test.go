package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestMissionLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewMissionLogger(dir)

	entries := []MissionLogEntry{
		{Time: "t0", Level: "goto", Seed: 1, Digest: "aa", Text: "go to a red ball"},
		{Time: "t1", Level: "pickup", Seed: 2, Attempts: 3, Digest: "bb", Text: "pick up the blue key"},
	}
	for _, e := range entries {
		if err := l.WriteMission(e); err != nil {
			t.Fatalf("WriteMission: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "missions", "missions-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("want one log file, got %v (%v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()

	var got []MissionLogEntry
	sc := bufio.NewScanner(dec.IOReadCloser())
	for sc.Scan() {
		var e MissionLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("want %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], entries[i])
		}
	}
}

func TestEpisodeLogger_WritesSteps(t *testing.T) {
	dir := t.TempDir()
	l := NewEpisodeLogger(dir)
	if err := l.WriteStep(StepLogEntry{Time: "t0", EpisodeID: "E1", Step: 0, Action: "FORWARD", Status: "ONGOING"}); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "episodes", "steps-*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("want one log file, got %v", files)
	}
}
