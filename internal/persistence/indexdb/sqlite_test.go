package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestSQLiteIndex_MissionEpisodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.WriteMission(MissionRow{
		ID:       "M1",
		Level:    "goto",
		Seed:     1337,
		Attempts: 2,
		MaxSteps: 288,
		Digest:   "deadbeef",
		Text:     "go to the red ball",
		DocJSON:  `{"rows":1}`,
	})
	idx.WriteStep(StepRow{EpisodeID: "E1", Step: 0, Action: "FORWARD", Status: "ONGOING"})
	idx.WriteStep(StepRow{EpisodeID: "E1", Step: 1, Action: "TOGGLE", Status: "SUCCESS"})
	idx.WriteEpisode(EpisodeRow{ID: "E1", MissionID: "M1", Steps: 2, Outcome: "SUCCESS"})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var (
		level  string
		seed   int64
		digest string
	)
	row := db.QueryRow(`SELECT level,seed,digest FROM missions WHERE id='M1'`)
	if err := row.Scan(&level, &seed, &digest); err != nil {
		t.Fatalf("Scan mission: %v", err)
	}
	if level != "goto" || seed != 1337 || digest != "deadbeef" {
		t.Fatalf("mission mismatch: level=%q seed=%d digest=%q", level, seed, digest)
	}

	var steps int
	var outcome string
	if err := db.QueryRow(`SELECT steps,outcome FROM episodes WHERE id='E1'`).Scan(&steps, &outcome); err != nil {
		t.Fatalf("Scan episode: %v", err)
	}
	if steps != 2 || outcome != "SUCCESS" {
		t.Fatalf("episode mismatch: steps=%d outcome=%q", steps, outcome)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM steps WHERE episode_id='E1'`).Scan(&n); err != nil {
		t.Fatalf("Scan steps: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 step rows, got %d", n)
	}
}

func TestSQLiteIndex_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	idx.WriteMission(MissionRow{ID: "M2", Level: "pickup", Seed: 7, Digest: "cafe", Text: "pick up a key", DocJSON: "{}"})
	idx.WriteEpisode(EpisodeRow{ID: "E2", MissionID: "M2", Steps: 5, Outcome: "FAILURE", StrictNode: "OPEN(door/red/*, strict)"})

	// The writer commits in the background; poll until the rows land.
	var m MissionRow
	for i := 0; i < 100; i++ {
		m, err = idx.Mission("M2")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Mission: %v", err)
	}
	if m.Level != "pickup" || m.Seed != 7 {
		t.Fatalf("mission mismatch: %+v", m)
	}

	var e EpisodeRow
	for i := 0; i < 100; i++ {
		e, err = idx.Episode("E2")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Episode: %v", err)
	}
	if e.Outcome != "FAILURE" || e.StrictNode == "" {
		t.Fatalf("episode mismatch: %+v", e)
	}
}
