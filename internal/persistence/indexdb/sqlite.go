// Package indexdb keeps a queryable sqlite index over generated missions
// and played episodes. Writes go through a background goroutine so the
// episode loop never blocks on disk; the JSONL logs remain the source of
// truth and the index can be rebuilt from them.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqMission reqKind = iota + 1
	reqEpisode
	reqStep
)

type req struct {
	kind reqKind

	mission MissionRow
	episode EpisodeRow
	step    StepRow
}

type MissionRow struct {
	ID       string
	Level    string
	Seed     int64
	Attempts int
	MaxSteps int
	Digest   string
	Text     string
	DocJSON  string
}

type EpisodeRow struct {
	ID         string
	MissionID  string
	Steps      int
	Outcome    string
	StrictNode string
}

type StepRow struct {
	EpisodeID string
	Step      int
	Action    string
	Status    string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			seed INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			max_steps INTEGER NOT NULL,
			digest TEXT NOT NULL,
			text TEXT NOT NULL,
			doc_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_missions_level_seed ON missions(level, seed);`,
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			mission_id TEXT NOT NULL,
			steps INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			strict_node TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_mission ON episodes(mission_id);`,
		`CREATE TABLE IF NOT EXISTS steps (
			episode_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (episode_id, step)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteMission(r MissionRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMission, mission: r}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
}

func (s *SQLiteIndex) WriteEpisode(r EpisodeRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEpisode, episode: r}:
	default:
	}
}

func (s *SQLiteIndex) WriteStep(r StepRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqStep, step: r}:
	default:
	}
}

// Mission reads a mission row back. Intended for tools and tests; the
// write path never reads.
func (s *SQLiteIndex) Mission(id string) (MissionRow, error) {
	var r MissionRow
	err := s.db.QueryRow(
		`SELECT id, level, seed, attempts, max_steps, digest, text, doc_json FROM missions WHERE id = ?`, id,
	).Scan(&r.ID, &r.Level, &r.Seed, &r.Attempts, &r.MaxSteps, &r.Digest, &r.Text, &r.DocJSON)
	return r, err
}

func (s *SQLiteIndex) Episode(id string) (EpisodeRow, error) {
	var r EpisodeRow
	var strictNode sql.NullString
	err := s.db.QueryRow(
		`SELECT id, mission_id, steps, outcome, strict_node FROM episodes WHERE id = ?`, id,
	).Scan(&r.ID, &r.MissionID, &r.Steps, &r.Outcome, &strictNode)
	r.StrictNode = strictNode.String
	return r, err
}

func (s *SQLiteIndex) EpisodeSteps(id string) ([]StepRow, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, step, action, status FROM steps WHERE episode_id = ? ORDER BY step`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StepRow
	for rows.Next() {
		var r StepRow
		if err := rows.Scan(&r.EpisodeID, &r.Step, &r.Action, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentMissions lists the newest missions, optionally filtered by level.
func (s *SQLiteIndex) RecentMissions(level string, limit int) ([]MissionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id, level, seed, attempts, max_steps, digest, text, doc_json FROM missions`
	args := []any{}
	if level != "" {
		q += ` WHERE level = ?`
		args = append(args, level)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MissionRow
	for rows.Next() {
		var r MissionRow
		if err := rows.Scan(&r.ID, &r.Level, &r.Seed, &r.Attempts, &r.MaxSteps, &r.Digest, &r.Text, &r.DocJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MissionEpisodes lists every recorded episode of one mission.
func (s *SQLiteIndex) MissionEpisodes(missionID string) ([]EpisodeRow, error) {
	rows, err := s.db.Query(
		`SELECT id, mission_id, steps, outcome, strict_node FROM episodes WHERE mission_id = ? ORDER BY recorded_at`, missionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EpisodeRow
	for rows.Next() {
		var r EpisodeRow
		var strictNode sql.NullString
		if err := rows.Scan(&r.ID, &r.MissionID, &r.Steps, &r.Outcome, &strictNode); err != nil {
			return nil, err
		}
		r.StrictNode = strictNode.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// OutcomeCounts tallies recorded episodes by outcome.
func (s *SQLiteIndex) OutcomeCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM episodes GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMission, _ := s.db.Prepare(`INSERT OR REPLACE INTO missions(id,level,seed,attempts,max_steps,digest,text,doc_json,created_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertEpisode, _ := s.db.Prepare(`INSERT OR REPLACE INTO episodes(id,mission_id,steps,outcome,strict_node,recorded_at) VALUES(?,?,?,?,?,?)`)
	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO steps(episode_id,step,action,status) VALUES(?,?,?,?)`)
	defer func() {
		if insertMission != nil {
			_ = insertMission.Close()
		}
		if insertEpisode != nil {
			_ = insertEpisode.Close()
		}
		if insertStep != nil {
			_ = insertStep.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	now := func() string { return time.Now().UTC().Format(time.RFC3339Nano) }

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMission:
			m := r.mission
			if insertMission != nil {
				if _, err := tx.Stmt(insertMission).Exec(
					m.ID, m.Level, m.Seed, m.Attempts, m.MaxSteps, m.Digest, m.Text, m.DocJSON, now(),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqEpisode:
			e := r.episode
			if insertEpisode != nil {
				if _, err := tx.Stmt(insertEpisode).Exec(
					e.ID, e.MissionID, e.Steps, e.Outcome, e.StrictNode, now(),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqStep:
			st := r.step
			if insertStep != nil {
				if _, err := tx.Stmt(insertStep).Exec(
					st.EpisodeID, st.Step, st.Action, st.Status,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
