// Command replay re-runs a recorded episode against a regenerated mission
// and verifies that every step produced the same verdict. Generation is
// deterministic in the seed, so a divergence means either the logs are
// damaged or the simulator changed underneath them.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"missiongrid.ai/internal/persistence/log"
	"missiongrid.ai/internal/sim/descriptor"
	"missiongrid.ai/internal/sim/episode"
	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/levelgen"
)

func main() {
	var (
		dataDir     = flag.String("data", "./data", "runtime data directory")
		episodeID   = flag.String("episode", "", "episode id to replay")
		level       = flag.String("level", "", "level the episode was generated from")
		levelsPath  = flag.String("levels", "", "levels.yaml the server ran with (optional)")
		seed        = flag.Int64("seed", 0, "mission seed from the WELCOME frame")
		strict      = flag.Bool("strict", false, "episode was requested with strict goals")
		missionPath = flag.String("mission", "", "mission document json (overrides -level)")
	)
	flag.Parse()

	if *episodeID == "" {
		fatal("missing -episode")
	}

	steps, err := loadSteps(filepath.Join(*dataDir, "episodes"), *episodeID)
	if err != nil {
		fatal("load steps: %v", err)
	}
	if len(steps) == 0 {
		fatal("no steps recorded for episode %s", *episodeID)
	}

	m, err := buildMission(*missionPath, *level, *levelsPath, *seed, *strict)
	if err != nil {
		fatal("rebuild mission: %v", err)
	}

	ep := episode.New(m)
	for _, s := range steps {
		if ep.Over() {
			fatal("step %d: log continues past the episode's end", s.Step)
		}
		_, verdict, err := ep.Step(grid.Action(s.Action))
		if err != nil {
			fatal("step %d: %v", s.Step, err)
		}
		if ep.Steps() != s.Step {
			fatal("step mismatch: replayed %d, log says %d", ep.Steps(), s.Step)
		}
		if string(verdict.Status) != s.Status {
			fatal("verdict mismatch at step %d: replayed %s, log says %s",
				s.Step, verdict.Status, s.Status)
		}
		if verdict.StrictNode != s.StrictNode {
			fatal("strict node mismatch at step %d: %q vs %q",
				s.Step, verdict.StrictNode, s.StrictNode)
		}
	}

	fmt.Printf("replay ok: episode=%s steps=%d outcome=%s digest=%s\n",
		*episodeID, ep.Steps(), ep.Outcome(), m.Digest())
}

func buildMission(missionPath, level, levelsPath string, seed int64, strict bool) (*levelgen.Mission, error) {
	if missionPath != "" {
		b, err := os.ReadFile(missionPath)
		if err != nil {
			return nil, err
		}
		doc, err := descriptor.Parse(b)
		if err != nil {
			return nil, err
		}
		return doc.Build(seed)
	}
	if level == "" {
		return nil, fmt.Errorf("need -level or -mission")
	}
	reg := levelgen.NewRegistry()
	if err := reg.LoadInto(levelsPath); err != nil {
		return nil, err
	}
	cfg, err := reg.Lookup(level)
	if err != nil {
		return nil, err
	}
	if strict {
		cfg.Strict = true
	}
	return levelgen.Generate(level, cfg, seed)
}

// loadSteps scans every day-rotated step log for the episode's entries.
func loadSteps(dir, episodeID string) ([]log.StepLogEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []log.StepLogEntry
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "steps-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		if err := scanFile(filepath.Join(dir, name), episodeID, &out); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func scanFile(path, episodeID string, out *[]log.StepLogEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var entry log.StepLogEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return err
		}
		if entry.EpisodeID == episodeID {
			*out = append(*out, entry)
		}
	}
	return sc.Err()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
