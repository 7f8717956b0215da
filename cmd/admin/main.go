// Command admin inspects the mission index database written by the
// server: recent missions, a mission's recorded episodes, an episode's
// step trail, and outcome totals.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"missiongrid.ai/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "mission":
			missionCmd(os.Args[2:])
			return
		case "episode":
			episodeCmd(os.Args[2:])
			return
		case "stats":
			statsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func openIndex(dataDir string) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index.db"))
	if err != nil {
		fatal("open index: %v", err)
	}
	return idx
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	level := fs.String("level", "", "filter by level")
	limit := fs.Int("limit", 20, "max missions to list")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	missions, err := idx.RecentMissions(*level, *limit)
	if err != nil {
		fatal("list missions: %v", err)
	}
	for _, m := range missions {
		fmt.Printf("%s  level=%s seed=%d attempts=%d digest=%.12s  %q\n",
			m.ID, m.Level, m.Seed, m.Attempts, m.Digest, m.Text)
	}
}

func missionCmd(args []string) {
	fs := flag.NewFlagSet("mission", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	doc := fs.Bool("doc", false, "print the full mission document json")
	_ = fs.Parse(args)
	id := fs.Arg(0)
	if id == "" {
		fatal("usage: admin mission [-data dir] [-doc] <mission-id>")
	}

	idx := openIndex(*dataDir)
	defer idx.Close()

	m, err := idx.Mission(id)
	if err != nil {
		fatal("mission %s: %v", id, err)
	}
	fmt.Printf("mission %s\n  level=%s seed=%d attempts=%d max_steps=%d\n  digest=%s\n  text=%q\n",
		m.ID, m.Level, m.Seed, m.Attempts, m.MaxSteps, m.Digest, m.Text)
	if *doc {
		var pretty json.RawMessage = []byte(m.DocJSON)
		b, err := json.MarshalIndent(pretty, "  ", "  ")
		if err != nil {
			fatal("doc json: %v", err)
		}
		fmt.Printf("  doc=%s\n", b)
	}

	eps, err := idx.MissionEpisodes(id)
	if err != nil {
		fatal("episodes: %v", err)
	}
	for _, e := range eps {
		fmt.Printf("  episode %s  steps=%d outcome=%s\n", e.ID, e.Steps, e.Outcome)
	}
}

func episodeCmd(args []string) {
	fs := flag.NewFlagSet("episode", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)
	id := fs.Arg(0)
	if id == "" {
		fatal("usage: admin episode [-data dir] <episode-id>")
	}

	idx := openIndex(*dataDir)
	defer idx.Close()

	e, err := idx.Episode(id)
	if err != nil {
		fatal("episode %s: %v", id, err)
	}
	fmt.Printf("episode %s\n  mission=%s steps=%d outcome=%s\n", e.ID, e.MissionID, e.Steps, e.Outcome)
	if e.StrictNode != "" {
		fmt.Printf("  strict_node=%s\n", e.StrictNode)
	}

	steps, err := idx.EpisodeSteps(id)
	if err != nil {
		fatal("steps: %v", err)
	}
	for _, s := range steps {
		fmt.Printf("  %4d  %-8s %s\n", s.Step, s.Action, s.Status)
	}
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir)
	defer idx.Close()

	counts, err := idx.OutcomeCounts()
	if err != nil {
		fatal("stats: %v", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Printf("episodes=%d\n", total)
	for _, outcome := range []string{"SUCCESS", "FAILURE", "ONGOING"} {
		if n, ok := counts[outcome]; ok {
			fmt.Printf("  %-8s %d\n", outcome, n)
		}
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
