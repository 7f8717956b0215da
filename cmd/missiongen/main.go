// missiongen generates missions offline: from a level name and seed, from
// a JSON mission document, or from a genome vector. It prints the mission
// document, text, and digest, so generation can be inspected and diffed
// without running the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"missiongrid.ai/internal/sim/descriptor"
	"missiongrid.ai/internal/sim/levelgen"
)

func main() {
	var (
		level      = flag.String("level", "goto", "level name from the registry")
		levelsPath = flag.String("levels", "", "level registry overrides (optional)")
		seed       = flag.Int64("seed", 1337, "generation seed")
		count      = flag.Int("count", 1, "number of missions (seed, seed+1, ...)")
		strict     = flag.Bool("strict", false, "mark atomic goals strict")
		missionIn  = flag.String("mission", "", "path to a JSON mission document (overrides -level)")
		genomeIn   = flag.String("genome", "", "path to a JSON genome vector (overrides -level)")
		list       = flag.Bool("list", false, "list registered levels and exit")
		quiet      = flag.Bool("quiet", false, "print only text and digest, not the document")
	)
	flag.Parse()

	reg := levelgen.NewRegistry()
	if p := strings.TrimSpace(*levelsPath); p != "" {
		if err := reg.LoadInto(p); err != nil {
			fatal("load levels: %v", err)
		}
	}

	if *list {
		for _, name := range reg.Names() {
			fmt.Println(name)
		}
		return
	}

	switch {
	case *missionIn != "":
		data, err := os.ReadFile(*missionIn)
		if err != nil {
			fatal("read mission: %v", err)
		}
		doc, err := descriptor.Parse(data)
		if err != nil {
			fatal("parse mission: %v", err)
		}
		m, err := doc.Build(*seed)
		if err != nil {
			fatal("build mission: %v", err)
		}
		emit(m, *quiet)

	case *genomeIn != "":
		data, err := os.ReadFile(*genomeIn)
		if err != nil {
			fatal("read genome: %v", err)
		}
		var v []int
		if err := json.Unmarshal(data, &v); err != nil {
			fatal("parse genome: %v", err)
		}
		m, err := descriptor.DecodeGenome(v, *seed)
		if err != nil {
			fatal("decode genome: %v", err)
		}
		emit(m, *quiet)

	default:
		cfg, err := reg.Lookup(*level)
		if err != nil {
			fatal("%v", err)
		}
		if *strict {
			cfg.Strict = true
		}
		for i := 0; i < *count; i++ {
			m, err := levelgen.Generate(*level, cfg, *seed+int64(i))
			if err != nil {
				fatal("generate: %v", err)
			}
			emit(m, *quiet)
		}
	}
}

func emit(m *levelgen.Mission, quiet bool) {
	fmt.Printf("# level=%s seed=%d attempts=%d digest=%s\n", m.Level, m.Seed, m.Attempts, m.Digest())
	fmt.Printf("# %s\n", m.Text)
	if quiet {
		return
	}
	doc := descriptor.FromMission(m)
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fatal("marshal: %v", err)
	}
	fmt.Println(string(b))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
