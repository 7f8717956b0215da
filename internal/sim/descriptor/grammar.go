package descriptor

import (
	"fmt"
	"strings"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
)

// The instruction mini-grammar: `go to X`, `pick up X`, `open X`,
// `put X next to Y`, with `then`/`after` binding looser than `and`,
// parsed left to right. Filler words (articles, "you", "your", ...) are
// ignored, so surface text round-trips through the parser.

var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true,
	"you": true, "your": true,
	"on": true, "in": true, "of": true,
	"object": true,
}

// ParseInstr parses the tokenized grammar into a goal tree.
func ParseInstr(text string) (*instr.Instruction, error) {
	var toks []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		// Surface text glues punctuation onto words ("ball, then").
		f = strings.Trim(f, ",.;:!?")
		if f != "" {
			toks = append(toks, f)
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty instruction")
	}
	return parseTokens(toks)
}

func parseTokens(toks []string) (*instr.Instruction, error) {
	// Sequencing first: it binds the loosest.
	for i, t := range toks {
		switch t {
		case "then":
			a, err := parseTokens(toks[:i])
			if err != nil {
				return nil, err
			}
			b, err := parseTokens(toks[i+1:])
			if err != nil {
				return nil, err
			}
			return instr.Before(a, b), nil
		case "after":
			a, err := parseTokens(toks[:i])
			if err != nil {
				return nil, err
			}
			b, err := parseTokens(toks[i+1:])
			if err != nil {
				return nil, err
			}
			return instr.After(a, b), nil
		}
	}
	for i, t := range toks {
		if t == "and" {
			a, err := parseTokens(toks[:i])
			if err != nil {
				return nil, err
			}
			b, err := parseTokens(toks[i+1:])
			if err != nil {
				return nil, err
			}
			return instr.And(a, b), nil
		}
	}
	return parseAtomic(toks)
}

func parseAtomic(toks []string) (*instr.Instruction, error) {
	for i, t := range toks {
		switch t {
		case "go":
			return atomicOf(instr.GoTo, toks[i+1:])
		case "pick":
			return atomicOf(instr.Pickup, toks[i+1:])
		case "open":
			return atomicOf(instr.Open, toks[i+1:])
		case "put":
			rest := toks[i+1:]
			for j, st := range rest {
				if st == "next" {
					move, err := parseObj(rest[:j])
					if err != nil {
						return nil, err
					}
					fixed, err := parseObj(rest[j+1:])
					if err != nil {
						return nil, err
					}
					return instr.PutNext(move, fixed), nil
				}
			}
			return nil, fmt.Errorf("put without next")
		}
	}
	return nil, fmt.Errorf("no verb in %q", strings.Join(toks, " "))
}

func atomicOf(mk func(instr.ObjDesc) *instr.Instruction, toks []string) (*instr.Instruction, error) {
	d, err := parseObj(toks)
	if err != nil {
		return nil, err
	}
	return mk(d), nil
}

// parseObj scans for color, kind, and location words; anything else must
// be filler or a connective ("to", "up") or the reference is malformed.
func parseObj(toks []string) (instr.ObjDesc, error) {
	var d instr.ObjDesc
	for _, t := range toks {
		switch {
		case grid.ValidColor(grid.Color(t)):
			d.Color = grid.Color(t)
		case grid.ValidKind(grid.Kind(t)):
			d.Kind = grid.Kind(t)
		case instr.ValidLoc(instr.Loc(t)):
			d.Loc = instr.Loc(t)
		case t == "to" || t == "up" || fillerWords[t]:
		default:
			return d, fmt.Errorf("unknown word %q in object reference", t)
		}
	}
	if d.Degenerate() {
		return d, fmt.Errorf("object reference %q has no attributes", strings.Join(toks, " "))
	}
	return d, nil
}

// FormatInstr renders a goal tree back into the grammar. The output is
// world-independent (no article choice) and reparses to an equal tree.
func FormatInstr(in *instr.Instruction) string {
	switch in.Op {
	case instr.OpGoTo:
		return "go to " + formatObj(in.Desc)
	case instr.OpOpen:
		return "open " + formatObj(in.Desc)
	case instr.OpPickup:
		return "pick up " + formatObj(in.Desc)
	case instr.OpPutNext:
		return "put " + formatObj(in.Desc) + " next to " + formatObj(in.Fixed)
	case instr.OpBefore:
		return FormatInstr(in.A) + " then " + FormatInstr(in.B)
	case instr.OpAfter:
		return FormatInstr(in.A) + " after you " + FormatInstr(in.B)
	case instr.OpAnd:
		return FormatInstr(in.A) + " and " + FormatInstr(in.B)
	}
	return ""
}

func formatObj(d instr.ObjDesc) string {
	var parts []string
	if d.Color != "" {
		parts = append(parts, string(d.Color))
	}
	if d.Kind != "" {
		parts = append(parts, string(d.Kind))
	} else {
		parts = append(parts, "object")
	}
	switch d.Loc {
	case instr.LocLeft:
		parts = append(parts, "on your left")
	case instr.LocRight:
		parts = append(parts, "on your right")
	case instr.LocFront:
		parts = append(parts, "in front of you")
	case instr.LocBehind:
		parts = append(parts, "behind you")
	}
	return strings.Join(parts, " ")
}
