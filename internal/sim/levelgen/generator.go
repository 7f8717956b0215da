package levelgen

import (
	"errors"
	"fmt"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
	"missiongrid.ai/internal/sim/rng"
)

// ErrBudgetExceeded means the retry cap was hit: the configuration is
// structurally infeasible and the caller must not retry around it.
var ErrBudgetExceeded = errors.New("generation budget exceeded")

// Generate builds one mission. The whole attempt restarts on any sampling
// violation, with the same RNG stream advanced, so a fixed seed always
// yields the same mission.
func Generate(level string, cfg GenConfig, seed int64) (*Mission, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("level %q: %w", level, err)
	}
	rnd := rng.New(seed)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		m, err := build(level, cfg, seed, rnd)
		if err != nil {
			if grid.IsReject(err) {
				continue
			}
			return nil, fmt.Errorf("level %q: %w", level, err)
		}
		m.Attempts = attempt
		return m, nil
	}
	return nil, fmt.Errorf("%w: level %q seed %d after %d attempts",
		ErrBudgetExceeded, level, seed, cfg.MaxAttempts)
}

func build(level string, cfg GenConfig, seed int64, rnd *rng.Stream) (*Mission, error) {
	g, err := grid.NewRoomGrid(cfg.Rows, cfg.Cols, cfg.RoomSize, rnd)
	if err != nil {
		return nil, err
	}

	lockedRoom := -1
	if cfg.LockedRoom {
		lockedRoom, err = addLockedRoom(g, rnd)
		if err != nil {
			return nil, err
		}
	}

	if err := g.ConnectAll(); err != nil {
		return nil, err
	}

	// Extra doors cluster on the center room, where the agent starts.
	ci, cj := cfg.Cols/2, cfg.Rows/2
	if cfg.NumDoors > 0 {
		colors := rng.Subset(rnd, grid.Colors, cfg.NumDoors)
		for _, c := range colors {
			if _, err := g.AddDoor(ci, cj, -1, c, false); err != nil {
				return nil, err
			}
		}
	}

	if cfg.NumDists > 0 {
		if _, err := g.AddDistractors(-1, -1, cfg.NumDists, cfg.DistsUnique); err != nil {
			return nil, err
		}
	}

	if err := placeAgent(g, cfg, lockedRoom, ci, cj, rnd); err != nil {
		return nil, err
	}

	if err := g.CheckObjsReachable(); err != nil {
		return nil, err
	}

	in, err := sampleInstr(cfg, g, rnd)
	if err != nil {
		return nil, err
	}
	if err := validateInstr(in, g); err != nil {
		return nil, err
	}

	return &Mission{
		Level:    level,
		Seed:     seed,
		MaxSteps: cfg.MaxSteps,
		World:    g,
		Instr:    in,
		Text:     in.Surface(g),
	}, nil
}

// addLockedRoom seals a random room behind a locked door and drops the
// matching key in some other room. Returns the sealed room's index.
func addLockedRoom(g *grid.RoomGrid, rnd *rng.Stream) (int, error) {
	i := rnd.IntRange(0, g.Cols)
	j := rnd.IntRange(0, g.Rows)
	door, err := g.AddDoor(i, j, -1, "", true)
	if err != nil {
		return -1, err
	}
	// Key anywhere but the sealed room, or it can never be fetched.
	for {
		ki := rnd.IntRange(0, g.Cols)
		kj := rnd.IntRange(0, g.Rows)
		if ki == i && kj == j {
			continue
		}
		if _, err := g.AddObject(ki, kj, grid.KindKey, door.Color); err != nil {
			return -1, err
		}
		return door.RoomA, nil
	}
}

func placeAgent(g *grid.RoomGrid, cfg GenConfig, lockedRoom, ci, cj int, rnd *rng.Stream) error {
	if cfg.NumDoors > 0 {
		_, err := g.PlaceAgent(ci, cj, false)
		return err
	}
	for try := 0; try < 100; try++ {
		i := rnd.IntRange(0, g.Cols)
		j := rnd.IntRange(0, g.Rows)
		if lockedRoom >= 0 && g.RoomByIndex(lockedRoom) == g.Room(i, j) {
			continue
		}
		_, err := g.PlaceAgent(i, j, false)
		return err
	}
	return grid.Rejectf("no start room outside the locked room")
}

// SampleInstruction draws a goal tree for an already-built world and
// validates it. The declarative mission paths use it when a descriptor
// asks for a randomized instruction.
func SampleInstruction(cfg GenConfig, g *grid.RoomGrid, rnd *rng.Stream) (*instr.Instruction, error) {
	cfg.applyDefaults()
	in, err := sampleInstr(cfg, g, rnd)
	if err != nil {
		return nil, err
	}
	if err := ValidateInstruction(in, g); err != nil {
		return nil, err
	}
	return in, nil
}

// ValidateInstruction re-checks the generation-time guarantees for an
// instruction built outside the sampler (parsed or decoded).
func ValidateInstruction(in *instr.Instruction, g *grid.RoomGrid) error {
	return validateInstr(in, g)
}

func sampleInstr(cfg GenConfig, g *grid.RoomGrid, rnd *rng.Stream) (*instr.Instruction, error) {
	kind := rng.Elem(rnd, cfg.InstrKinds)
	switch kind {
	case InstrAnd:
		a, err := sampleAction(cfg, g, rnd)
		if err != nil {
			return nil, err
		}
		b, err := sampleAction(cfg, g, rnd)
		if err != nil {
			return nil, err
		}
		return instr.And(a, b), nil
	case InstrSeq:
		a, err := sampleAction(cfg, g, rnd)
		if err != nil {
			return nil, err
		}
		b, err := sampleAction(cfg, g, rnd)
		if err != nil {
			return nil, err
		}
		if rnd.Bool() {
			return instr.Before(a, b), nil
		}
		return instr.After(a, b), nil
	default:
		return sampleAction(cfg, g, rnd)
	}
}

func sampleAction(cfg GenConfig, g *grid.RoomGrid, rnd *rng.Stream) (*instr.Instruction, error) {
	akind := rng.Elem(rnd, cfg.ActionKinds)

	var node *instr.Instruction
	switch akind {
	case ActionOpen:
		doors := g.Doors()
		if len(doors) == 0 {
			return nil, grid.Rejectf("open goal in a doorless world")
		}
		d := rng.Elem(rnd, doors)
		desc, err := describe(cfg, g, rnd, grid.KindDoor, d.Color, d.Pos)
		if err != nil {
			return nil, err
		}
		node = instr.Open(desc)

	case ActionPickup:
		objs := liveObjects(g)
		if len(objs) == 0 {
			return nil, grid.Rejectf("pickup goal with no objects placed")
		}
		o := rng.Elem(rnd, objs)
		desc, err := describe(cfg, g, rnd, o.Kind, o.Color, o.Pos)
		if err != nil {
			return nil, err
		}
		node = instr.Pickup(desc)

	case ActionPutNext:
		objs := liveObjects(g)
		if len(objs) < 2 {
			return nil, grid.Rejectf("putnext goal with fewer than two objects")
		}
		pair := rng.Subset(rnd, objs, 2)
		move, err := describe(cfg, g, rnd, pair[0].Kind, pair[0].Color, pair[0].Pos)
		if err != nil {
			return nil, err
		}
		fixed, err := describe(cfg, g, rnd, pair[1].Kind, pair[1].Color, pair[1].Pos)
		if err != nil {
			return nil, err
		}
		node = instr.PutNext(move, fixed)

	default: // goto
		targets := gotoTargets(g)
		if len(targets) == 0 {
			return nil, grid.Rejectf("goto goal in an empty world")
		}
		t := rng.Elem(rnd, targets)
		desc, err := describe(cfg, g, rnd, t.Kind(), t.Color(), t.Pos())
		if err != nil {
			return nil, err
		}
		node = instr.GoTo(desc)
	}

	node.Strict = cfg.Strict
	return node, nil
}

func liveObjects(g *grid.RoomGrid) []grid.WorldObject {
	var out []grid.WorldObject
	for _, o := range g.Objects() {
		if o.Alive && !o.Carried {
			out = append(out, o)
		}
	}
	return out
}

func gotoTargets(g *grid.RoomGrid) []instr.Target {
	var out []instr.Target
	for _, o := range liveObjects(g) {
		out = append(out, instr.Target{Object: g.Object(o.ID)})
	}
	for _, d := range g.Doors() {
		out = append(out, instr.Target{Door: g.Door(d.ID)})
	}
	return out
}

// describe builds a descriptor for a concrete intended target, selecting
// by type, color, both, or (when permitted) type plus relative location.
func describe(cfg GenConfig, g *grid.RoomGrid, rnd *rng.Stream, kind grid.Kind, color grid.Color, pos grid.Point) (instr.ObjDesc, error) {
	modes := []string{"type", "color", "both"}
	if cfg.Locations {
		modes = append(modes, "loc")
	}
	switch rng.Elem(rnd, modes) {
	case "type":
		return instr.ObjDesc{Kind: kind}, nil
	case "color":
		return instr.ObjDesc{Color: color}, nil
	case "loc":
		locs := instr.MatchingLocs(pos, g.Agent)
		if len(locs) > 0 {
			return instr.ObjDesc{Kind: kind, Loc: rng.Elem(rnd, locs)}, nil
		}
		fallthrough
	default:
		return instr.ObjDesc{Kind: kind, Color: color}, nil
	}
}

// validateInstr enforces the generation-time guarantees: a well-formed
// tree whose every descriptor resolves to at least one live target, and a
// PutNext whose two references cannot collapse onto one object.
func validateInstr(in *instr.Instruction, g *grid.RoomGrid) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return walkInstr(in, func(node *instr.Instruction) error {
		if !node.Atomic() {
			return nil
		}
		set := instr.Resolve(node.Desc, g)
		if len(set) == 0 {
			return grid.Rejectf("descriptor %v resolves to nothing", node.Desc)
		}
		if node.Op == instr.OpPutNext {
			fixedSet := instr.Resolve(node.Fixed, g)
			if len(fixedSet) == 0 {
				return grid.Rejectf("descriptor %v resolves to nothing", node.Fixed)
			}
			if len(set) == 1 && len(fixedSet) == 1 &&
				set[0].Object != nil && fixedSet[0].Object != nil &&
				set[0].Object.ID == fixedSet[0].Object.ID {
				return grid.Rejectf("putnext references collapse onto one object")
			}
		}
		return nil
	})
}

func walkInstr(in *instr.Instruction, fn func(*instr.Instruction) error) error {
	if err := fn(in); err != nil {
		return err
	}
	if in.Atomic() {
		return nil
	}
	if err := walkInstr(in.A, fn); err != nil {
		return err
	}
	return walkInstr(in.B, fn)
}
