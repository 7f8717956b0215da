package descriptor

import (
	"fmt"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
	"missiongrid.ai/internal/sim/levelgen"
	"missiongrid.ai/internal/sim/rng"
)

// GenomeLen is the fixed length of a mission genome vector.
const GenomeLen = 189

// Genome slot layout. Object and door records are 6 ints wide; a record
// whose first int is -1 is unused.
const (
	genObjStart  = 8
	genObjEnd    = 116
	genDoorStart = 116
	genDoorEnd   = 188
	genRecord    = 6
	genSelector  = 188
)

// genomeKinds maps genome kind indices to object kinds. The indices come
// from a larger cell-type palette; only the placeable kinds are valid here.
var genomeKinds = map[int]grid.Kind{
	5: grid.KindKey,
	6: grid.KindBall,
	7: grid.KindBox,
}

// genomeColors is the genome color palette. Its order differs from the
// alphabetical Colors list and is fixed by the vector format.
var genomeColors = []grid.Color{
	grid.Red, grid.Green, grid.Blue,
	grid.Purple, grid.Yellow, grid.Grey,
}

// DecodeGenome builds a mission from a 189-int genome vector. Any value
// outside its slot's range is a hard error, never a sampling retry: a
// genome is authored data, not a random draw.
func DecodeGenome(v []int, seed int64) (*levelgen.Mission, error) {
	if len(v) != GenomeLen {
		return nil, fmt.Errorf("genome: want %d ints, got %d", GenomeLen, len(v))
	}

	rows, cols, size := v[0], v[1], v[2]
	if rows < 1 || rows > 3 || cols < 1 || cols > 3 {
		return nil, fmt.Errorf("genome: grid %dx%d outside 1..3", rows, cols)
	}
	if size < 3 || size > 8 {
		return nil, fmt.Errorf("genome: room size %d outside 3..8", size)
	}

	rnd := rng.New(seed)
	g, err := grid.NewRoomGrid(rows, cols, size, rnd)
	if err != nil {
		return nil, fmt.Errorf("genome: %w", err)
	}

	doorColors, err := decodeDoors(v, g)
	if err != nil {
		return nil, err
	}
	objs, err := decodeObjects(v, g)
	if err != nil {
		return nil, err
	}
	if err := decodeAgent(v, g); err != nil {
		return nil, err
	}

	in, err := selectInstr(v[genSelector], g, objs, doorColors, rnd)
	if err != nil {
		return nil, err
	}

	return &levelgen.Mission{
		Level:    "genome",
		Seed:     seed,
		MaxSteps: 8 * size * size * rows * cols,
		World:    g,
		Instr:    in,
		Text:     in.Surface(g),
	}, nil
}

func decodeAgent(v []int, g *grid.RoomGrid) error {
	i, j := v[3], v[4]
	room := g.Room(i, j)
	if room == nil {
		return fmt.Errorf("genome: agent room (%d,%d) out of grid", i, j)
	}
	lx, ly := v[5], v[6]
	if lx < 1 || lx > g.RoomSize-2 || ly < 1 || ly > g.RoomSize-2 {
		return fmt.Errorf("genome: agent offset (%d,%d) outside room interior", lx, ly)
	}
	if v[7] < 0 || v[7] > 3 {
		return fmt.Errorf("genome: agent dir %d outside 0..3", v[7])
	}
	pos := room.Top.Add(grid.Point{X: lx, Y: ly})
	return g.SetAgent(pos, grid.Direction(v[7]))
}

func decodeObjects(v []int, g *grid.RoomGrid) ([]instr.ObjDesc, error) {
	var objs []instr.ObjDesc
	for i := genObjStart; i < genObjEnd; i += genRecord {
		if v[i] == -1 {
			continue
		}
		room := g.Room(v[i], v[i+1])
		if room == nil {
			return nil, fmt.Errorf("genome: object room (%d,%d) out of grid", v[i], v[i+1])
		}
		kind, ok := genomeKinds[v[i+2]]
		if !ok {
			return nil, fmt.Errorf("genome: object kind index %d not placeable", v[i+2])
		}
		if v[i+3] < 0 || v[i+3] >= len(genomeColors) {
			return nil, fmt.Errorf("genome: color index %d outside palette", v[i+3])
		}
		color := genomeColors[v[i+3]]
		lx, ly := v[i+4], v[i+5]
		if lx < 1 || lx > g.RoomSize-2 || ly < 1 || ly > g.RoomSize-2 {
			return nil, fmt.Errorf("genome: object offset (%d,%d) outside room interior", lx, ly)
		}
		pos := room.Top.Add(grid.Point{X: lx, Y: ly})
		if _, err := g.PlaceObject(v[i], v[i+1], kind, color, pos); err != nil {
			return nil, fmt.Errorf("genome: %w", err)
		}
		objs = append(objs, instr.ObjDesc{Kind: kind, Color: color})
	}
	return objs, nil
}

func decodeDoors(v []int, g *grid.RoomGrid) ([]grid.Color, error) {
	var colors []grid.Color
	for i := genDoorStart; i < genDoorEnd; i += genRecord {
		if v[i] == -1 {
			continue
		}
		if g.Room(v[i], v[i+1]) == nil {
			return nil, fmt.Errorf("genome: door room (%d,%d) out of grid", v[i], v[i+1])
		}
		side := v[i+2]
		if side < 0 || side > 3 {
			return nil, fmt.Errorf("genome: door side %d outside 0..3", side)
		}
		if v[i+3] < 0 || v[i+3] >= len(genomeColors) {
			return nil, fmt.Errorf("genome: color index %d outside palette", v[i+3])
		}
		color := genomeColors[v[i+3]]
		if v[i+4] != 0 && v[i+4] != 1 {
			return nil, fmt.Errorf("genome: door locked flag %d not 0/1", v[i+4])
		}
		offset := v[i+5]
		door, err := g.PlaceDoor(v[i], v[i+1], grid.Direction(side), color, v[i+4] == 1, offset)
		if err != nil {
			return nil, fmt.Errorf("genome: %w", err)
		}
		colors = append(colors, door.Color)
	}
	return colors, nil
}

func selectInstr(sel int, g *grid.RoomGrid, objs []instr.ObjDesc, doors []grid.Color, rnd *rng.Stream) (*instr.Instruction, error) {
	var in *instr.Instruction
	switch sel {
	case 0, 1:
		if len(objs) == 0 {
			return nil, fmt.Errorf("genome: selector %d needs at least one object", sel)
		}
		d := rng.Elem(rnd, objs)
		if sel == 0 {
			in = instr.GoTo(d)
		} else {
			in = instr.Pickup(d)
		}
	case 2:
		if len(doors) == 0 {
			return nil, fmt.Errorf("genome: selector 2 needs at least one door")
		}
		in = instr.Open(instr.ObjDesc{Kind: grid.KindDoor, Color: rng.Elem(rnd, doors)})
	case 3:
		if len(objs) < 2 {
			return nil, fmt.Errorf("genome: selector 3 needs at least two objects")
		}
		pair := rng.Subset(rnd, objs, 2)
		in = instr.PutNext(pair[0], pair[1])
	case 4, 5:
		cfg := levelgen.GenConfig{
			Rows: g.Rows, Cols: g.Cols, RoomSize: g.RoomSize,
		}
		if sel == 4 {
			// Plain navigation only: one goto goal, no combinators.
			cfg.ActionKinds = []levelgen.ActionKind{levelgen.ActionGoTo}
			cfg.InstrKinds = []levelgen.InstrKind{levelgen.InstrAction}
		}
		sampled, err := levelgen.SampleInstruction(cfg, g, rnd)
		if err != nil {
			return nil, fmt.Errorf("genome: %w", err)
		}
		return sampled, nil
	default:
		return nil, fmt.Errorf("genome: selector %d outside 0..5", sel)
	}
	if err := levelgen.ValidateInstruction(in, g); err != nil {
		return nil, fmt.Errorf("genome: %w", err)
	}
	return in, nil
}
