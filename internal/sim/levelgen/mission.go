package levelgen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
)

// Mission is one playable (world, instruction) pair.
type Mission struct {
	Level    string
	Seed     int64
	Attempts int
	MaxSteps int

	World *grid.RoomGrid
	Instr *instr.Instruction
	Text  string
}

// digestView is the canonical serialization hashed by Digest. Field order
// is fixed; changing it breaks recorded digests.
type digestView struct {
	Level    string       `json:"level"`
	Seed     int64        `json:"seed"`
	Rows     int          `json:"rows"`
	Cols     int          `json:"cols"`
	RoomSize int          `json:"room_size"`
	AgentPos grid.Point   `json:"agent_pos"`
	AgentDir int          `json:"agent_dir"`
	Doors    []digestDoor `json:"doors"`
	Objects  []digestObj  `json:"objects"`
	Instr    string       `json:"instr"`
}

type digestDoor struct {
	Color  grid.Color `json:"color"`
	Pos    grid.Point `json:"pos"`
	Locked bool       `json:"locked"`
}

type digestObj struct {
	Kind  grid.Kind  `json:"kind"`
	Color grid.Color `json:"color"`
	Pos   grid.Point `json:"pos"`
}

// Digest fingerprints the generated mission: topology, placement, and
// instruction. Two missions with equal digests are bit-identical as far
// as an episode can tell.
func (m *Mission) Digest() string {
	v := digestView{
		Level:    m.Level,
		Seed:     m.Seed,
		Rows:     m.World.Rows,
		Cols:     m.World.Cols,
		RoomSize: m.World.RoomSize,
		AgentPos: m.World.Agent.Pos,
		AgentDir: int(m.World.Agent.Dir),
		Instr:    m.Instr.String(),
	}
	for _, d := range m.World.Doors() {
		v.Doors = append(v.Doors, digestDoor{Color: d.Color, Pos: d.Pos, Locked: d.Locked})
	}
	for _, o := range m.World.Objects() {
		if !o.Alive {
			continue
		}
		v.Objects = append(v.Objects, digestObj{Kind: o.Kind, Color: o.Color, Pos: o.Pos})
	}
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
