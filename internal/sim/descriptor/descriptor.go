// Package descriptor holds the declarative mission formats: a JSON
// document and a fixed-width genome vector. Both decode into the same
// build path over the room grid, as an alternative to pure random
// generation.
package descriptor

import (
	"encoding/json"
	"fmt"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/levelgen"
	"missiongrid.ai/internal/sim/rng"
)

// Mission is the JSON mission document. Room coordinates are (col, row);
// object and door positions are room-local, matching the wire schema in
// schemas/mission.schema.json.
type Mission struct {
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	RoomSize int    `json:"room_size"`
	MaxSteps int    `json:"max_steps,omitempty"`
	Agent    Agent  `json:"agent"`
	Objects  []Obj  `json:"objects,omitempty"`
	Doors    []Door `json:"doors,omitempty"`
	Instr    string `json:"instr"`
}

type Agent struct {
	Room [2]int `json:"room"`
	Pos  [2]int `json:"pos"`
	Dir  int    `json:"dir"`
}

type Obj struct {
	Room  [2]int `json:"room"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
	Pos   [2]int `json:"pos"`
}

type Door struct {
	Room   [2]int `json:"room"`
	Side   int    `json:"side"`
	Color  string `json:"color"`
	Locked bool   `json:"locked"`
	Offset int    `json:"offset"`
}

// Parse decodes and structurally validates a JSON mission document.
// Every violation is a hard error: declarative missions are authored,
// not sampled, so there is nothing to retry.
func Parse(data []byte) (*Mission, error) {
	var m Mission
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mission json: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("mission json: %w", err)
	}
	return &m, nil
}

func (m *Mission) validate() error {
	if m.Rows < 1 || m.Cols < 1 {
		return fmt.Errorf("bad room grid %dx%d", m.Rows, m.Cols)
	}
	if m.RoomSize < 3 {
		return fmt.Errorf("room size %d too small", m.RoomSize)
	}
	if m.Agent.Dir < 0 || m.Agent.Dir > 3 {
		return fmt.Errorf("agent dir %d out of range", m.Agent.Dir)
	}
	if err := m.checkRoom(m.Agent.Room); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := m.checkLocal(m.Agent.Pos); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	for i, o := range m.Objects {
		if err := m.checkRoom(o.Room); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		if err := m.checkLocal(o.Pos); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		if !grid.ValidKind(grid.Kind(o.Kind)) || grid.Kind(o.Kind) == grid.KindDoor {
			return fmt.Errorf("object %d: bad kind %q", i, o.Kind)
		}
		if !grid.ValidColor(grid.Color(o.Color)) {
			return fmt.Errorf("object %d: bad color %q", i, o.Color)
		}
	}
	for i, d := range m.Doors {
		if err := m.checkRoom(d.Room); err != nil {
			return fmt.Errorf("door %d: %w", i, err)
		}
		if d.Side < 0 || d.Side > 3 {
			return fmt.Errorf("door %d: bad side %d", i, d.Side)
		}
		if !grid.ValidColor(grid.Color(d.Color)) {
			return fmt.Errorf("door %d: bad color %q", i, d.Color)
		}
		if d.Offset < 1 || d.Offset > m.RoomSize-2 {
			return fmt.Errorf("door %d: offset %d outside wall", i, d.Offset)
		}
	}
	if m.Instr == "" {
		return fmt.Errorf("missing instr")
	}
	return nil
}

func (m *Mission) checkRoom(rc [2]int) error {
	if rc[0] < 0 || rc[0] >= m.Cols || rc[1] < 0 || rc[1] >= m.Rows {
		return fmt.Errorf("room (%d,%d) outside %dx%d grid", rc[0], rc[1], m.Cols, m.Rows)
	}
	return nil
}

// Room-local positions must land in the interior; the border cells are the
// shared walls.
func (m *Mission) checkLocal(p [2]int) error {
	if p[0] < 1 || p[0] > m.RoomSize-2 || p[1] < 1 || p[1] > m.RoomSize-2 {
		return fmt.Errorf("pos (%d,%d) outside room interior", p[0], p[1])
	}
	return nil
}

// Build materializes the document into a playable mission. seed feeds the
// RNG stream only where the document itself asks for randomness (the
// genome instruction selectors); fully explicit documents ignore it.
func (m *Mission) Build(seed int64) (*levelgen.Mission, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	rnd := rng.New(seed)
	g, err := grid.NewRoomGrid(m.Rows, m.Cols, m.RoomSize, rnd)
	if err != nil {
		return nil, err
	}

	for i, d := range m.Doors {
		_, err := g.PlaceDoor(d.Room[0], d.Room[1], grid.Direction(d.Side), grid.Color(d.Color), d.Locked, d.Offset)
		if err != nil {
			return nil, fmt.Errorf("door %d: %w", i, err)
		}
	}
	for i, o := range m.Objects {
		room := g.Room(o.Room[0], o.Room[1])
		pos := room.Top.Add(grid.Point{X: o.Pos[0], Y: o.Pos[1]})
		if _, err := g.PlaceObject(o.Room[0], o.Room[1], grid.Kind(o.Kind), grid.Color(o.Color), pos); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
	}

	aroom := g.Room(m.Agent.Room[0], m.Agent.Room[1])
	apos := aroom.Top.Add(grid.Point{X: m.Agent.Pos[0], Y: m.Agent.Pos[1]})
	if err := g.SetAgent(apos, grid.Direction(m.Agent.Dir)); err != nil {
		return nil, err
	}

	in, err := ParseInstr(m.Instr)
	if err != nil {
		return nil, err
	}
	if err := levelgen.ValidateInstruction(in, g); err != nil {
		return nil, err
	}

	maxSteps := m.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 8 * m.RoomSize * m.RoomSize * m.Rows * m.Cols
	}
	return &levelgen.Mission{
		Level:    "descriptor",
		Seed:     seed,
		MaxSteps: maxSteps,
		World:    g,
		Instr:    in,
		Text:     in.Surface(g),
	}, nil
}

// FromMission exports a generated mission back into document form, the
// shape the transport sends to clients.
func FromMission(m *levelgen.Mission) *Mission {
	g := m.World
	out := &Mission{
		Rows:     g.Rows,
		Cols:     g.Cols,
		RoomSize: g.RoomSize,
		MaxSteps: m.MaxSteps,
		Instr:    FormatInstr(m.Instr),
	}
	aroom := g.RoomAt(g.Agent.Pos)
	out.Agent = Agent{
		Room: [2]int{aroom.I, aroom.J},
		Pos:  [2]int{g.Agent.Pos.X - aroom.Top.X, g.Agent.Pos.Y - aroom.Top.Y},
		Dir:  int(g.Agent.Dir),
	}
	for _, o := range g.Objects() {
		if !o.Alive || o.Carried {
			continue
		}
		room := g.RoomAt(o.Pos)
		out.Objects = append(out.Objects, Obj{
			Room:  [2]int{room.I, room.J},
			Kind:  string(o.Kind),
			Color: string(o.Color),
			Pos:   [2]int{o.Pos.X - room.Top.X, o.Pos.Y - room.Top.Y},
		})
	}
	for _, d := range g.Doors() {
		room := g.RoomByIndex(d.RoomA)
		side, offset := doorSide(room, d.Pos)
		out.Doors = append(out.Doors, Door{
			Room:   [2]int{room.I, room.J},
			Side:   side,
			Color:  string(d.Color),
			Locked: d.Locked,
			Offset: offset,
		})
	}
	return out
}

func doorSide(room *grid.Room, pos grid.Point) (side, offset int) {
	switch {
	case pos.X == room.Top.X+room.Size-1:
		return int(grid.East), pos.Y - room.Top.Y
	case pos.Y == room.Top.Y+room.Size-1:
		return int(grid.South), pos.X - room.Top.X
	case pos.X == room.Top.X:
		return int(grid.West), pos.Y - room.Top.Y
	default:
		return int(grid.North), pos.X - room.Top.X
	}
}
