package grid

import (
	"fmt"

	"missiongrid.ai/internal/sim/rng"
)

const (
	// placeMaxTries bounds free-cell sampling within one attempt; running
	// out is a generation-level violation, never an infinite loop.
	placeMaxTries = 1000

	// connectMaxItrs bounds ConnectAll. Hitting it means the topology is
	// structurally unconnectable, which is a config bug.
	connectMaxItrs = 5000

	// uniqueMaxTries bounds the per-object draw loop in AddDistractors
	// when allUnique is set.
	uniqueMaxTries = 100
)

// RoomGrid is a Rows x Cols grid of square rooms of RoomSize world cells.
// Adjacent rooms share their border wall, so the world is
// Cols*(RoomSize-1)+1 cells wide.
type RoomGrid struct {
	Rows, Cols, RoomSize int
	Width, Height        int

	rooms   []Room
	doors   []Door
	objects []WorldObject

	Agent       AgentState
	agentPlaced bool

	rnd *rng.Stream
}

func NewRoomGrid(rows, cols, roomSize int, rnd *rng.Stream) (*RoomGrid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("room grid: bad dims %dx%d", rows, cols)
	}
	if roomSize < 3 {
		return nil, fmt.Errorf("room grid: room size %d too small", roomSize)
	}
	g := &RoomGrid{
		Rows:     rows,
		Cols:     cols,
		RoomSize: roomSize,
		Width:    cols*(roomSize-1) + 1,
		Height:   rows*(roomSize-1) + 1,
		Agent:    AgentState{Carrying: -1},
		rnd:      rnd,
	}
	g.rooms = make([]Room, rows*cols)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			r := &g.rooms[j*cols+i]
			r.I, r.J = i, j
			r.Top = Point{i * (roomSize - 1), j * (roomSize - 1)}
			r.Size = roomSize
			for d := 0; d < 4; d++ {
				r.Doors[d] = -1
				r.Neighbors[d] = -1
			}
			if i+1 < cols {
				r.Neighbors[East] = j*cols + i + 1
			}
			if j+1 < rows {
				r.Neighbors[South] = (j+1)*cols + i
			}
			if i > 0 {
				r.Neighbors[West] = j*cols + i - 1
			}
			if j > 0 {
				r.Neighbors[North] = (j-1)*cols + i
			}
		}
	}
	return g, nil
}

// Room returns the room at column i, row j.
func (g *RoomGrid) Room(i, j int) *Room {
	if i < 0 || i >= g.Cols || j < 0 || j >= g.Rows {
		return nil
	}
	return &g.rooms[j*g.Cols+i]
}

func (g *RoomGrid) RoomByIndex(idx int) *Room { return &g.rooms[idx] }

// RoomAt returns the room containing the world cell p. Border cells
// resolve to the right/lower room.
func (g *RoomGrid) RoomAt(p Point) *Room {
	i := p.X / (g.RoomSize - 1)
	j := p.Y / (g.RoomSize - 1)
	if i >= g.Cols {
		i = g.Cols - 1
	}
	if j >= g.Rows {
		j = g.Rows - 1
	}
	return g.Room(i, j)
}

func (g *RoomGrid) Doors() []Door              { return g.doors }
func (g *RoomGrid) Door(id int) *Door          { return &g.doors[id] }
func (g *RoomGrid) Objects() []WorldObject     { return g.objects }
func (g *RoomGrid) Object(id int) *WorldObject { return &g.objects[id] }

// DoorAt returns the door occupying cell p, or nil.
func (g *RoomGrid) DoorAt(p Point) *Door {
	for i := range g.doors {
		if g.doors[i].Pos == p {
			return &g.doors[i]
		}
	}
	return nil
}

// ObjectAt returns the live, uncarried object occupying cell p, or nil.
func (g *RoomGrid) ObjectAt(p Point) *WorldObject {
	for i := range g.objects {
		o := &g.objects[i]
		if o.Alive && !o.Carried && o.Pos == p {
			return o
		}
	}
	return nil
}

// AddDoor creates a door between room (i,j) and its neighbor in dir.
// dir < 0 picks a random direction with a neighbor; empty color picks a
// random color. A second door on the same wall is a sampling violation.
func (g *RoomGrid) AddDoor(i, j int, dir Direction, color Color, locked bool) (*Door, error) {
	room := g.Room(i, j)
	if room == nil {
		return nil, fmt.Errorf("add door: no room (%d,%d)", i, j)
	}
	if dir < 0 {
		var open []Direction
		for d := Direction(0); d < 4; d++ {
			if room.Neighbors[d] >= 0 && !room.Open(d) {
				open = append(open, d)
			}
		}
		if len(open) == 0 {
			return nil, Rejectf("no wall left for a door in room (%d,%d)", i, j)
		}
		dir = rng.Elem(g.rnd, open)
	}
	if room.Neighbors[dir] < 0 {
		return nil, fmt.Errorf("add door: room (%d,%d) has no %s neighbor", i, j, dir)
	}
	if room.HasDoor(dir) {
		return nil, Rejectf("duplicate door on %s wall of room (%d,%d)", dir, i, j)
	}
	if room.WallRemoved[dir] {
		return nil, fmt.Errorf("add door: %s wall of room (%d,%d) was removed", dir, i, j)
	}
	if color == "" {
		color = rng.Elem(g.rnd, Colors)
	}

	door := Door{
		ID:     len(g.doors),
		Color:  color,
		Pos:    g.wallCell(room, dir, g.rnd.IntRange(1, g.RoomSize-1)),
		Locked: locked,
		Open:   false,
		RoomA:  j*g.Cols + i,
		RoomB:  room.Neighbors[dir],
	}
	g.doors = append(g.doors, door)
	room.Doors[dir] = door.ID
	g.rooms[room.Neighbors[dir]].Doors[dir.Opposite()] = door.ID
	if locked {
		room.Locked = true
	}
	return &g.doors[door.ID], nil
}

// PlaceDoor places a door at a fixed wall offset. Used by the declarative
// mission paths, which carry explicit positions instead of sampling them.
func (g *RoomGrid) PlaceDoor(i, j int, dir Direction, color Color, locked bool, offset int) (*Door, error) {
	if offset < 1 || offset > g.RoomSize-2 {
		return nil, fmt.Errorf("place door: offset %d outside wall of size %d", offset, g.RoomSize)
	}
	room := g.Room(i, j)
	if room == nil {
		return nil, fmt.Errorf("place door: no room (%d,%d)", i, j)
	}
	if room.Neighbors[dir] < 0 {
		return nil, fmt.Errorf("place door: room (%d,%d) has no %s neighbor", i, j, dir)
	}
	if room.HasDoor(dir) {
		return nil, Rejectf("duplicate door on %s wall of room (%d,%d)", dir, i, j)
	}
	door := Door{
		ID:     len(g.doors),
		Color:  color,
		Pos:    g.wallCell(room, dir, offset),
		Locked: locked,
		RoomA:  j*g.Cols + i,
		RoomB:  room.Neighbors[dir],
	}
	g.doors = append(g.doors, door)
	room.Doors[dir] = door.ID
	g.rooms[room.Neighbors[dir]].Doors[dir.Opposite()] = door.ID
	if locked {
		room.Locked = true
	}
	return &g.doors[door.ID], nil
}

// wallCell maps a 1-based offset along the dir wall of room to a world
// cell. Offsets stay clear of the corners.
func (g *RoomGrid) wallCell(room *Room, dir Direction, offset int) Point {
	s := g.RoomSize
	switch dir {
	case East:
		return Point{room.Top.X + s - 1, room.Top.Y + offset}
	case South:
		return Point{room.Top.X + offset, room.Top.Y + s - 1}
	case West:
		return Point{room.Top.X, room.Top.Y + offset}
	default:
		return Point{room.Top.X + offset, room.Top.Y}
	}
}

// RemoveWall opens an unconditional passage between (i,j) and its dir
// neighbor. Idempotent.
func (g *RoomGrid) RemoveWall(i, j int, dir Direction) error {
	room := g.Room(i, j)
	if room == nil {
		return fmt.Errorf("remove wall: no room (%d,%d)", i, j)
	}
	if room.Neighbors[dir] < 0 {
		return fmt.Errorf("remove wall: room (%d,%d) has no %s neighbor", i, j, dir)
	}
	if room.HasDoor(dir) {
		return fmt.Errorf("remove wall: %s wall of room (%d,%d) holds a door", dir, i, j)
	}
	room.WallRemoved[dir] = true
	g.rooms[room.Neighbors[dir]].WallRemoved[dir.Opposite()] = true
	return nil
}

// ConnectAll adds unlocked doors over random walls until every room is
// reachable from every other. Bounded; exceeding the bound means the
// configuration cannot be connected and is reported as a hard error.
func (g *RoomGrid) ConnectAll() error {
	for itr := 0; itr < connectMaxItrs; itr++ {
		if g.allRoomsConnected() {
			return nil
		}
		i := g.rnd.IntRange(0, g.Cols)
		j := g.rnd.IntRange(0, g.Rows)
		dir := Direction(g.rnd.IntRange(0, 4))
		room := g.Room(i, j)
		if room.Neighbors[dir] < 0 || room.Open(dir) {
			continue
		}
		// Locked rooms stay sealed behind their one locked door.
		if room.Locked || g.rooms[room.Neighbors[dir]].Locked {
			continue
		}
		if _, err := g.AddDoor(i, j, dir, "", false); err != nil {
			return err
		}
	}
	return fmt.Errorf("connect all: no spanning topology after %d iterations", connectMaxItrs)
}

func (g *RoomGrid) allRoomsConnected() bool {
	seen := make([]bool, len(g.rooms))
	queue := []int{0}
	seen[0] = true
	count := 0
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		count++
		room := &g.rooms[idx]
		for d := Direction(0); d < 4; d++ {
			n := room.Neighbors[d]
			if n < 0 || seen[n] || !room.Open(d) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return count == len(g.rooms)
}

// freeCell samples an unoccupied interior cell of room, bounded.
func (g *RoomGrid) freeCell(room *Room) (Point, error) {
	for try := 0; try < placeMaxTries; try++ {
		p := Point{
			X: g.rnd.IntRange(room.Top.X+1, room.Top.X+g.RoomSize-1),
			Y: g.rnd.IntRange(room.Top.Y+1, room.Top.Y+g.RoomSize-1),
		}
		if g.ObjectAt(p) != nil {
			continue
		}
		if g.Agent.Pos == p && g.agentPlaced {
			continue
		}
		return p, nil
	}
	return Point{}, Rejectf("no free cell in room (%d,%d) after %d tries", room.I, room.J, placeMaxTries)
}

// PlaceAgent drops the agent at a free cell with a random facing.
// i,j < 0 picks a random room. When requireReachable is set, the placement
// is validated with CheckObjsReachable against everything placed so far.
func (g *RoomGrid) PlaceAgent(i, j int, requireReachable bool) (Point, error) {
	if i < 0 || j < 0 {
		i = g.rnd.IntRange(0, g.Cols)
		j = g.rnd.IntRange(0, g.Rows)
	}
	room := g.Room(i, j)
	if room == nil {
		return Point{}, fmt.Errorf("place agent: no room (%d,%d)", i, j)
	}
	pos, err := g.freeCell(room)
	if err != nil {
		return Point{}, err
	}
	g.Agent.Pos = pos
	g.Agent.Dir = Direction(g.rnd.IntRange(0, 4))
	g.Agent.Carrying = -1
	g.agentPlaced = true
	if requireReachable {
		if err := g.CheckObjsReachable(); err != nil {
			return Point{}, err
		}
	}
	return pos, nil
}

// SetAgent pins the agent to an explicit pose (declarative missions).
func (g *RoomGrid) SetAgent(pos Point, dir Direction) error {
	if pos.X <= 0 || pos.Y <= 0 || pos.X >= g.Width-1 || pos.Y >= g.Height-1 {
		return fmt.Errorf("set agent: %v outside the walkable area", pos)
	}
	if g.ObjectAt(pos) != nil || g.DoorAt(pos) != nil {
		return fmt.Errorf("set agent: cell %v occupied", pos)
	}
	g.Agent = AgentState{Pos: pos, Dir: dir, Carrying: -1}
	g.agentPlaced = true
	return nil
}

// AddObject places a new object at a free cell of room (i,j). Empty kind
// or color draws from the palettes.
func (g *RoomGrid) AddObject(i, j int, kind Kind, color Color) (*WorldObject, error) {
	if kind == "" {
		kind = rng.Elem(g.rnd, PlaceableKinds)
	}
	if color == "" {
		color = rng.Elem(g.rnd, Colors)
	}
	room := g.Room(i, j)
	if room == nil {
		return nil, fmt.Errorf("add object: no room (%d,%d)", i, j)
	}
	pos, err := g.freeCell(room)
	if err != nil {
		return nil, err
	}
	return g.putObject(room, kind, color, pos), nil
}

// PlaceObject places an object at an explicit cell (declarative missions).
func (g *RoomGrid) PlaceObject(i, j int, kind Kind, color Color, pos Point) (*WorldObject, error) {
	room := g.Room(i, j)
	if room == nil {
		return nil, fmt.Errorf("place object: no room (%d,%d)", i, j)
	}
	if !room.Contains(pos) {
		return nil, fmt.Errorf("place object: %v outside room (%d,%d)", pos, i, j)
	}
	if g.ObjectAt(pos) != nil || g.DoorAt(pos) != nil {
		return nil, Rejectf("cell %v already occupied", pos)
	}
	return g.putObject(room, kind, color, pos), nil
}

func (g *RoomGrid) putObject(room *Room, kind Kind, color Color, pos Point) *WorldObject {
	obj := WorldObject{
		ID:    len(g.objects),
		Kind:  kind,
		Color: color,
		Pos:   pos,
		Alive: true,
	}
	g.objects = append(g.objects, obj)
	room.Objs = append(room.Objs, obj.ID)
	return &g.objects[obj.ID]
}

// AddDistractors scatters count random objects. i,j < 0 spreads them over
// random rooms. With allUnique set, no two placed objects (nor any object
// already in the world) may share both kind and color; each draw is
// bounded, and exhaustion is a sampling violation.
func (g *RoomGrid) AddDistractors(i, j, count int, allUnique bool) ([]*WorldObject, error) {
	taken := map[[2]string]bool{}
	if allUnique {
		for idx := range g.objects {
			o := &g.objects[idx]
			taken[[2]string{string(o.Kind), string(o.Color)}] = true
		}
	}

	var placed []*WorldObject
	for n := 0; n < count; n++ {
		var kind Kind
		var color Color
		ok := false
		for try := 0; try < uniqueMaxTries; try++ {
			kind = rng.Elem(g.rnd, PlaceableKinds)
			color = rng.Elem(g.rnd, Colors)
			if !allUnique || !taken[[2]string{string(kind), string(color)}] {
				ok = true
				break
			}
		}
		if !ok {
			return nil, Rejectf("no unique kind/color pair left after %d tries", uniqueMaxTries)
		}

		ri, rj := i, j
		if ri < 0 || rj < 0 {
			ri = g.rnd.IntRange(0, g.Cols)
			rj = g.rnd.IntRange(0, g.Rows)
		}
		obj, err := g.AddObject(ri, rj, kind, color)
		if err != nil {
			return nil, err
		}
		taken[[2]string{string(kind), string(color)}] = true
		placed = append(placed, obj)
	}
	return placed, nil
}
