// Package grid owns the room topology of a mission: the room grid, the
// wall/door adjacency between rooms, object placement, and the live world
// state an episode mutates (door states, object positions, the agent).
//
// Rooms and doors live in flat indexed tables; every cross-reference is a
// table index, never a pointer, so the room graph carries no cycles.
package grid

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Direction doubles as a door slot index on a room.
// 0=east, 1=south, 2=west, 3=north.
type Direction int

const (
	East Direction = iota
	South
	West
	North
)

func (d Direction) Opposite() Direction { return (d + 2) % 4 }

func (d Direction) Vec() Point {
	switch d {
	case East:
		return Point{1, 0}
	case South:
		return Point{0, 1}
	case West:
		return Point{-1, 0}
	default:
		return Point{0, -1}
	}
}

// RightVec is the direction vector rotated a quarter turn clockwise.
// Used for "left"/"right" relative object locations.
func (d Direction) RightVec() Point {
	return ((d + 1) % 4).Vec()
}

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "north"
	}
}

func manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Adjacent reports 4-neighborhood adjacency (not the same cell).
func Adjacent(a, b Point) bool {
	return manhattan(a, b) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
