package grid

// Room is one cell of the room grid. Interior cells are the walkable area;
// the one-cell border is shared wall with the neighboring rooms.
type Room struct {
	// I is the column, J the row in the room grid.
	I, J int

	Top  Point
	Size int

	// Neighbors[d] is the room table index of the adjacent room in
	// direction d, or -1 at the grid edge.
	Neighbors [4]int

	// Doors[d] is the door table index on the d wall, or -1. A door is
	// shared: it appears in both rooms' slots.
	Doors [4]int

	// WallRemoved[d] marks an unconditional opening to the neighbor.
	WallRemoved [4]bool

	// Objs holds object table indices placed in this room. Mutates as
	// objects are picked up or destroyed.
	Objs []int

	// Locked is construction bookkeeping only: set when a generator locks
	// a door into this room, so later steps avoid placing the matching key
	// inside it.
	Locked bool
}

// HasDoor reports whether a door occupies the d wall.
func (r *Room) HasDoor(d Direction) bool { return r.Doors[d] >= 0 }

// Open reports whether direction d can ever be traversed (door or removed
// wall).
func (r *Room) Open(d Direction) bool { return r.HasDoor(d) || r.WallRemoved[d] }

// Contains reports whether p lies inside the room, border included.
func (r *Room) Contains(p Point) bool {
	return p.X >= r.Top.X && p.X < r.Top.X+r.Size &&
		p.Y >= r.Top.Y && p.Y < r.Top.Y+r.Size
}
