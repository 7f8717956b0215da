package grid

type Color string

const (
	Blue   Color = "blue"
	Green  Color = "green"
	Grey   Color = "grey"
	Purple Color = "purple"
	Red    Color = "red"
	Yellow Color = "yellow"
)

// Colors is the full palette, sorted. Generators draw from this slice, so
// its order is part of the deterministic-generation contract.
var Colors = []Color{Blue, Green, Grey, Purple, Red, Yellow}

func ValidColor(c Color) bool {
	for _, k := range Colors {
		if k == c {
			return true
		}
	}
	return false
}

type Kind string

const (
	KindKey  Kind = "key"
	KindBall Kind = "ball"
	KindBox  Kind = "box"
	// KindDoor is never placed as a free-standing object; doors live in the
	// door table but answer to object descriptors like any other target.
	KindDoor Kind = "door"
)

// PlaceableKinds are the kinds a generator may drop into a room.
var PlaceableKinds = []Kind{KindKey, KindBall, KindBox}

func ValidKind(k Kind) bool {
	return k == KindKey || k == KindBall || k == KindBox || k == KindDoor
}

// WorldObject is one placeable thing in the world. Identity is the table
// index, distinct from the descriptive attributes; two red balls are two
// objects.
type WorldObject struct {
	ID    int
	Kind  Kind
	Color Color

	// Pos is meaningless while Carried is set; a carried object moves with
	// the agent.
	Pos     Point
	Carried bool

	// Alive clears when the object is consumed (a key spent on a lock).
	// Dead objects stay in the table so IDs remain stable.
	Alive bool
}

// Door joins two adjacent rooms. Open/locked state mutates during play;
// identity and placement are fixed for the episode.
type Door struct {
	ID    int
	Color Color
	Pos   Point

	Locked bool
	Open   bool

	// RoomA/RoomB are room table indices; RoomA is the room the door was
	// added from, RoomB its neighbor.
	RoomA, RoomB int
}

// AgentState is the live agent: position, facing, and the carried-object
// slot (-1 when empty).
type AgentState struct {
	Pos      Point
	Dir      Direction
	Carrying int
}

// FrontPos is the cell the agent faces.
func (a AgentState) FrontPos() Point { return a.Pos.Add(a.Dir.Vec()) }
