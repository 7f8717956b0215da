package grid

import "fmt"

// Action is the agent action that produced a world-state delta. The
// movement collaborator decides legality; the grid only records effects.
type Action string

const (
	ActionForward Action = "FORWARD"
	ActionLeft    Action = "LEFT"
	ActionRight   Action = "RIGHT"
	ActionToggle  Action = "TOGGLE"
	ActionPickup  Action = "PICKUP"
	ActionDrop    Action = "DROP"
	ActionNone    Action = "NONE"
)

var knownActions = map[Action]struct{}{
	ActionForward: {},
	ActionLeft:    {},
	ActionRight:   {},
	ActionToggle:  {},
	ActionPickup:  {},
	ActionDrop:    {},
	ActionNone:    {},
}

func ValidAction(a Action) bool {
	_, ok := knownActions[a]
	return ok
}

// Delta is the committed effect of one agent action: the action kind, the
// agent's post-action state, and at most one door and one object change.
type Delta struct {
	Action Action
	Agent  AgentState

	Door   *DoorDelta
	Object *ObjectDelta
}

type DoorDelta struct {
	DoorID    int
	WasOpen   bool
	NowOpen   bool
	WasLocked bool
	NowLocked bool
}

type ObjectEvent string

const (
	ObjectPicked    ObjectEvent = "PICKED"
	ObjectDropped   ObjectEvent = "DROPPED"
	ObjectDestroyed ObjectEvent = "DESTROYED"
)

type ObjectDelta struct {
	ObjectID int
	Event    ObjectEvent
	From     Point
	To       Point
}

// MoveAgent commits a position/facing change and returns its delta.
func (g *RoomGrid) MoveAgent(action Action, pos Point, dir Direction) Delta {
	g.Agent.Pos = pos
	g.Agent.Dir = dir
	return Delta{Action: action, Agent: g.Agent}
}

// SetDoor commits a door state change (the toggle mechanics live in the
// movement collaborator).
func (g *RoomGrid) SetDoor(id int, open, locked bool) Delta {
	door := &g.doors[id]
	dd := &DoorDelta{
		DoorID:    id,
		WasOpen:   door.Open,
		NowOpen:   open,
		WasLocked: door.Locked,
		NowLocked: locked,
	}
	door.Open = open
	door.Locked = locked
	return Delta{Action: ActionToggle, Agent: g.Agent, Door: dd}
}

// PickUp moves the object into the agent's carried slot.
func (g *RoomGrid) PickUp(id int) (Delta, error) {
	obj := &g.objects[id]
	if !obj.Alive || obj.Carried {
		return Delta{}, fmt.Errorf("pick up: object %d not on the floor", id)
	}
	if g.Agent.Carrying >= 0 {
		return Delta{}, fmt.Errorf("pick up: already carrying object %d", g.Agent.Carrying)
	}
	from := obj.Pos
	obj.Carried = true
	g.Agent.Carrying = id
	g.detachFromRoom(id, from)
	return Delta{
		Action: ActionPickup,
		Agent:  g.Agent,
		Object: &ObjectDelta{ObjectID: id, Event: ObjectPicked, From: from},
	}, nil
}

// Drop puts the carried object down at pos.
func (g *RoomGrid) Drop(pos Point) (Delta, error) {
	id := g.Agent.Carrying
	if id < 0 {
		return Delta{}, fmt.Errorf("drop: nothing carried")
	}
	obj := &g.objects[id]
	obj.Carried = false
	obj.Pos = pos
	g.Agent.Carrying = -1
	room := g.RoomAt(pos)
	room.Objs = append(room.Objs, id)
	return Delta{
		Action: ActionDrop,
		Agent:  g.Agent,
		Object: &ObjectDelta{ObjectID: id, Event: ObjectDropped, To: pos},
	}, nil
}

// Destroy removes an object from the live set (a key consumed on a lock).
func (g *RoomGrid) Destroy(id int) Delta {
	obj := &g.objects[id]
	from := obj.Pos
	obj.Alive = false
	if obj.Carried {
		obj.Carried = false
		if g.Agent.Carrying == id {
			g.Agent.Carrying = -1
		}
	} else {
		g.detachFromRoom(id, from)
	}
	return Delta{
		Action: ActionNone,
		Agent:  g.Agent,
		Object: &ObjectDelta{ObjectID: id, Event: ObjectDestroyed, From: from},
	}
}

func (g *RoomGrid) detachFromRoom(id int, pos Point) {
	room := g.RoomAt(pos)
	for i, oid := range room.Objs {
		if oid == id {
			room.Objs = append(room.Objs[:i], room.Objs[i+1:]...)
			return
		}
	}
}
