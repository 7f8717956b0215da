// Package instr holds the compositional goal representation of a mission:
// object descriptors, the instruction AST, the per-step verifier, and the
// natural-language surface form.
package instr

import (
	"strings"

	"missiongrid.ai/internal/sim/grid"
)

// Loc is an object location relative to the agent's current pose.
type Loc string

const (
	LocLeft   Loc = "left"
	LocRight  Loc = "right"
	LocFront  Loc = "front"
	LocBehind Loc = "behind"
)

var Locs = []Loc{LocLeft, LocRight, LocFront, LocBehind}

func ValidLoc(l Loc) bool {
	return l == LocLeft || l == LocRight || l == LocFront || l == LocBehind
}

// ObjDesc is a partial object reference. Every zero field is a wildcard.
// It carries no identity: it is a query, re-evaluated against the live
// object set each time, because the agent moves between evaluations.
type ObjDesc struct {
	Kind  grid.Kind  `json:"kind,omitempty"`
	Color grid.Color `json:"color,omitempty"`
	Loc   Loc        `json:"loc,omitempty"`
}

// Degenerate reports a descriptor with every field wild. Such a reference
// can never single out a goal and is rejected at generation time.
func (d ObjDesc) Degenerate() bool {
	return d.Kind == "" && d.Color == "" && d.Loc == ""
}

// Target is one resolvable goal object: a world object or a door.
type Target struct {
	Object *grid.WorldObject
	Door   *grid.Door
}

func (t Target) Pos() grid.Point {
	if t.Door != nil {
		return t.Door.Pos
	}
	return t.Object.Pos
}

func (t Target) Kind() grid.Kind {
	if t.Door != nil {
		return grid.KindDoor
	}
	return t.Object.Kind
}

func (t Target) Color() grid.Color {
	if t.Door != nil {
		return t.Door.Color
	}
	return t.Object.Color
}

// Resolve returns every live target matching d under the agent's current
// pose. Matching is attribute-conjunctive; relative locations are judged
// against the agent's position and facing at call time, which is why the
// result must never be cached. A carried object has no position and only
// matches location-free descriptors.
func Resolve(d ObjDesc, g *grid.RoomGrid) []Target {
	var out []Target
	if d.Kind == "" || d.Kind != grid.KindDoor {
		for _, o := range g.Objects() {
			obj := g.Object(o.ID)
			if !obj.Alive {
				continue
			}
			if d.Kind != "" && obj.Kind != d.Kind {
				continue
			}
			if d.Color != "" && obj.Color != d.Color {
				continue
			}
			if obj.Carried {
				if d.Loc == "" {
					out = append(out, Target{Object: obj})
				}
				continue
			}
			if d.Loc != "" && !locMatches(d.Loc, obj.Pos, g.Agent) {
				continue
			}
			out = append(out, Target{Object: obj})
		}
	}
	if d.Kind == "" || d.Kind == grid.KindDoor {
		for _, dr := range g.Doors() {
			door := g.Door(dr.ID)
			if d.Color != "" && door.Color != d.Color {
				continue
			}
			if d.Loc != "" && !locMatches(d.Loc, door.Pos, g.Agent) {
				continue
			}
			out = append(out, Target{Door: door})
		}
	}
	return out
}

// locMatches projects the agent-to-object vector onto the agent's facing
// and right axes.
func locMatches(loc Loc, pos grid.Point, agent grid.AgentState) bool {
	v := grid.Point{X: pos.X - agent.Pos.X, Y: pos.Y - agent.Pos.Y}
	fwd := agent.Dir.Vec()
	right := agent.Dir.RightVec()
	switch loc {
	case LocLeft:
		return v.X*right.X+v.Y*right.Y < 0
	case LocRight:
		return v.X*right.X+v.Y*right.Y > 0
	case LocFront:
		return v.X*fwd.X+v.Y*fwd.Y > 0
	case LocBehind:
		return v.X*fwd.X+v.Y*fwd.Y < 0
	}
	return false
}

// MatchingLocs lists the relative locations that currently describe pos
// from the agent's pose. Generators use it to build location descriptors
// that are actually true of their intended target.
func MatchingLocs(pos grid.Point, agent grid.AgentState) []Loc {
	var out []Loc
	for _, l := range Locs {
		if locMatches(l, pos, agent) {
			out = append(out, l)
		}
	}
	return out
}

// matches reports whether one concrete target satisfies d.
func (d ObjDesc) matches(t Target, agent grid.AgentState) bool {
	if d.Kind != "" && t.Kind() != d.Kind {
		return false
	}
	if d.Color != "" && t.Color() != d.Color {
		return false
	}
	if d.Loc != "" {
		if t.Object != nil && t.Object.Carried {
			return false
		}
		return locMatches(d.Loc, t.Pos(), agent)
	}
	return true
}

// Surface renders the descriptor as mission text, picking "the" only when
// the reference is unambiguous in the given world.
func (d ObjDesc) Surface(g *grid.RoomGrid) string {
	var b strings.Builder
	if len(Resolve(d, g)) == 1 {
		b.WriteString("the ")
	} else {
		b.WriteString("a ")
	}
	if d.Color != "" {
		b.WriteString(string(d.Color))
		b.WriteByte(' ')
	}
	if d.Kind != "" {
		b.WriteString(string(d.Kind))
	} else {
		b.WriteString("object")
	}
	switch d.Loc {
	case LocLeft:
		b.WriteString(" on your left")
	case LocRight:
		b.WriteString(" on your right")
	case LocFront:
		b.WriteString(" in front of you")
	case LocBehind:
		b.WriteString(" behind you")
	}
	return b.String()
}
