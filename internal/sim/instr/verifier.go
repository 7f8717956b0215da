package instr

import (
	"missiongrid.ai/internal/sim/grid"
)

type Status string

const (
	StatusOngoing Status = "ONGOING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Verdict is the verifier's answer after one step. A SUCCESS with a
// non-empty StrictNode means a strict sub-goal ended the episode early,
// before the full tree resolved.
type Verdict struct {
	Status     Status `json:"status"`
	StrictNode string `json:"strict_node,omitempty"`
}

// Verifier evaluates one Instruction tree against a live world, one agent
// action at a time. It owns all progress state; the tree stays immutable
// and the world is only read, never written.
//
// An atomic node that reaches done never reverts, even if the world later
// stops satisfying it. Before(A, B) starts B's clock only on the step
// after A is done: a qualifying B action observed earlier neither
// completes B nor fails the mission. The verifier reports FAILURE in
// exactly one case, a strict Open/Pickup performed on a non-matching
// target; running out of episode steps is the episode authority's call.
type Verifier struct {
	g    *grid.RoomGrid
	root *Instruction

	done  map[*Instruction]bool
	final *Verdict

	// Per-step scratch.
	strictHit  *Instruction
	strictFail bool
}

func NewVerifier(root *Instruction, g *grid.RoomGrid) *Verifier {
	return &Verifier{
		g:    g,
		root: root,
		done: map[*Instruction]bool{},
	}
}

// Step consumes the committed delta of one agent action. Called exactly
// once per action, after the world mutation. Terminal verdicts latch.
func (v *Verifier) Step(delta grid.Delta) Verdict {
	if v.final != nil {
		return *v.final
	}
	v.strictHit = nil
	v.strictFail = false

	v.eval(v.root, delta)

	switch {
	case v.strictFail:
		v.final = &Verdict{Status: StatusFailure}
	case v.strictHit != nil:
		v.final = &Verdict{Status: StatusSuccess, StrictNode: v.strictHit.String()}
	case v.done[v.root]:
		v.final = &Verdict{Status: StatusSuccess}
	default:
		return Verdict{Status: StatusOngoing}
	}
	return *v.final
}

func (v *Verifier) eval(in *Instruction, d grid.Delta) {
	switch in.Op {
	case OpGoTo, OpOpen, OpPickup, OpPutNext:
		if v.done[in] {
			return
		}
		if v.checkAtomic(in, d) {
			v.done[in] = true
			if in.Strict {
				v.strictHit = in
			}
		}
	case OpBefore:
		aWasDone := v.done[in.A]
		v.eval(in.A, d)
		if aWasDone {
			v.eval(in.B, d)
		}
		v.done[in] = v.done[in.A] && v.done[in.B]
	case OpAfter:
		// A after B: B first, then A.
		bWasDone := v.done[in.B]
		v.eval(in.B, d)
		if bWasDone {
			v.eval(in.A, d)
		}
		v.done[in] = v.done[in.A] && v.done[in.B]
	case OpAnd:
		v.eval(in.A, d)
		v.eval(in.B, d)
		v.done[in] = v.done[in.A] && v.done[in.B]
	}
}

func (v *Verifier) checkAtomic(in *Instruction, d grid.Delta) bool {
	switch in.Op {
	case OpGoTo:
		front := d.Agent.FrontPos()
		for _, t := range Resolve(in.Desc, v.g) {
			if t.Object != nil && t.Object.Carried {
				continue
			}
			if t.Pos() == front {
				return true
			}
		}
		return false

	case OpOpen:
		if d.Action != grid.ActionToggle || d.Door == nil {
			return false
		}
		if d.Door.WasOpen || !d.Door.NowOpen {
			return false
		}
		door := v.g.Door(d.Door.DoorID)
		if in.Desc.matches(Target{Door: door}, d.Agent) {
			return true
		}
		if in.Strict {
			// Debug goal: opening any other door ends the episode.
			v.strictFail = true
		}
		return false

	case OpPickup:
		if d.Action != grid.ActionPickup || d.Object == nil || d.Object.Event != grid.ObjectPicked {
			return false
		}
		obj := v.g.Object(d.Object.ObjectID)
		if v.pickedMatches(in.Desc, obj, d) {
			return true
		}
		if in.Strict {
			v.strictFail = true
		}
		return false

	case OpPutNext:
		if d.Action != grid.ActionDrop || d.Object == nil || d.Object.Event != grid.ObjectDropped {
			return false
		}
		moved := v.g.Object(d.Object.ObjectID)
		if !in.Desc.matches(Target{Object: moved}, d.Agent) {
			return false
		}
		for _, t := range Resolve(in.Fixed, v.g) {
			if t.Object != nil && (t.Object.ID == moved.ID || t.Object.Carried) {
				continue
			}
			if grid.Adjacent(moved.Pos, t.Pos()) {
				return true
			}
		}
		return false
	}
	return false
}

// pickedMatches judges the just-picked object against desc. The object is
// carried now, so a location constraint is checked against the cell it was
// lifted from.
func (v *Verifier) pickedMatches(desc ObjDesc, obj *grid.WorldObject, d grid.Delta) bool {
	if desc.Kind != "" && obj.Kind != desc.Kind {
		return false
	}
	if desc.Color != "" && obj.Color != desc.Color {
		return false
	}
	if desc.Loc != "" && !locMatches(desc.Loc, d.Object.From, d.Agent) {
		return false
	}
	return true
}
