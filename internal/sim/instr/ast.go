package instr

import (
	"fmt"
	"strings"

	"missiongrid.ai/internal/sim/grid"
)

// Op tags an instruction node. Atomics wrap descriptors; combinators wrap
// two child instructions. Evaluation is an exhaustive switch on Op, never
// dynamic dispatch.
type Op string

const (
	OpGoTo    Op = "GOTO"
	OpOpen    Op = "OPEN"
	OpPickup  Op = "PICKUP"
	OpPutNext Op = "PUT_NEXT"

	OpBefore Op = "BEFORE"
	OpAfter  Op = "AFTER"
	OpAnd    Op = "AND"
)

// Instruction is the immutable goal tree built once per mission. Progress
// state lives in the Verifier, never on the node.
type Instruction struct {
	Op Op

	// Atomic payload. Desc is the target; for PutNext it is the object to
	// move and Fixed the anchor it must end up next to.
	Desc  ObjDesc
	Fixed ObjDesc

	// Strict marks a debug goal: the episode ends the moment this node is
	// individually satisfied, whatever the surrounding combinator says.
	Strict bool

	// Combinator children.
	A, B *Instruction
}

func (in *Instruction) Atomic() bool {
	switch in.Op {
	case OpGoTo, OpOpen, OpPickup, OpPutNext:
		return true
	}
	return false
}

func GoTo(d ObjDesc) *Instruction    { return &Instruction{Op: OpGoTo, Desc: d} }
func Open(d ObjDesc) *Instruction    { return &Instruction{Op: OpOpen, Desc: d} }
func Pickup(d ObjDesc) *Instruction  { return &Instruction{Op: OpPickup, Desc: d} }
func PutNext(move, fixed ObjDesc) *Instruction {
	return &Instruction{Op: OpPutNext, Desc: move, Fixed: fixed}
}
func Before(a, b *Instruction) *Instruction { return &Instruction{Op: OpBefore, A: a, B: b} }
func After(a, b *Instruction) *Instruction  { return &Instruction{Op: OpAfter, A: a, B: b} }
func And(a, b *Instruction) *Instruction    { return &Instruction{Op: OpAnd, A: a, B: b} }

// Validate rejects malformed trees: degenerate descriptors, missing
// children, atomics with children. A failure here is a generation bug.
func (in *Instruction) Validate() error {
	if in == nil {
		return fmt.Errorf("nil instruction")
	}
	switch in.Op {
	case OpGoTo, OpOpen, OpPickup:
		if in.Desc.Degenerate() {
			return fmt.Errorf("%s: degenerate descriptor", in.Op)
		}
		if in.A != nil || in.B != nil {
			return fmt.Errorf("%s: atomic node with children", in.Op)
		}
	case OpPutNext:
		if in.Desc.Degenerate() || in.Fixed.Degenerate() {
			return fmt.Errorf("PUT_NEXT: degenerate descriptor")
		}
		if in.A != nil || in.B != nil {
			return fmt.Errorf("PUT_NEXT: atomic node with children")
		}
	case OpBefore, OpAfter, OpAnd:
		if in.A == nil || in.B == nil {
			return fmt.Errorf("%s: missing child", in.Op)
		}
		if err := in.A.Validate(); err != nil {
			return err
		}
		if err := in.B.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown op %q", in.Op)
	}
	return nil
}

// Descs yields every descriptor in the tree, for generation-time checks.
func (in *Instruction) Descs() []ObjDesc {
	if in.Atomic() {
		if in.Op == OpPutNext {
			return []ObjDesc{in.Desc, in.Fixed}
		}
		return []ObjDesc{in.Desc}
	}
	return append(in.A.Descs(), in.B.Descs()...)
}

// Surface renders the goal tree as mission text against a concrete world.
func (in *Instruction) Surface(g *grid.RoomGrid) string {
	switch in.Op {
	case OpGoTo:
		return "go to " + in.Desc.Surface(g)
	case OpOpen:
		return "open " + in.Desc.Surface(g)
	case OpPickup:
		return "pick up " + in.Desc.Surface(g)
	case OpPutNext:
		return "put " + in.Desc.Surface(g) + " next to " + in.Fixed.Surface(g)
	case OpBefore:
		return in.A.Surface(g) + ", then " + in.B.Surface(g)
	case OpAfter:
		return in.A.Surface(g) + " after you " + in.B.Surface(g)
	case OpAnd:
		return in.A.Surface(g) + " and " + in.B.Surface(g)
	}
	return ""
}

func (in *Instruction) String() string {
	var b strings.Builder
	in.debug(&b)
	return b.String()
}

func (in *Instruction) debug(b *strings.Builder) {
	b.WriteString(string(in.Op))
	b.WriteByte('(')
	if in.Atomic() {
		fmt.Fprintf(b, "%s/%s/%s", or(string(in.Desc.Kind)), or(string(in.Desc.Color)), or(string(in.Desc.Loc)))
		if in.Op == OpPutNext {
			fmt.Fprintf(b, ", %s/%s/%s", or(string(in.Fixed.Kind)), or(string(in.Fixed.Color)), or(string(in.Fixed.Loc)))
		}
		if in.Strict {
			b.WriteString(", strict")
		}
	} else {
		in.A.debug(b)
		b.WriteString(", ")
		in.B.debug(b)
	}
	b.WriteByte(')')
}

func or(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
