// Package episode runs one mission: it owns the turn loop, applies agent
// actions to the world with minimal movement mechanics, feeds the
// committed deltas to the verifier, and enforces the step budget. It is
// the episode authority: the verifier never times out on its own.
package episode

import (
	"fmt"

	"github.com/google/uuid"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
	"missiongrid.ai/internal/sim/levelgen"
)

type Outcome string

const (
	OutcomeOngoing Outcome = "ONGOING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

type Episode struct {
	ID      string
	Mission *levelgen.Mission

	world    *grid.RoomGrid
	verifier *instr.Verifier

	steps   int
	over    bool
	outcome Outcome
	verdict instr.Verdict
}

func New(m *levelgen.Mission) *Episode {
	return &Episode{
		ID:       uuid.NewString(),
		Mission:  m,
		world:    m.World,
		verifier: instr.NewVerifier(m.Instr, m.World),
		outcome:  OutcomeOngoing,
	}
}

func (e *Episode) Steps() int              { return e.steps }
func (e *Episode) Over() bool              { return e.over }
func (e *Episode) Outcome() Outcome        { return e.outcome }
func (e *Episode) Verdict() instr.Verdict  { return e.verdict }
func (e *Episode) World() *grid.RoomGrid   { return e.world }

// Step applies one agent action, commits the world-state delta, and runs
// the verifier over it. One call per action; rejects actions after the
// episode is over.
func (e *Episode) Step(a grid.Action) (grid.Delta, instr.Verdict, error) {
	if e.over {
		return grid.Delta{}, e.verdict, fmt.Errorf("episode %s is over", e.ID)
	}
	if !grid.ValidAction(a) {
		return grid.Delta{}, e.verdict, fmt.Errorf("unknown action %q", a)
	}

	delta := e.apply(a)
	verdict := e.verifier.Step(delta)

	e.steps++
	e.verdict = verdict
	switch {
	case verdict.Status == instr.StatusSuccess:
		e.over = true
		e.outcome = OutcomeSuccess
	case verdict.Status == instr.StatusFailure:
		e.over = true
		e.outcome = OutcomeFailure
	case e.steps >= e.Mission.MaxSteps:
		// Out of budget with the goal unmet.
		e.over = true
		e.outcome = OutcomeFailure
	}
	return delta, verdict, nil
}

// apply is the movement collaborator: it decides what the action does to
// the world and commits it. Illegal moves are no-ops that still consume a
// step and still reach the verifier.
func (e *Episode) apply(a grid.Action) grid.Delta {
	g := e.world
	agent := g.Agent

	switch a {
	case grid.ActionLeft:
		return g.MoveAgent(a, agent.Pos, (agent.Dir+3)%4)
	case grid.ActionRight:
		return g.MoveAgent(a, agent.Pos, (agent.Dir+1)%4)

	case grid.ActionForward:
		front := agent.FrontPos()
		if g.Walkable(front) {
			return g.MoveAgent(a, front, agent.Dir)
		}
		return g.MoveAgent(a, agent.Pos, agent.Dir)

	case grid.ActionToggle:
		return e.toggle()

	case grid.ActionPickup:
		front := agent.FrontPos()
		obj := g.ObjectAt(front)
		if obj == nil || agent.Carrying >= 0 {
			return g.MoveAgent(a, agent.Pos, agent.Dir)
		}
		d, err := g.PickUp(obj.ID)
		if err != nil {
			return g.MoveAgent(a, agent.Pos, agent.Dir)
		}
		return d

	case grid.ActionDrop:
		front := agent.FrontPos()
		if agent.Carrying < 0 || !g.Walkable(front) || g.DoorAt(front) != nil {
			return g.MoveAgent(a, agent.Pos, agent.Dir)
		}
		d, err := g.Drop(front)
		if err != nil {
			return g.MoveAgent(a, agent.Pos, agent.Dir)
		}
		return d

	default:
		return g.MoveAgent(grid.ActionNone, agent.Pos, agent.Dir)
	}
}

// toggle opens or closes the door the agent faces. Unlocking consumes a
// carried key of the door's color.
func (e *Episode) toggle() grid.Delta {
	g := e.world
	agent := g.Agent
	door := g.DoorAt(agent.FrontPos())
	if door == nil {
		return g.MoveAgent(grid.ActionToggle, agent.Pos, agent.Dir)
	}

	if door.Open {
		return g.SetDoor(door.ID, false, door.Locked)
	}
	if !door.Locked {
		return g.SetDoor(door.ID, true, false)
	}

	// Locked: need the right key in hand.
	if agent.Carrying < 0 {
		return g.MoveAgent(grid.ActionToggle, agent.Pos, agent.Dir)
	}
	key := g.Object(agent.Carrying)
	if key.Kind != grid.KindKey || key.Color != door.Color {
		return g.MoveAgent(grid.ActionToggle, agent.Pos, agent.Dir)
	}
	d := g.SetDoor(door.ID, true, false)
	consumed := g.Destroy(key.ID)
	d.Agent = g.Agent
	d.Object = consumed.Object
	return d
}
