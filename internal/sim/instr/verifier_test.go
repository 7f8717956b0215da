package instr

import (
	"testing"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/rng"
)

// noop feeds the verifier a step that changed nothing but the clock.
func noop(g *grid.RoomGrid) grid.Delta {
	return grid.Delta{Action: grid.ActionNone, Agent: g.Agent}
}

func TestVerifier_GoToNeedsTargetInFrontCell(t *testing.T) {
	g := twoRoomWorld(t)
	place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 3, Y: 2})

	v := NewVerifier(GoTo(ObjDesc{Kind: grid.KindBall}), g)
	if got := v.Step(noop(g)); got.Status != StatusSuccess {
		t.Fatalf("ball in the front cell: got %s", got.Status)
	}

	// Facing away from the ball.
	g2 := twoRoomWorld(t)
	place(t, g2, 0, grid.KindBall, grid.Red, grid.Point{X: 3, Y: 2})
	v2 := NewVerifier(GoTo(ObjDesc{Kind: grid.KindBall}), g2)
	if got := v2.Step(g2.MoveAgent(grid.ActionLeft, g2.Agent.Pos, grid.North)); got.Status != StatusOngoing {
		t.Fatalf("ball beside, not in front: got %s", got.Status)
	}
	// One cell away is not there yet.
	if got := v2.Step(g2.MoveAgent(grid.ActionRight, grid.Point{X: 1, Y: 2}, grid.East)); got.Status != StatusOngoing {
		t.Fatalf("ball two cells ahead: got %s", got.Status)
	}
	if got := v2.Step(g2.MoveAgent(grid.ActionForward, grid.Point{X: 2, Y: 2}, grid.East)); got.Status != StatusSuccess {
		t.Fatalf("stepped up to the ball: got %s", got.Status)
	}
}

func TestVerifier_DoneLatchesPerNode(t *testing.T) {
	g := twoRoomWorld(t)
	place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 3, Y: 2})
	place(t, g, 0, grid.KindBox, grid.Blue, grid.Point{X: 1, Y: 2})

	root := And(
		GoTo(ObjDesc{Kind: grid.KindBall}),
		GoTo(ObjDesc{Kind: grid.KindBox}),
	)
	v := NewVerifier(root, g)
	if got := v.Step(noop(g)); got.Status != StatusOngoing {
		t.Fatalf("only the ball goal is met: got %s", got.Status)
	}
	// Turn to the box. The ball goal no longer holds, but it stays done.
	if got := v.Step(g.MoveAgent(grid.ActionLeft, g.Agent.Pos, grid.West)); got.Status != StatusSuccess {
		t.Fatalf("second goal met after the first lapsed: got %s", got.Status)
	}
	// Terminal verdicts latch.
	if got := v.Step(g.MoveAgent(grid.ActionRight, g.Agent.Pos, grid.North)); got.Status != StatusSuccess {
		t.Fatalf("verdict did not latch: got %s", got.Status)
	}
}

func TestVerifier_OpenCountsClosedToOpenOnly(t *testing.T) {
	g := twoRoomWorld(t)
	d, err := g.PlaceDoor(0, 0, grid.East, grid.Red, false, 2)
	if err != nil {
		t.Fatalf("PlaceDoor: %v", err)
	}

	v := NewVerifier(Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red}), g)
	g.SetDoor(d.ID, true, false)
	open := g.SetDoor(d.ID, true, false) // already open, no transition
	if got := v.Step(open); got.Status != StatusOngoing {
		t.Fatalf("open-to-open toggle counted: got %s", got.Status)
	}
	g.SetDoor(d.ID, false, false)
	if got := v.Step(g.SetDoor(d.ID, true, false)); got.Status != StatusSuccess {
		t.Fatalf("closed-to-open toggle: got %s", got.Status)
	}
}

func TestVerifier_StrictInsideBeforeEndsEarly(t *testing.T) {
	build := func() (*grid.RoomGrid, *grid.Door, *grid.Door) {
		g, err := grid.NewRoomGrid(2, 2, 6, rng.New(1))
		if err != nil {
			t.Fatalf("NewRoomGrid: %v", err)
		}
		if err := g.SetAgent(grid.Point{X: 2, Y: 2}, grid.East); err != nil {
			t.Fatalf("SetAgent: %v", err)
		}
		red, err := g.PlaceDoor(0, 0, grid.East, grid.Red, false, 2)
		if err != nil {
			t.Fatalf("PlaceDoor red: %v", err)
		}
		blue, err := g.PlaceDoor(0, 0, grid.South, grid.Blue, false, 2)
		if err != nil {
			t.Fatalf("PlaceDoor blue: %v", err)
		}
		return g, red, blue
	}

	// Strict node in the first arm fires on the very first step, before
	// the second arm has seen anything.
	g, red, _ := build()
	strict := Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red})
	strict.Strict = true
	v := NewVerifier(Before(strict, Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Blue})), g)
	got := v.Step(g.SetDoor(red.ID, true, false))
	if got.Status != StatusSuccess {
		t.Fatalf("strict first arm met: got %s", got.Status)
	}
	if got.StrictNode == "" {
		t.Fatalf("strict early exit must name the node")
	}

	// A strict node in the gated second arm stays dormant until the
	// first arm is done: the same wrong-door open that would fail it
	// afterwards passes without comment before.
	g2, red2, _ := build()
	green, err := g2.PlaceDoor(1, 0, grid.South, grid.Green, false, 2)
	if err != nil {
		t.Fatalf("PlaceDoor green: %v", err)
	}
	strict2 := Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Blue})
	strict2.Strict = true
	v2 := NewVerifier(Before(Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red}), strict2), g2)
	if got := v2.Step(g2.SetDoor(green.ID, true, false)); got.Status != StatusOngoing {
		t.Fatalf("wrong-door open before the gate: want ONGOING, got %s", got.Status)
	}
	if got := v2.Step(g2.SetDoor(red2.ID, true, false)); got.Status != StatusOngoing {
		t.Fatalf("first arm done: got %s", got.Status)
	}
	_ = v2.Step(g2.SetDoor(green.ID, false, false))
	if got := v2.Step(g2.SetDoor(green.ID, true, false)); got.Status != StatusFailure {
		t.Fatalf("wrong-door open after the gate: want FAILURE, got %s", got.Status)
	}
}

func TestVerifier_StrictOpenWrongDoorFails(t *testing.T) {
	g, err := grid.NewRoomGrid(2, 2, 6, rng.New(1))
	if err != nil {
		t.Fatalf("NewRoomGrid: %v", err)
	}
	if err := g.SetAgent(grid.Point{X: 2, Y: 2}, grid.East); err != nil {
		t.Fatalf("SetAgent: %v", err)
	}
	if _, err := g.PlaceDoor(0, 0, grid.East, grid.Red, false, 2); err != nil {
		t.Fatalf("PlaceDoor red: %v", err)
	}
	blue, err := g.PlaceDoor(0, 0, grid.South, grid.Blue, false, 2)
	if err != nil {
		t.Fatalf("PlaceDoor blue: %v", err)
	}

	goal := Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red})
	goal.Strict = true
	v := NewVerifier(goal, g)
	if got := v.Step(g.SetDoor(blue.ID, true, false)); got.Status != StatusFailure {
		t.Fatalf("strict goal, wrong door opened: got %s", got.Status)
	}

	// Non-strict verifier shrugs the same action off.
	g2, _ := grid.NewRoomGrid(2, 2, 6, rng.New(1))
	_ = g2.SetAgent(grid.Point{X: 2, Y: 2}, grid.East)
	r2, _ := g2.PlaceDoor(0, 0, grid.East, grid.Red, false, 2)
	b2, _ := g2.PlaceDoor(0, 0, grid.South, grid.Blue, false, 2)
	v2 := NewVerifier(Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red}), g2)
	if got := v2.Step(g2.SetDoor(b2.ID, true, false)); got.Status != StatusOngoing {
		t.Fatalf("lenient goal, wrong door opened: got %s", got.Status)
	}
	if got := v2.Step(g2.SetDoor(r2.ID, true, false)); got.Status != StatusSuccess {
		t.Fatalf("lenient goal, right door opened: got %s", got.Status)
	}
}

func TestVerifier_StrictHitReportsNode(t *testing.T) {
	g := twoRoomWorld(t)
	d, err := g.PlaceDoor(0, 0, grid.East, grid.Red, false, 2)
	if err != nil {
		t.Fatalf("PlaceDoor: %v", err)
	}
	place(t, g, 1, grid.KindBox, grid.Grey, grid.Point{X: 8, Y: 3})

	strict := Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Red})
	strict.Strict = true
	root := And(GoTo(ObjDesc{Kind: grid.KindBox}), strict)

	v := NewVerifier(root, g)
	got := v.Step(g.SetDoor(d.ID, true, false))
	if got.Status != StatusSuccess {
		t.Fatalf("strict sub-goal met: got %s", got.Status)
	}
	if got.StrictNode == "" {
		t.Fatalf("strict early exit must name the node")
	}
}

func TestVerifier_PickupJudgesLiftCell(t *testing.T) {
	g := twoRoomWorld(t)
	o := place(t, g, 0, grid.KindKey, grid.Blue, grid.Point{X: 3, Y: 2})

	v := NewVerifier(Pickup(ObjDesc{Kind: grid.KindKey, Loc: LocFront}), g)
	d, err := g.PickUp(o.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	// The key is carried now, but it was lifted from the front cell.
	if got := v.Step(d); got.Status != StatusSuccess {
		t.Fatalf("picked from the front cell: got %s", got.Status)
	}
}

func TestVerifier_StrictPickupWrongObjectFails(t *testing.T) {
	g := twoRoomWorld(t)
	place(t, g, 0, grid.KindKey, grid.Blue, grid.Point{X: 3, Y: 2})
	ball := place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 2, Y: 3})

	goal := Pickup(ObjDesc{Kind: grid.KindKey})
	goal.Strict = true
	v := NewVerifier(goal, g)
	d, err := g.PickUp(ball.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if got := v.Step(d); got.Status != StatusFailure {
		t.Fatalf("strict pickup of the wrong object: got %s", got.Status)
	}
}

func TestVerifier_PutNextWantsAdjacency(t *testing.T) {
	g := twoRoomWorld(t)
	ball := place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 2, Y: 2})
	place(t, g, 0, grid.KindBox, grid.Blue, grid.Point{X: 4, Y: 4})

	root := PutNext(ObjDesc{Kind: grid.KindBall}, ObjDesc{Kind: grid.KindBox})
	v := NewVerifier(root, g)

	if _, err := g.PickUp(ball.ID); err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	far, err := g.Drop(grid.Point{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if got := v.Step(far); got.Status != StatusOngoing {
		t.Fatalf("dropped far from the box: got %s", got.Status)
	}

	if _, err := g.PickUp(ball.ID); err != nil {
		t.Fatalf("PickUp again: %v", err)
	}
	near, err := g.Drop(grid.Point{X: 4, Y: 3})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if got := v.Step(near); got.Status != StatusSuccess {
		t.Fatalf("dropped next to the box: got %s", got.Status)
	}
}

func TestVerifier_BeforeGatesTheSecondGoal(t *testing.T) {
	g := twoRoomWorld(t)
	ball := place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 3, Y: 2})
	d, err := g.PlaceDoor(0, 0, grid.East, grid.Green, false, 3)
	if err != nil {
		t.Fatalf("PlaceDoor: %v", err)
	}

	root := Before(
		Pickup(ObjDesc{Kind: grid.KindBall}),
		Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Green}),
	)
	v := NewVerifier(root, g)

	// Opening the door before the pickup neither completes the open goal
	// nor fails the mission.
	if got := v.Step(g.SetDoor(d.ID, true, false)); got.Status != StatusOngoing {
		t.Fatalf("premature open: got %s", got.Status)
	}

	pick, err := g.PickUp(ball.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if got := v.Step(pick); got.Status != StatusOngoing {
		t.Fatalf("first goal alone: got %s", got.Status)
	}

	// The premature open left the door open; it has to transition again.
	g.SetDoor(d.ID, false, false)
	if got := v.Step(g.SetDoor(d.ID, true, false)); got.Status != StatusSuccess {
		t.Fatalf("open after the pickup: got %s", got.Status)
	}
}

func TestVerifier_BeforeSameStepDoesNotUnlockB(t *testing.T) {
	g := twoRoomWorld(t)
	// One pickup satisfies both descriptors, but B's clock only starts on
	// the step after A completes.
	key := place(t, g, 0, grid.KindKey, grid.Blue, grid.Point{X: 3, Y: 2})

	root := Before(
		Pickup(ObjDesc{Kind: grid.KindKey}),
		Pickup(ObjDesc{Color: grid.Blue}),
	)
	v := NewVerifier(root, g)
	d, err := g.PickUp(key.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if got := v.Step(d); got.Status != StatusOngoing {
		t.Fatalf("one action must not resolve both ordered goals: got %s", got.Status)
	}

	drop, err := g.Drop(grid.Point{X: 3, Y: 2})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if got := v.Step(drop); got.Status != StatusOngoing {
		t.Fatalf("drop is not a pickup: got %s", got.Status)
	}
	d2, err := g.PickUp(key.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if got := v.Step(d2); got.Status != StatusSuccess {
		t.Fatalf("second pickup with A done: got %s", got.Status)
	}
}

func TestVerifier_AfterEvaluatesPrerequisiteFirst(t *testing.T) {
	g := twoRoomWorld(t)
	ball := place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 3, Y: 2})
	d, err := g.PlaceDoor(0, 0, grid.East, grid.Green, false, 3)
	if err != nil {
		t.Fatalf("PlaceDoor: %v", err)
	}

	// "open the door after you pick up the ball": B is the prerequisite.
	root := After(
		Open(ObjDesc{Kind: grid.KindDoor, Color: grid.Green}),
		Pickup(ObjDesc{Kind: grid.KindBall}),
	)
	v := NewVerifier(root, g)

	if got := v.Step(g.SetDoor(d.ID, true, false)); got.Status != StatusOngoing {
		t.Fatalf("open before the pickup: got %s", got.Status)
	}
	pick, err := g.PickUp(ball.ID)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	if got := v.Step(pick); got.Status != StatusOngoing {
		t.Fatalf("prerequisite alone: got %s", got.Status)
	}
	g.SetDoor(d.ID, false, false)
	if got := v.Step(g.SetDoor(d.ID, true, false)); got.Status != StatusSuccess {
		t.Fatalf("open after the pickup: got %s", got.Status)
	}
}

func TestVerifier_AndIsOrderless(t *testing.T) {
	run := func(first, second grid.Kind) Status {
		g := twoRoomWorld(t)
		a := place(t, g, 0, grid.KindBall, grid.Red, grid.Point{X: 2, Y: 3})
		b := place(t, g, 0, grid.KindKey, grid.Blue, grid.Point{X: 3, Y: 3})
		byKind := map[grid.Kind]*grid.WorldObject{grid.KindBall: a, grid.KindKey: b}

		root := And(
			Pickup(ObjDesc{Kind: grid.KindBall}),
			Pickup(ObjDesc{Kind: grid.KindKey}),
		)
		v := NewVerifier(root, g)

		d1, err := g.PickUp(byKind[first].ID)
		if err != nil {
			t.Fatalf("PickUp: %v", err)
		}
		if got := v.Step(d1); got.Status != StatusOngoing {
			t.Fatalf("one of two goals: got %s", got.Status)
		}
		if _, err := g.Drop(grid.Point{X: 1, Y: 1}); err != nil {
			t.Fatalf("Drop: %v", err)
		}
		d2, err := g.PickUp(byKind[second].ID)
		if err != nil {
			t.Fatalf("PickUp: %v", err)
		}
		return v.Step(d2).Status
	}

	if got := run(grid.KindBall, grid.KindKey); got != StatusSuccess {
		t.Fatalf("ball then key: got %s", got)
	}
	if got := run(grid.KindKey, grid.KindBall); got != StatusSuccess {
		t.Fatalf("key then ball: got %s", got)
	}
}
