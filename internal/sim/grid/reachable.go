package grid

// CheckObjsReachable verifies that every live object has a path from the
// agent. Closed doors count as passable (the agent can open them); locked
// doors count only once a key of their color is itself reachable without
// crossing them, so an object sealed behind a locked door whose key sits
// behind that same door is reported as trapped. Objects block movement but
// reaching their cell counts as reaching the object.
func (g *RoomGrid) CheckObjsReachable() error {
	unlockable := map[Color]bool{}

	for {
		reached := g.reachableFrom(g.Agent.Pos, unlockable)

		grew := false
		for i := range g.objects {
			o := &g.objects[i]
			if o.Alive && !o.Carried && o.Kind == KindKey && reached[o.Pos] && !unlockable[o.Color] {
				unlockable[o.Color] = true
				grew = true
			}
		}
		if grew {
			continue
		}

		for i := range g.objects {
			o := &g.objects[i]
			if !o.Alive || o.Carried {
				continue
			}
			if !reached[o.Pos] {
				return Rejectf("unreachable %s %s at %v", o.Color, o.Kind, o.Pos)
			}
		}
		return nil
	}
}

// reachableFrom floods the walkable cells starting at from. unlockable
// lists door colors the flood may pass through even when locked.
func (g *RoomGrid) reachableFrom(from Point, unlockable map[Color]bool) map[Point]bool {
	reached := map[Point]bool{}
	stack := []Point{from}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[p] {
			continue
		}
		if p.X < 0 || p.Y < 0 || p.X >= g.Width || p.Y >= g.Height {
			continue
		}
		if door := g.DoorAt(p); door != nil {
			reached[p] = true
			if door.Locked && !door.Open && !unlockable[door.Color] {
				continue
			}
		} else if g.isWall(p) {
			continue
		} else {
			reached[p] = true
			// An object's cell is reachable but not crossable.
			if g.ObjectAt(p) != nil {
				continue
			}
		}
		for d := Direction(0); d < 4; d++ {
			stack = append(stack, p.Add(d.Vec()))
		}
	}
	return reached
}

// isWall reports whether p is a wall cell: the world rim, a room border
// that has not been removed, or a border corner (never removable).
func (g *RoomGrid) isWall(p Point) bool {
	if p.X <= 0 || p.Y <= 0 || p.X >= g.Width-1 || p.Y >= g.Height-1 {
		return true
	}
	s := g.RoomSize - 1
	onV := p.X%s == 0
	onH := p.Y%s == 0
	if !onV && !onH {
		return false
	}
	if onV && onH {
		return true
	}
	room := g.RoomAt(p)
	if onV {
		// p sits on the west border of the resolved room.
		return !room.WallRemoved[West]
	}
	return !room.WallRemoved[North]
}

// Walkable reports whether the agent may stand on p during play: floor or
// an open door, with no object in the way.
func (g *RoomGrid) Walkable(p Point) bool {
	if door := g.DoorAt(p); door != nil {
		return door.Open
	}
	if g.isWall(p) {
		return false
	}
	return g.ObjectAt(p) == nil
}
