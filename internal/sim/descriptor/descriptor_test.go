package descriptor

import (
	"strings"
	"testing"

	"missiongrid.ai/internal/sim/grid"
	"missiongrid.ai/internal/sim/instr"
)

const sampleDoc = `{
  "rows": 1,
  "cols": 2,
  "room_size": 6,
  "agent": {"room": [0, 0], "pos": [2, 2], "dir": 0},
  "objects": [
    {"room": [0, 0], "kind": "ball", "color": "red", "pos": [3, 3]},
    {"room": [1, 0], "kind": "key", "color": "blue", "pos": [2, 2]}
  ],
  "doors": [
    {"room": [0, 0], "side": 0, "color": "green", "locked": false, "offset": 2}
  ],
  "instr": "go to the red ball then open the green door"
}`

func TestParse_ValidDocument(t *testing.T) {
	m, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Rows != 1 || m.Cols != 2 || m.RoomSize != 6 {
		t.Fatalf("dimensions: %+v", m)
	}
	if len(m.Objects) != 2 || len(m.Doors) != 1 {
		t.Fatalf("contents: %d objects, %d doors", len(m.Objects), len(m.Doors))
	}
}

func TestParse_RejectsBadDocuments(t *testing.T) {
	mutate := func(from, to string) []byte {
		return []byte(strings.Replace(sampleDoc, from, to, 1))
	}
	cases := map[string][]byte{
		"truncated json":  []byte(`{"rows": 1`),
		"zero rooms":      mutate(`"rows": 1`, `"rows": 0`),
		"tiny room":       mutate(`"room_size": 6`, `"room_size": 2`),
		"agent dir":       mutate(`"dir": 0`, `"dir": 4`),
		"agent room":      mutate(`"room": [0, 0], "pos": [2, 2]`, `"room": [2, 0], "pos": [2, 2]`),
		"agent wall pos":  mutate(`"pos": [2, 2], "dir": 0`, `"pos": [0, 2], "dir": 0`),
		"object kind":     mutate(`"kind": "ball"`, `"kind": "door"`),
		"object wall pos": mutate(`"color": "red", "pos": [3, 3]`, `"color": "red", "pos": [5, 2]`),
		"object color":    mutate(`"color": "red"`, `"color": "maroon"`),
		"door side":       mutate(`"side": 0`, `"side": 5`),
		"door offset":     mutate(`"offset": 2`, `"offset": 0`),
		"missing instr":   mutate(`"go to the red ball then open the green door"`, `""`),
	}
	for name, doc := range cases {
		if _, err := Parse(doc); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

func TestBuild_PlacesEverythingWhereTheDocSays(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m, err := doc.Build(5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := m.World

	if g.Agent.Pos != (grid.Point{X: 2, Y: 2}) || g.Agent.Dir != grid.East {
		t.Fatalf("agent pose: %+v", g.Agent)
	}
	// Room (1,0) tops at x=5, so local (2,2) is world (7,2).
	key := g.ObjectAt(grid.Point{X: 7, Y: 2})
	if key == nil || key.Kind != grid.KindKey || key.Color != grid.Blue {
		t.Fatalf("key not where the document put it: %+v", key)
	}
	if d := g.DoorAt(grid.Point{X: 5, Y: 2}); d == nil || d.Color != grid.Green {
		t.Fatalf("door not on the east wall at offset 2")
	}
	if m.Instr.Op != instr.OpBefore {
		t.Fatalf("instruction shape: %s", m.Instr)
	}
	if m.Text == "" || m.MaxSteps != 8*6*6*1*2 {
		t.Fatalf("text %q, max steps %d", m.Text, m.MaxSteps)
	}
}

func TestBuild_RejectsUnsatisfiableDocuments(t *testing.T) {
	// The instruction references an object the document never places.
	doc, err := Parse([]byte(strings.Replace(sampleDoc,
		"go to the red ball then open the green door",
		"go to the purple box", 1)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.Build(1); err == nil {
		t.Fatalf("unresolvable instruction accepted")
	}

	// Two objects on the same cell.
	doc2, err := Parse([]byte(strings.Replace(sampleDoc,
		`{"room": [1, 0], "kind": "key", "color": "blue", "pos": [2, 2]}`,
		`{"room": [0, 0], "kind": "key", "color": "blue", "pos": [3, 3]}`, 1)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc2.Build(1); err == nil {
		t.Fatalf("stacked objects accepted")
	}
}

func TestFromMission_RoundTripsThroughBuild(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m1, err := doc.Build(9)
	if err != nil {
		t.Fatalf("Build #1: %v", err)
	}

	exported := FromMission(m1)
	m2, err := exported.Build(9)
	if err != nil {
		t.Fatalf("Build #2: %v", err)
	}
	if m1.Digest() != m2.Digest() {
		t.Fatalf("export/rebuild changed the mission fingerprint")
	}
}
