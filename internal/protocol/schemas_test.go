package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	actSchema := compile("act.schema.json")
	obsSchema := compile("obs.schema.json")
	verdictSchema := compile("verdict.schema.json")
	missionSchema := compile("mission.schema.json")

	missionDoc := `{
	  "rows":1,
	  "cols":2,
	  "room_size":6,
	  "max_steps":96,
	  "agent":{"room":[0,0],"pos":[2,2],"dir":0},
	  "objects":[
	    {"room":[0,0],"kind":"ball","color":"red","pos":[3,3]},
	    {"room":[1,0],"kind":"key","color":"blue","pos":[1,4]}
	  ],
	  "doors":[
	    {"room":[0,0],"side":0,"color":"blue","locked":true,"offset":2}
	  ],
	  "instr":"pick up the red ball"
	}`

	var mission any
	_ = json.Unmarshal([]byte(missionDoc), &mission)
	validate(missionSchema, mission)

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "agent_name":"bot1",
	  "level":"goto",
	  "seed":1337
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "episode_id":"E1",
	  "level":"goto",
	  "seed":1337,
	  "max_steps":288,
	  "mission_text":"go to the red ball",
	  "mission":`+missionDoc+`,
	  "digest":"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "episode_id":"E1",
	  "step":0,
	  "action":"FORWARD"
	}`), &act)
	validate(actSchema, act)

	var obs any
	_ = json.Unmarshal([]byte(`{
	  "type":"OBS",
	  "protocol_version":"1.0",
	  "episode_id":"E1",
	  "step":1,
	  "agent":{"pos":[3,2],"dir":0,"carrying":-1},
	  "doors":[{"id":0,"color":"blue","pos":[5,2],"open":false,"locked":true}],
	  "objects":[{"id":0,"kind":"ball","color":"red","pos":[3,3],"carried":false}],
	  "status":"ONGOING"
	}`), &obs)
	validate(obsSchema, obs)

	var verdict any
	_ = json.Unmarshal([]byte(`{
	  "type":"VERDICT",
	  "protocol_version":"1.0",
	  "episode_id":"E1",
	  "step":12,
	  "status":"SUCCESS"
	}`), &verdict)
	validate(verdictSchema, verdict)
}
