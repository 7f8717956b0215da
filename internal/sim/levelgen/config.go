// Package levelgen assembles missions: it drives the room topology builder
// and the instruction sampler under a bounded rejection-sampling loop.
package levelgen

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstrKind selects the shape of the sampled goal tree.
type InstrKind string

const (
	InstrAction InstrKind = "action"
	InstrAnd    InstrKind = "and"
	InstrSeq    InstrKind = "seq"
)

// ActionKind selects which atomic goals the sampler may emit.
type ActionKind string

const (
	ActionGoTo    ActionKind = "goto"
	ActionOpen    ActionKind = "open"
	ActionPickup  ActionKind = "pickup"
	ActionPutNext ActionKind = "putnext"
)

// GenConfig parameterizes the one generic generator. Each named level is
// just a GenConfig; there is no per-level code.
type GenConfig struct {
	Rows     int `yaml:"rows"`
	Cols     int `yaml:"cols"`
	RoomSize int `yaml:"room_size"`

	NumDists    int  `yaml:"num_dists"`
	DistsUnique bool `yaml:"dists_unique"`

	// LockedRoom seals one room behind a locked door and drops the
	// matching key elsewhere.
	LockedRoom bool `yaml:"locked_room"`

	// NumDoors forces that many extra doors on the agent's start room
	// (open-door missions in a single-room world need them).
	NumDoors int `yaml:"num_doors"`

	// Locations permits relative-location descriptors.
	Locations bool `yaml:"locations"`

	// Strict marks sampled atomics as episode-ending debug goals.
	Strict bool `yaml:"strict"`

	ActionKinds []ActionKind `yaml:"action_kinds"`
	InstrKinds  []InstrKind  `yaml:"instr_kinds"`

	// MaxAttempts bounds the rejection-sampling loop; exceeding it is a
	// fatal configuration error, not a condition to ride out.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxSteps is the episode budget handed to the episode authority.
	MaxSteps int `yaml:"max_steps"`
}

func (c *GenConfig) applyDefaults() {
	if c.Rows <= 0 {
		c.Rows = 3
	}
	if c.Cols <= 0 {
		c.Cols = 3
	}
	if c.RoomSize <= 0 {
		c.RoomSize = 6
	}
	if c.NumDists < 0 {
		c.NumDists = 0
	}
	if len(c.ActionKinds) == 0 {
		c.ActionKinds = []ActionKind{ActionGoTo, ActionOpen, ActionPickup, ActionPutNext}
	}
	if len(c.InstrKinds) == 0 {
		c.InstrKinds = []InstrKind{InstrAction, InstrAnd, InstrSeq}
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1000
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = 8 * c.RoomSize * c.RoomSize * c.Rows * c.Cols
	}
}

func (c *GenConfig) validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return fmt.Errorf("bad room grid %dx%d", c.Rows, c.Cols)
	}
	if c.RoomSize < 3 {
		return fmt.Errorf("room size %d too small", c.RoomSize)
	}
	for _, a := range c.ActionKinds {
		switch a {
		case ActionGoTo, ActionOpen, ActionPickup, ActionPutNext:
		default:
			return fmt.Errorf("unknown action kind %q", a)
		}
	}
	for _, k := range c.InstrKinds {
		switch k {
		case InstrAction, InstrAnd, InstrSeq:
		default:
			return fmt.Errorf("unknown instr kind %q", k)
		}
	}
	if c.NumDoors < 0 || c.NumDoors > 4 {
		return fmt.Errorf("num_doors %d out of range", c.NumDoors)
	}
	if c.LockedRoom && c.Rows*c.Cols < 2 {
		return fmt.Errorf("locked room needs at least two rooms")
	}
	return nil
}

// Registry maps level names to configurations. The built-in set covers
// every instruction kind and topology feature; a yaml file can add to or
// override it.
type Registry struct {
	levels map[string]GenConfig
}

func NewRegistry() *Registry {
	r := &Registry{levels: map[string]GenConfig{}}
	for name, cfg := range builtins {
		r.levels[name] = cfg
	}
	return r
}

var builtins = map[string]GenConfig{
	"goto": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDists: 7,
		ActionKinds: []ActionKind{ActionGoTo},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"goto-local": {
		Rows: 1, Cols: 1, RoomSize: 8, NumDists: 7,
		ActionKinds: []ActionKind{ActionGoTo},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"open": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDoors: 4,
		ActionKinds: []ActionKind{ActionOpen},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"open-two-doors": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDoors: 2,
		ActionKinds: []ActionKind{ActionOpen},
		InstrKinds:  []InstrKind{InstrSeq},
	},
	"open-doors-debug": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDoors: 4, Strict: true,
		ActionKinds: []ActionKind{ActionOpen},
		InstrKinds:  []InstrKind{InstrAction, InstrSeq},
	},
	"pickup": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDists: 7,
		ActionKinds: []ActionKind{ActionPickup},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"pickup-unlock": {
		Rows: 2, Cols: 2, RoomSize: 6, NumDists: 4, LockedRoom: true,
		ActionKinds: []ActionKind{ActionPickup},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"putnext": {
		Rows: 1, Cols: 2, RoomSize: 6, NumDists: 4, DistsUnique: true,
		ActionKinds: []ActionKind{ActionPutNext},
		InstrKinds:  []InstrKind{InstrAction},
	},
	"synth": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDists: 7, Locations: true,
	},
	"synth-seq": {
		Rows: 3, Cols: 3, RoomSize: 6, NumDists: 7, Locations: true,
		InstrKinds: []InstrKind{InstrAnd, InstrSeq},
	},
}

func (r *Registry) Lookup(name string) (GenConfig, error) {
	cfg, ok := r.levels[name]
	if !ok {
		return GenConfig{}, fmt.Errorf("unknown level %q", name)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return GenConfig{}, fmt.Errorf("level %q: %w", name, err)
	}
	return cfg, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.levels))
	for name := range r.levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadInto merges level definitions from a yaml file over the built-ins.
func (r *Registry) LoadInto(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file struct {
		Levels map[string]GenConfig `yaml:"levels"`
	}
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("levels.yaml: %w", err)
	}
	for name, cfg := range file.Levels {
		probe := cfg
		probe.applyDefaults()
		if err := probe.validate(); err != nil {
			return fmt.Errorf("levels.yaml: level %q: %w", name, err)
		}
		r.levels[name] = cfg
	}
	return nil
}
