package protocol

// OBS (server -> client): the world as seen after a step.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Step            int    `json:"step"`

	Agent   AgentObs    `json:"agent"`
	Doors   []DoorObs   `json:"doors"`
	Objects []ObjectObs `json:"objects"`
	Status  string      `json:"status"`
}

type AgentObs struct {
	Pos      [2]int `json:"pos"`
	Dir      int    `json:"dir"`
	Carrying int    `json:"carrying"` // object id, -1 empty-handed
}

type DoorObs struct {
	ID     int    `json:"id"`
	Color  string `json:"color"`
	Pos    [2]int `json:"pos"`
	Open   bool   `json:"open"`
	Locked bool   `json:"locked"`
}

type ObjectObs struct {
	ID      int    `json:"id"`
	Kind    string `json:"kind"`
	Color   string `json:"color"`
	Pos     [2]int `json:"pos"`
	Carried bool   `json:"carried"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Step            int    `json:"step"`
	Action          string `json:"action"`
}

// VERDICT (server -> client): sent after every accepted action; a
// terminal status ends the episode.
type VerdictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EpisodeID       string `json:"episode_id"`
	Step            int    `json:"step"`
	Status          string `json:"status"`
	StrictNode      string `json:"strict_node,omitempty"`
}
