package protocol

import "missiongrid.ai/internal/sim/descriptor"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	AgentName       string              `json:"agent_name"`
	Level           string              `json:"level,omitempty"`
	Seed            int64               `json:"seed,omitempty"`
	Mission         *descriptor.Mission `json:"mission,omitempty"`
	Strict          bool                `json:"strict,omitempty"`
}

// WELCOME (server -> client). Carries the full mission document so a
// client can reconstruct the world without a second round trip.
type WelcomeMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	SessionID       string             `json:"session_id"`
	EpisodeID       string             `json:"episode_id"`
	Level           string             `json:"level"`
	Seed            int64              `json:"seed"`
	MaxSteps        int                `json:"max_steps"`
	MissionText     string             `json:"mission_text"`
	Mission         descriptor.Mission `json:"mission"`
	Digest          string             `json:"digest"` // sha256 hex
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
