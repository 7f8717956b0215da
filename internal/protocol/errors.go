package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Mission setup.
	ErrLevelNotFound = "E_LEVEL_NOT_FOUND"
	ErrBadMission    = "E_BAD_MISSION"
	ErrGenBudget     = "E_GEN_BUDGET"

	// Episode layer.
	ErrBadAction   = "E_BAD_ACTION"
	ErrEpisodeOver = "E_EPISODE_OVER"
	ErrNoEpisode   = "E_NO_EPISODE"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrLevelNotFound:   {},
	ErrBadMission:      {},
	ErrGenBudget:       {},
	ErrBadAction:       {},
	ErrEpisodeOver:     {},
	ErrNoEpisode:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
