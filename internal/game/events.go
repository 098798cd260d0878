package game

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Broadcaster fans a payload out to every subscriber of a world.
type Broadcaster interface {
	Broadcast(worldID string, msg []byte) int
}

// BroadcastState sends the snapshot to every client watching the world and
// returns how many clients received it.
func BroadcastState(b Broadcaster, worldID string, state *GameState) int {
	if state == nil {
		return 0
	}

	data, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal state.")
		return 0
	}

	return b.Broadcast(worldID, data)
}
