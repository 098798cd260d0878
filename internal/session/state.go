package session

import "sciviz_playground/internal/game"

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// StateHandler receives every valid snapshot, in delivery order.
type StateHandler func(*game.GameState)

// StateObserver receives connection state transitions.
type StateObserver func(ConnectionState)
