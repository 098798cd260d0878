package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedState = errors.New("malformed_state")

type Unit struct {
	Position [2]float64 `json:"position"`
	Type     string     `json:"type"`
	Health   float64    `json:"health"`
}

type Minimap struct {
	HeightMap     [][]float64 `json:"height_map,omitempty"`
	VisibilityMap [][]float64 `json:"visibility_map,omitempty"`
}

// GameState is one snapshot pushed by the game server. Fields the client does
// not model are still available through Raw.
type GameState struct {
	Minimap       *Minimap `json:"minimap,omitempty"`
	Units         []Unit   `json:"units"`
	Connected     bool     `json:"connected"`
	CurrentAction *Action  `json:"current_action,omitempty"`
	Tick          uint64   `json:"tick,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeState parses a server frame. Anything that is not a JSON object is
// ErrMalformedState. Within an object, each modelled field is decoded on its
// own and left zero when its shape differs; Raw always holds the payload.
func DecodeState(data []byte) (*GameState, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, ErrMalformedState
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	state := &GameState{Raw: append(json.RawMessage(nil), trimmed...)}
	decodeField(fields, "minimap", &state.Minimap)
	decodeField(fields, "units", &state.Units)
	decodeField(fields, "connected", &state.Connected)
	decodeField(fields, "current_action", &state.CurrentAction)
	decodeField(fields, "tick", &state.Tick)
	return state, nil
}

func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// Fields decodes the raw payload into a generic map, for display layers that
// render server fields the client does not model.
func (s *GameState) Fields() (map[string]any, error) {
	if s == nil || len(s.Raw) == 0 {
		return nil, ErrMalformedState
	}
	var fields map[string]any
	if err := json.Unmarshal(s.Raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *GameState) Action() string {
	if s == nil || s.CurrentAction == nil {
		return ""
	}
	return s.CurrentAction.String()
}
