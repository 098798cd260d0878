package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidAction = errors.New("invalid_action")

// Action is an opcode understood by the game server. Some environments use
// names ("move_left"), others integer codes (Breakout: 2 right, 3 left).
type Action struct {
	name    string
	code    int
	numeric bool
}

func NamedAction(name string) Action {
	return Action{name: name}
}

func CodeAction(code int) Action {
	return Action{code: code, numeric: true}
}

// ParseAction turns user input into an Action. Integers become codes.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Action{}, ErrInvalidAction
	}
	if code, err := strconv.Atoi(s); err == nil {
		return CodeAction(code), nil
	}
	return NamedAction(s), nil
}

func (a Action) IsZero() bool {
	return !a.numeric && a.name == ""
}

func (a Action) IsCode() bool {
	return a.numeric
}

func (a Action) Code() int {
	return a.code
}

func (a Action) Name() string {
	return a.name
}

func (a Action) String() string {
	if a.numeric {
		return strconv.Itoa(a.code)
	}
	return a.name
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.numeric {
		return json.Marshal(a.code)
	}
	return json.Marshal(a.name)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidAction
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if name == "" {
			return ErrInvalidAction
		}
		*a = NamedAction(name)
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return ErrInvalidAction
	}
	*a = CodeAction(code)
	return nil
}
