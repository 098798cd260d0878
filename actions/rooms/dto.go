package rooms

import (
	"errors"
	"strings"
)

var ErrInvalidWorldID = errors.New("invalid_world_id")

// ValidateWorldID rejects ids that would escape the world:<id> key space.
func ValidateWorldID(id string) error {
	if id == "" || strings.ContainsAny(id, ": ") {
		return ErrInvalidWorldID
	}
	return nil
}

type PerformActionDTO struct {
	WorldID string `json:"worldId"`
	Action  string `json:"action"`
}

func (dto *PerformActionDTO) Validate() error {
	if dto.Action == "" {
		return errors.New("action_is_required")
	}
	return ValidateWorldID(dto.WorldID)
}
