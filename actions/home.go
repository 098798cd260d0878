package actions

import (
	"net/http"

	"sciviz_playground/internal/game"

	"github.com/gobuffalo/buffalo"
)

// HomeHandler describes the service.
func HomeHandler(c buffalo.Context) error {
	return c.Render(http.StatusOK, r.JSON(map[string]any{
		"service": "sandbox",
		"env":     ENV,
		"world":   game.DefaultWorldID,
		"actions": []string{
			game.ActionNoop,
			game.ActionSpawn,
			game.ActionMoveRight,
			game.ActionMoveLeft,
			game.ActionMoveUp,
			game.ActionMoveDown,
			game.ActionReset,
		},
	}))
}
