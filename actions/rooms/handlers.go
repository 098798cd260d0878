package rooms

import (
	"errors"
	"net/http"

	"sciviz_playground/internal/game"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/buffalo/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var renderer = render.New(render.Options{})

// RoomsController serves the REST side of a world. Each world is a room of
// websocket subscribers that receive every snapshot an action produces.
type RoomsController struct {
	Store       *game.Store
	Broadcaster game.Broadcaster
	Applied     prometheus.Counter
}

func NewRoomsController(store *game.Store, broadcaster game.Broadcaster) *RoomsController {
	return &RoomsController{Store: store, Broadcaster: broadcaster}
}

// WorldParam reads the optional ?world= selector.
func WorldParam(ctx buffalo.Context) string {
	if id := ctx.Param("world"); id != "" {
		return id
	}
	return game.DefaultWorldID
}

func (controller *RoomsController) State(ctx buffalo.Context) error {
	worldID := WorldParam(ctx)
	if err := ValidateWorldID(worldID); err != nil {
		return ctx.Render(http.StatusBadRequest, renderer.JSON(game.ErrorResponse{Error: err.Error()}))
	}

	world, err := controller.Store.LoadWorld(ctx, worldID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load world.")
		return ctx.Render(http.StatusInternalServerError, renderer.JSON(game.ErrorResponse{
			Error: err.Error(),
		}))
	}
	return ctx.Render(http.StatusOK, renderer.JSON(world.Snapshot()))
}

func (controller *RoomsController) PerformAction(ctx buffalo.Context) error {
	dto := PerformActionDTO{
		WorldID: WorldParam(ctx),
		Action:  ctx.Param("action"),
	}
	if err := dto.Validate(); err != nil {
		return ctx.Render(http.StatusBadRequest, renderer.JSON(game.ErrorResponse{Error: err.Error()}))
	}

	action, err := game.ParseAction(dto.Action)
	if err != nil {
		return ctx.Render(http.StatusBadRequest, renderer.JSON(game.ErrorResponse{Error: err.Error()}))
	}

	state, err := controller.Store.ApplyAction(ctx, dto.WorldID, action)
	if errors.Is(err, game.ErrInvalidAction) {
		return ctx.Render(http.StatusBadRequest, renderer.JSON(game.ErrorResponse{Error: err.Error()}))
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to apply action.")
		return ctx.Render(http.StatusInternalServerError, renderer.JSON(game.ErrorResponse{
			Error: err.Error(),
		}))
	}

	if controller.Applied != nil {
		controller.Applied.Inc()
	}
	if controller.Broadcaster != nil {
		game.BroadcastState(controller.Broadcaster, dto.WorldID, state)
	}
	return ctx.Render(http.StatusOK, renderer.JSON(state))
}
