package actions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"sciviz_playground/actions/rooms"
	"sciviz_playground/internal/game"
	"sciviz_playground/internal/realtime"

	"github.com/gobuffalo/buffalo"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameWebSocketHandler attaches a client to a world: it sends the current
// snapshot, then applies every {"action": ...} frame and broadcasts the
// resulting snapshot to all clients of the world.
func GameWebSocketHandler(c buffalo.Context) error {
	clientID := c.Param("clientID")
	if clientID == "" {
		return c.Error(http.StatusBadRequest, errors.New("missing clientID"))
	}
	worldID := rooms.WorldParam(c)
	if err := rooms.ValidateWorldID(worldID); err != nil {
		return c.Error(http.StatusBadRequest, err)
	}

	ctx := context.Background()
	world, err := gameStore.LoadWorld(ctx, worldID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load world.")
		return c.Error(http.StatusInternalServerError, err)
	}
	if _, err := gameStore.CreateClientSession(ctx, clientID, worldID); err != nil {
		log.Error().Err(err).Msg("Failed to create client session.")
		return c.Error(http.StatusInternalServerError, err)
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		_ = gameStore.EndClientSession(ctx, clientID)
		return err
	}

	client := realtime.NewClient(conn, worldID, clientID)
	realtime.Manager.AddClient(client)
	defer func() {
		realtime.Manager.RemoveClient(client)
		if err := gameStore.EndClientSession(ctx, clientID); err != nil {
			log.Error().Err(err).Msg("Failed to end client session.")
		}
		_ = conn.Close()
	}()

	logger := log.With().Str("client_id", clientID).Str("world_id", worldID).Logger()
	logger.Info().Msg("Client attached.")

	snapshot, err := json.Marshal(world.Snapshot())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal state.")
		return nil
	}
	if err := client.Send(snapshot); err != nil {
		return nil
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Msg("Client detached.")
			return nil
		}

		var msg game.ActionMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Action.IsZero() {
			logger.Warn().Int("bytes", len(data)).Msg("Discarding malformed action message.")
			continue
		}

		state, err := gameStore.ApplyAction(ctx, worldID, msg.Action)
		if errors.Is(err, game.ErrInvalidAction) {
			logger.Warn().Stringer("action", msg.Action).Msg("Ignoring unknown action.")
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to apply action.")
			continue
		}

		actionsApplied.WithLabelValues("ws").Inc()
		game.BroadcastState(realtime.Manager, worldID, state)
	}
}
