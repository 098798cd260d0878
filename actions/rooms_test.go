package actions

import (
	"encoding/json"
	"net/http"

	"sciviz_playground/internal/game"
)

func (as *ActionSuite) Test_GameState() {
	res := as.JSON("/game/state").Get()
	as.Equal(http.StatusOK, res.Code)

	state, err := game.DecodeState(res.Body.Bytes())
	as.NoError(err)
	as.True(state.Connected)
	as.Len(state.Units, 1)
	as.Equal(uint64(0), state.Tick)
	as.NotNil(state.Minimap)
	as.True(as.redis.Exists("world:" + game.DefaultWorldID))
}

func (as *ActionSuite) Test_GameState_BadWorld() {
	res := as.JSON("/game/state?world=a:b").Get()
	as.Equal(http.StatusBadRequest, res.Code)
	as.Contains(res.Body.String(), "invalid_world_id")
	as.False(as.redis.Exists("world:a:b"))
}

func (as *ActionSuite) Test_PerformAction() {
	res := as.JSON("/game/action/move_right").Post(nil)
	as.Equal(http.StatusOK, res.Code)

	state, err := game.DecodeState(res.Body.Bytes())
	as.NoError(err)
	as.Equal(game.ActionMoveRight, state.Action())
	as.Equal(uint64(1), state.Tick)

	res = as.JSON("/game/action/3").Post(nil)
	as.Equal(http.StatusOK, res.Code)
	state, err = game.DecodeState(res.Body.Bytes())
	as.NoError(err)
	as.Equal(game.ActionMoveLeft, state.Action())
	as.Equal(uint64(2), state.Tick)
}

func (as *ActionSuite) Test_PerformAction_Unknown() {
	res := as.JSON("/game/action/fly").Post(nil)
	as.Equal(http.StatusBadRequest, res.Code)

	var body game.ErrorResponse
	as.NoError(json.Unmarshal(res.Body.Bytes(), &body))
	as.Equal(game.ErrInvalidAction.Error(), body.Error)

	res = as.JSON("/game/state").Get()
	state, err := game.DecodeState(res.Body.Bytes())
	as.NoError(err)
	as.Equal(uint64(0), state.Tick)
}

func (as *ActionSuite) Test_PerformAction_SeparateWorlds() {
	res := as.JSON("/game/action/spawn?world=arena").Post(nil)
	as.Equal(http.StatusOK, res.Code)

	arena, err := game.DecodeState(as.JSON("/game/state?world=arena").Get().Body.Bytes())
	as.NoError(err)
	as.Len(arena.Units, 2)

	def, err := game.DecodeState(as.JSON("/game/state").Get().Body.Bytes())
	as.NoError(err)
	as.Len(def.Units, 1)
}
