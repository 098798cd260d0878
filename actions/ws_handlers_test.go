package actions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sciviz_playground/internal/config"
	"sciviz_playground/internal/game"
	"sciviz_playground/internal/realtime"
	"sciviz_playground/internal/session"
)

func (as *ActionSuite) newSession(srv *httptest.Server) *session.Client {
	cfg := config.Config{
		BackendURL:           srv.URL,
		WSURL:                "ws" + strings.TrimPrefix(srv.URL, "http"),
		WSPath:               "/ws",
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
	}
	return session.New(cfg)
}

func (as *ActionSuite) nextState(frames <-chan *game.GameState) *game.GameState {
	select {
	case s := <-frames:
		return s
	case <-time.After(3 * time.Second):
		as.FailNow("no state received")
		return nil
	}
}

func (as *ActionSuite) Test_SessionRoundTrip() {
	srv := httptest.NewServer(as.App)
	defer srv.Close()

	client := as.newSession(srv)
	defer client.Disconnect()

	frames := make(chan *game.GameState, 8)
	as.Require().NoError(client.Connect(func(s *game.GameState) { frames <- s }))

	first := as.nextState(frames)
	as.True(first.Connected)
	as.Require().Len(first.Units, 1)
	as.Equal(session.Connected, client.State())

	ctx := context.Background()
	sess, err := gameStore.ClientSession(ctx, client.ClientID())
	as.NoError(err)
	as.Equal(game.DefaultWorldID, sess.WorldID)

	as.True(client.SendAction(game.CodeAction(2)))
	moved := as.nextState(frames)
	as.Equal(game.ActionMoveRight, moved.Action())
	as.Equal(first.Units[0].Position[0]+1, moved.Units[0].Position[0])

	// REST actions reach socket subscribers too.
	as.NoError(client.PerformAction(ctx, game.NamedAction(game.ActionSpawn)))
	spawned := as.nextState(frames)
	as.Len(spawned.Units, 2)

	state, err := client.GetGameState(ctx)
	as.NoError(err)
	as.Equal(uint64(2), state.Tick)

	err = client.PerformAction(ctx, game.NamedAction("fly"))
	var serr *session.StatusError
	as.True(errors.As(err, &serr))
	as.Equal(http.StatusBadRequest, serr.StatusCode)
	as.Equal(game.ErrInvalidAction.Error(), serr.Message)
}

func (as *ActionSuite) Test_SessionIgnoresBadActions() {
	srv := httptest.NewServer(as.App)
	defer srv.Close()

	client := as.newSession(srv)
	defer client.Disconnect()

	frames := make(chan *game.GameState, 8)
	as.Require().NoError(client.Connect(func(s *game.GameState) { frames <- s }))
	as.nextState(frames)

	as.True(client.SendAction(game.NamedAction("fly")))
	as.True(client.SendAction(game.NamedAction(game.ActionNoop)))

	next := as.nextState(frames)
	as.Equal(game.ActionNoop, next.Action())
	as.Equal(uint64(1), next.Tick)
}

func (as *ActionSuite) Test_SessionDetach() {
	srv := httptest.NewServer(as.App)
	defer srv.Close()

	client := as.newSession(srv)
	frames := make(chan *game.GameState, 8)
	as.Require().NoError(client.Connect(func(s *game.GameState) { frames <- s }))
	as.nextState(frames)
	as.Eventually(func() bool {
		return realtime.Manager.Count(game.DefaultWorldID) == 1
	}, 3*time.Second, 10*time.Millisecond)

	client.Disconnect()
	as.Eventually(func() bool {
		return realtime.Manager.Count(game.DefaultWorldID) == 0
	}, 3*time.Second, 10*time.Millisecond)

	_, err := gameStore.ClientSession(context.Background(), client.ClientID())
	as.ErrorIs(err, game.ErrSessionNotFound)
}

func (as *ActionSuite) Test_GameWebSocket_RejectsBadWorld() {
	srv := httptest.NewServer(as.App)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/intruder?world=a:b"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if conn != nil {
		conn.Close()
	}
	as.Error(err)
	as.Require().NotNil(resp)
	as.Equal(http.StatusBadRequest, resp.StatusCode)

	as.False(as.redis.Exists("world:a:b"))
	as.False(as.redis.Exists("session:intruder"))
}
