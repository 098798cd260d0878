package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sciviz_playground/internal/game"
)

const maxResponseBytes = 8 << 20

// StatusError is returned by the REST helpers for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// GetGameState fetches the current snapshot over HTTP. Transport failures
// are returned as the http.Client reported them.
func (c *Client) GetGameState(ctx context.Context) (*game.GameState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GameStateURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		return nil, statusError("get game state", resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	state, err := game.DecodeState(body)
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return state, nil
}

// PerformAction posts one action to the server and waits for its verdict.
func (c *Client) PerformAction(ctx context.Context, action game.Action) error {
	if action.IsZero() {
		return game.ErrInvalidAction
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ActionURL(action.String()), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		return statusError("perform action "+action.String(), resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

func successful(code int) bool {
	return code >= 200 && code < 300
}

func statusError(op string, resp *http.Response) *StatusError {
	serr := &StatusError{Op: op, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return serr
	}

	var payload game.ErrorResponse
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			serr.Message = payload.Error
		} else {
			serr.Message = payload.Detail
		}
	}
	return serr
}
