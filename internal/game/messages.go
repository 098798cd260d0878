package game

// ActionMessage is the frame a client writes to the game socket.
type ActionMessage struct {
	Action Action `json:"action"`
}

// ErrorResponse is the body the game server returns with non-2xx statuses.
// Python backends report the reason under "detail".
type ErrorResponse struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}
