package actions

import (
	"net/http"
	"strings"
)

func (as *ActionSuite) Test_HomeHandler() {
	res := as.JSON("/").Get()
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), `"service":"sandbox"`)
	as.Contains(res.Body.String(), `"move_left"`)
}

func (as *ActionSuite) Test_Healthz() {
	res := as.JSON("/healthz").Get()
	as.Equal(http.StatusOK, res.Code)
	as.JSONEq(`{"status": "ok"}`, strings.TrimSpace(res.Body.String()))
}

func (as *ActionSuite) Test_Metrics() {
	as.JSON("/game/action/noop").Post(nil)

	res := as.HTML("/metrics").Get()
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), "sandbox_websocket_clients")
	as.Contains(res.Body.String(), `sandbox_actions_applied_total{source="http"}`)
}
