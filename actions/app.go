package actions

import (
	"sync"

	"sciviz_playground/actions/rooms"
	"sciviz_playground/internal/game"
	"sciviz_playground/internal/realtime"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/middleware/contenttype"
	"github.com/gobuffalo/middleware/forcessl"
	"github.com/gobuffalo/middleware/paramlogger"
	"github.com/gobuffalo/x/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/unrolled/secure"
)

var ENV = envy.Get("GO_ENV", "development")

var (
	app       *buffalo.App
	appOnce   sync.Once
	gameStore *game.Store
)

// App is the sandbox game server. It serves the same routes the playground
// client talks to, backed by Redis.
func App() *buffalo.App {
	appOnce.Do(func() {
		app = buffalo.New(buffalo.Options{
			Env:          ENV,
			SessionStore: sessions.Null{},
			PreWares: []buffalo.PreWare{
				cors.Default().Handler,
			},
			SessionName: "_sandbox_session",
		})

		app.Use(forceSSL())
		app.Use(paramlogger.ParameterLogger)
		app.Use(contenttype.Set("application/json"))

		app.GET("/", HomeHandler)
		app.GET("/healthz", func(ctx buffalo.Context) error {
			return ctx.Render(200, r.JSON(map[string]string{
				"status": "ok",
			}))
		})

		redisClient := redis.NewClient(&redis.Options{
			Addr:     envy.Get("REDIS_ADDR", "localhost:6379"),
			Password: envy.Get("REDIS_PASSWORD", ""),
			DB:       0,
		})

		gameStore = game.NewStore(redisClient)
		roomsController := rooms.NewRoomsController(gameStore, realtime.Manager)
		roomsController.Applied = actionsApplied.WithLabelValues("http")
		rooms.Register(app, roomsController)

		app.GET("/ws/{clientID}", GameWebSocketHandler)

		registerMetrics()
		app.GET("/metrics", metricsHandler())
	})

	return app
}

func forceSSL() buffalo.MiddlewareFunc {
	return forcessl.Middleware(secure.Options{
		SSLRedirect:     ENV == "production",
		SSLProxyHeaders: map[string]string{"X-Forwarded-Proto": "https"},
	})
}
