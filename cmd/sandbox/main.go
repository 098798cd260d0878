package main

import (
	"github.com/gobuffalo/envy"
	"github.com/rs/zerolog/log"

	"sciviz_playground/actions"
	"sciviz_playground/internal/logger"
)

func main() {
	logger.Init(envy.Get("LOG_LEVEL", "info"))

	app := actions.App()
	if err := app.Serve(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start sandbox server.")
	}
}
