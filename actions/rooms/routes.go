package rooms

import "github.com/gobuffalo/buffalo"

func Register(app *buffalo.App, controller *RoomsController) {
	app.GET("/game/state", controller.State)
	app.POST("/game/action/{action}", controller.PerformAction)
}
