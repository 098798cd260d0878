package actions

import "github.com/gobuffalo/buffalo/render"

var r = render.New(render.Options{
	DefaultContentType: "application/json",
})
