package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on the server's root group.
type Handler interface {
	RegisterRoutes(g *echo.Group)
}
