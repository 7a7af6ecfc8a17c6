package server

import (
	"net/http"

	"github.com/mariuscautis/menu-hub-sub000/internal/config"
	"github.com/mariuscautis/menu-hub-sub000/internal/handler"

	"github.com/labstack/echo/v4"
)

func New(cfg config.Config, authH *handler.AuthHandler, tableH *handler.TableHandler, syncH *handler.SyncHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})

	authH.RegisterRoutes(e)
	tableH.RegisterRoutes(e, cfg)
	syncH.RegisterRoutes(e, cfg)

	return e
}
