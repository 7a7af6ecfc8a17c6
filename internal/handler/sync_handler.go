package handler

import (
	"net/http"

	"github.com/mariuscautis/menu-hub-sub000/internal/config"
	"github.com/mariuscautis/menu-hub-sub000/internal/middleware"
	"github.com/mariuscautis/menu-hub-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SyncHandler struct {
	uc *usecase.ReconcileUsecase
}

func NewSyncHandler(uc *usecase.ReconcileUsecase) *SyncHandler {
	return &SyncHandler{uc: uc}
}

type InvalidateResponse struct {
	Epoch int64 `json:"epoch"`
}

func (h *SyncHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/sync")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.resync)
	//変更通知（リモートが変わったかもしれない）の受け口
	g.POST("/invalidate", h.invalidate)
}

func (h *SyncHandler) resync(c echo.Context) error {
	out, err := h.uc.Resync(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SyncHandler) invalidate(c echo.Context) error {
	epoch := h.uc.InvalidateCache()
	return c.JSON(http.StatusOK, InvalidateResponse{Epoch: epoch})
}
