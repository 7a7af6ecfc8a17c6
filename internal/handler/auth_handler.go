package handler

import (
	"net/http"

	"github.com/mariuscautis/menu-hub-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

type PinLoginRequest struct {
	StaffName string `json:"staff_name"`
	PIN       string `json:"pin"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/pin", h.pinLogin)
}

func (h *AuthHandler) pinLogin(c echo.Context) error {
	var req PinLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.PinLogin(c.Request().Context(), usecase.PinLoginInput{
		StaffName: req.StaffName,
		PIN:       req.PIN,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
