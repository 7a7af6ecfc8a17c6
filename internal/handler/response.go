package handler

import (
	"net/http"

	"github.com/mariuscautis/menu-hub-sub000/internal/middleware"
	"github.com/mariuscautis/menu-hub-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

//middleware.AuthJWT が c.Set("staff_name", string) した値を取り出す

func getStaffFromContext(c echo.Context) (string, bool) {
	v := c.Get(middleware.CtxStaffNameKey)
	if v == nil {
		return "", false
	}

	name, ok := v.(string)
	if !ok || name == "" {
		return "", false
	}

	return name, true
}
