package handler

import (
	"net/http"
	"strconv"

	"github.com/mariuscautis/menu-hub-sub000/internal/config"
	"github.com/mariuscautis/menu-hub-sub000/internal/middleware"
	"github.com/mariuscautis/menu-hub-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type TableHandler struct {
	uc *usecase.ReconcileUsecase
}

func NewTableHandler(uc *usecase.ReconcileUsecase) *TableHandler {
	return &TableHandler{uc: uc}
}

type SubmitItemRequest struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
}

type SubmitOrderRequest struct {
	Items []SubmitItemRequest `json:"items"`
}

type PaymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func (h *TableHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/tables")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/pending", h.pending)
	g.GET("/:id/order", h.view)
	g.POST("/:id/order", h.submit)
	g.POST("/:id/payment", h.pay)
}

func (h *TableHandler) view(c echo.Context) error {
	tableID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	//epochはUIが前回描画した世代（無ければ0）
	var epoch int64
	if v := c.QueryParam("epoch"); v != "" {
		epoch, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid epoch"})
		}
	}

	out, err := h.uc.AssembleView(c.Request().Context(), tableID, epoch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TableHandler) submit(c echo.Context) error {
	if _, ok := getStaffFromContext(c); !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	tableID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SubmitOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	items := make([]usecase.SubmitItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.SubmitItemInput{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	out, err := h.uc.SubmitOrder(c.Request().Context(), tableID, usecase.SubmitOrderInput{Items: items})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TableHandler) pay(c echo.Context) error {
	staffName, ok := getStaffFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	tableID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SubmitPayment(c.Request().Context(), tableID, usecase.PaymentInput{
		Amount: req.Amount,
		Method: req.Method,
		PaidBy: staffName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TableHandler) pending(c echo.Context) error {
	out, err := h.uc.PendingMoney(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
