package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	gw "github.com/mariuscautis/menu-hub-sub000/internal/gateway"
)

// HTTPGateway は本部バックエンドのJSON APIを叩く RemoteGateway 実装。
// 書き込みは全て X-Idempotency-Key ヘッダでmutation_idを運ぶ。
type HTTPGateway struct {
	baseURL      string
	restaurantID int64
	http         *http.Client
	logger       *slog.Logger
}

func NewHTTPGateway(baseURL string, restaurantID int64, client *http.Client, logger *slog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL:      strings.TrimRight(baseURL, "/"),
		restaurantID: restaurantID,
		http:         client,
		logger:       logger,
	}
}

type remoteOrderDTO struct {
	ID      int64            `json:"id"`
	TableID int64            `json:"table_id"`
	Items   []model.LineItem `json:"items"`
	Total   int64            `json:"total"`
	Paid    bool             `json:"paid"`
}

type createOrderRequest struct {
	TableID      int64            `json:"table_id"`
	RestaurantID int64            `json:"restaurant_id"`
	Items        []model.LineItem `json:"items"`
}

type createOrderResponse struct {
	OrderID int64 `json:"order_id"`
}

type replaceItemsRequest struct {
	Items []model.LineItem `json:"items"`
}

type recordPaymentRequest struct {
	RestaurantID int64   `json:"restaurant_id"`
	OrderIDs     []int64 `json:"order_ids"`
	Method       string  `json:"method"`
	Amount       int64   `json:"amount"`
	PaidBy       string  `json:"paid_by"`
}

func (g *HTTPGateway) FetchOpenOrders(ctx context.Context, tableID int64) ([]model.RemoteOrder, error) {
	url := fmt.Sprintf("%s/restaurants/%d/tables/%d/orders?status=open", g.baseURL, g.restaurantID, tableID)

	var dtos []remoteOrderDTO
	if err := g.do(ctx, http.MethodGet, url, "", nil, &dtos); err != nil {
		return nil, err
	}

	orders := make([]model.RemoteOrder, 0, len(dtos))
	for _, d := range dtos {
		orders = append(orders, model.RemoteOrder(d))
	}
	return orders, nil
}

func (g *HTTPGateway) CreateOrder(ctx context.Context, mutationID string, tableID int64, restaurantID int64, items []model.LineItem) (int64, error) {
	url := g.baseURL + "/orders"
	req := createOrderRequest{TableID: tableID, RestaurantID: restaurantID, Items: items}

	var res createOrderResponse
	err := g.do(ctx, http.MethodPost, url, mutationID, req, &res)
	if err != nil {
		return 0, err
	}
	return res.OrderID, nil
}

func (g *HTTPGateway) ReplaceOrderItems(ctx context.Context, mutationID string, orderID int64, items []model.LineItem) error {
	url := fmt.Sprintf("%s/orders/%d/items", g.baseURL, orderID)
	return g.do(ctx, http.MethodPut, url, mutationID, replaceItemsRequest{Items: items}, nil)
}

func (g *HTTPGateway) RecordPayment(ctx context.Context, mutationID string, orderIDs []int64, method model.PaymentMethod, amount int64, paidBy string) error {
	url := g.baseURL + "/payments"
	req := recordPaymentRequest{
		RestaurantID: g.restaurantID,
		OrderIDs:     orderIDs,
		Method:       string(method),
		Amount:       amount,
		PaidBy:       paidBy,
	}
	return g.do(ctx, http.MethodPost, url, mutationID, req, nil)
}

// do はリクエスト送信とエラー分類をまとめる。
// 送れない/タイムアウト/5xx → ErrUnavailable（オフライン扱い）
// 409 + duplicate → ErrAlreadyApplied（冪等キー処理済み）
// その他4xx → RejectedError（業務拒否）
func (g *HTTPGateway) do(ctx context.Context, method string, url string, mutationID string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if mutationID != "" {
		req.Header.Set("X-Idempotency-Key", mutationID)
	}

	res, err := g.http.Do(req)
	if err != nil {
		//ネットワーク不達・タイムアウトはオフライン扱い
		g.logger.Warn("remote unreachable", "method", method, "url", url, "err", err)
		return gw.ErrUnavailable
	}
	defer res.Body.Close()

	if res.StatusCode >= 500 {
		g.logger.Warn("remote server error", "method", method, "url", url, "status", res.StatusCode)
		return gw.ErrUnavailable
	}

	if res.StatusCode == http.StatusConflict {
		//冪等キー処理済みかどうかをボディで見分ける
		var dup struct {
			Duplicate bool   `json:"duplicate"`
			OrderID   int64  `json:"order_id"`
			Error     string `json:"error"`
		}
		raw, _ := io.ReadAll(res.Body)
		if json.Unmarshal(raw, &dup) == nil && dup.Duplicate {
			if out != nil && dup.OrderID != 0 {
				//作成の再送は既存のIDをそのまま返す
				if r, ok := out.(*createOrderResponse); ok {
					r.OrderID = dup.OrderID
					return nil
				}
			}
			return gw.ErrAlreadyApplied
		}
		return &gw.RejectedError{Status: res.StatusCode, Message: errMessage(dup.Error)}
	}

	if res.StatusCode >= 400 {
		var rej struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(res.Body)
		_ = json.Unmarshal(raw, &rej)
		return &gw.RejectedError{Status: res.StatusCode, Message: errMessage(rej.Error)}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return gw.ErrUnavailable
		}
	}
	return nil
}

func errMessage(msg string) string {
	if msg == "" {
		return "rejected"
	}
	return msg
}
