// Package gateway はリモート（本部バックエンド）との境界。
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
)

// 接続不可・タイムアウト・5xx。オフライン扱いにする。
var ErrUnavailable = errors.New("remote unavailable")

// 同じmutation_idを既に処理済み。成功扱いにする。
var ErrAlreadyApplied = errors.New("mutation already applied")

// RejectedError は業務ルールによる拒否（例：テーブルの二重予約）。
// キューには積まず、そのままオペレーターに見せる。
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote rejected: %d: %s", e.Status, e.Message)
}

func AsRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	ok := errors.As(err, &re)
	return re, ok
}

// RemoteGateway の書き込み系は全てmutation_idを冪等キーとして運ぶ。
// リトライで同じキーが届いたらリモート側（か手前のアダプタ）がno-opする。
type RemoteGateway interface {
	FetchOpenOrders(ctx context.Context, tableID int64) ([]model.RemoteOrder, error)
	CreateOrder(ctx context.Context, mutationID string, tableID int64, restaurantID int64, items []model.LineItem) (int64, error)
	ReplaceOrderItems(ctx context.Context, mutationID string, orderID int64, items []model.LineItem) error
	RecordPayment(ctx context.Context, mutationID string, orderIDs []int64, method model.PaymentMethod, amount int64, paidBy string) error
}

// ConnectivityOracle は操作の開始時に1回だけ見るオンライン判定。
// 操作の途中で変わりうるのでtrueでも書き込みは失敗しうる。
type ConnectivityOracle interface {
	IsOnline(ctx context.Context) bool
}
