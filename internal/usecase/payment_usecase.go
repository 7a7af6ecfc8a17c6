package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	"github.com/mariuscautis/menu-hub-sub000/internal/gateway"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"
)

type PaymentInput struct {
	Amount int64
	Method string
	PaidBy string
}

type PaymentOutput struct {
	MutationID string `json:"mutation_id,omitempty"`
	Queued     bool   `json:"queued"`
}

// SubmitPayment は支払い。オンラインならリモートに記録して後片付け、
// オフラインは現金のみキューに積む（カードはオフラインで成立させられない）。
func (u *ReconcileUsecase) SubmitPayment(ctx context.Context, tableID int64, in PaymentInput) (PaymentOutput, error) {
	if tableID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid table_id")
	}
	if in.Amount <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid amount")
	}

	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(in.Method)))
	if method != model.PaymentMethodCash && method != model.PaymentMethodCard {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid method")
	}

	unlock := u.lockTable(tableID)
	defer unlock()

	b, err := u.assembleLocked(ctx, tableID)
	if err != nil {
		return PaymentOutput{}, err
	}

	if b.online {
		out, err := u.payDirect(ctx, tableID, b, method, in)
		if !errors.Is(err, gateway.ErrUnavailable) {
			return out, err
		}
		b.online = false
	}

	return u.queuePaymentOffline(ctx, tableID, b, method, in)
}

// payDirect はオンライン経路。未送信分を先に流し込み、
// リモートの注文ID一式で支払いRPCを呼ぶ。
func (u *ReconcileUsecase) payDirect(ctx context.Context, tableID int64, b tableBase, method model.PaymentMethod, in PaymentInput) (PaymentOutput, error) {
	idMap, err := u.replayTableLocked(ctx, tableID)
	if err != nil {
		if re, ok := gateway.AsRejected(err); ok {
			return PaymentOutput{}, NewHTTPError(re.Status, re.Message)
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return PaymentOutput{}, err
		}
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	seen := map[int64]bool{}
	orderIDs := make([]int64, 0, len(b.remote)+len(idMap))
	for _, ro := range b.remote {
		if !ro.Paid && !seen[ro.ID] {
			seen[ro.ID] = true
			orderIDs = append(orderIDs, ro.ID)
		}
	}
	for _, id := range idMap {
		if !seen[id] {
			seen[id] = true
			orderIDs = append(orderIDs, id)
		}
	}
	if len(orderIDs) == 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "nothing to pay")
	}

	mutationID := u.idGen.New()
	err = u.gw.RecordPayment(ctx, mutationID, orderIDs, method, in.Amount, in.PaidBy)
	if errors.Is(err, gateway.ErrAlreadyApplied) {
		err = nil
	}
	if err != nil {
		if re, ok := gateway.AsRejected(err); ok {
			return PaymentOutput{}, NewHTTPError(re.Status, re.Message)
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return PaymentOutput{}, err
		}
		return PaymentOutput{}, NewHTTPError(http.StatusBadGateway, "remote error")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.PendingOrders().DeleteByTableID(ctx, tableID); err != nil {
			return err
		}
		if err := r.PendingUpdates().DeleteByTableID(ctx, tableID); err != nil {
			return err
		}
		if err := r.PendingPayments().DeleteByTableID(ctx, tableID); err != nil {
			return err
		}
		return r.TableStates().SetAwaitingCleaning(ctx, tableID, true)
	})
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	u.dropSnapshot(tableID)

	return PaymentOutput{Queued: false}, nil
}

// queuePaymentOffline は現金だけ。支払いを積み、対象の未送信注文を
// PAID_OFFLINEにして、テーブルをローカルで片付け待ちにする。
func (u *ReconcileUsecase) queuePaymentOffline(ctx context.Context, tableID int64, b tableBase, method model.PaymentMethod, in PaymentInput) (PaymentOutput, error) {
	if method == model.PaymentMethodCard {
		//カード決済はオフラインで持ち越せない
		return PaymentOutput{}, NewHTTPError(http.StatusServiceUnavailable, "card payment requires connectivity")
	}

	seen := map[int64]bool{}
	orderIDs := make([]int64, 0, len(b.remote)+len(b.updates))
	for _, ro := range b.remote {
		if !ro.Paid && !seen[ro.ID] {
			seen[ro.ID] = true
			orderIDs = append(orderIDs, ro.ID)
		}
	}
	//スナップショットは再起動で消えるが、増分キューはOrderIDを永続で持っている
	for _, up := range b.updates {
		if !seen[up.OrderID] {
			seen[up.OrderID] = true
			orderIDs = append(orderIDs, up.OrderID)
		}
	}

	orderMutationIDs := make([]string, 0, len(b.orders))
	for _, o := range b.orders {
		if o.Status == model.PendingOrderStatusPending {
			orderMutationIDs = append(orderMutationIDs, o.MutationID)
		}
	}

	if len(orderIDs) == 0 && len(orderMutationIDs) == 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "nothing to pay")
	}

	mutationID := u.idGen.New()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		payment := model.PendingPayment{
			MutationID:       mutationID,
			TableID:          tableID,
			RestaurantID:     u.restaurantID,
			OrderIDs:         orderIDs,
			OrderMutationIDs: orderMutationIDs,
			TotalAmount:      in.Amount,
			Method:           method,
			PaidBy:           in.PaidBy,
			CreatedAt:        u.clock.Now(),
		}
		if _, err := r.PendingPayments().Create(ctx, payment); err != nil {
			return err
		}
		if err := r.PendingOrders().MarkPaidOffline(ctx, orderMutationIDs); err != nil {
			return err
		}
		return r.TableStates().SetAwaitingCleaning(ctx, tableID, true)
	})
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return PaymentOutput{MutationID: mutationID, Queued: true}, nil
}
