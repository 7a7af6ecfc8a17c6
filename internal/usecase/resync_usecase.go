package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	"github.com/mariuscautis/menu-hub-sub000/internal/gateway"
	"github.com/mariuscautis/menu-hub-sub000/internal/merge"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"
)

type TableResyncResult struct {
	TableID int64  `json:"table_id"`
	Synced  bool   `json:"synced"`
	Error   string `json:"error,omitempty"`
}

type ResyncOutput struct {
	Tables []TableResyncResult `json:"tables"`
	Synced int                 `json:"synced"`
	Failed int                 `json:"failed"`
}

// Resync は接続が戻ったときの再送。テーブルごとに積んだ順で流し、
// 全部通ったテーブルだけ片付ける。失敗したテーブルは何も捨てず次回に回す。
func (u *ReconcileUsecase) Resync(ctx context.Context) (ResyncOutput, error) {
	tableIDs, err := u.tablesWithPending(ctx)
	if err != nil {
		return ResyncOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := ResyncOutput{Tables: make([]TableResyncResult, 0, len(tableIDs))}
	for _, tableID := range tableIDs {
		err := func() error {
			unlock := u.lockTable(tableID)
			defer unlock()

			_, err := u.replayTableLocked(ctx, tableID)
			return err
		}()

		if err != nil {
			u.logger.Warn("resync failed", "table_id", tableID, "err", err)
			out.Tables = append(out.Tables, TableResyncResult{TableID: tableID, Error: err.Error()})
			out.Failed++
			continue
		}
		out.Tables = append(out.Tables, TableResyncResult{TableID: tableID, Synced: true})
		out.Synced++
	}

	return out, nil
}

func (u *ReconcileUsecase) tablesWithPending(ctx context.Context) ([]int64, error) {
	seen := map[int64]bool{}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.PendingOrders().SummaryByTable(ctx)
		if err != nil {
			return err
		}
		for _, s := range orders {
			seen[s.TableID] = true
		}

		updates, err := r.PendingUpdates().SummaryByTable(ctx)
		if err != nil {
			return err
		}
		for _, s := range updates {
			seen[s.TableID] = true
		}

		payments, err := r.PendingPayments().ListAll(ctx)
		if err != nil {
			return err
		}
		for _, p := range payments {
			seen[p.TableID] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// replayTableLocked は1テーブル分の保留を積んだ順に再送する。
// 必ず保存時と同じmutation_idを使う。前回の同期が途中で死んでいても、
// リモート（か手前のアダプタ）が同じキーを見てno-opできる。
// テーブルロックを取った状態で呼ぶこと。
func (u *ReconcileUsecase) replayTableLocked(ctx context.Context, tableID int64) (map[string]int64, error) {
	var orders []model.PendingOrder
	var updates []model.PendingUpdate
	var payments []model.PendingPayment

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if orders, err = r.PendingOrders().ListByTableID(ctx, tableID); err != nil {
			return err
		}
		if updates, err = r.PendingUpdates().ListByTableID(ctx, tableID); err != nil {
			return err
		}
		payments, err = r.PendingPayments().ListByTableID(ctx, tableID)
		return err
	})
	if err != nil {
		return nil, err
	}

	idMap := map[string]int64{}
	if len(orders) == 0 && len(updates) == 0 && len(payments) == 0 {
		return idMap, nil
	}

	//1. 未送信注文（作成の再送は既存IDがそのまま返る約束）
	for _, o := range orders {
		orderID, err := u.gw.CreateOrder(ctx, o.MutationID, o.TableID, o.RestaurantID, asRequest(o.Items))
		if errors.Is(err, gateway.ErrAlreadyApplied) {
			//適用済みだがIDが返らなかった。支払い側がリモートを読み直して補う
			continue
		}
		if err != nil {
			return nil, err
		}
		idMap[o.MutationID] = orderID
	}

	//2. 増分。今のリモートを読み直し、その上に積んだ順で適用する
	if len(updates) > 0 {
		remote, err := u.gw.FetchOpenOrders(ctx, tableID)
		if err != nil {
			return nil, err
		}
		baseByOrder := map[int64][]model.LineItem{}
		for _, ro := range remote {
			baseByOrder[ro.ID] = ro.Items
		}

		for _, up := range updates {
			desired := merge.Consolidate(append(baseByOrder[up.OrderID], asRequest(up.AddedItems)...))
			err := u.gw.ReplaceOrderItems(ctx, up.MutationID, up.OrderID, asRequest(desired))
			if errors.Is(err, gateway.ErrAlreadyApplied) {
				//適用済みならリモートは既に反映している。ベースは進めない
				continue
			}
			if err != nil {
				return nil, err
			}
			baseByOrder[up.OrderID] = desired
		}
	}

	//3. 支払い。未送信注文ぶんはこのパスで採番されたIDに差し替える
	for _, p := range payments {
		orderIDs, err := u.resolvePaymentOrders(ctx, tableID, p, idMap)
		if err != nil {
			return nil, err
		}

		err = u.gw.RecordPayment(ctx, p.MutationID, orderIDs, p.Method, p.TotalAmount, p.PaidBy)
		if errors.Is(err, gateway.ErrAlreadyApplied) {
			err = nil
		}
		if err != nil {
			return nil, err
		}

		//確認が取れた支払いはその場で消す
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			return r.PendingPayments().DeleteByMutationID(ctx, p.MutationID)
		})
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	//全部通ったので残渣を片付ける
	if err := u.clearAllForTable(ctx, tableID); err != nil {
		return nil, err
	}
	u.dropSnapshot(tableID)

	u.logger.Info("table resynced",
		"table_id", tableID,
		"orders", len(orders),
		"updates", len(updates),
		"payments", len(payments),
	)
	return idMap, nil
}

// resolvePaymentOrders は支払い対象のリモート注文IDを確定させる。
// 過去の部分同期で注文キューだけ消えていた場合はリモートを読み直して補う。
func (u *ReconcileUsecase) resolvePaymentOrders(ctx context.Context, tableID int64, p model.PendingPayment, idMap map[string]int64) ([]int64, error) {
	seen := map[int64]bool{}
	ids := make([]int64, 0, len(p.OrderIDs)+len(p.OrderMutationIDs))
	for _, id := range p.OrderIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	unresolved := false
	for _, mid := range p.OrderMutationIDs {
		id, ok := idMap[mid]
		if !ok {
			unresolved = true
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if unresolved {
		remote, err := u.gw.FetchOpenOrders(ctx, tableID)
		if err != nil {
			return nil, err
		}
		for _, ro := range remote {
			if !ro.Paid && !seen[ro.ID] {
				seen[ro.ID] = true
				ids = append(ids, ro.ID)
			}
		}
	}

	return ids, nil
}

type TablePendingMoneyOutput struct {
	TableID          int64 `json:"table_id"`
	PendingCount     int64 `json:"pending_count"`
	PendingTotal     int64 `json:"pending_total"`
	UnsyncedPayments int64 `json:"unsynced_payments"`
	UnsyncedAmount   int64 `json:"unsynced_amount"`
}

// PendingMoney はバッジ用の「未同期のお金があるテーブル」一覧。
// ストアの集計だけで組み、マージエンジンは通さない。
func (u *ReconcileUsecase) PendingMoney(ctx context.Context) ([]TablePendingMoneyOutput, error) {
	byTable := map[int64]*TablePendingMoneyOutput{}
	get := func(tableID int64) *TablePendingMoneyOutput {
		if v, ok := byTable[tableID]; ok {
			return v
		}
		v := &TablePendingMoneyOutput{TableID: tableID}
		byTable[tableID] = v
		return v
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.PendingOrders().SummaryByTable(ctx)
		if err != nil {
			return err
		}
		for _, s := range orders {
			v := get(s.TableID)
			v.PendingCount += s.Count
			v.PendingTotal += s.Total
		}

		updates, err := r.PendingUpdates().SummaryByTable(ctx)
		if err != nil {
			return err
		}
		for _, s := range updates {
			v := get(s.TableID)
			v.PendingCount += s.Count
			v.PendingTotal += s.Total
		}

		payments, err := r.PendingPayments().ListAll(ctx)
		if err != nil {
			return err
		}
		for _, p := range payments {
			v := get(p.TableID)
			v.UnsyncedPayments++
			v.UnsyncedAmount += p.TotalAmount
		}
		return nil
	})
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]TablePendingMoneyOutput, 0, len(byTable))
	for _, v := range byTable {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out, nil
}
