package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	"github.com/mariuscautis/menu-hub-sub000/internal/gateway"
	"github.com/mariuscautis/menu-hub-sub000/internal/merge"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"
)

type IDGenerator interface {
	New() string
}

type Clock interface {
	Now() time.Time
}

// ReconcileUsecase はテーブル表示の組み立てとリモートへの同期を仕切る。
// ローカルストアを触るのはここだけ（UIやマージエンジンは直接触らない）。
type ReconcileUsecase struct {
	tx           repo.TransactionManager
	gw           gateway.RemoteGateway
	oracle       gateway.ConnectivityOracle
	idGen        IDGenerator
	clock        Clock
	logger       *slog.Logger
	restaurantID int64

	//キャッシュ世代。上げると古いリモート読み取りを無効にする
	epoch atomic.Int64

	//テーブル単位の読み→判断→書きを1操作にするロック
	lockMu  sync.Mutex
	tableLk map[int64]*sync.Mutex

	snapMu sync.Mutex
	snaps  map[int64]tableSnapshot
}

// tableSnapshot はオンライン時に取ったリモート注文の読み取り結果。
// どの世代で読んだかを持ち、世代違いの読みと保留差分を混ぜないようにする。
type tableSnapshot struct {
	epoch  int64
	orders []model.RemoteOrder
}

func NewReconcileUsecase(
	tx repo.TransactionManager,
	gw gateway.RemoteGateway,
	oracle gateway.ConnectivityOracle,
	idGen IDGenerator,
	clock Clock,
	logger *slog.Logger,
	restaurantID int64,
) *ReconcileUsecase {
	return &ReconcileUsecase{
		tx:           tx,
		gw:           gw,
		oracle:       oracle,
		idGen:        idGen,
		clock:        clock,
		logger:       logger,
		restaurantID: restaurantID,
		tableLk:      map[int64]*sync.Mutex{},
		snaps:        map[int64]tableSnapshot{},
	}
}

func (u *ReconcileUsecase) Epoch() int64 {
	return u.epoch.Load()
}

// InvalidateCache は変更通知（リモートが変わったかもしれない）の受け口。
// 世代を上げて手持ちのスナップショットを全部捨てる。
func (u *ReconcileUsecase) InvalidateCache() int64 {
	e := u.epoch.Add(1)

	u.snapMu.Lock()
	u.snaps = map[int64]tableSnapshot{}
	u.snapMu.Unlock()

	return e
}

func (u *ReconcileUsecase) lockTable(tableID int64) func() {
	u.lockMu.Lock()
	m, ok := u.tableLk[tableID]
	if !ok {
		m = &sync.Mutex{}
		u.tableLk[tableID] = m
	}
	u.lockMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (u *ReconcileUsecase) snapshot(tableID int64) (tableSnapshot, bool) {
	u.snapMu.Lock()
	defer u.snapMu.Unlock()
	s, ok := u.snaps[tableID]
	return s, ok
}

func (u *ReconcileUsecase) setSnapshot(tableID int64, s tableSnapshot) {
	u.snapMu.Lock()
	u.snaps[tableID] = s
	u.snapMu.Unlock()
}

func (u *ReconcileUsecase) dropSnapshot(tableID int64) {
	u.snapMu.Lock()
	delete(u.snaps, tableID)
	u.snapMu.Unlock()
}

// tableBase は1回のアセンブリで読んだ全部。
// itemsはこの読みに対して組んだマージ結果なので、差分判断は必ずこれを使う。
type tableBase struct {
	online   bool
	stale    bool
	epoch    int64
	remote   []model.RemoteOrder
	orders   []model.PendingOrder
	updates  []model.PendingUpdate
	payments []model.PendingPayment
	state    model.TableState
	items    []model.LineItem
}

// assembleLocked はテーブルロックを取った状態で呼ぶこと。
func (u *ReconcileUsecase) assembleLocked(ctx context.Context, tableID int64) (tableBase, error) {
	cur := u.epoch.Load()
	b := tableBase{epoch: cur}

	b.online = u.oracle.IsOnline(ctx)
	if b.online {
		snap, ok := u.snapshot(tableID)
		if ok && snap.epoch == cur {
			b.remote = snap.orders
		} else {
			orders, err := u.gw.FetchOpenOrders(ctx, tableID)
			switch {
			case errors.Is(err, gateway.ErrUnavailable):
				//読みに行く途中で落ちた。最後の既知状態で続ける
				b.online = false
				b.remote, b.stale = u.lastKnownRemote(tableID)
			case err != nil:
				return tableBase{}, NewHTTPError(http.StatusBadGateway, "remote error")
			default:
				b.remote = orders
				u.setSnapshot(tableID, tableSnapshot{epoch: cur, orders: orders})
			}
		}
	} else {
		b.remote, b.stale = u.lastKnownRemote(tableID)
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		if b.orders, err = r.PendingOrders().ListByTableID(ctx, tableID); err != nil {
			return err
		}
		if b.updates, err = r.PendingUpdates().ListByTableID(ctx, tableID); err != nil {
			return err
		}
		if b.payments, err = r.PendingPayments().ListByTableID(ctx, tableID); err != nil {
			return err
		}
		st, err := r.TableStates().Find(ctx, tableID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		b.state = st
		return nil
	})
	if err != nil {
		return tableBase{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	b.items = merge.ForDisplay(
		flattenRemote(b.remote),
		flattenUpdates(b.updates),
		flattenPendingOrders(b.orders),
	)
	return b, nil
}

// lastKnownRemote はオフライン時のベース。
// オンライン中に取った最後のスナップショットがあればそれを「既知の状態」として使う。
func (u *ReconcileUsecase) lastKnownRemote(tableID int64) ([]model.RemoteOrder, bool) {
	snap, ok := u.snapshot(tableID)
	if !ok {
		return nil, false
	}
	return snap.orders, snap.epoch != u.epoch.Load()
}

type TableItemOutput struct {
	ProductID        int64  `json:"product_id"`
	Name             string `json:"name"`
	UnitPrice        int64  `json:"unit_price"`
	Quantity         int64  `json:"quantity"`
	ExistingQuantity int64  `json:"existing_quantity"`
	Subtotal         int64  `json:"subtotal"`
}

type TableViewOutput struct {
	TableID          int64             `json:"table_id"`
	Status           string            `json:"status"` // clean | pending_new | pending_delta | paid_offline
	Items            []TableItemOutput `json:"items"`
	Total            int64             `json:"total"`
	Outstanding      int64             `json:"outstanding"`
	RemoteOrderIDs   []int64           `json:"remote_order_ids"`
	AwaitingCleaning bool              `json:"awaiting_cleaning"`
	Online           bool              `json:"online"`
	StaleRemote      bool              `json:"stale_remote"`
	Epoch            int64             `json:"epoch"`
}

// AssembleView は「今このテーブルに何が載っているか」を1つのビューで返す。
// epochはUIが前回描画に使った世代。現在と違えばスナップショットを捨てて読み直す。
func (u *ReconcileUsecase) AssembleView(ctx context.Context, tableID int64, epoch int64) (TableViewOutput, error) {
	if tableID <= 0 {
		return TableViewOutput{}, NewHTTPError(http.StatusBadRequest, "invalid table_id")
	}

	unlock := u.lockTable(tableID)
	defer unlock()

	if epoch != 0 && epoch != u.epoch.Load() {
		u.dropSnapshot(tableID)
	}

	b, err := u.assembleLocked(ctx, tableID)
	if err != nil {
		return TableViewOutput{}, err
	}

	return u.toViewOutput(tableID, b), nil
}

func (u *ReconcileUsecase) toViewOutput(tableID int64, b tableBase) TableViewOutput {
	items := make([]TableItemOutput, 0, len(b.items))
	for _, it := range b.items {
		items = append(items, TableItemOutput{
			ProductID:        it.ProductID,
			Name:             it.Name,
			UnitPrice:        it.UnitPrice,
			Quantity:         it.Quantity,
			ExistingQuantity: it.ExistingQuantity,
			Subtotal:         it.UnitPrice * it.Quantity,
		})
	}

	//オフライン支払いでカバー済みのリモート注文
	paidRemote := map[int64]bool{}
	for _, p := range b.payments {
		for _, id := range p.OrderIDs {
			paidRemote[id] = true
		}
	}

	var outstanding int64
	for _, ro := range b.remote {
		if !ro.Paid && !paidRemote[ro.ID] {
			outstanding += merge.Total(ro.Items)
		}
	}
	for _, up := range b.updates {
		if !paidRemote[up.OrderID] {
			outstanding += merge.Total(up.AddedItems)
		}
	}
	for _, o := range b.orders {
		if o.Status == model.PendingOrderStatusPending {
			outstanding += o.Total
		}
	}

	status := "clean"
	switch {
	case len(b.payments) > 0:
		status = "paid_offline"
	case len(b.updates) > 0:
		status = "pending_delta"
	case len(b.orders) > 0:
		status = "pending_new"
	}

	ids := make([]int64, 0, len(b.remote))
	for _, ro := range b.remote {
		ids = append(ids, ro.ID)
	}

	return TableViewOutput{
		TableID:          tableID,
		Status:           status,
		Items:            items,
		Total:            merge.Total(b.items),
		Outstanding:      outstanding,
		RemoteOrderIDs:   ids,
		AwaitingCleaning: b.state.AwaitingCleaning,
		Online:           b.online,
		StaleRemote:      b.stale,
		Epoch:            b.epoch,
	}
}

type SubmitItemInput struct {
	ProductID int64
	Name      string
	UnitPrice int64
	Quantity  int64
}

type SubmitOrderInput struct {
	Items []SubmitItemInput
}

type SubmitOrderOutput struct {
	OrderID    int64  `json:"order_id,omitempty"`
	MutationID string `json:"mutation_id,omitempty"`
	Queued     bool   `json:"queued"`
	NoChange   bool   `json:"no_change,omitempty"`
}

// SubmitOrder は注文内容の送信。オンラインなら直接リモートへ、
// 届かなければ増分だけをローカルに積んで楽観的に成功を返す。
func (u *ReconcileUsecase) SubmitOrder(ctx context.Context, tableID int64, in SubmitOrderInput) (SubmitOrderOutput, error) {
	if tableID <= 0 {
		return SubmitOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid table_id")
	}
	if len(in.Items) == 0 {
		return SubmitOrderOutput{}, NewHTTPError(http.StatusBadRequest, "no items")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.UnitPrice < 0 || it.Name == "" {
			return SubmitOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid items")
		}
	}

	unlock := u.lockTable(tableID)
	defer unlock()

	b, err := u.assembleLocked(ctx, tableID)
	if err != nil {
		return SubmitOrderOutput{}, err
	}

	requested := merge.Consolidate(toLineItems(in.Items))

	if b.online {
		out, err := u.submitDirect(ctx, tableID, b, requested)
		if !errors.Is(err, gateway.ErrUnavailable) {
			return out, err
		}
		//送信中に落ちた。オフライン経路に切り替える
		b.online = false
	}

	return u.queueOffline(ctx, tableID, b, requested)
}

// submitDirect はオンライン経路。成功が確認できたらローカル残渣を必ず消す。
// ここで消さないと次のアセンブリで同じ品が二重に数えられる。
func (u *ReconcileUsecase) submitDirect(ctx context.Context, tableID int64, b tableBase, requested []model.LineItem) (SubmitOrderOutput, error) {
	mutationID := u.idGen.New()

	var orderID int64
	var err error
	if len(b.remote) > 0 {
		//先頭注文に畳み込むのは自分の行＋ローカル残渣＋今回の増分だけ。
		//他のリモート注文の行を混ぜると同じ品がリモートに二重に立つ
		orderID = b.remote[0].ID
		base := append([]model.LineItem{}, b.remote[0].Items...)
		base = append(base, flattenUpdates(b.updates)...)
		base = append(base, flattenPendingOrders(b.orders)...)
		desired := merge.Consolidate(append(base, merge.DeltaSince(b.items, requested)...))
		err = u.gw.ReplaceOrderItems(ctx, mutationID, orderID, asRequest(desired))
	} else {
		orderID, err = u.gw.CreateOrder(ctx, mutationID, tableID, u.restaurantID, asRequest(requested))
	}

	if errors.Is(err, gateway.ErrAlreadyApplied) {
		err = nil
	}
	if err != nil {
		if re, ok := gateway.AsRejected(err); ok {
			return SubmitOrderOutput{}, NewHTTPError(re.Status, re.Message)
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return SubmitOrderOutput{}, err
		}
		return SubmitOrderOutput{}, NewHTTPError(http.StatusBadGateway, "remote error")
	}

	if err := u.clearAllForTable(ctx, tableID); err != nil {
		return SubmitOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	u.dropSnapshot(tableID)

	return SubmitOrderOutput{OrderID: orderID, Queued: false}, nil
}

// queueOffline はオフライン経路。増分だけ計算してローカルストアに積む。
func (u *ReconcileUsecase) queueOffline(ctx context.Context, tableID int64, b tableBase, requested []model.LineItem) (SubmitOrderOutput, error) {
	if merge.HasDecrease(b.items, requested) {
		//オフラインでは増やす操作しか積めない
		return SubmitOrderOutput{}, NewHTTPError(http.StatusConflict, "cannot reduce quantities while offline")
	}

	delta := merge.DeltaSince(b.items, requested)
	if len(delta) == 0 {
		//追加が無いのはエラーではない
		return SubmitOrderOutput{NoChange: true}, nil
	}

	mutationID := u.idGen.New()

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if len(b.remote) > 0 {
			up := model.PendingUpdate{
				MutationID: mutationID,
				OrderID:    b.remote[0].ID,
				TableID:    tableID,
				AddedItems: delta,
				Total:      merge.Total(delta),
			}
			_, err := r.PendingUpdates().Create(ctx, up)
			return err
		}

		//未送信注文があれば合流させる（テーブルにつき1つに保つ）
		for _, po := range b.orders {
			if po.Status != model.PendingOrderStatusPending {
				continue
			}
			newItems := merge.Consolidate(append(po.Items, delta...))
			mutationID = po.MutationID
			return r.PendingOrders().UpdateItems(ctx, po.MutationID, newItems, merge.Total(newItems))
		}

		order := model.PendingOrder{
			MutationID:   mutationID,
			TableID:      tableID,
			RestaurantID: u.restaurantID,
			Items:        delta,
			Total:        merge.Total(delta),
			Status:       model.PendingOrderStatusPending,
		}
		_, err := r.PendingOrders().Create(ctx, order)
		return err
	})
	if err != nil {
		//ローカルストアの失敗は致命。黙って落とさずそのまま返す
		return SubmitOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return SubmitOrderOutput{MutationID: mutationID, Queued: true}, nil
}

// clearAllForTable はリモートで成功が確定した瞬間に呼ぶ後片付け。
// 支払いキューは対象外（支払いは個別に確認してから消す）。
func (u *ReconcileUsecase) clearAllForTable(ctx context.Context, tableID int64) error {
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.PendingOrders().DeleteByTableID(ctx, tableID); err != nil {
			return err
		}
		return r.PendingUpdates().DeleteByTableID(ctx, tableID)
	})
}

func toLineItems(items []SubmitItemInput) []model.LineItem {
	out := make([]model.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return out
}

// asRequest は送信用にExistingQuantityを落とす（数量だけが意味を持つ）。
func asRequest(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, 0, len(items))
	for _, it := range items {
		it.ExistingQuantity = 0
		out = append(out, it)
	}
	return out
}

func flattenRemote(orders []model.RemoteOrder) []model.LineItem {
	var out []model.LineItem
	for _, o := range orders {
		out = append(out, o.Items...)
	}
	return out
}

func flattenUpdates(updates []model.PendingUpdate) []model.LineItem {
	var out []model.LineItem
	for _, up := range updates {
		out = append(out, up.AddedItems...)
	}
	return out
}

func flattenPendingOrders(orders []model.PendingOrder) []model.LineItem {
	var out []model.LineItem
	for _, o := range orders {
		out = append(out, o.Items...)
	}
	return out
}
