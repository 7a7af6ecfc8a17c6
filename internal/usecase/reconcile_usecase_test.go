package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/mariuscautis/menu-hub-sub000/internal/domain/model"
	"github.com/mariuscautis/menu-hub-sub000/internal/gateway"
	repo "github.com/mariuscautis/menu-hub-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ---- インメモリのローカルストア ----

type fakeStore struct {
	err      error
	seq      int64
	orders   []model.PendingOrder
	updates  []model.PendingUpdate
	payments []model.PendingPayment
	states   map[int64]model.TableState
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[int64]model.TableState{}}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s)
}

func (s *fakeStore) PendingOrders() repo.PendingOrderRepository     { return &fakeOrderRepo{s} }
func (s *fakeStore) PendingUpdates() repo.PendingUpdateRepository   { return &fakeUpdateRepo{s} }
func (s *fakeStore) PendingPayments() repo.PendingPaymentRepository { return &fakePaymentRepo{s} }
func (s *fakeStore) TableStates() repo.TableStateRepository         { return &fakeStateRepo{s} }

type fakeOrderRepo struct{ s *fakeStore }

func (r *fakeOrderRepo) Create(ctx context.Context, order model.PendingOrder) (int64, error) {
	if r.s.err != nil {
		return 0, r.s.err
	}
	r.s.seq++
	order.ID = r.s.seq
	r.s.orders = append(r.s.orders, order)
	return order.ID, nil
}

func (r *fakeOrderRepo) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingOrder, error) {
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []model.PendingOrder{}
	for _, o := range r.s.orders {
		if o.TableID == tableID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateItems(ctx context.Context, mutationID string, items []model.LineItem, total int64) error {
	for i, o := range r.s.orders {
		if o.MutationID == mutationID {
			r.s.orders[i].Items = items
			r.s.orders[i].Total = total
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *fakeOrderRepo) MarkPaidOffline(ctx context.Context, mutationIDs []string) error {
	for _, mid := range mutationIDs {
		for i, o := range r.s.orders {
			if o.MutationID == mid {
				r.s.orders[i].Status = model.PendingOrderStatusPaidOffline
			}
		}
	}
	return nil
}

func (r *fakeOrderRepo) DeleteByTableID(ctx context.Context, tableID int64) error {
	kept := r.s.orders[:0]
	for _, o := range r.s.orders {
		if o.TableID != tableID {
			kept = append(kept, o)
		}
	}
	r.s.orders = kept
	return nil
}

func (r *fakeOrderRepo) SummaryByTable(ctx context.Context) ([]repo.TablePendingSummary, error) {
	byTable := map[int64]*repo.TablePendingSummary{}
	for _, o := range r.s.orders {
		v, ok := byTable[o.TableID]
		if !ok {
			v = &repo.TablePendingSummary{TableID: o.TableID}
			byTable[o.TableID] = v
		}
		v.Count++
		v.Total += o.Total
	}
	return summaryRows(byTable), nil
}

type fakeUpdateRepo struct{ s *fakeStore }

func (r *fakeUpdateRepo) Create(ctx context.Context, update model.PendingUpdate) (int64, error) {
	if r.s.err != nil {
		return 0, r.s.err
	}
	r.s.seq++
	update.ID = r.s.seq
	r.s.updates = append(r.s.updates, update)
	return update.ID, nil
}

func (r *fakeUpdateRepo) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingUpdate, error) {
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []model.PendingUpdate{}
	for _, up := range r.s.updates {
		if up.TableID == tableID {
			out = append(out, up)
		}
	}
	return out, nil
}

func (r *fakeUpdateRepo) DeleteByTableID(ctx context.Context, tableID int64) error {
	kept := r.s.updates[:0]
	for _, up := range r.s.updates {
		if up.TableID != tableID {
			kept = append(kept, up)
		}
	}
	r.s.updates = kept
	return nil
}

func (r *fakeUpdateRepo) SummaryByTable(ctx context.Context) ([]repo.TablePendingSummary, error) {
	byTable := map[int64]*repo.TablePendingSummary{}
	for _, up := range r.s.updates {
		v, ok := byTable[up.TableID]
		if !ok {
			v = &repo.TablePendingSummary{TableID: up.TableID}
			byTable[up.TableID] = v
		}
		v.Count++
		v.Total += up.Total
	}
	return summaryRows(byTable), nil
}

type fakePaymentRepo struct{ s *fakeStore }

func (r *fakePaymentRepo) Create(ctx context.Context, payment model.PendingPayment) (int64, error) {
	if r.s.err != nil {
		return 0, r.s.err
	}
	r.s.seq++
	payment.ID = r.s.seq
	r.s.payments = append(r.s.payments, payment)
	return payment.ID, nil
}

func (r *fakePaymentRepo) ListByTableID(ctx context.Context, tableID int64) ([]model.PendingPayment, error) {
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []model.PendingPayment{}
	for _, p := range r.s.payments {
		if p.TableID == tableID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListAll(ctx context.Context) ([]model.PendingPayment, error) {
	if r.s.err != nil {
		return nil, r.s.err
	}
	return append([]model.PendingPayment{}, r.s.payments...), nil
}

func (r *fakePaymentRepo) DeleteByMutationID(ctx context.Context, mutationID string) error {
	kept := r.s.payments[:0]
	for _, p := range r.s.payments {
		if p.MutationID != mutationID {
			kept = append(kept, p)
		}
	}
	r.s.payments = kept
	return nil
}

func (r *fakePaymentRepo) DeleteByTableID(ctx context.Context, tableID int64) error {
	kept := r.s.payments[:0]
	for _, p := range r.s.payments {
		if p.TableID != tableID {
			kept = append(kept, p)
		}
	}
	r.s.payments = kept
	return nil
}

type fakeStateRepo struct{ s *fakeStore }

func (r *fakeStateRepo) Find(ctx context.Context, tableID int64) (model.TableState, error) {
	st, ok := r.s.states[tableID]
	if !ok {
		return model.TableState{}, repo.ErrNotFound
	}
	return st, nil
}

func (r *fakeStateRepo) SetAwaitingCleaning(ctx context.Context, tableID int64, awaiting bool) error {
	r.s.states[tableID] = model.TableState{TableID: tableID, AwaitingCleaning: awaiting}
	return nil
}

func summaryRows(byTable map[int64]*repo.TablePendingSummary) []repo.TablePendingSummary {
	out := make([]repo.TablePendingSummary, 0, len(byTable))
	for _, v := range byTable {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}

// ---- ゲートウェイとその他の部品 ----

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) FetchOpenOrders(ctx context.Context, tableID int64) ([]model.RemoteOrder, error) {
	args := m.Called(ctx, tableID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RemoteOrder), args.Error(1)
}

func (m *GatewayMock) CreateOrder(ctx context.Context, mutationID string, tableID int64, restaurantID int64, items []model.LineItem) (int64, error) {
	args := m.Called(ctx, mutationID, tableID, restaurantID, items)
	return args.Get(0).(int64), args.Error(1)
}

func (m *GatewayMock) ReplaceOrderItems(ctx context.Context, mutationID string, orderID int64, items []model.LineItem) error {
	args := m.Called(ctx, mutationID, orderID, items)
	return args.Error(0)
}

func (m *GatewayMock) RecordPayment(ctx context.Context, mutationID string, orderIDs []int64, method model.PaymentMethod, amount int64, paidBy string) error {
	args := m.Called(ctx, mutationID, orderIDs, method, amount, paidBy)
	return args.Error(0)
}

type oracleStub struct{ online bool }

func (o *oracleStub) IsOnline(ctx context.Context) bool { return o.online }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() string {
	g.n++
	return fmt.Sprintf("loc_test-%d", g.n)
}

type fixedClock struct{}

func (c *fixedClock) Now() time.Time {
	return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

const testRestaurantID = int64(77)

func newTestUsecase(store *fakeStore, gw *GatewayMock, online bool) (*ReconcileUsecase, *oracleStub) {
	oracle := &oracleStub{online: online}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := NewReconcileUsecase(store, gw, oracle, &seqIDGen{}, &fixedClock{}, logger, testRestaurantID)
	return uc, oracle
}

func burgerInput(qty int64) []SubmitItemInput {
	return []SubmitItemInput{{ProductID: 1, Name: "Burger", UnitPrice: 1000, Quantity: qty}}
}

func burger(qty int64) model.LineItem {
	return model.LineItem{ProductID: 1, Name: "Burger", UnitPrice: 1000, Quantity: qty}
}

func coke(qty int64) model.LineItem {
	return model.LineItem{ProductID: 2, Name: "Coke", UnitPrice: 300, Quantity: qty}
}

func assertHTTPError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	assert.Equal(t, message, he.Message)
}

// ---- SubmitOrder ----

func Test_SubmitOrder_Offline_QueuesPendingOrder(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, "loc_test-1", out.MutationID)

	require.Len(t, store.orders, 1)
	assert.Equal(t, int64(2000), store.orders[0].Total)
	assert.Equal(t, model.PendingOrderStatusPending, store.orders[0].Status)
	assert.Equal(t, testRestaurantID, store.orders[0].RestaurantID)

	//オフラインではゲートウェイに触らない
	assert.Empty(t, gw.Calls)

	view, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "pending_new", view.Status)
	assert.False(t, view.Online)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(2), view.Items[0].Quantity)
	assert.Equal(t, int64(2), view.Items[0].ExistingQuantity)
	assert.Equal(t, int64(2000), view.Outstanding)
}

func Test_SubmitOrder_Offline_SecondAddMergesIntoSameOrder(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: []SubmitItemInput{
		{ProductID: 1, Name: "Burger", UnitPrice: 1000, Quantity: 3},
		{ProductID: 2, Name: "Coke", UnitPrice: 300, Quantity: 1},
	}})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	//合流先のmutation_idを返す（新規採番しない）
	assert.Equal(t, "loc_test-1", out.MutationID)

	require.Len(t, store.orders, 1)
	assert.Equal(t, []model.LineItem{burger(3), coke(1)}, store.orders[0].Items)
	assert.Equal(t, int64(3300), store.orders[0].Total)
}

func Test_SubmitOrder_Offline_DecreaseRejected(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)

	_, err = uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(1)})

	assertHTTPError(t, err, http.StatusConflict, "cannot reduce quantities while offline")
	//何も変わっていない
	require.Len(t, store.orders, 1)
	assert.Equal(t, int64(2000), store.orders[0].Total)
}

func Test_SubmitOrder_Offline_NoChange(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	require.NoError(t, err)
	assert.True(t, out.NoChange)
	assert.False(t, out.Queued)
	assert.Len(t, store.orders, 1)
}

func Test_SubmitOrder_Online_CreatesRemoteAndClearsLocal(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)
	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(901), nil)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, int64(901), out.OrderID)
	assert.Empty(t, store.orders)
	gw.AssertExpectations(t)
}

func Test_SubmitOrder_Online_ReplacesExistingRemoteOrder(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{{ID: 41, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000}}, nil)
	gw.On("ReplaceOrderItems", mock.Anything, "loc_test-1", int64(41), []model.LineItem{burger(3)}).
		Return(nil)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(3)})

	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Equal(t, int64(41), out.OrderID)
	gw.AssertExpectations(t)
}

func Test_SubmitOrder_Online_ReplaceKeepsOtherOrdersRowsOut(t *testing.T) {
	//テーブルにリモート注文が2つある場合、他方の行を先頭注文に混ぜない
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{
			{ID: 41, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000},
			{ID: 42, TableID: 5, Items: []model.LineItem{coke(1)}, Total: 300},
		}, nil)
	//送るのは先頭注文の行＋今回の増分だけ
	gw.On("ReplaceOrderItems", mock.Anything, "loc_test-1", int64(41), []model.LineItem{
		burger(2),
		{ProductID: 3, Name: "Fries", UnitPrice: 450, Quantity: 1},
	}).Return(nil)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: []SubmitItemInput{
		{ProductID: 1, Name: "Burger", UnitPrice: 1000, Quantity: 2},
		{ProductID: 2, Name: "Coke", UnitPrice: 300, Quantity: 1},
		{ProductID: 3, Name: "Fries", UnitPrice: 450, Quantity: 1},
	}})

	require.NoError(t, err)
	assert.Equal(t, int64(41), out.OrderID)
	gw.AssertExpectations(t)
}

func Test_SubmitOrder_Online_RejectionSurfacedNothingQueued(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)
	gw.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), &gateway.RejectedError{Status: http.StatusUnprocessableEntity, Message: "unknown product"})

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	assertHTTPError(t, err, http.StatusUnprocessableEntity, "unknown product")
	//業務拒否はキューに積まない
	assert.Empty(t, store.orders)
	assert.Empty(t, store.updates)
}

func Test_SubmitOrder_Online_FetchUnavailableFallsBackToQueue(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return(nil, gateway.ErrUnavailable)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	require.Len(t, store.orders, 1)
	gw.AssertNumberOfCalls(t, "CreateOrder", 0)
}

func Test_SubmitOrder_Online_CreateUnavailableFallsBackToQueue(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)
	gw.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), gateway.ErrUnavailable)

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	require.Len(t, store.orders, 1)
}

func Test_SubmitOrder_Offline_DeltaAgainstLastKnownRemote(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{{ID: 41, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000}}, nil)

	//オンライン中に一度表示してスナップショットを持つ
	_, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)

	oracle.online = false

	out, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(3)})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	//既存のリモート注文への増分として積まれる
	require.Len(t, store.updates, 1)
	assert.Equal(t, int64(41), store.updates[0].OrderID)
	assert.Equal(t, []model.LineItem{burger(1)}, store.updates[0].AddedItems)
	assert.Equal(t, int64(1000), store.updates[0].Total)
	assert.Empty(t, store.orders)

	view, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "pending_delta", view.Status)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(3), view.Items[0].Quantity)
	assert.Equal(t, int64(2), view.Items[0].ExistingQuantity)
	assert.Equal(t, int64(3000), view.Outstanding)

	//オフラインの間は読み直さない
	gw.AssertNumberOfCalls(t, "FetchOpenOrders", 1)
}

func Test_SubmitOrder_Validation(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 0, SubmitOrderInput{Items: burgerInput(1)})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid table_id")

	_, err = uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{})
	assertHTTPError(t, err, http.StatusBadRequest, "no items")

	_, err = uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: []SubmitItemInput{
		{ProductID: 1, Name: "Burger", UnitPrice: 1000, Quantity: 0},
	}})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid items")
}

func Test_SubmitOrder_StoreFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk full")
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})

	assertHTTPError(t, err, http.StatusInternalServerError, "db error")
}

// ---- AssembleView / キャッシュ世代 ----

func Test_AssembleView_SnapshotReusedUntilInvalidated(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)

	_, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)
	_, err = uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)

	//同じ世代のうちは1回しか読まない
	gw.AssertNumberOfCalls(t, "FetchOpenOrders", 1)

	e := uc.InvalidateCache()
	assert.Equal(t, int64(1), e)

	view, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Epoch)
	gw.AssertNumberOfCalls(t, "FetchOpenOrders", 2)
}

// ---- 支払い ----

func Test_SubmitPayment_Offline_CardRejected(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)

	_, err = uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "card", PaidBy: "alice"})

	assertHTTPError(t, err, http.StatusServiceUnavailable, "card payment requires connectivity")
	assert.Empty(t, store.payments)
	assert.Equal(t, model.PendingOrderStatusPending, store.orders[0].Status)
}

func Test_SubmitPayment_Offline_CashQueued(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)

	out, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "cash", PaidBy: "alice"})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	assert.Equal(t, "loc_test-2", out.MutationID)

	require.Len(t, store.payments, 1)
	p := store.payments[0]
	assert.Equal(t, []string{"loc_test-1"}, p.OrderMutationIDs)
	assert.Equal(t, model.PaymentMethodCash, p.Method)
	assert.Equal(t, "alice", p.PaidBy)
	assert.Equal(t, (&fixedClock{}).Now(), p.CreatedAt)

	assert.Equal(t, model.PendingOrderStatusPaidOffline, store.orders[0].Status)
	assert.True(t, store.states[5].AwaitingCleaning)

	view, err := uc.AssembleView(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "paid_offline", view.Status)
	assert.Equal(t, int64(0), view.Outstanding)
	assert.True(t, view.AwaitingCleaning)
}

func Test_SubmitPayment_Offline_NothingToPay(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 500, Method: "cash", PaidBy: "alice"})

	assertHTTPError(t, err, http.StatusBadRequest, "nothing to pay")
}

func Test_SubmitPayment_Validation(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 0, Method: "cash"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid amount")

	_, err = uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 100, Method: "bitcoin"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid method")
}

func Test_SubmitPayment_Offline_CashCoversQueuedUpdateOrders(t *testing.T) {
	//再起動でスナップショットが消えても、増分キューが持つOrderIDで支払える
	store := newFakeStore()
	store.updates = []model.PendingUpdate{
		{ID: 1, MutationID: "loc_a", OrderID: 41, TableID: 5, AddedItems: []model.LineItem{burger(1)}, Total: 1000},
	}
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	out, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 3000, Method: "cash", PaidBy: "alice"})

	require.NoError(t, err)
	assert.True(t, out.Queued)
	require.Len(t, store.payments, 1)
	assert.Equal(t, []int64{41}, store.payments[0].OrderIDs)
	assert.True(t, store.states[5].AwaitingCleaning)
}

func Test_SubmitPayment_Online_ReplaysQueuedOrderFirst(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	//オフラインで注文を積んでから復帰
	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	oracle.online = true

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)
	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(901), nil)
	gw.On("RecordPayment", mock.Anything, "loc_test-2", []int64{901}, model.PaymentMethodCash, int64(2000), "bob").
		Return(nil)

	out, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "cash", PaidBy: "bob"})

	require.NoError(t, err)
	assert.False(t, out.Queued)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.payments)
	assert.True(t, store.states[5].AwaitingCleaning)
	gw.AssertExpectations(t)
}

func Test_SubmitPayment_Online_NothingToPay(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).Return([]model.RemoteOrder{}, nil)

	_, err := uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 100, Method: "card", PaidBy: "bob"})

	assertHTTPError(t, err, http.StatusBadRequest, "nothing to pay")
	gw.AssertNumberOfCalls(t, "RecordPayment", 0)
}

// ---- Resync ----

func Test_Resync_ReplaysOrderWithSameMutationID(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	oracle.online = true

	//保存時と同じmutation_idで再送される
	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(901), nil)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Equal(t, 0, out.Failed)
	require.Len(t, out.Tables, 1)
	assert.Equal(t, int64(5), out.Tables[0].TableID)
	assert.True(t, out.Tables[0].Synced)
	assert.Empty(t, store.orders)

	//二度目は送るものがない
	out, err = uc.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Synced)
	gw.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func Test_Resync_UpdatesAppliedInQueueOrder(t *testing.T) {
	store := newFakeStore()
	store.updates = []model.PendingUpdate{
		{ID: 1, MutationID: "loc_a", OrderID: 41, TableID: 5, AddedItems: []model.LineItem{burger(1)}, Total: 1000},
		{ID: 2, MutationID: "loc_b", OrderID: 41, TableID: 5, AddedItems: []model.LineItem{coke(1)}, Total: 300},
	}
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{{ID: 41, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000}}, nil)
	//積んだ順に、直前の結果の上へ畳み込まれる
	gw.On("ReplaceOrderItems", mock.Anything, "loc_a", int64(41), []model.LineItem{burger(3)}).
		Return(nil)
	gw.On("ReplaceOrderItems", mock.Anything, "loc_b", int64(41), []model.LineItem{burger(3), coke(1)}).
		Return(nil)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Empty(t, store.updates)
	gw.AssertExpectations(t)
}

func Test_Resync_AlreadyAppliedUpdateDoesNotAdvanceBase(t *testing.T) {
	store := newFakeStore()
	store.updates = []model.PendingUpdate{
		{ID: 1, MutationID: "loc_a", OrderID: 41, TableID: 5, AddedItems: []model.LineItem{burger(1)}, Total: 1000},
		{ID: 2, MutationID: "loc_b", OrderID: 41, TableID: 5, AddedItems: []model.LineItem{coke(1)}, Total: 300},
	}
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, true)

	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{{ID: 41, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000}}, nil)
	gw.On("ReplaceOrderItems", mock.Anything, "loc_a", int64(41), []model.LineItem{burger(3)}).
		Return(gateway.ErrAlreadyApplied)
	//適用済みの分はベースに足さず、読み直したリモートの上に積む
	gw.On("ReplaceOrderItems", mock.Anything, "loc_b", int64(41), []model.LineItem{burger(2), coke(1)}).
		Return(nil)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Empty(t, store.updates)
	gw.AssertExpectations(t)
}

func Test_Resync_PaymentUsesMintedOrderID(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	_, err = uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "cash", PaidBy: "alice"})
	require.NoError(t, err)
	oracle.online = true

	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(901), nil)
	//このパスで採番されたIDに差し替えて支払う
	gw.On("RecordPayment", mock.Anything, "loc_test-2", []int64{901}, model.PaymentMethodCash, int64(2000), "alice").
		Return(nil)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.payments)
	gw.AssertExpectations(t)
}

func Test_Resync_AlreadyAppliedCreateStillClearsTable(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	oracle.online = true

	//前回の同期が確認の直前で死んだ場合、再送は「適用済み」だけが返る
	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(0), gateway.ErrAlreadyApplied)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Equal(t, 0, out.Failed)
	assert.Empty(t, store.orders)

	//二度目は送るものがない
	out, err = uc.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Synced)
	gw.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func Test_Resync_AlreadyAppliedCreateResolvesPaymentFromRemote(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	_, err = uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "cash", PaidBy: "alice"})
	require.NoError(t, err)
	oracle.online = true

	gw.On("CreateOrder", mock.Anything, "loc_test-1", int64(5), testRestaurantID, []model.LineItem{burger(2)}).
		Return(int64(0), gateway.ErrAlreadyApplied)
	//IDが返らなかった分はリモートを読み直して支払い対象を確定させる
	gw.On("FetchOpenOrders", mock.Anything, int64(5)).
		Return([]model.RemoteOrder{{ID: 901, TableID: 5, Items: []model.LineItem{burger(2)}, Total: 2000}}, nil)
	gw.On("RecordPayment", mock.Anything, "loc_test-2", []int64{901}, model.PaymentMethodCash, int64(2000), "alice").
		Return(nil)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Synced)
	assert.Empty(t, store.orders)
	assert.Empty(t, store.payments)
	gw.AssertExpectations(t)
}

func Test_Resync_FailedTableKeepsQueue(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, oracle := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	oracle.online = true

	gw.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), gateway.ErrUnavailable)

	out, err := uc.Resync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, out.Synced)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Tables, 1)
	assert.False(t, out.Tables[0].Synced)
	assert.NotEmpty(t, out.Tables[0].Error)
	//失敗したテーブルは何も捨てない
	require.Len(t, store.orders, 1)
}

// ---- PendingMoney ----

func Test_PendingMoney_AggregatesPerTable(t *testing.T) {
	store := newFakeStore()
	gw := new(GatewayMock)
	uc, _ := newTestUsecase(store, gw, false)

	_, err := uc.SubmitOrder(context.Background(), 3, SubmitOrderInput{Items: []SubmitItemInput{
		{ProductID: 2, Name: "Coke", UnitPrice: 300, Quantity: 1},
	}})
	require.NoError(t, err)
	_, err = uc.SubmitOrder(context.Background(), 5, SubmitOrderInput{Items: burgerInput(2)})
	require.NoError(t, err)
	_, err = uc.SubmitPayment(context.Background(), 5, PaymentInput{Amount: 2000, Method: "cash", PaidBy: "alice"})
	require.NoError(t, err)

	out, err := uc.PendingMoney(context.Background())

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].TableID)
	assert.Equal(t, int64(1), out[0].PendingCount)
	assert.Equal(t, int64(300), out[0].PendingTotal)
	assert.Equal(t, int64(0), out[0].UnsyncedPayments)

	assert.Equal(t, int64(5), out[1].TableID)
	assert.Equal(t, int64(1), out[1].PendingCount)
	assert.Equal(t, int64(2000), out[1].PendingTotal)
	assert.Equal(t, int64(1), out[1].UnsyncedPayments)
	assert.Equal(t, int64(2000), out[1].UnsyncedAmount)
}
