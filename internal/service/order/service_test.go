package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"soapstore/internal/domain"
	"soapstore/internal/repository/address"
	orderrepo "soapstore/internal/repository/order"
	cartsvc "soapstore/internal/service/cart"
)

type stubLedger struct {
	created       *orderrepo.CreateOrderInput
	createOut     *domain.Order
	createErr     error
	pending       *domain.Order
	pendingErr    error
	markPaidErr   error
	markPaidCalls []string
	expired       []string
	canceledUser  string
	cancelErr     error
	retried       []string
	listOut       []domain.Order
}

func (s *stubLedger) Create(_ context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error) {
	s.created = &in
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.createOut != nil {
		return s.createOut, nil
	}
	return &domain.Order{
		ID:         "o1",
		UserID:     in.UserID,
		Status:     domain.OrderPending,
		TotalCents: in.TotalCents,
		ExpiresAt:  in.ExpiresAt,
		Lines:      in.Lines,
	}, nil
}

func (s *stubLedger) GetByID(_ context.Context, id string) (*domain.Order, error) {
	if s.pending != nil && s.pending.ID == id {
		return s.pending, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubLedger) FindPendingByUser(_ context.Context, _ string) (*domain.Order, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	if s.pending == nil {
		return nil, domain.ErrNotFound
	}
	return s.pending, nil
}

func (s *stubLedger) ListByUser(_ context.Context, _ string) ([]domain.Order, error) {
	return s.listOut, nil
}

func (s *stubLedger) MarkPaid(_ context.Context, orderID string) error {
	s.markPaidCalls = append(s.markPaidCalls, orderID)
	return s.markPaidErr
}

func (s *stubLedger) Expire(_ context.Context, orderID string) error {
	s.expired = append(s.expired, orderID)
	return nil
}

func (s *stubLedger) CancelPendingByUser(_ context.Context, userID string) (string, error) {
	if s.cancelErr != nil {
		return "", s.cancelErr
	}
	s.canceledUser = userID
	return "o1", nil
}

func (s *stubLedger) RecordRetry(_ context.Context, orderID string) error {
	s.retried = append(s.retried, orderID)
	return nil
}

type stubOracle struct {
	products  map[string]domain.Product
	getErr    error
	reduced   []string
	reduceErr error
}

func (s *stubOracle) GetByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make(map[string]domain.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubOracle) ReduceStockForOrder(_ context.Context, orderID string) error {
	s.reduced = append(s.reduced, orderID)
	return s.reduceErr
}

type stubAddresses struct {
	err error
}

func (s *stubAddresses) GetActive(_ context.Context, userID, addressID string) (*address.ShippingAddress, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &address.ShippingAddress{ID: addressID, UserID: userID, Active: true}, nil
}

type stubCarts struct {
	cart domain.Cart
	err  error
}

func (s *stubCarts) Get(_ context.Context, _ cartsvc.Scope) (domain.Cart, error) {
	return s.cart, s.err
}

type stubRetake struct {
	url   string
	err   error
	calls []*domain.Order
}

func (s *stubRetake) BuildRetakeSession(_ context.Context, order *domain.Order) (string, error) {
	s.calls = append(s.calls, order)
	return s.url, s.err
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(ledger *stubLedger, oracle *stubOracle, addresses *stubAddresses, carts *stubCarts, retake *stubRetake) *Service {
	svc := New(ledger, oracle, addresses, carts, retake, 4*time.Hour, 499, nil)
	svc.now = fixedNow
	return svc
}

func soapProduct(id string, priceCents int64, stock int) domain.Product {
	return domain.Product{ID: id, Name: "Soap " + id, PriceCents: priceCents, Stock: stock}
}

func TestCreateFromCartSnapshotsOraclePrices(t *testing.T) {
	ledger := &stubLedger{}
	oracle := &stubOracle{products: map[string]domain.Product{
		"p1": soapProduct("p1", 1000, 5),
		"p2": soapProduct("p2", 790, 3),
	}}
	carts := &stubCarts{cart: domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}}}
	svc := newTestService(ledger, oracle, &stubAddresses{}, carts, &stubRetake{})

	created, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"})
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if created.Status != domain.OrderPending {
		t.Fatalf("status = %s", created.Status)
	}

	in := ledger.created
	if in == nil {
		t.Fatal("ledger.Create was not called")
	}
	if in.TotalCents != 2*1000+790+499 {
		t.Fatalf("total = %d", in.TotalCents)
	}
	if in.ShippingCents != 499 {
		t.Fatalf("shipping = %d", in.ShippingCents)
	}
	if len(in.Lines) != 2 || in.Lines[0].PriceCentsAtTime != 1000 || in.Lines[1].PriceCentsAtTime != 790 {
		t.Fatalf("lines = %+v", in.Lines)
	}
	if in.ExpiresAt != fixedNow().Add(4*time.Hour) {
		t.Fatalf("expiresAt = %v", in.ExpiresAt)
	}
}

func TestCreateFromCartRefusesSecondPendingOrder(t *testing.T) {
	ledger := &stubLedger{pending: &domain.Order{
		ID: "o0", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(time.Hour),
	}}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"})
	if !errors.Is(err, domain.ErrPendingOrderExists) {
		t.Fatalf("err = %v, want ErrPendingOrderExists", err)
	}
	if ledger.created != nil {
		t.Fatal("no order should be created while one is pending")
	}
}

func TestCreateFromCartExpiresStalePendingAndProceeds(t *testing.T) {
	ledger := &stubLedger{pending: &domain.Order{
		ID: "o0", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(-time.Minute),
	}}
	oracle := &stubOracle{products: map[string]domain.Product{"p1": soapProduct("p1", 500, 2)}}
	carts := &stubCarts{cart: domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}}}
	svc := newTestService(ledger, oracle, &stubAddresses{}, carts, &stubRetake{})

	if _, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"}); err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if len(ledger.expired) != 1 || ledger.expired[0] != "o0" {
		t.Fatalf("expired = %v", ledger.expired)
	}
	if ledger.created == nil {
		t.Fatal("expected a new order after expiring the stale one")
	}
}

func TestCreateFromCartUniqueIndexRaceSurfacesAlreadyPending(t *testing.T) {
	// The pre-check saw nothing pending but a concurrent create won the race;
	// the ledger reports the unique violation as ErrPendingOrderExists.
	ledger := &stubLedger{createErr: domain.ErrPendingOrderExists}
	oracle := &stubOracle{products: map[string]domain.Product{"p1": soapProduct("p1", 500, 2)}}
	carts := &stubCarts{cart: domain.Cart{Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}}}
	svc := newTestService(ledger, oracle, &stubAddresses{}, carts, &stubRetake{})

	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"})
	if !errors.Is(err, domain.ErrPendingOrderExists) {
		t.Fatalf("err = %v, want ErrPendingOrderExists", err)
	}
}

func TestCreateFromCartRejectsOutOfStock(t *testing.T) {
	oracle := &stubOracle{products: map[string]domain.Product{
		"x": soapProduct("x", 1000, 5),
		"y": soapProduct("y", 800, 0),
	}}
	carts := &stubCarts{cart: domain.Cart{Lines: []domain.CartLine{
		{ProductID: "x", Quantity: 1},
		{ProductID: "y", Quantity: 1},
	}}}
	ledger := &stubLedger{}
	svc := newTestService(ledger, oracle, &stubAddresses{}, carts, &stubRetake{})

	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
	if ledger.created != nil {
		t.Fatal("no order should be created with an out-of-stock line")
	}
}

func TestCreateFromCartRejectsEmptySelection(t *testing.T) {
	svc := newTestService(&stubLedger{}, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})
	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "a1"})
	if !errors.Is(err, domain.ErrEmptyOrder) {
		t.Fatalf("err = %v, want ErrEmptyOrder", err)
	}
}

func TestCreateFromCartRejectsMissingAddress(t *testing.T) {
	svc := newTestService(&stubLedger{}, &stubOracle{}, &stubAddresses{err: domain.ErrNotFound}, &stubCarts{}, &stubRetake{})
	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{ShippingAddressID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateFromCartSelectsRequestedProductsOnly(t *testing.T) {
	ledger := &stubLedger{}
	oracle := &stubOracle{products: map[string]domain.Product{
		"p1": soapProduct("p1", 1000, 5),
		"p2": soapProduct("p2", 790, 3),
	}}
	carts := &stubCarts{cart: domain.Cart{Lines: []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}}}
	svc := newTestService(ledger, oracle, &stubAddresses{}, carts, &stubRetake{})

	_, err := svc.CreateFromCart(context.Background(), "u1", CreateInput{
		ShippingAddressID: "a1",
		ProductIDs:        []string{"p2"},
	})
	if err != nil {
		t.Fatalf("CreateFromCart: %v", err)
	}
	if len(ledger.created.Lines) != 1 || ledger.created.Lines[0].ProductID != "p2" {
		t.Fatalf("lines = %+v", ledger.created.Lines)
	}
}

func TestCheckPendingReportsLiveOrder(t *testing.T) {
	expiresAt := fixedNow().Add(time.Hour)
	ledger := &stubLedger{pending: &domain.Order{ID: "o1", Status: domain.OrderPending, ExpiresAt: expiresAt}}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	status, err := svc.CheckPending(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CheckPending: %v", err)
	}
	if !status.Pending || status.OrderID != "o1" || status.ExpiresAt == nil || !status.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("status = %+v", status)
	}
}

func TestCheckPendingExpiresOverdueOrder(t *testing.T) {
	ledger := &stubLedger{pending: &domain.Order{ID: "o1", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(-time.Second)}}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	status, err := svc.CheckPending(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CheckPending: %v", err)
	}
	if status.Pending {
		t.Fatalf("overdue order reported as pending: %+v", status)
	}
	if len(ledger.expired) != 1 || ledger.expired[0] != "o1" {
		t.Fatalf("expired = %v", ledger.expired)
	}
}

func TestCheckPendingNoOrder(t *testing.T) {
	svc := newTestService(&stubLedger{}, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})
	status, err := svc.CheckPending(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CheckPending: %v", err)
	}
	if status.Pending {
		t.Fatalf("status = %+v", status)
	}
}

func TestRetakeMintsSessionForPendingOrder(t *testing.T) {
	pending := &domain.Order{ID: "o1", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(time.Hour)}
	ledger := &stubLedger{pending: pending}
	retake := &stubRetake{url: "https://pay.example/s1"}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, retake)

	url, err := svc.Retake(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Retake: %v", err)
	}
	if url != "https://pay.example/s1" {
		t.Fatalf("url = %q", url)
	}
	if len(retake.calls) != 1 || retake.calls[0].ID != "o1" {
		t.Fatalf("retake calls = %+v", retake.calls)
	}
	if len(ledger.retried) != 1 || ledger.retried[0] != "o1" {
		t.Fatalf("retried = %v", ledger.retried)
	}
}

func TestRetakeWithoutPendingOrder(t *testing.T) {
	svc := newTestService(&stubLedger{}, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})
	_, err := svc.Retake(context.Background(), "u1")
	if !errors.Is(err, domain.ErrNoPendingOrder) {
		t.Fatalf("err = %v, want ErrNoPendingOrder", err)
	}
}

func TestRetakeExpiredOrderNotRetakeable(t *testing.T) {
	ledger := &stubLedger{pending: &domain.Order{ID: "o1", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(-time.Minute)}}
	retake := &stubRetake{url: "https://pay.example/s1"}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, retake)

	_, err := svc.Retake(context.Background(), "u1")
	if !errors.Is(err, domain.ErrNoPendingOrder) {
		t.Fatalf("err = %v, want ErrNoPendingOrder", err)
	}
	if len(retake.calls) != 0 {
		t.Fatal("no session should be minted for an expired order")
	}
	if len(ledger.expired) != 1 {
		t.Fatalf("expired = %v", ledger.expired)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	ledger := &stubLedger{pending: &domain.Order{ID: "o1", Status: domain.OrderPending, ExpiresAt: fixedNow().Add(time.Hour)}}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.Cancel(context.Background(), "u1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if ledger.canceledUser != "u1" {
		t.Fatalf("canceled user = %q", ledger.canceledUser)
	}
}

func TestCancelWithoutPendingOrder(t *testing.T) {
	svc := newTestService(&stubLedger{}, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})
	if err := svc.Cancel(context.Background(), "u1"); !errors.Is(err, domain.ErrNoPendingOrder) {
		t.Fatalf("err = %v, want ErrNoPendingOrder", err)
	}
}

func TestReconcilePaymentFirstDelivery(t *testing.T) {
	ledger := &stubLedger{}
	oracle := &stubOracle{}
	svc := newTestService(ledger, oracle, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.ReconcilePayment(context.Background(), "o1"); err != nil {
		t.Fatalf("ReconcilePayment: %v", err)
	}
	if len(ledger.markPaidCalls) != 1 {
		t.Fatalf("markPaid calls = %v", ledger.markPaidCalls)
	}
	if len(oracle.reduced) != 1 || oracle.reduced[0] != "o1" {
		t.Fatalf("reduced = %v", oracle.reduced)
	}
}

func TestReconcilePaymentDuplicateDeliveryStillRunsIdempotentReduce(t *testing.T) {
	// A crash between MarkPaid and the stock decrement heals on redelivery:
	// the decrement is re-attempted and its per-order marker makes it a no-op
	// when the first delivery already did the work.
	ledger := &stubLedger{markPaidErr: domain.ErrAlreadyPaid}
	oracle := &stubOracle{}
	svc := newTestService(ledger, oracle, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.ReconcilePayment(context.Background(), "o1"); err != nil {
		t.Fatalf("duplicate delivery must be acknowledged, got %v", err)
	}
	if len(oracle.reduced) != 1 {
		t.Fatalf("reduced = %v", oracle.reduced)
	}
}

func TestReconcilePaymentTerminalOrderIgnored(t *testing.T) {
	ledger := &stubLedger{markPaidErr: domain.ErrOrderNotPending}
	oracle := &stubOracle{}
	svc := newTestService(ledger, oracle, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.ReconcilePayment(context.Background(), "o1"); err != nil {
		t.Fatalf("terminal order must be acknowledged, got %v", err)
	}
	if len(oracle.reduced) != 0 {
		t.Fatal("stock must not move for a terminal order")
	}
}

func TestReconcilePaymentUnknownOrderIgnored(t *testing.T) {
	ledger := &stubLedger{markPaidErr: domain.ErrNotFound}
	oracle := &stubOracle{}
	svc := newTestService(ledger, oracle, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.ReconcilePayment(context.Background(), "ghost"); err != nil {
		t.Fatalf("unknown order must be acknowledged, got %v", err)
	}
	if len(oracle.reduced) != 0 {
		t.Fatal("stock must not move for an unknown order")
	}
}

func TestReconcilePaymentTransientFailureSurfaces(t *testing.T) {
	ledger := &stubLedger{markPaidErr: errors.New("connection reset")}
	svc := newTestService(ledger, &stubOracle{}, &stubAddresses{}, &stubCarts{}, &stubRetake{})

	if err := svc.ReconcilePayment(context.Background(), "o1"); err == nil {
		t.Fatal("transient failure must surface so the provider retries")
	}
}
