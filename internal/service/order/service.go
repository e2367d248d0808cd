package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"soapstore/internal/domain"
	"soapstore/internal/repository/address"
	orderrepo "soapstore/internal/repository/order"
	cartsvc "soapstore/internal/service/cart"
)

type ledger interface {
	Create(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	MarkPaid(ctx context.Context, orderID string) error
	Expire(ctx context.Context, orderID string) error
	CancelPendingByUser(ctx context.Context, userID string) (string, error)
	RecordRetry(ctx context.Context, orderID string) error
}

type oracle interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	ReduceStockForOrder(ctx context.Context, orderID string) error
}

type addressBook interface {
	GetActive(ctx context.Context, userID, addressID string) (*address.ShippingAddress, error)
}

type cartReader interface {
	Get(ctx context.Context, scope cartsvc.Scope) (domain.Cart, error)
}

type retakeBuilder interface {
	BuildRetakeSession(ctx context.Context, order *domain.Order) (string, error)
}

// Service owns the order ledger workflows: creation under the single-pending
// invariant, the pending-order lifecycle (check, retake, cancel, lazy
// expiry), and webhook-driven payment reconciliation.
type Service struct {
	orders        ledger
	products      oracle
	addresses     addressBook
	carts         cartReader
	checkout      retakeBuilder
	ttl           time.Duration
	shippingCents int64
	logger        *log.Logger
	now           func() time.Time
}

func New(orders ledger, products oracle, addresses addressBook, carts cartReader, checkout retakeBuilder, ttl time.Duration, shippingCents int64, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:        orders,
		products:      products,
		addresses:     addresses,
		carts:         carts,
		checkout:      checkout,
		ttl:           ttl,
		shippingCents: shippingCents,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateInput selects what to order. When ProductIDs is empty the whole cart
// is ordered; otherwise only the named cart lines are.
type CreateInput struct {
	ShippingAddressID string   `json:"shippingAddressId"`
	ProductIDs        []string `json:"productIds,omitempty"`
}

// PendingStatus is what the client needs to render the countdown. ExpiresAt
// is advisory for display; the binding deadline lives in the ledger.
type PendingStatus struct {
	Pending   bool       `json:"pending"`
	OrderID   string     `json:"orderId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// CreateFromCart turns the user's cart into a durable pending order, with
// prices snapshotted from the oracle. Exactly one pending order may exist per
// user; concurrent creates race on the ledger's partial unique index and the
// loser gets domain.ErrPendingOrderExists.
func (s *Service) CreateFromCart(ctx context.Context, userID string, in CreateInput) (*domain.Order, error) {
	if in.ShippingAddressID == "" {
		return nil, errors.New("shippingAddressId required")
	}

	if pending, err := s.findLivePending(ctx, userID); err != nil {
		return nil, err
	} else if pending != nil {
		return nil, domain.ErrPendingOrderExists
	}

	if _, err := s.addresses.GetActive(ctx, userID, in.ShippingAddressID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("shipping address: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	cart, err := s.carts.Get(ctx, cartsvc.Scope{UserID: userID})
	if err != nil {
		return nil, err
	}
	selected := selectLines(cart, in.ProductIDs)
	if len(selected) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	ids := make([]string, 0, len(selected))
	for _, line := range selected {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var lines []domain.OrderLine
	var total int64
	for _, cl := range selected {
		p, ok := products[cl.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", cl.ProductID, domain.ErrNotFound)
		}
		if p.Stock <= 0 {
			return nil, fmt.Errorf("%s: %w", p.Name, domain.ErrOutOfStock)
		}
		lines = append(lines, domain.OrderLine{
			ProductID:        p.ID,
			Quantity:         cl.Quantity,
			PriceCentsAtTime: p.PriceCents,
		})
		total += p.PriceCents * int64(cl.Quantity)
	}
	total += s.shippingCents

	order, err := s.orders.Create(ctx, orderrepo.CreateOrderInput{
		UserID:            userID,
		ShippingAddressID: in.ShippingAddressID,
		ShippingCents:     s.shippingCents,
		TotalCents:        total,
		ExpiresAt:         s.now().Add(s.ttl),
		Lines:             lines,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CheckPending reports the user's live pending order, if any. An order past
// its deadline is expired on the spot and reported as not pending.
func (s *Service) CheckPending(ctx context.Context, userID string) (PendingStatus, error) {
	pending, err := s.findLivePending(ctx, userID)
	if err != nil {
		return PendingStatus{}, err
	}
	if pending == nil {
		return PendingStatus{}, nil
	}
	expiresAt := pending.ExpiresAt
	return PendingStatus{Pending: true, OrderID: pending.ID, ExpiresAt: &expiresAt}, nil
}

// Retake mints a fresh provider session for the existing pending order. Line
// items are re-derived from the ledger, never from the live cart, which may
// have changed since the order was created.
func (s *Service) Retake(ctx context.Context, userID string) (string, error) {
	pending, err := s.findLivePending(ctx, userID)
	if err != nil {
		return "", err
	}
	if pending == nil {
		return "", domain.ErrNoPendingOrder
	}

	url, err := s.checkout.BuildRetakeSession(ctx, pending)
	if err != nil {
		return "", err
	}
	if err := s.orders.RecordRetry(ctx, pending.ID); err != nil {
		s.logger.Printf("order service: record retry order=%s error=%v", pending.ID, err)
	}
	return url, nil
}

// Cancel transitions the user's pending order to canceled.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	pending, err := s.findLivePending(ctx, userID)
	if err != nil {
		return err
	}
	if pending == nil {
		return domain.ErrNoPendingOrder
	}
	_, err = s.orders.CancelPendingByUser(ctx, userID)
	return err
}

// ListByUser returns the user's order history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ReconcilePayment applies a completed-payment event: conditional
// pending -> paid, then the per-order idempotent stock decrement. The stock
// routine also runs on duplicate delivery so that a crash between the two
// steps heals on redelivery; its marker guarantees at-most-once effect.
// Returns an error only for transient failures that should trigger provider
// retry.
func (s *Service) ReconcilePayment(ctx context.Context, orderID string) error {
	err := s.orders.MarkPaid(ctx, orderID)
	switch {
	case err == nil:
		s.logger.Printf("order service: order=%s marked paid", orderID)
	case errors.Is(err, domain.ErrAlreadyPaid):
		s.logger.Printf("order service: duplicate payment event order=%s, already processed", orderID)
	case errors.Is(err, domain.ErrOrderNotPending):
		s.logger.Printf("order service: payment event for terminal order=%s ignored", orderID)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Printf("order service: payment event for unknown order=%s ignored", orderID)
		return nil
	default:
		return err
	}
	return s.products.ReduceStockForOrder(ctx, orderID)
}

// findLivePending returns the user's pending order, lazily expiring one whose
// deadline has passed. nil means no live pending order.
func (s *Service) findLivePending(ctx context.Context, userID string) (*domain.Order, error) {
	pending, err := s.orders.FindPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if pending.Expired(s.now()) {
		if err := s.orders.Expire(ctx, pending.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return pending, nil
}

func selectLines(cart domain.Cart, productIDs []string) []domain.CartLine {
	if len(productIDs) == 0 {
		return cart.Lines
	}
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.CartLine
	for _, line := range cart.Lines {
		if _, ok := wanted[line.ProductID]; ok {
			out = append(out, line)
		}
	}
	return out
}
