package checkout

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"soapstore/internal/domain"
	"soapstore/internal/payment"
)

type ledger interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Expire(ctx context.Context, orderID string) error
}

type oracle interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type sessionCreator interface {
	CreateSession(ctx context.Context, in payment.SessionInput) (string, error)
}

// Service builds payment-provider sessions for ledger orders. It never reads
// monetary values from client input: line prices come from the product oracle
// (or, on retake, the ledger snapshot) and shipping from the order row, which
// was itself set server-side at creation.
type Service struct {
	orders   ledger
	products oracle
	sessions sessionCreator
	baseURL  string
	logger   *log.Logger
}

func New(orders ledger, products oracle, sessions sessionCreator, baseURL string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		orders:   orders,
		products: products,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// BuildSession creates a provider session for the caller's pending order,
// re-fetching every product and pricing from the oracle at call time. A
// provider failure leaves the order pending and the call safely retryable.
// Another user's order reads as not found; a pending order past its deadline
// is expired on the spot, so the client cannot keep an old orderId alive past
// the window the ledger granted it.
func (s *Service) BuildSession(ctx context.Context, userID, orderID string) (string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.UserID != userID {
		return "", domain.ErrNotFound
	}
	if order.Status == domain.OrderPending && order.Expired(time.Now()) {
		if err := s.orders.Expire(ctx, order.ID); err != nil {
			return "", err
		}
		return "", domain.ErrOrderNotPending
	}
	return s.build(ctx, order, false)
}

// BuildRetakeSession mints a fresh session for an already-verified pending
// order. Line prices come from the ledger snapshot: priceAtTime remains
// authoritative no matter what the catalog says now; the oracle only supplies
// display data.
func (s *Service) BuildRetakeSession(ctx context.Context, order *domain.Order) (string, error) {
	return s.build(ctx, order, true)
}

func (s *Service) build(ctx context.Context, order *domain.Order, fromSnapshot bool) (string, error) {
	if order.Status != domain.OrderPending {
		return "", domain.ErrOrderNotPending
	}
	if len(order.Lines) == 0 {
		return "", domain.ErrEmptyOrder
	}

	ids := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return "", err
	}

	lines := make([]payment.SessionLine, 0, len(order.Lines)+1)
	for _, line := range order.Lines {
		p, ok := products[line.ProductID]
		if !ok {
			return "", fmt.Errorf("product %s: %w", line.ProductID, domain.ErrNotFound)
		}
		unit := p.PriceCents
		if fromSnapshot {
			unit = line.PriceCentsAtTime
		}
		lines = append(lines, payment.SessionLine{
			Name:            p.Name,
			ImageURL:        s.imageURL(p.ImagePath),
			UnitAmountCents: unit,
			Quantity:        int64(line.Quantity),
		})
	}

	// Exactly one synthetic shipping line, from the server-side snapshot.
	lines = append(lines, payment.SessionLine{
		Name:            "Shipping",
		UnitAmountCents: order.ShippingCents,
		Quantity:        1,
	})

	url, err := s.sessions.CreateSession(ctx, payment.SessionInput{
		OrderID:    order.ID,
		Lines:      lines,
		SuccessURL: fmt.Sprintf("%s/carrito?success=true&orderId=%s", s.baseURL, order.ID),
		CancelURL:  fmt.Sprintf("%s/carrito?canceled=true&orderId=%s", s.baseURL, order.ID),
	})
	if err != nil {
		s.logger.Printf("checkout service: create session order=%s error=%v", order.ID, err)
		return "", err
	}
	s.logger.Printf("checkout service: session created order=%s lines=%d", order.ID, len(lines))
	return url, nil
}

func (s *Service) imageURL(path string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}
