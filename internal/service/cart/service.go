package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"soapstore/internal/domain"
)

// Scope identifies whose cart is being read or written: an authenticated
// user's, or an anonymous device's.
type Scope struct {
	UserID   string
	DeviceID string
}

func (s Scope) key() string {
	if s.UserID != "" {
		return "user:" + s.UserID
	}
	return "device:" + s.DeviceID
}

type cache interface {
	Load(ctx context.Context, key string) (domain.Cart, bool, error)
	Save(ctx context.Context, key string, cart domain.Cart) error
	Delete(ctx context.Context, key string) error
}

type persistence interface {
	Load(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, userID string, cart domain.Cart) error
}

// Service is the cart state store. Mutations hit the cache synchronously; the
// durable account copy is written fire-and-forget so the hot path never
// blocks on it. Failed persists are logged, not retried: the cart is
// re-derivable from device state.
type Service struct {
	cache          cache
	store          persistence
	logger         *log.Logger
	persistTimeout time.Duration
}

func New(cache cache, store persistence, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		cache:          cache,
		store:          store,
		logger:         logger,
		persistTimeout: 5 * time.Second,
	}
}

func (s *Service) Get(ctx context.Context, scope Scope) (domain.Cart, error) {
	cart, ok, err := s.cache.Load(ctx, scope.key())
	if err != nil {
		return domain.Cart{}, err
	}
	if ok || scope.UserID == "" {
		return cart, nil
	}

	// Cache miss for a user: fall back to the durable copy and warm the cache.
	cart, err = s.store.Load(ctx, scope.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, err
	}
	if err := s.cache.Save(ctx, scope.key(), cart); err != nil {
		s.logger.Printf("cart service: warm cache user=%s error=%v", scope.UserID, err)
	}
	return cart, nil
}

func (s *Service) SetLine(ctx context.Context, scope Scope, productID string, quantity int) (domain.Cart, error) {
	if productID == "" {
		return domain.Cart{}, errors.New("productId required")
	}
	if quantity < 1 {
		return domain.Cart{}, errors.New("quantity must be positive")
	}

	cart, err := s.Get(ctx, scope)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.SetLine(domain.CartLine{ProductID: productID, Quantity: quantity})

	if err := s.cache.Save(ctx, scope.key(), cart); err != nil {
		return domain.Cart{}, err
	}
	s.persistAsync(scope, cart)
	return cart, nil
}

func (s *Service) RemoveLine(ctx context.Context, scope Scope, productID string) (domain.Cart, error) {
	cart, err := s.Get(ctx, scope)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.RemoveLine(productID)

	if err := s.cache.Save(ctx, scope.key(), cart); err != nil {
		return domain.Cart{}, err
	}
	s.persistAsync(scope, cart)
	return cart, nil
}

// MergeOnLogin unions the device cart into the user's persisted cart. The
// device entry wins per product (most recent intent); quantities are not
// summed. The merged cart is persisted synchronously since this is the moment
// the account copy becomes the one that matters.
func (s *Service) MergeOnLogin(ctx context.Context, userID, deviceID string) (domain.Cart, error) {
	local, _, err := s.cache.Load(ctx, Scope{DeviceID: deviceID}.key())
	if err != nil {
		return domain.Cart{}, err
	}
	remote, err := s.store.Load(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Cart{}, err
	}

	merged := Merge(local, remote)
	if err := s.store.Save(ctx, userID, merged); err != nil {
		return domain.Cart{}, err
	}
	userScope := Scope{UserID: userID}
	if err := s.cache.Save(ctx, userScope.key(), merged); err != nil {
		s.logger.Printf("cart service: cache merged cart user=%s error=%v", userID, err)
	}
	if deviceID != "" {
		if err := s.cache.Delete(ctx, Scope{DeviceID: deviceID}.key()); err != nil {
			s.logger.Printf("cart service: drop device cart device=%s error=%v", deviceID, err)
		}
	}
	return merged, nil
}

// Merge unions two carts by product ID. Local wins per key; remote-only keys
// survive. Local lines keep their original order and take priority position,
// followed by the remaining remote lines in theirs.
func Merge(local, remote domain.Cart) domain.Cart {
	var merged domain.Cart
	seen := make(map[string]struct{}, len(local.Lines))
	for _, line := range local.Lines {
		merged.SetLine(line)
		seen[line.ProductID] = struct{}{}
	}
	for _, line := range remote.Lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		merged.SetLine(line)
	}
	return merged
}

func (s *Service) persistAsync(scope Scope, cart domain.Cart) {
	if scope.UserID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := s.store.Save(ctx, scope.UserID, cart); err != nil {
			s.logger.Printf("cart service: persist user=%s error=%v", scope.UserID, err)
		}
	}()
}
