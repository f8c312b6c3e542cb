package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// maxQuantity matches the INT column backing cart_items.quantity.
const maxQuantity = math.MaxInt32

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrEmptyCart       = errors.New("cart is empty")
)

// CheckoutPublisher publishes a checked-out cart to downstream consumers.
type CheckoutPublisher interface {
	PublishCartCheckedOut(ctx context.Context, c *Cart, meta CheckoutMetadata) error
}

// Service backs the cart routes, one method per route.
type Service struct {
	repo      Repository
	publisher CheckoutPublisher
}

func NewService(repo Repository, publisher CheckoutPublisher) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &Cart{UserID: userID}
	}
	c.Recalculate()
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*Cart, error) {
	if quantity <= 0 || quantity > maxQuantity {
		return nil, ErrInvalidQuantity
	}

	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}

	if err := s.repo.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the line's quantity; zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*Cart, error) {
	if quantity < 0 || quantity > maxQuantity {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	found, err := s.repo.SetItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("product %d: %w", productID, ErrItemNotFound)
	}
	return s.GetCart(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID string, productID int64) (*Cart, error) {
	found, err := s.repo.RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("product %d: %w", productID, ErrItemNotFound)
	}
	return s.GetCart(ctx, userID)
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.repo.ClearCart(ctx, userID)
}

// Checkout publishes the cart and clears it while the cart is locked, so
// concurrent writes wait for the checkout to finish. The cart is only
// cleared once the event has been accepted by the publisher.
func (s *Service) Checkout(ctx context.Context, userID string, meta CheckoutMetadata) (*Cart, error) {
	return s.repo.CheckoutCart(ctx, userID, func(ctx context.Context, c *Cart) error {
		c.Recalculate()
		if err := s.publisher.PublishCartCheckedOut(ctx, c, meta); err != nil {
			return fmt.Errorf("publish cart checked out: %w", err)
		}
		return nil
	})
}
