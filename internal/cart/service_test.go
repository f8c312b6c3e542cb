package cart

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	prices map[int64]float64
	carts  map[string]map[int64]int

	getErr   error
	addErr   error
	clearErr error

	// locked models the row lock CheckoutCart holds; writes made while it is
	// held are applied after the checkout finishes.
	locked  map[string]bool
	pending []func()
}

func newFakeRepository(prices map[int64]float64) *fakeRepository {
	return &fakeRepository{prices: prices, carts: map[string]map[int64]int{}, locked: map[string]bool{}}
}

func (f *fakeRepository) GetCart(ctx context.Context, userID string) (*Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	lines, ok := f.carts[userID]
	if !ok {
		return nil, nil
	}
	c := &Cart{ID: "cart-" + userID, UserID: userID, Items: []Item{}}
	for id := int64(1); id <= 100; id++ {
		if qty, ok := lines[id]; ok {
			c.Items = append(c.Items, Item{ProductID: id, Price: f.prices[id], Quantity: qty})
		}
	}
	return c, nil
}

func (f *fakeRepository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	_, ok := f.prices[productID]
	return ok, nil
}

func (f *fakeRepository) AddItem(ctx context.Context, userID string, productID int64, quantity int) error {
	if f.addErr != nil {
		return f.addErr
	}
	if f.locked[userID] {
		f.pending = append(f.pending, func() { _ = f.AddItem(ctx, userID, productID, quantity) })
		return nil
	}
	if f.carts[userID] == nil {
		f.carts[userID] = map[int64]int{}
	}
	f.carts[userID][productID] += quantity
	return nil
}

func (f *fakeRepository) SetItemQuantity(ctx context.Context, userID string, productID int64, quantity int) (bool, error) {
	if _, ok := f.carts[userID][productID]; !ok {
		return false, nil
	}
	f.carts[userID][productID] = quantity
	return true, nil
}

func (f *fakeRepository) RemoveItem(ctx context.Context, userID string, productID int64) (bool, error) {
	if _, ok := f.carts[userID][productID]; !ok {
		return false, nil
	}
	delete(f.carts[userID], productID)
	return true, nil
}

func (f *fakeRepository) ClearCart(ctx context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	if _, ok := f.carts[userID]; ok {
		f.carts[userID] = map[int64]int{}
	}
	return nil
}

func (f *fakeRepository) CheckoutCart(ctx context.Context, userID string, publish func(ctx context.Context, c *Cart) error) (*Cart, error) {
	c, err := f.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	f.locked[userID] = true
	defer func() {
		delete(f.locked, userID)
		pending := f.pending
		f.pending = nil
		for _, apply := range pending {
			apply()
		}
	}()

	if err := publish(ctx, c); err != nil {
		return nil, err
	}
	if err := f.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	return c, nil
}

type fakePublisher struct {
	err       error
	published []*Cart
	meta      []CheckoutMetadata
	onPublish func(ctx context.Context)
}

func (p *fakePublisher) PublishCartCheckedOut(ctx context.Context, c *Cart, meta CheckoutMetadata) error {
	p.published = append(p.published, c)
	p.meta = append(p.meta, meta)
	if p.onPublish != nil {
		p.onPublish(ctx)
	}
	return p.err
}

func TestServiceGetCartWithoutCartIsEmpty(t *testing.T) {
	svc := NewService(newFakeRepository(nil), &fakePublisher{})

	c, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", c.UserID)
	require.Empty(t, c.Items)
	require.Zero(t, c.TotalPrice)
}

func TestServiceAddItem(t *testing.T) {
	tests := map[string]struct {
		productID int64
		quantity  int
		addErr    error
		wantErr   error
		wantTotal float64
	}{
		"adds new line": {
			productID: 1, quantity: 2, wantTotal: 20,
		},
		"zero quantity rejected": {
			productID: 1, quantity: 0, wantErr: ErrInvalidQuantity,
		},
		"negative quantity rejected": {
			productID: 1, quantity: -1, wantErr: ErrInvalidQuantity,
		},
		"quantity above int32 rejected": {
			productID: 1, quantity: math.MaxInt32 + 1, wantErr: ErrInvalidQuantity,
		},
		"unknown product": {
			productID: 9, quantity: 1, wantErr: ErrProductNotFound,
		},
		"repository error surfaces": {
			productID: 1, quantity: 1, addErr: errors.New("db down"),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			repo := newFakeRepository(map[int64]float64{1: 10, 2: 2.5})
			repo.addErr = tt.addErr
			svc := NewService(repo, &fakePublisher{})

			c, err := svc.AddItem(context.Background(), "u1", tt.productID, tt.quantity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.addErr != nil {
				require.ErrorIs(t, err, tt.addErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTotal, c.TotalPrice)
		})
	}
}

func TestServiceAddItemAccumulatesQuantity(t *testing.T) {
	svc := NewService(newFakeRepository(map[int64]float64{1: 10, 2: 2.5}), &fakePublisher{})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", 2, 2)
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "u1", 1, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	require.Equal(t, 3, c.Items[0].Quantity)
	require.Equal(t, 30.0, c.Items[0].Subtotal)
	require.Equal(t, 5, c.TotalItems)
	require.Equal(t, 35.0, c.TotalPrice)
}

func TestServiceUpdateItem(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository(map[int64]float64{1: 10, 2: 4})
	svc := NewService(repo, &fakePublisher{})
	_, err := svc.AddItem(ctx, "u1", 1, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "u1", 2, 1)
	require.NoError(t, err)

	c, err := svc.UpdateItem(ctx, "u1", 1, 5)
	require.NoError(t, err)
	require.Equal(t, 54.0, c.TotalPrice)

	c, err = svc.UpdateItem(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.Equal(t, int64(1), c.Items[0].ProductID)

	_, err = svc.UpdateItem(ctx, "u1", 2, 3)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.UpdateItem(ctx, "u1", 1, -2)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.UpdateItem(ctx, "u1", 1, math.MaxInt32+1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestServiceRemoveItem(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepository(map[int64]float64{1: 10}), &fakePublisher{})
	_, err := svc.AddItem(ctx, "u1", 1, 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "u1", 1)
	require.NoError(t, err)
	require.True(t, c.IsEmpty())

	_, err = svc.RemoveItem(ctx, "u1", 1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestServiceCheckout(t *testing.T) {
	ctx := context.Background()
	meta := CheckoutMetadata{CorrelationID: "corr-1", CausationID: "cause-1"}

	t.Run("empty cart", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := NewService(newFakeRepository(nil), pub)

		_, err := svc.Checkout(ctx, "u1", meta)
		require.ErrorIs(t, err, ErrEmptyCart)
		require.Empty(t, pub.published)
	})

	t.Run("load error", func(t *testing.T) {
		repo := newFakeRepository(nil)
		repo.getErr = errors.New("db down")
		svc := NewService(repo, &fakePublisher{})

		_, err := svc.Checkout(ctx, "u1", meta)
		require.Error(t, err)
	})

	t.Run("publish error keeps cart", func(t *testing.T) {
		repo := newFakeRepository(map[int64]float64{1: 10})
		pub := &fakePublisher{err: errors.New("broker down")}
		svc := NewService(repo, pub)
		_, err := svc.AddItem(ctx, "u1", 1, 1)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, "u1", meta)
		require.ErrorIs(t, err, pub.err)
		require.Len(t, pub.published, 1)

		after, err := svc.GetCart(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, after.Items, 1)
	})

	t.Run("clear error", func(t *testing.T) {
		repo := newFakeRepository(map[int64]float64{1: 10})
		repo.clearErr = errors.New("clear failed")
		svc := NewService(repo, &fakePublisher{})
		_, err := svc.AddItem(ctx, "u1", 1, 1)
		require.NoError(t, err)

		_, err = svc.Checkout(ctx, "u1", meta)
		require.ErrorIs(t, err, repo.clearErr)
	})

	t.Run("success", func(t *testing.T) {
		repo := newFakeRepository(map[int64]float64{1: 10})
		pub := &fakePublisher{}
		svc := NewService(repo, pub)
		_, err := svc.AddItem(ctx, "u1", 1, 3)
		require.NoError(t, err)

		c, err := svc.Checkout(ctx, "u1", meta)
		require.NoError(t, err)
		require.Equal(t, 30.0, c.TotalPrice)
		require.Len(t, pub.published, 1)
		require.Equal(t, meta, pub.meta[0])

		after, err := svc.GetCart(ctx, "u1")
		require.NoError(t, err)
		require.True(t, after.IsEmpty())
		require.Equal(t, c.ID, after.ID)

		_, err = svc.Checkout(ctx, "u1", meta)
		require.ErrorIs(t, err, ErrEmptyCart)
		require.Len(t, pub.published, 1)
	})

	t.Run("add during publish survives checkout", func(t *testing.T) {
		repo := newFakeRepository(map[int64]float64{1: 10, 2: 4})
		pub := &fakePublisher{}
		svc := NewService(repo, pub)
		pub.onPublish = func(ctx context.Context) {
			_, err := svc.AddItem(ctx, "u1", 2, 5)
			require.NoError(t, err)
		}
		_, err := svc.AddItem(ctx, "u1", 1, 1)
		require.NoError(t, err)

		c, err := svc.Checkout(ctx, "u1", meta)
		require.NoError(t, err)
		require.Len(t, pub.published, 1)
		require.Len(t, c.Items, 1)
		require.Equal(t, int64(1), c.Items[0].ProductID)

		after, err := svc.GetCart(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, after.Items, 1)
		require.Equal(t, int64(2), after.Items[0].ProductID)
		require.Equal(t, 5, after.Items[0].Quantity)
	})
}
