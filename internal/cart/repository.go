package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	// GetCart returns nil without error when the user has no cart.
	GetCart(ctx context.Context, userID string) (*Cart, error)
	ProductExists(ctx context.Context, productID int64) (bool, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) error
	SetItemQuantity(ctx context.Context, userID string, productID int64, quantity int) (bool, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (bool, error)
	ClearCart(ctx context.Context, userID string) error
	// CheckoutCart locks the user's cart, hands it to publish and empties it
	// once publish succeeds. An absent or empty cart yields ErrEmptyCart.
	CheckoutCart(ctx context.Context, userID string, publish func(ctx context.Context, c *Cart) error) (*Cart, error)
}

// numericValueOutOfRange is the Postgres SQLSTATE for integer overflow.
const numericValueOutOfRange = "22003"

func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == numericValueOutOfRange
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetCart(ctx context.Context, userID string) (*Cart, error) {
	var c Cart
	err := r.pool.QueryRow(ctx, `SELECT id::text, user_id, updated_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// caller (service) turns this into an empty cart
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	items, err := loadItems(ctx, r.pool, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func loadItems(ctx context.Context, q querier, cartID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT ci.product_id, p.name, p.price::float8, ci.quantity, p.image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return exists, nil
}

// AddItem creates the user's cart if needed and adds quantity to the
// product's line in one transaction.
func (r *PostgresRepository) AddItem(ctx context.Context, userID string, productID int64, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID string
	err = tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id::text`, uuid.NewString(), userID).Scan(&cartID)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		cartID, productID, quantity)
	if err != nil {
		if isOutOfRange(err) {
			return fmt.Errorf("product %d: %w", productID, ErrInvalidQuantity)
		}
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetItemQuantity(ctx context.Context, userID string, productID int64, quantity int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		WITH c AS (UPDATE carts SET updated_at = now() WHERE user_id = $1 RETURNING id)
		UPDATE cart_items ci SET quantity = $3
		FROM c
		WHERE ci.cart_id = c.id AND ci.product_id = $2`,
		userID, productID, quantity)
	if err != nil {
		if isOutOfRange(err) {
			return false, fmt.Errorf("product %d: %w", productID, ErrInvalidQuantity)
		}
		return false, fmt.Errorf("update cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, userID string, productID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		WITH c AS (UPDATE carts SET updated_at = now() WHERE user_id = $1 RETURNING id)
		DELETE FROM cart_items ci
		USING c
		WHERE ci.cart_id = c.id AND ci.product_id = $2`,
		userID, productID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearCart empties the cart but keeps its row, so the cart id stays
// stable across checkouts.
func (r *PostgresRepository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		WITH c AS (UPDATE carts SET updated_at = now() WHERE user_id = $1 RETURNING id)
		DELETE FROM cart_items ci
		USING c
		WHERE ci.cart_id = c.id`,
		userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// CheckoutCart holds the cart row lock from read through publish to delete.
// Writers that touch the cart (AddItem upsert, the CTE updates) block on the
// same row until commit, so nothing lands between the snapshot and the delete.
func (r *PostgresRepository) CheckoutCart(ctx context.Context, userID string, publish func(ctx context.Context, c *Cart) error) (*Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var c Cart
	err = tx.QueryRow(ctx, `SELECT id::text, user_id, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	c.Items, err = loadItems(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := publish(ctx, &c); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &c, nil
}
