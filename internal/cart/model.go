package cart

import (
	"math"
	"time"
)

type Item struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	ImageURL  string  `json:"image_url"`
}

type Cart struct {
	ID         string    `json:"cart_id,omitempty"`
	UserID     string    `json:"user_id"`
	Items      []Item    `json:"items"`
	TotalItems int       `json:"total_items"`
	TotalPrice float64   `json:"total_price"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CheckoutMetadata carries tracing ids from the checkout request to the
// published event.
type CheckoutMetadata struct {
	CorrelationID string
	CausationID   string
}

// Recalculate derives subtotals and totals from current item prices.
func (c *Cart) Recalculate() {
	if c.Items == nil {
		c.Items = []Item{}
	}

	c.TotalItems = 0
	total := 0.0
	for i := range c.Items {
		c.Items[i].Subtotal = roundCents(float64(c.Items[i].Quantity) * c.Items[i].Price)
		c.TotalItems += c.Items[i].Quantity
		total += c.Items[i].Subtotal
	}
	c.TotalPrice = roundCents(total)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
