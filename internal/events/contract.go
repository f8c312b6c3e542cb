package events

import (
	"embed"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/cart"
)

const (
	CartCheckedOutEventName    = "CartCheckedOut"
	CartCheckedOutEventVersion = 1
	// CartCheckedOutSchemaID is the $id of schemas/cart_checked_out.v1.schema.json.
	CartCheckedOutSchemaID = "urn:shop-api:events:CartCheckedOut:v1"

	producerName = "shop-api"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// CartCheckedOutSchema returns the JSON schema consumers can validate
// CartCheckedOut messages against.
func CartCheckedOutSchema() ([]byte, error) {
	return schemaFiles.ReadFile("schemas/cart_checked_out.v1.schema.json")
}

// Envelope carries the routing and tracing metadata every event shares.
type Envelope[P any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       P         `json:"payload"`
}

type CartCheckedOutEnvelope = Envelope[CartCheckedOutPayload]

type CartCheckedOutPayload struct {
	CartID      string               `json:"cartId"`
	UserID      string               `json:"userId"`
	Items       []CartCheckedOutLine `json:"items"`
	TotalItems  int                  `json:"totalItems"`
	TotalAmount float64              `json:"totalAmount"`
	Timestamp   time.Time            `json:"timestamp"`
}

type CartCheckedOutLine struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

func newEnvelope[P any](name string, version int, schema, partitionKey string, payload P) Envelope[P] {
	return Envelope[P]{
		EventName:    name,
		EventVersion: version,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: partitionKey,
		OccurredAt:   time.Now().UTC(),
		Schema:       schema,
		Payload:      payload,
	}
}

// NewCartCheckedOut snapshots c into an envelope keyed by the cart id, or
// by the user id for a cart that was never persisted.
func NewCartCheckedOut(c *cart.Cart, meta cart.CheckoutMetadata) CartCheckedOutEnvelope {
	lines := make([]CartCheckedOutLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, CartCheckedOutLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	key := c.ID
	if key == "" {
		key = c.UserID
	}

	env := newEnvelope(CartCheckedOutEventName, CartCheckedOutEventVersion, CartCheckedOutSchemaID, key, CartCheckedOutPayload{
		CartID:      c.ID,
		UserID:      c.UserID,
		Items:       lines,
		TotalItems:  c.TotalItems,
		TotalAmount: c.TotalPrice,
	})
	env.Payload.Timestamp = env.OccurredAt
	env.CorrelationID = meta.CorrelationID
	env.CausationID = meta.CausationID
	return env
}
