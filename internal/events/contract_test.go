package events

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/cart"
)

func sampleCart() *cart.Cart {
	c := &cart.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items: []cart.Item{
			{ProductID: 1, Price: 129.99, Quantity: 1},
			{ProductID: 4, Price: 10, Quantity: 2},
		},
	}
	c.Recalculate()
	return c
}

func TestNewCartCheckedOut(t *testing.T) {
	env := NewCartCheckedOut(sampleCart(), cart.CheckoutMetadata{CorrelationID: "corr-1"})

	require.Equal(t, CartCheckedOutEventName, env.EventName)
	require.Equal(t, CartCheckedOutEventVersion, env.EventVersion)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, "shop-api", env.Producer)
	require.Equal(t, CartCheckedOutSchemaID, env.Schema)
	require.Equal(t, "cart-1", env.PartitionKey)
	require.Equal(t, "corr-1", env.CorrelationID)
	require.Empty(t, env.CausationID)
	require.False(t, env.OccurredAt.IsZero())
	require.Equal(t, env.OccurredAt, env.Payload.Timestamp)

	require.Equal(t, "user-1", env.Payload.UserID)
	require.Len(t, env.Payload.Items, 2)
	require.Equal(t, 3, env.Payload.TotalItems)
	require.Equal(t, 149.99, env.Payload.TotalAmount)
}

func TestNewCartCheckedOutKeysUnsavedCartByUser(t *testing.T) {
	c := sampleCart()
	c.ID = ""

	env := NewCartCheckedOut(c, cart.CheckoutMetadata{})
	require.Equal(t, "user-1", env.PartitionKey)
}

func TestCartCheckedOutMatchesSchema(t *testing.T) {
	schema := loadSchema(t)
	require.Equal(t, CartCheckedOutSchemaID, schema["$id"])

	env := NewCartCheckedOut(sampleCart(), cart.CheckoutMetadata{CorrelationID: "corr-1", CausationID: "req-1"})
	env.Sequence = 3

	validate := func(env CartCheckedOutEnvelope) error {
		asMap := toMap(t, env)
		if err := checkObject(schema, asMap); err != nil {
			return err
		}
		for _, field := range []string{"eventName", "eventVersion", "schema"} {
			if err := assertConst(schema, asMap, field); err != nil {
				return err
			}
		}

		payloadSchema := property(schema, "payload")
		payload, ok := asMap["payload"].(map[string]any)
		if !ok {
			return fmt.Errorf("missing payload object")
		}
		if err := checkObject(payloadSchema, payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}

		itemSchema := property(payloadSchema, "items")["items"].(map[string]any)
		items, _ := payload["items"].([]any)
		if len(items) == 0 {
			return fmt.Errorf("payload: items must not be empty")
		}
		for i, raw := range items {
			item, _ := raw.(map[string]any)
			if err := checkObject(itemSchema, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if q, _ := item["quantity"].(float64); q < 1 {
				return fmt.Errorf("item %d: quantity below minimum", i)
			}
		}
		return nil
	}

	require.NoError(t, validate(env))

	broken := env
	broken.Schema = "contracts/events/cart/CartCheckedOut.v1.enveloped.schema.json"
	require.Error(t, validate(broken))

	broken = NewCartCheckedOut(sampleCart(), cart.CheckoutMetadata{})
	broken.Payload.Items[0].Quantity = 0
	require.Error(t, validate(broken))
}

func loadSchema(t *testing.T) map[string]any {
	t.Helper()
	raw, err := CartCheckedOutSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	return schema
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func property(schema map[string]any, name string) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	prop, _ := props[name].(map[string]any)
	return prop
}

// checkObject enforces required fields and additionalProperties: false.
func checkObject(schema, obj map[string]any) error {
	required, _ := schema["required"].([]any)
	for _, f := range required {
		if _, ok := obj[f.(string)]; !ok {
			return fmt.Errorf("missing required field %s", f)
		}
	}
	props, _ := schema["properties"].(map[string]any)
	for k := range obj {
		if _, ok := props[k]; !ok {
			return fmt.Errorf("unexpected field %s", k)
		}
	}
	return nil
}

func assertConst(schema, obj map[string]any, field string) error {
	want, ok := property(schema, field)["const"]
	if !ok {
		return nil
	}
	if obj[field] != want {
		return fmt.Errorf("%s: got %v, want %v", field, obj[field], want)
	}
	return nil
}
