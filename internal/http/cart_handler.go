package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/middleware"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, userID string, productID int64, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID int64) (*cart.Cart, error)
	ClearCart(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID string, meta cart.CheckoutMetadata) (*cart.Cart, error)
}

type CartHandler struct {
	svc     CartService
	log     logrus.FieldLogger
	timeout time.Duration
}

func NewCartHandler(svc CartService, log logrus.FieldLogger, timeout time.Duration) *CartHandler {
	return &CartHandler{svc: svc, log: log, timeout: timeout}
}

type addItemRequest struct {
	ProductID *int64 `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func userIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "userId"))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.svc.GetCart(ctx, userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	var body addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.ProductID == nil || body.Quantity == nil {
		writeError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.svc.AddItem(ctx, userID, *body.ProductID, *body.Quantity)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	productID, ok := int64Param(r, "productId")
	if userID == "" || !ok {
		writeError(w, http.StatusBadRequest, "invalid path parameters")
		return
	}

	var body updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.svc.UpdateItem(ctx, userID, productID, *body.Quantity)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	productID, ok := int64Param(r, "productId")
	if userID == "" || !ok {
		writeError(w, http.StatusBadRequest, "invalid path parameters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.svc.RemoveItem(ctx, userID, productID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.ClearCart(ctx, userID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := userIDParam(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}

	meta := cart.CheckoutMetadata{
		CorrelationID: middleware.GetCorrelationID(r.Context()),
		CausationID:   middleware.GetCausationID(r.Context()),
	}
	if meta.CausationID == "" {
		meta.CausationID = chimw.GetReqID(r.Context())
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.svc.Checkout(ctx, userID, meta); err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			metrics.RecordCheckout("empty")
		} else {
			metrics.RecordCheckout("failed")
		}
		writeServiceError(w, r, h.log, err)
		return
	}

	metrics.RecordCheckout("completed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "checkout completed"})
}
