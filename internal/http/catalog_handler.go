package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/catalog"
)

type CatalogService interface {
	GetAllProducts(ctx context.Context) (catalog.ProductList, error)
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
	GetProductsByCategory(ctx context.Context, categoryID int64) (catalog.ProductList, error)
	GetAllCategories(ctx context.Context) ([]catalog.Category, error)
	GetCategory(ctx context.Context, id int64) (catalog.Category, error)
}

type CatalogHandler struct {
	svc     CatalogService
	log     logrus.FieldLogger
	timeout time.Duration
}

func NewCatalogHandler(svc CatalogService, log logrus.FieldLogger, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log, timeout: timeout}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.GetAllProducts(ctx)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.svc.GetProduct(ctx, id)
	if err != nil {
		writeNotFoundOr(w, r, h.log, err, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := int64Param(r, "categoryId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.GetProductsByCategory(ctx, categoryID)
	if err != nil {
		writeNotFoundOr(w, r, h.log, err, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.svc.GetAllCategories(ctx)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if categories == nil {
		categories = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.svc.GetCategory(ctx, id)
	if err != nil {
		writeNotFoundOr(w, r, h.log, err, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
