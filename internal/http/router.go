package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/docs"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/middleware"
)

type Deps struct {
	Logger logrus.FieldLogger
	Cfg    config.Config

	Catalog CatalogService
	Cart    CartService
	DB      Pinger
}

func NewRouter(d Deps) (http.Handler, error) {
	timeout := d.Cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	specHandler, err := docs.SpecHandler(d.Cfg.AppName)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Middlewares (outer -> inner)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Recover(d.Logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.CORS(d.Cfg.CORSAllowOrigins))

	health := NewHealthHandler(d.DB, d.Logger)
	r.Get("/", health.Root)
	r.Get("/health", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if d.Cfg.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(staticFS{http.Dir(d.Cfg.StaticDir)}))
		r.Method(http.MethodGet, "/static/*", fs)
		r.Method(http.MethodHead, "/static/*", fs)
	}

	r.Method(http.MethodGet, docs.SpecPath, specHandler)
	r.Method(http.MethodGet, docs.DocsPath, docs.SwaggerHandler(d.Cfg.AppName))
	r.Method(http.MethodGet, docs.RedocPath, docs.RedocHandler(d.Cfg.AppName))

	cat := NewCatalogHandler(d.Catalog, d.Logger, timeout)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", cat.ListProducts)
		r.Get("/{id}", cat.GetProduct)
		r.Get("/category/{categoryId}", cat.ListProductsByCategory)
	})
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", cat.ListCategories)
		r.Get("/{id}", cat.GetCategory)
	})

	cart := NewCartHandler(d.Cart, d.Logger, timeout)
	r.Route("/api/cart/{userId}", func(r chi.Router) {
		r.Get("/", cart.GetCart)
		r.Delete("/", cart.ClearCart)
		r.Post("/items", cart.AddItem)
		r.Put("/items/{productId}", cart.UpdateItem)
		r.Delete("/items/{productId}", cart.RemoveItem)
		r.Post("/checkout", cart.Checkout)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r, nil
}
