package main

import (
	"net/http"

	"github.com/diewo77/fairscanner/internal/auth"
	"github.com/diewo77/fairscanner/internal/handlers"
	"github.com/diewo77/fairscanner/internal/httpx"
	"github.com/diewo77/fairscanner/internal/services"
	"github.com/diewo77/fairscanner/internal/store"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	products *handlers.ProductHandler
	sync     *handlers.SyncHandler
	orders   *handlers.OrderHandler
	cart     *handlers.CartHandler
}

// NewApp creates a new application with all routes configured.
func NewApp(st *store.Store, cache *services.ProductCache, cart *services.CartManager) *App {
	app := &App{
		mux:      http.NewServeMux(),
		products: handlers.NewProductHandler(cache),
		sync:     handlers.NewSyncHandler(cache, cart),
		orders:   handlers.NewOrderHandler(st),
		cart:     handlers.NewCartHandler(cart),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth.Middleware(a.mux).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog and sync
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /products", a.products.List)
	a.mux.HandleFunc("GET /products/ean/{ean}", a.products.ByEAN)
	a.mux.HandleFunc("POST /sync/products", a.sync.Products)
	a.mux.HandleFunc("POST /sync/orders", a.sync.Orders)

	// ─────────────────────────────────────────────────────────────────────────
	// Stored orders
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /orders", a.orders.List)
	a.mux.HandleFunc("GET /orders/drafts", a.orders.Drafts)
	a.mux.HandleFunc("GET /orders/{id}", a.orders.View)
	a.mux.HandleFunc("GET /orders/{id}/csv", a.orders.CSV)

	// ─────────────────────────────────────────────────────────────────────────
	// Current order (cart)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /cart", a.cart.View)
	a.mux.HandleFunc("POST /cart", a.cart.Start)
	a.mux.HandleFunc("DELETE /cart", a.cart.Clear)
	a.mux.HandleFunc("POST /cart/scan", a.cart.Scan)
	a.mux.HandleFunc("POST /cart/items", a.cart.AddItem)
	a.mux.HandleFunc("POST /cart/items/{id}/qty", a.cart.UpdateQty)
	a.mux.HandleFunc("POST /cart/items/{id}/discount", a.cart.UpdateDiscount)
	a.mux.HandleFunc("DELETE /cart/items", a.cart.ClearItems)
	a.mux.HandleFunc("DELETE /cart/items/{id}", a.cart.RemoveItem)
	a.mux.HandleFunc("POST /cart/details", a.cart.Details)
	a.mux.HandleFunc("POST /cart/draft", a.cart.SaveDraft)
	a.mux.HandleFunc("POST /cart/load/{id}", a.cart.Load)
	a.mux.HandleFunc("POST /cart/finalize", a.cart.Finalize)
}
