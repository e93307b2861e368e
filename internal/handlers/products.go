package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/fairscanner/internal/httpx"
	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/services"
)

type ProductHandler struct {
	cache *services.ProductCache
}

func NewProductHandler(cache *services.ProductCache) *ProductHandler {
	return &ProductHandler{cache: cache}
}

// List searches products by ?q=, or returns the whole active catalog.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var (
		products []models.Product
		err      error
	)
	if query == "" {
		products, err = h.cache.Products(r.Context())
	} else {
		products, err = h.cache.SearchProducts(r.Context(), query)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}

func (h *ProductHandler) ByEAN(w http.ResponseWriter, r *http.Request) {
	p, err := h.cache.FindProductByEAN(r.Context(), r.PathValue("ean"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p == nil {
		httpx.JSONError(w, http.StatusNotFound, "product_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type SyncHandler struct {
	cache *services.ProductCache
	cart  *services.CartManager
}

func NewSyncHandler(cache *services.ProductCache, cart *services.CartManager) *SyncHandler {
	return &SyncHandler{cache: cache, cart: cart}
}

// Products runs a product sync; ?force=1 ignores the sync interval.
func (h *SyncHandler) Products(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	var (
		res services.ProductSyncResult
		err error
	)
	if force {
		res, err = h.cache.ForceSync(r.Context())
	} else {
		res, err = h.cache.Sync(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := h.cache.ProductCount(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"result":        res,
		"product_count": count,
		"last_sync":     h.cache.LastSync(),
	})
}

func (h *SyncHandler) Orders(w http.ResponseWriter, r *http.Request) {
	res, err := h.cart.SyncOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
