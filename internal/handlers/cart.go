package handlers

import (
	"net/http"

	"github.com/diewo77/fairscanner/internal/httpx"
	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/services"
)

type CartHandler struct {
	cart *services.CartManager
}

func NewCartHandler(cart *services.CartManager) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartView struct {
	Order              *models.Order      `json:"order"`
	Items              []models.OrderItem `json:"items"`
	Totals             totalsView         `json:"totals"`
	LastScannedEAN     string             `json:"last_scanned_ean,omitempty"`
	LastScannedProduct *models.Product    `json:"last_scanned_product"`
	Loading            bool               `json:"loading"`
}

func (h *CartHandler) view(w http.ResponseWriter, status int) {
	st := h.cart.State()
	if st.Items == nil {
		st.Items = []models.OrderItem{}
	}
	httpx.JSON(w, status, cartView{
		Order:              st.Order,
		Items:              st.Items,
		Totals:             newTotalsView(st.Totals),
		LastScannedEAN:     st.LastScannedEAN,
		LastScannedProduct: st.LastScannedProduct,
		Loading:            st.Loading,
	})
}

func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	h.view(w, http.StatusOK)
}

// Start creates a new draft order and makes it the cart.
func (h *CartHandler) Start(w http.ResponseWriter, r *http.Request) {
	var in services.NewOrderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w, err)
		return
	}
	if _, err := h.cart.StartNewOrder(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusCreated)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearOrder()
	h.view(w, http.StatusOK)
}

type scanRequest struct {
	EAN string `json:"ean"`
}

// Scan adds a scanned EAN. An unknown EAN answers 200 with found=false so
// the client can offer manual entry.
func (h *CartHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	p, err := h.cart.AddScannedItem(r.Context(), req.EAN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st := h.cart.State()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"found":   p != nil,
		"product": p,
		"ean":     st.LastScannedEAN,
		"items":   st.Items,
		"totals":  newTotalsView(st.Totals),
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in services.ManualItem
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w, err)
		return
	}
	if _, err := h.cart.AddManualItem(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusCreated)
}

type qtyRequest struct {
	Qty int `json:"qty"`
}

// UpdateQty sets a line's qty; zero or less removes the line.
func (h *CartHandler) UpdateQty(w http.ResponseWriter, r *http.Request) {
	var req qtyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	if err := h.cart.UpdateItemQty(r.Context(), r.PathValue("id"), req.Qty); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

type discountRequest struct {
	DiscountPercent float64 `json:"discount_percent"`
	DiscountReason  string  `json:"discount_reason"`
}

func (h *CartHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	if err := h.cart.UpdateItemDiscount(r.Context(), r.PathValue("id"), req.DiscountPercent, req.DiscountReason); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.RemoveItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

// ClearItems empties the current order but keeps it open.
func (h *CartHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	if _, err := h.cart.ClearItems(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

type detailsRequest struct {
	CustomerName string  `json:"customer_name"`
	DeliveryDate *string `json:"delivery_date"`
}

func (h *CartHandler) Details(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	if err := h.cart.UpdateOrderDetails(r.Context(), req.CustomerName, req.DeliveryDate); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

type draftRequest struct {
	CustomerName string `json:"customer_name"`
}

func (h *CartHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	if err := h.cart.SaveDraftOrder(r.Context(), req.CustomerName); err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, http.StatusOK)
}

func (h *CartHandler) Load(w http.ResponseWriter, r *http.Request) {
	ok, err := h.cart.LoadDraftOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return
	}
	h.view(w, http.StatusOK)
}

type finalizeRequest struct {
	Note string `json:"note"`
}

// Finalize sends the cart to the backend. On failure the order stays a
// draft and the cart is kept, so the same call can be retried.
func (h *CartHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badJSON(w, err)
		return
	}
	resp, err := h.cart.FinalizeOrder(r.Context(), req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
