package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/diewo77/fairscanner/internal/export"
	"github.com/diewo77/fairscanner/internal/httpx"
	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/store"
)

type OrderHandler struct {
	store *store.Store
}

func NewOrderHandler(st *store.Store) *OrderHandler {
	return &OrderHandler{store: st}
}

type orderView struct {
	Order  *models.Order      `json:"order"`
	Items  []models.OrderItem `json:"items"`
	Totals totalsView         `json:"totals"`
}

func newOrderView(o *models.Order, items []models.OrderItem) orderView {
	if items == nil {
		items = []models.OrderItem{}
	}
	return orderView{Order: o, Items: items, Totals: newTotalsView(models.ComputeTotals(items))}
}

// List returns orders, newest number first; ?status= filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", string(status))
		return
	}
	orders, err := h.store.ListOrders(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Drafts lists saved drafts, most recently created first.
func (h *OrderHandler) Drafts(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListDraftOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandler) View(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	items := o.Items
	o.Items = nil
	httpx.JSON(w, http.StatusOK, newOrderView(o, items))
}

// CSV downloads the order lines in the export column layout.
func (h *OrderHandler) CSV(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteOrderCSV(&buf, o.Items); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.OrderFileName(o)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *OrderHandler) load(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	o, err := h.store.GetOrderWithItems(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if o == nil {
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
		return nil, false
	}
	return o, true
}
