package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/fairscanner/internal/httpx"
	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/services"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/rs/zerolog/log"
)

// writeError maps service and store errors to JSON error responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.Is(err, store.ErrMissingField), errors.Is(err, store.ErrInvalidQty):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, store.ErrOrderNotFound):
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
	case errors.Is(err, store.ErrItemNotFound):
		httpx.JSONError(w, http.StatusNotFound, "item_not_found", nil)
	case errors.Is(err, services.ErrBusy):
		httpx.JSONError(w, http.StatusConflict, "busy", nil)
	case errors.Is(err, services.ErrNoActiveOrder):
		httpx.JSONError(w, http.StatusConflict, "no_active_order", nil)
	case errors.Is(err, services.ErrEmptyOrder):
		httpx.JSONError(w, http.StatusConflict, "empty_order", nil)
	case errors.Is(err, store.ErrOrderFinalized), errors.Is(err, models.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "order_finalized", err.Error())
	case errors.Is(err, remote.ErrRemote):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("remote call failed")
		httpx.JSONError(w, http.StatusBadGateway, "remote_error", err.Error())
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func badJSON(w http.ResponseWriter, err error) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
}

// totalsView is the display form of order totals.
type totalsView struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
	// TotalAmount is Total as a number, rounded to 2 decimals.
	TotalAmount float64 `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

func newTotalsView(t models.Totals) totalsView {
	return totalsView{
		Subtotal:    models.FormatMoney(t.Subtotal),
		Discount:    models.FormatMoney(t.Discount),
		Total:       models.FormatMoney(t.Total),
		TotalAmount: models.RoundMoney(t.Total),
		ItemCount:   t.ItemCount,
	}
}
