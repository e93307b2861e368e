package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultFinalizeTimeout bounds one finalize round trip.
const DefaultFinalizeTimeout = 30 * time.Second

// OrderSyncResult reports one pull of remote orders.
type OrderSyncResult struct {
	Orders       int   `json:"orders"`
	Created      int   `json:"created"`
	ItemsWritten int   `json:"items_written"`
	ItemsPruned  int64 `json:"items_pruned"`
	ItemsSkipped int   `json:"items_skipped"`
	Skipped      int   `json:"skipped"`
}

// SyncGateway bridges local orders and the remote backend: it calls the
// finalize procedure and pulls remote orders into the local store.
type SyncGateway struct {
	store     *store.Store
	finalizer remote.Finalizer
	orders    remote.OrderSource
	timeout   time.Duration
}

func NewSyncGateway(st *store.Store, finalizer remote.Finalizer, orders remote.OrderSource, timeout time.Duration) *SyncGateway {
	if timeout <= 0 {
		timeout = DefaultFinalizeTimeout
	}
	return &SyncGateway{store: st, finalizer: finalizer, orders: orders, timeout: timeout}
}

// BuildFinalizeRequest maps an order and its items to the finalize payload.
// Prices are converted to integer minor units here and nowhere else. The
// customer block is sent whenever the order has a customer name.
func BuildFinalizeRequest(order *models.Order, items []models.OrderItem, userEmail, userFairName string) remote.FinalizeRequest {
	req := remote.FinalizeRequest{
		Order: remote.FinalizeOrder{
			ID:            order.ID,
			FairName:      order.FairName,
			SalesRep:      order.SalesRep,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
			Note:          order.Note,
		},
		Items:        make([]remote.FinalizeItem, 0, len(items)),
		UserEmail:    userEmail,
		UserFairName: userFairName,
	}
	for _, it := range items {
		req.Items = append(req.Items, remote.FinalizeItem{
			EAN:             it.EAN,
			SKU:             it.SKU,
			Name:            it.Name,
			Qty:             it.Qty,
			PriceCents:      models.ToMinorUnits(it.Price),
			DiscountPercent: it.DiscountPercent,
		})
	}
	if order.CustomerName != "" {
		req.Customer = &remote.FinalizeCustomer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
		}
	}
	return req
}

// Finalize sends req to the backend. Any failure, including a success=false
// answer or the timeout, is returned as an error wrapping remote.ErrRemote.
func (g *SyncGateway) Finalize(ctx context.Context, req remote.FinalizeRequest) (*remote.FinalizeResponse, error) {
	if g.finalizer == nil {
		return nil, fmt.Errorf("finalize: %w: no finalizer configured", remote.ErrRemote)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.finalizer.FinalizeOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, &remote.FinalizeError{OrderID: req.Order.ID, Message: msg}
	}
	return resp, nil
}

// SyncOrders pulls every remote order and item and merges them locally by id.
// Orders the store rejects as incomplete are logged and skipped; storage
// faults abort the sync.
func (g *SyncGateway) SyncOrders(ctx context.Context) (OrderSyncResult, error) {
	var res OrderSyncResult
	if g.orders == nil {
		return res, fmt.Errorf("sync orders: %w: no order source configured", remote.ErrRemote)
	}

	var (
		orders []models.Order
		items  []models.OrderItem
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		orders, err = g.orders.ListOrders(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		items, err = g.orders.ListOrderItems(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return res, err
	}

	byOrder := make(map[string][]models.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	for _, o := range orders {
		r, err := g.store.UpsertRemoteOrder(ctx, o, byOrder[o.ID])
		if errors.Is(err, store.ErrMissingField) {
			log.Warn().Err(err).Str("order_id", o.ID).Msg("skipping remote order")
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("merge remote order %s: %w", o.ID, err)
		}
		res.Orders++
		if r.Created {
			res.Created++
		}
		res.ItemsWritten += r.ItemsWritten
		res.ItemsPruned += r.ItemsPruned
		res.ItemsSkipped += r.ItemsSkipped
	}

	log.Info().
		Int("orders", res.Orders).
		Int("created", res.Created).
		Int("items", res.ItemsWritten).
		Msg("order sync done")
	return res, nil
}
