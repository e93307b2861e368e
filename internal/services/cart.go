package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
	"github.com/diewo77/fairscanner/internal/remote"
	"github.com/diewo77/fairscanner/internal/store"
	"github.com/diewo77/fairscanner/internal/validation"
	"github.com/rs/zerolog/log"
)

// UserProvider returns the e-mail of the user the request acts for.
type UserProvider interface {
	UserEmail(ctx context.Context) string
}

// CartConfig holds the defaults stamped on new orders and finalize requests.
type CartConfig struct {
	FairName string
	SalesRep string
	Now      func() time.Time
}

// NewOrderInput holds the header fields of an order to start.
// Empty FairName and SalesRep take the configured defaults.
type NewOrderInput struct {
	FairName      string  `json:"fair_name"`
	SalesRep      string  `json:"sales_rep"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	DeliveryDate  *string `json:"delivery_date"`
	Note          string  `json:"note"`
}

// ManualItem is a line entered by hand for an EAN the catalog does not know.
type ManualItem struct {
	EAN             string  `json:"ean"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountReason  string  `json:"discount_reason"`
	SKU             string  `json:"sku"`
}

// CartState is a snapshot of the cart for display.
type CartState struct {
	Order              *models.Order      `json:"order"`
	Items              []models.OrderItem `json:"items"`
	Totals             models.Totals      `json:"totals"`
	LastScannedEAN     string             `json:"last_scanned_ean,omitempty"`
	LastScannedProduct *models.Product    `json:"last_scanned_product"`
	Loading            bool               `json:"loading"`
}

// CartManager owns the current order and its lines. At most one operation
// runs at a time; an overlapping call fails with ErrBusy. Every mutation is
// written to the store first and the lines are then re-read from it.
type CartManager struct {
	store    *store.Store
	products *ProductCache
	gateway  *SyncGateway
	user     UserProvider
	fairName string
	salesRep string
	now      func() time.Time

	busy atomic.Bool

	mu                 sync.RWMutex
	current            *models.Order
	items              []models.OrderItem
	lastScannedEAN     string
	lastScannedProduct *models.Product
}

func NewCartManager(st *store.Store, products *ProductCache, gateway *SyncGateway, user UserProvider, cfg CartConfig) *CartManager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CartManager{
		store:    st,
		products: products,
		gateway:  gateway,
		user:     user,
		fairName: cfg.FairName,
		salesRep: cfg.SalesRep,
		now:      cfg.Now,
	}
}

func (c *CartManager) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (c *CartManager) end() { c.busy.Store(false) }

// Loading reports whether an operation is in flight.
func (c *CartManager) Loading() bool { return c.busy.Load() }

// State returns a copy of the cart.
func (c *CartManager) State() CartState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := CartState{
		Items:              append([]models.OrderItem{}, c.items...),
		Totals:             models.ComputeTotals(c.items),
		LastScannedEAN:     c.lastScannedEAN,
		LastScannedProduct: c.lastScannedProduct,
		Loading:            c.busy.Load(),
	}
	if c.current != nil {
		o := *c.current
		st.Order = &o
	}
	return st
}

// CurrentOrder returns a copy of the current order, or nil.
func (c *CartManager) CurrentOrder() *models.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	o := *c.current
	return &o
}

// ItemCount is the sum of the quantities in the cart.
func (c *CartManager) ItemCount() int {
	return c.Totals().ItemCount
}

// Totals of the lines in the cart, unrounded.
func (c *CartManager) Totals() models.Totals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.ComputeTotals(c.items)
}

func (c *CartManager) currentID() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "", ErrNoActiveOrder
	}
	return c.current.ID, nil
}

// refresh re-reads the current order and its lines from the store. An order
// that is no longer editable leaves the cart.
func (c *CartManager) refresh(ctx context.Context, id string) error {
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return store.ErrOrderNotFound
	}
	if !order.CanEdit() {
		log.Info().Str("order_id", id).Str("status", string(order.Status)).Msg("current order finalized elsewhere, cart cleared")
		c.reset()
		return nil
	}
	items, err := c.store.GetOrderItems(ctx, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current = order
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *CartManager) reset() {
	c.mu.Lock()
	c.current = nil
	c.items = nil
	c.lastScannedEAN = ""
	c.lastScannedProduct = nil
	c.mu.Unlock()
}

// StartNewOrder creates a draft order and makes it the current one.
func (c *CartManager) StartNewOrder(ctx context.Context, in NewOrderInput) (*models.Order, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	v := validation.Violations{}
	if in.DeliveryDate != nil {
		validation.Date("delivery_date", *in.DeliveryDate, v)
	}
	if err := checkViolations(v); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FairName) == "" {
		in.FairName = c.fairName
	}
	if strings.TrimSpace(in.SalesRep) == "" {
		in.SalesRep = c.salesRep
	}

	order, err := c.store.CreateOrder(ctx, store.NewOrder{
		FairName:      in.FairName,
		SalesRep:      in.SalesRep,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		DeliveryDate:  in.DeliveryDate,
		Note:          in.Note,
	})
	if err != nil {
		return nil, err
	}
	if err := c.refresh(ctx, order.ID); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lastScannedEAN = ""
	c.lastScannedProduct = nil
	c.mu.Unlock()

	log.Info().Str("order_id", order.ID).Int("order_number", order.OrderNumber).Msg("order started")
	return c.CurrentOrder(), nil
}

// AddScannedItem looks the EAN up in the catalog and adds one unit of the
// product. On a miss the cart is unchanged, the EAN is recorded as the last
// scan with no product, and nil is returned.
func (c *CartManager) AddScannedItem(ctx context.Context, ean string) (*models.Product, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return nil, err
	}
	ean = strings.TrimSpace(ean)
	v := validation.Violations{}
	validation.Digits("ean", ean, v)
	if err := checkViolations(v); err != nil {
		return nil, err
	}

	product, err := c.products.FindProductByEAN(ctx, ean)
	if err != nil {
		return nil, err
	}
	if product == nil {
		c.mu.Lock()
		c.lastScannedEAN = ean
		c.lastScannedProduct = nil
		c.mu.Unlock()
		log.Debug().Str("ean", ean).Msg("scanned EAN not in catalog")
		return nil, nil
	}

	productID := product.ID
	_, err = c.store.UpsertOrderItem(ctx, models.OrderItem{
		OrderID:   id,
		ProductID: &productID,
		EAN:       product.EAN,
		SKU:       product.SKU,
		Name:      product.Name,
		Qty:       1,
		Price:     product.Price,
	})
	if err != nil {
		return nil, err
	}
	if err := c.refresh(ctx, id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.lastScannedEAN = ean
	c.lastScannedProduct = product
	c.mu.Unlock()
	return product, nil
}

// AddManualItem adds one unit of a hand-entered line. It never references a
// catalog product; a line with the same EAN still has its qty increased.
func (c *CartManager) AddManualItem(ctx context.Context, in ManualItem) (string, error) {
	if err := c.begin(); err != nil {
		return "", err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return "", err
	}
	v := validation.Violations{}
	validation.Digits("ean", in.EAN, v)
	validation.Required("name", in.Name, v)
	validation.NonNegativeFloat("price", in.Price, v)
	if err := checkViolations(v); err != nil {
		return "", err
	}

	itemID, err := c.store.UpsertOrderItem(ctx, models.OrderItem{
		OrderID:         id,
		EAN:             in.EAN,
		SKU:             strings.TrimSpace(in.SKU),
		Name:            in.Name,
		Qty:             1,
		Price:           in.Price,
		DiscountPercent: in.DiscountPercent,
		DiscountReason:  strings.TrimSpace(in.DiscountReason),
	})
	if err != nil {
		return "", err
	}
	if err := c.refresh(ctx, id); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.lastScannedEAN = strings.TrimSpace(in.EAN)
	c.lastScannedProduct = nil
	c.mu.Unlock()
	return itemID, nil
}

// UpdateItemQty sets the qty of a line; a qty of zero or less removes it.
func (c *CartManager) UpdateItemQty(ctx context.Context, itemID string, qty int) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return err
	}
	if qty <= 0 {
		err = c.store.DeleteOrderItem(ctx, id, itemID)
	} else {
		err = c.store.UpdateOrderItemQty(ctx, id, itemID, qty)
	}
	if err != nil {
		return err
	}
	return c.refresh(ctx, id)
}

// UpdateItemDiscount stores the discount clamped to [0, 100].
func (c *CartManager) UpdateItemDiscount(ctx context.Context, itemID string, pct float64, reason string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return err
	}
	if err := c.store.UpdateOrderItemDiscount(ctx, id, itemID, pct, reason); err != nil {
		return err
	}
	return c.refresh(ctx, id)
}

// RemoveItem deletes a line.
func (c *CartManager) RemoveItem(ctx context.Context, itemID string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return err
	}
	if err := c.store.DeleteOrderItem(ctx, id, itemID); err != nil {
		return err
	}
	return c.refresh(ctx, id)
}

// ClearItems removes every line of the current order and keeps the order.
func (c *CartManager) ClearItems(ctx context.Context) (int64, error) {
	if err := c.begin(); err != nil {
		return 0, err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return 0, err
	}
	n, err := c.store.ClearOrderItems(ctx, id)
	if err != nil {
		return 0, err
	}
	return n, c.refresh(ctx, id)
}

// UpdateOrderDetails sets the customer of the current order, creating the
// customer on first use of the name. A nil deliveryDate leaves it unchanged
// and an empty one clears it.
func (c *CartManager) UpdateOrderDetails(ctx context.Context, customerName string, deliveryDate *string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	order := c.CurrentOrder()
	if order == nil {
		return ErrNoActiveOrder
	}
	customerName = strings.TrimSpace(customerName)
	v := validation.Violations{}
	validation.Required("customer_name", customerName, v)
	if deliveryDate != nil {
		validation.Date("delivery_date", *deliveryDate, v)
	}
	if err := checkViolations(v); err != nil {
		return err
	}

	customer, err := c.store.FindOrCreateCustomer(ctx, customerName, order.CustomerEmail)
	if err != nil {
		return err
	}
	err = c.store.UpdateOrder(ctx, order.ID, store.OrderUpdate{
		CustomerName: &customerName,
		CustomerID:   &customer.ID,
		DeliveryDate: deliveryDate,
	})
	if err != nil {
		return err
	}
	return c.refresh(ctx, order.ID)
}

// FinalizeOrder sends the current order to the backend. On success the order
// is marked finalized locally and the cart is emptied. On any failure the
// order stays a draft with its lines intact so the call can be retried.
func (c *CartManager) FinalizeOrder(ctx context.Context, note string) (*remote.FinalizeResponse, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.RLock()
	current, lines := c.current, len(c.items)
	c.mu.RUnlock()
	if current == nil {
		return nil, ErrNoActiveOrder
	}
	if lines == 0 {
		return nil, ErrEmptyOrder
	}
	id := current.ID

	if note = strings.TrimSpace(note); note != "" {
		if err := c.store.UpdateOrder(ctx, id, store.OrderUpdate{Note: &note}); err != nil {
			return nil, err
		}
	}
	order, err := c.store.GetOrderWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, store.ErrOrderNotFound
	}
	if !order.CanEdit() {
		return nil, store.ErrOrderFinalized
	}
	if len(order.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var email string
	if c.user != nil {
		email = c.user.UserEmail(ctx)
	}
	req := BuildFinalizeRequest(order, order.Items, email, c.fairName)
	resp, err := c.gateway.Finalize(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("order_id", id).Msg("finalize failed, order kept as draft")
		if rerr := c.refresh(ctx, id); rerr != nil {
			log.Error().Err(rerr).Str("order_id", id).Msg("reload after failed finalize")
			return nil, errors.Join(err, fmt.Errorf("reload order: %w", rerr))
		}
		return nil, err
	}

	final := models.OrderStatusFinalized
	syncedAt := c.now().UTC()
	upd := store.OrderUpdate{Status: &final, SyncedAt: &syncedAt}
	if order.CustomerName != "" {
		customer, err := c.store.FindOrCreateCustomer(ctx, order.CustomerName, order.CustomerEmail)
		if err != nil {
			return nil, fmt.Errorf("record customer after finalize: %w", err)
		}
		upd.CustomerID = &customer.ID
	}
	if err := c.store.UpdateOrder(ctx, id, upd); err != nil {
		return nil, fmt.Errorf("mark order finalized: %w", err)
	}

	c.reset()
	log.Info().Str("order_id", id).Int("order_number", order.OrderNumber).Str("csv_url", resp.CSVURL).Msg("order finalized")
	return resp, nil
}

// SaveDraftOrder records the customer name and keeps the order a draft.
func (c *CartManager) SaveDraftOrder(ctx context.Context, customerName string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id, err := c.currentID()
	if err != nil {
		return err
	}
	customerName = strings.TrimSpace(customerName)
	draft := models.OrderStatusDraft
	if err := c.store.UpdateOrder(ctx, id, store.OrderUpdate{CustomerName: &customerName, Status: &draft}); err != nil {
		return err
	}
	return c.refresh(ctx, id)
}

// LoadDraftOrder makes the stored order with id the current one. It reports
// false when no such order exists. A finalized order cannot be loaded.
func (c *CartManager) LoadDraftOrder(ctx context.Context, id string) (bool, error) {
	if err := c.begin(); err != nil {
		return false, err
	}
	defer c.end()

	order, err := c.store.GetOrderWithItems(ctx, id)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, nil
	}
	if !order.CanEdit() {
		return false, store.ErrOrderFinalized
	}
	items := order.Items
	order.Items = nil

	c.mu.Lock()
	c.current = order
	c.items = items
	c.lastScannedEAN = ""
	c.lastScannedProduct = nil
	c.mu.Unlock()
	return true, nil
}

// ClearOrder drops the in-memory cart. The stored order is left as it is.
func (c *CartManager) ClearOrder() {
	c.reset()
}

// SyncOrders pulls remote orders into the store. It holds the cart's busy
// flag so it never interleaves with a cart mutation, then re-reads the
// current order.
func (c *CartManager) SyncOrders(ctx context.Context) (OrderSyncResult, error) {
	if err := c.begin(); err != nil {
		return OrderSyncResult{}, err
	}
	defer c.end()

	res, err := c.gateway.SyncOrders(ctx)
	if err != nil {
		return res, err
	}
	if id, err := c.currentID(); err == nil {
		if err := c.refresh(ctx, id); err != nil {
			return res, err
		}
	}
	return res, nil
}
