// Package remote talks to the hosted backend that owns the product catalog and
// the finalized orders. Two sources are provided: a REST client for the
// backend's HTTP API and a direct Postgres source for deployments that can
// reach the database.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
)

// ErrRemote marks every failure that originates in the remote backend or the
// network path to it. These failures are retryable.
var ErrRemote = errors.New("remote backend error")

// DefaultPageSize is the page size for paginated reads.
const DefaultPageSize = 1000

// ProductQuery selects a page of active products.
// A nil UpdatedAfter selects the whole catalog.
type ProductQuery struct {
	UpdatedAfter *time.Time
	Offset       int
	Limit        int
}

// CatalogSource reads the remote product catalog.
type CatalogSource interface {
	FetchProducts(ctx context.Context, q ProductQuery) ([]models.Product, error)
}

// OrderSource lists remote orders and order items.
type OrderSource interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListOrderItems(ctx context.Context) ([]models.OrderItem, error)
}

// Finalizer calls the remote finalize procedure.
type Finalizer interface {
	FinalizeOrder(ctx context.Context, req FinalizeRequest) (*FinalizeResponse, error)
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Code)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrRemote }

// FinalizeError is a finalize call that reached the backend but was refused,
// either by status or by a success=false body.
type FinalizeError struct {
	OrderID string
	Message string
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize order %s: %s", e.OrderID, e.Message)
}

func (e *FinalizeError) Unwrap() error { return ErrRemote }

func wrapRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRemote) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
}
