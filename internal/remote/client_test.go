package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchProducts(t *testing.T) {
	after := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "eq.true", q.Get("active"))
		assert.Equal(t, "gt.2025-01-02T03:04:05Z", q.Get("updated_at"))
		assert.Equal(t, "updated_at.asc,id.asc", q.Get("order"))
		assert.Equal(t, "10", q.Get("offset"))
		assert.Equal(t, "5", q.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"p1","ean":"4007817327320","sku":"SKU001","name":"Industrial Pump 2000","price_kr":150.00,"active":true,
			 "created_at":"2025-01-01T00:00:00+00:00","updated_at":"2025-01-03T10:00:00.123456+00:00"},
			{"id":"p2","ean":"4007817327321","sku":null,"name":"Hydraulic Valve Set","price_kr":85.5,"active":true,
			 "created_at":"2025-01-01T00:00:00+00:00","updated_at":"2025-01-03T11:00:00+01:00"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL + "/", APIKey: "key"})
	products, err := c.FetchProducts(context.Background(), ProductQuery{UpdatedAfter: &after, Offset: 10, Limit: 5})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "SKU001", products[0].SKU)
	assert.Equal(t, 150.0, products[0].Price)
	assert.Equal(t, "", products[1].SKU)
	assert.Equal(t, 85.5, products[1].Price)
	assert.Equal(t, time.UTC, products[1].UpdatedAt.Location())
	assert.Equal(t, 10, products[1].UpdatedAt.Hour())
}

func TestClientFetchProductsWithoutWatermark(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("updated_at"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, PageSize: 3})
	products, err := c.FetchProducts(context.Background(), ProductQuery{})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestClientListOrdersPaginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/rest/v1/orders", r.URL.Path)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		total := 5
		var rows []map[string]any
		for i := offset; i < total && i < offset+2; i++ {
			rows = append(rows, map[string]any{
				"id":            fmt.Sprintf("o%d", i),
				"customer_name": "Acme",
				"status":        "finalized",
				"delivery_date": "2025-04-01T00:00:00Z",
				"created_at":    "2025-01-01T00:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, PageSize: 2})
	orders, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 5)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "o4", orders[4].ID)
	require.NotNil(t, orders[0].DeliveryDate)
	assert.Equal(t, "2025-04-01", *orders[0].DeliveryDate)
}

func TestClientListOrderItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/order_items", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"i1","order_id":"o1","product_id":null,"ean":"4007817327320","name":"Pump","qty":2,"price_kr":150,"discount_percent":10,"created_at":"2025-01-01T00:00:00Z"}]`))
	}))
	defer srv.Close()

	items, err := NewClient(ClientConfig{BaseURL: srv.URL}).ListOrderItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ProductID)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, 10.0, items[0].DiscountPercent)
}

func TestClientErrorStatusIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(ClientConfig{BaseURL: srv.URL}).FetchProducts(context.Background(), ProductQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "upstream down", se.Message)
}

func TestClientFinalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/v1/finalize-order", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Items    []map[string]any `json:"items"`
			Customer map[string]any   `json:"customer"`
			User     string           `json:"user_email"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) && assert.Len(t, body.Items, 1) {
			assert.Equal(t, float64(15000), body.Items[0]["price_cents"])
			assert.Equal(t, "Acme", body.Customer["name"])
			assert.NotContains(t, body.Customer, "email")
			assert.Equal(t, "rep@example.com", body.User)
		}

		_, _ = w.Write([]byte(`{"success":true,"order_id":"o1","csv_url":"https://files.example.com/o1.csv"}`))
	}))
	defer srv.Close()

	req := FinalizeRequest{
		Order:     FinalizeOrder{ID: "o1", CustomerName: "Acme"},
		Items:     []FinalizeItem{{EAN: "4007817327320", Name: "Pump", Qty: 2, PriceCents: 15000}},
		Customer:  &FinalizeCustomer{Name: "Acme"},
		UserEmail: "rep@example.com",
	}
	resp, err := NewClient(ClientConfig{BaseURL: srv.URL}).FinalizeOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "https://files.example.com/o1.csv", resp.CSVURL)
}

func TestClientFinalizeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"storage upload failed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(ClientConfig{BaseURL: srv.URL}).FinalizeOrder(context.Background(), FinalizeRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "storage upload failed", se.Message)
}

func TestClientFinalizeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(ClientConfig{BaseURL: srv.URL}).FinalizeOrder(ctx, FinalizeRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemote)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
