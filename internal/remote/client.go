package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/fairscanner/internal/models"
)

const (
	restPath     = "/rest/v1/"
	finalizePath = "/functions/v1/finalize-order"
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	PageSize int
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Client reads the catalog and orders over the backend's REST API and calls
// the finalize function. It implements CatalogSource, OrderSource and Finalizer.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	http     *http.Client
}

// NewClient creates a REST client.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		http:     hc,
	}
}

// FetchProducts returns one page of active products ordered by updated_at, id.
func (c *Client) FetchProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = c.pageSize
	}
	params := url.Values{}
	params.Set("select", "*")
	params.Set("active", "eq.true")
	if q.UpdatedAfter != nil {
		params.Set("updated_at", "gt."+q.UpdatedAfter.UTC().Format(time.RFC3339Nano))
	}
	params.Set("order", "updated_at.asc,id.asc")
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(limit))

	var rows []ProductRow
	if err := c.getJSON(ctx, "products", params, &rows); err != nil {
		return nil, wrapRemote("fetch products", err)
	}
	products := make([]models.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.ToModel())
	}
	return products, nil
}

// ListOrders returns every remote order, reading page by page.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := listAll[OrderRow](ctx, c, "orders", "created_at.asc,id.asc")
	if err != nil {
		return nil, wrapRemote("list orders", err)
	}
	orders := make([]models.Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.ToModel())
	}
	return orders, nil
}

// ListOrderItems returns every remote order item, reading page by page.
func (c *Client) ListOrderItems(ctx context.Context) ([]models.OrderItem, error) {
	rows, err := listAll[OrderItemRow](ctx, c, "order_items", "created_at.asc,id.asc")
	if err != nil {
		return nil, wrapRemote("list order items", err)
	}
	items := make([]models.OrderItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.ToModel())
	}
	return items, nil
}

func listAll[T any](ctx context.Context, c *Client, table, order string) ([]T, error) {
	var all []T
	for offset := 0; ; offset += c.pageSize {
		params := url.Values{}
		params.Set("select", "*")
		params.Set("order", order)
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(c.pageSize))
		var page []T
		if err := c.getJSON(ctx, table, params, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
	}
}

// FinalizeOrder posts the order to the finalize function. A non-2xx answer is
// a *StatusError carrying the backend's error message when it sent one.
// A 2xx answer is returned as-is; the caller checks Success.
func (c *Client) FinalizeOrder(ctx context.Context, req FinalizeRequest) (*FinalizeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode finalize request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+finalizePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, wrapRemote("finalize", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, wrapRemote("finalize", err)
	}
	var out FinalizeResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, wrapRemote("decode finalize response", decodeErr)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, table string, params url.Values, dst any) error {
	u := c.baseURL + restPath + table + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
