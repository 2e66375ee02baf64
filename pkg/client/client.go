// Package client is a typed client for the storefront REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("storefront: %d %s: %s (%s)", e.Status, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("storefront: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the domain error category of the status code, so callers
// can use errors.Is(err, domain.ErrConflict) and friends.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		if e.Code == "illegal_transition" {
			return domain.ErrIllegalTransition
		}
		return domain.ErrConflict
	default:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/users/register", "", nil, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, http.MethodPost, "/users/login", "", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/profile", token, nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Products(ctx context.Context, q ProductQuery) ([]Product, error) {
	var res struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products", "", q.values(), nil, &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var res []Category
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) PlaceOrder(ctx context.Context, token string, req PlaceOrderRequest) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders", token, nil, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	var res []Order
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", token, nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Order(ctx context.Context, token, id string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), token, nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) AllOrders(ctx context.Context, token string) ([]Order, error) {
	var res []Order
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, id string, status domain.OrderStatus) (*Order, error) {
	var o Order
	path := "/orders/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPut, path, token, nil, map[string]string{"status": status.String()}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Stats(ctx context.Context, token string) (*Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", token, nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
