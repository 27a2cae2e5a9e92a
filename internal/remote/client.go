// Package remote implements core.DataAccess against the catalog REST API.
//
// Every call is one JSON request. Non-2xx answers become *core.NetworkError
// carrying the API's own message when the body has one; 2xx bodies that do
// not decode into the expected shape become *core.DataShapeError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JonMunkholm/catalogconsole/internal/core"
	"github.com/JonMunkholm/catalogconsole/internal/logging"
)

// Operation names, used in errors, logs and metric labels.
const (
	OpListProducts   = "list_products"
	OpListCategories = "list_categories"
	OpUpdateProduct  = "update_product"
	OpCreateProduct  = "create_product"
	OpPing           = "ping"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // defaults to http.DefaultTransport

	// Limiter caps concurrent requests; nil means unlimited.
	Limiter *Limiter
}

// Client talks to the catalog API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *Limiter
}

var _ core.DataAccess = (*Client)(nil)

// New returns a client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("remote: base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: base URL %q must be http or https", raw)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "catalog " + r.Method + " " + r.URL.Path
				}),
			),
		},
		limiter: opts.Limiter,
	}, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListProducts fetches one page of products.
func (c *Client) ListProducts(ctx context.Context, offset, limit int) ([]core.Product, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	var items []core.Product
	if err := c.do(ctx, OpListProducts, http.MethodGet, "/products", q, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, &core.DataShapeError{Op: OpListProducts, Err: errors.New("expected a JSON array, got null")}
	}
	return items, nil
}

// ListCategories fetches every category.
func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	if err := c.do(ctx, OpListCategories, http.MethodGet, "/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	if cats == nil {
		return nil, &core.DataShapeError{Op: OpListCategories, Err: errors.New("expected a JSON array, got null")}
	}
	return cats, nil
}

// UpdateProduct replaces the editable fields of product id.
func (c *Client) UpdateProduct(ctx context.Context, id int, fields core.ProductFields) (core.Product, error) {
	var p core.Product
	path := "/products/" + strconv.Itoa(id)
	if err := c.do(ctx, OpUpdateProduct, http.MethodPut, path, nil, fields, &p); err != nil {
		return core.Product{}, err
	}
	return p, nil
}

// CreateProduct adds a product and returns it as stored by the API.
func (c *Client) CreateProduct(ctx context.Context, fields core.ProductFields) (core.Product, error) {
	var p core.Product
	if err := c.do(ctx, OpCreateProduct, http.MethodPost, "/products/", nil, fields, &p); err != nil {
		return core.Product{}, err
	}
	return p, nil
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	logger := logging.WithFields(ctx, "op", op, "method", method, "path", path)
	start := time.Now()
	status := 0
	defer func() {
		observe(op, status, time.Since(start))
		if err != nil {
			logger.Warn("catalog request failed", "status", status, "duration", time.Since(start), "error", err)
		} else {
			logger.Debug("catalog request", "status", status, "duration", time.Since(start))
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return &core.NetworkError{Op: op, Err: err}
		}
		defer c.limiter.Release()
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &core.NetworkError{Op: op, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &core.NetworkError{Op: op, Status: status, Err: err}
		}
		return &core.DataShapeError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// errorMessage pulls a message out of an error body. The API answers either
// {"message": "..."} or {"message": ["...", "..."]}, sometimes with an
// "error" field alongside; anything else yields "".
func errorMessage(data []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if msg := rawText(body.Message); msg != "" {
		return msg
	}
	return rawText(body.Error)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := list[:0]
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// Drain waits for in-flight requests to finish. It returns at once when
// the client has no limiter.
func (c *Client) Drain(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.WaitForDrain(ctx)
}

// Ping checks that the API answers. Used by the readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", "1")
	var discard []json.RawMessage
	return c.do(ctx, OpPing, http.MethodGet, "/products", q, nil, &discard)
}
