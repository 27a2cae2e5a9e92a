package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogconsole/internal/config"
	"github.com/JonMunkholm/catalogconsole/internal/core"
)

// fakeCatalog is an in-memory DataAccess.
type fakeCatalog struct {
	mu      sync.Mutex
	items   []core.Product
	cats    []core.Category
	listErr error

	updates []core.ProductFields
	creates []core.ProductFields

	block   chan struct{}
	entered chan struct{}
}

func newFakeCatalog(n int) *fakeCatalog {
	f := &fakeCatalog{cats: []core.Category{{ID: 1, Name: "Clothes"}, {ID: 2, Name: "Electronics"}}}
	for i := 1; i <= n; i++ {
		f.items = append(f.items, core.Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %03d", i),
			Price:    core.Amount(i),
			Category: &core.Category{ID: 1, Name: "Clothes"},
			Images:   []string{fmt.Sprintf("https://img.example/%d.png", i)},
		})
	}
	return f
}

func (f *fakeCatalog) ListProducts(ctx context.Context, offset, limit int) ([]core.Product, error) {
	f.mu.Lock()
	entered, block := f.entered, f.block
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.items) {
		return []core.Product{}, nil
	}
	end := min(offset+limit, len(f.items))
	return append([]core.Product(nil), f.items[offset:end]...), nil
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cats, nil
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, id int, fields core.ProductFields) (core.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fields)
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Title = fields.Title
			f.items[i].Price = core.Amount(fields.Price)
			return f.items[i], nil
		}
	}
	return core.Product{}, &core.NetworkError{Op: "update_product", Status: http.StatusNotFound}
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, fields core.ProductFields) (core.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, fields)
	p := core.Product{ID: len(f.items) + 1, Title: fields.Title, Price: core.Amount(fields.Price), Images: fields.Images}
	f.items = append(f.items, p)
	return p, nil
}

func (f *fakeCatalog) setBlocking() (entered, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered = make(chan struct{}, 1)
	f.block = make(chan struct{})
	return f.entered, f.block
}

// testConfig returns the default configuration, adjusted by mutate.
func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func newTestServer(t *testing.T, data core.DataAccess, mutate func(*config.Config)) *Server {
	t.Helper()
	srv := NewServer(testConfig(t, mutate), data, nil)
	t.Cleanup(srv.Close)
	return srv
}

// browser replays the session cookie across requests.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies []*http.Cookie
}

func newBrowser(t *testing.T, srv *Server) *browser {
	return &browser{t: t, h: srv.Handler()}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) getJSON(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return b.do(req)
}
