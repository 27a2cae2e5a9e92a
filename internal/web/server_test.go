package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogconsole/internal/config"
	"github.com/JonMunkholm/catalogconsole/internal/core"
)

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) ViewResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func ids(items []core.Product) []int {
	out := make([]int, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestConsolePage(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(35), nil)
	b := newBrowser(t, srv)

	rec := b.get("/products")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Product 001")
	assert.Contains(t, body, "Product 010")
	assert.NotContains(t, body, "Product 011")
	require.Len(t, b.cookies, 1)
	assert.Equal(t, SessionCookie, b.cookies[0].Name)
	assert.True(t, b.cookies[0].HttpOnly)
	assert.Equal(t, 1, srv.Sessions().Len())
}

func TestRootRedirects(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), nil)
	rec := newBrowser(t, srv).get("/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get("Location"))
}

func TestPaging(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(25), nil)
	b := newBrowser(t, srv)

	rec := b.post("/products/page/next", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/products", rec.Header().Get("Location"))

	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 2, v.Page)
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, ids(v.Items))
	assert.True(t, v.CanPrev)
	assert.True(t, v.CanNext)

	b.post("/products/page/next", nil)
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 3, v.Page)
	assert.Len(t, v.Items, 5)
	assert.False(t, v.CanNext)

	// A short page is the last one.
	b.post("/products/page/next", nil)
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 3, v.Page)

	b.post("/products/page/prev", nil)
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 2, v.Page)
}

func TestPaging_UnknownDirection(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(5), nil)
	rec := newBrowser(t, srv).post("/products/page/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageSize(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(35), nil)
	b := newBrowser(t, srv)

	b.post("/products/page/next", nil)
	rec := b.post("/products/page-size", url.Values{"size": {"25"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 25, v.PageSize)
	assert.Len(t, v.Items, 25)
}

func TestPageSize_Invalid(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(35), nil)
	b := newBrowser(t, srv)

	tests := []string{"0", "-3", "abc", "1000"}
	for _, size := range tests {
		t.Run(size, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products/page-size?size="+url.QueryEscape(size), nil)
			req.Header.Set("Accept", "application/json")
			rec := b.do(req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "UI004", decodeError(t, rec).Code)
		})
	}

	// Browsers get the rejection as an alert.
	rec := b.post("/products/page-size", url.Values{"size": {"1000"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, 10, v.PageSize)
	require.Len(t, v.Alerts, 1)
	assert.Equal(t, "UI004", v.Alerts[0].Code)
}

func TestSearchAndSort(t *testing.T) {
	api := newFakeCatalog(10)
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)

	b.post("/products/search", url.Values{"q": {"product 00"}})
	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, "product 00", v.Search)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, ids(v.Items))
	assert.Equal(t, 10, v.Fetched)

	b.post("/products/sort/price", url.Values{"dir": {"desc"}})
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, core.SortPrice, v.SortField)
	assert.Equal(t, core.SortDesc, v.SortDir)
	assert.Equal(t, 9, v.Items[0].ID)

	// Toggling the active column flips the direction.
	b.post("/products/sort/price", nil)
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, core.SortAsc, v.SortDir)
	assert.Equal(t, 1, v.Items[0].ID)
}

func TestDetailEditFlow(t *testing.T) {
	api := newFakeCatalog(10)
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)

	rec := b.post("/products/3/open", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	v := decodeView(t, b.getJSON("/api/view"))
	require.NotNil(t, v.Selected)
	assert.Equal(t, 3, v.Selected.ID)
	assert.Equal(t, "viewing", v.Edit.State)

	b.post("/products/detail/edit", nil)
	v = decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, "editing", v.Edit.State)
	require.NotNil(t, v.Edit.Form)
	assert.Equal(t, "Product 003", v.Edit.Form.Title)

	rec = b.post("/products/detail/save", url.Values{
		core.FieldTitle:       {"Renamed"},
		core.FieldPrice:       {"42.5"},
		core.FieldDescription: {"Updated"},
		core.FieldCategoryID:  {"2"},
		core.FieldImages:      {"https://img.example/a.png\n\nhttps://img.example/b.png"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	require.Len(t, api.updates, 1)
	assert.Equal(t, core.ProductFields{
		Title:       "Renamed",
		Price:       42.5,
		Description: "Updated",
		CategoryID:  2,
		Images:      []string{"https://img.example/a.png", "https://img.example/b.png"},
	}, api.updates[0])

	v = decodeView(t, b.getJSON("/api/view"))
	assert.Nil(t, v.Selected)
	assert.Equal(t, "viewing", v.Edit.State)
	require.NotEmpty(t, v.Alerts)
	assert.Equal(t, core.AlertSuccess, v.Alerts[0].Level)
	assert.Contains(t, v.Alerts[0].Message, "Updated #3")
}

func TestSaveEdit_ValidationError(t *testing.T) {
	api := newFakeCatalog(10)
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)

	b.post("/products/4/open", nil)
	b.post("/products/detail/edit", nil)

	rec := b.postJSON("/products/detail/save", `{"title":"  ","price":5,"description":"d","categoryId":1,"images":["https://x"]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "VAL001", e.Code)
	assert.Equal(t, core.FieldTitle, e.Field)
	assert.Empty(t, api.updates)

	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, "editing", v.Edit.State)
	assert.Equal(t, core.FieldTitle, v.Edit.Field)
	assert.Equal(t, "5", v.Edit.Form.Price)
}

func TestSaveEdit_NoSelection(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(10), nil)
	b := newBrowser(t, srv)

	rec := b.postJSON("/products/detail/save", `{"title":"x","price":"1","description":"d","categoryId":"1","images":"https://x"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "UI003", decodeError(t, rec).Code)
}

func TestSaveEdit_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(10), nil)
	b := newBrowser(t, srv)

	rec := b.postJSON("/products/detail/save", `{"title":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UI006", decodeError(t, rec).Code)
}

func TestOpenDetail_NotOnPage(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(10), nil)
	b := newBrowser(t, srv)

	for _, id := range []string{"99", "abc"} {
		req := httptest.NewRequest(http.MethodPost, "/products/"+id+"/open", nil)
		req.Header.Set("Accept", "application/json")
		rec := b.do(req)

		assert.Equal(t, http.StatusNotFound, rec.Code, id)
		assert.Equal(t, "UI002", decodeError(t, rec).Code, id)
	}
}

func TestCreate(t *testing.T) {
	api := newFakeCatalog(12)
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)

	b.post("/products/page/next", nil)
	b.post("/products/new", nil)
	v := decodeView(t, b.getJSON("/api/view"))
	require.Equal(t, "editing", v.Create.State)
	assert.Equal(t, core.DefaultCreateImage, v.Create.Form.Images)

	rec := b.postJSON("/products/create", `{"title":"Lamp","price":12.5,"description":"Desk lamp","categoryId":2,"images":["https://a","https://b"]}`)

	v = decodeView(t, rec)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, "viewing", v.Create.State)
	require.Len(t, api.creates, 1)
	assert.Equal(t, 12.5, api.creates[0].Price)
	assert.Equal(t, 2, api.creates[0].CategoryID)
	assert.Equal(t, []string{"https://a", "https://b"}, api.creates[0].Images)
}

func TestCreate_CancelClosesForm(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(3), nil)
	b := newBrowser(t, srv)

	b.post("/products/new", nil)
	b.post("/products/new/cancel", nil)

	v := decodeView(t, b.getJSON("/api/view"))
	assert.Equal(t, "viewing", v.Create.State)
	assert.Nil(t, v.Create.Form)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(3), nil)
	b := newBrowser(t, srv)

	rec := b.get("/products/export.csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=products_page1_size10.csv`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,title,price,category,images", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,Product 001,1,Clothes,"))
}

func TestFetchFailureIsFlashed(t *testing.T) {
	api := newFakeCatalog(10)
	api.listErr = &core.NetworkError{Op: "list_products", Status: http.StatusBadGateway}
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)

	rec := b.get("/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NET002")

	rec = b.post("/products/reload", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/products/reload", nil)
	req.Header.Set("Accept", "application/json")
	rec = b.do(req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "NET002", decodeError(t, rec).Code)
}

func TestBusyReturnsConflict(t *testing.T) {
	api := newFakeCatalog(10)
	srv := newTestServer(t, api, nil)
	b := newBrowser(t, srv)
	b.get("/products")

	entered, release := api.setBlocking()
	done := make(chan int)
	cookies := b.cookies
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/products/reload", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		done <- rec.Code
	}()
	<-entered

	rec := b.post("/products/reload", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The page still renders during the fetch, with its controls disabled.
	page := b.get("/products")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `class="secondary" disabled>Reload`)

	close(release)
	assert.Equal(t, http.StatusSeeOther, <-done)

	assert.NotContains(t, b.get("/products").Body.String(), `class="secondary" disabled>Reload`)
}

func TestAPICategories(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), nil)
	rec := newBrowser(t, srv).get("/api/categories")

	require.Equal(t, http.StatusOK, rec.Code)
	var cats []core.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Equal(t, []core.Category{{ID: 1, Name: "Clothes"}, {ID: 2, Name: "Electronics"}}, cats)
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})
	b := newBrowser(t, srv)

	assert.Equal(t, http.StatusUnauthorized, b.get("/api/view").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, b.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, b.do(req).Code)

	// The console itself is not guarded.
	assert.Equal(t, http.StatusOK, b.get("/products").Code)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
		c.Rate.MutationLimit = 1
	})
	b := newBrowser(t, srv)

	assert.Equal(t, http.StatusOK, b.get("/healthz").Code)
	assert.Equal(t, http.StatusOK, b.get("/healthz").Code)

	rec := b.getJSON("/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := newRateLimiter(ctx, 1, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), nil)
	rec := newBrowser(t, srv).get("/healthz")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' https:")
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, newFakeCatalog(1), nil)
	b := newBrowser(t, srv)

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Body.String(), path)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		pinger   Pinger
		wantCode int
	}{
		{"no pinger", nil, http.StatusOK},
		{"catalog up", fakePinger{}, http.StatusOK},
		{"catalog down", fakePinger{err: &core.NetworkError{Op: "ping", Err: errors.New("connection refused")}}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(testConfig(t, nil), newFakeCatalog(1), tt.pinger)
			t.Cleanup(srv.Close)

			rec := newBrowser(t, srv).get("/readyz")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrBusy, http.StatusConflict},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrNoSelection, http.StatusConflict},
		{core.ErrInvalidPageSize, http.StatusBadRequest},
		{core.ErrBadRequest, http.StatusBadRequest},
		{core.ValidationError{Field: core.FieldPrice}, http.StatusUnprocessableEntity},
		{&core.InvalidTransitionError{}, http.StatusConflict},
		{&core.NetworkError{Status: 500}, http.StatusBadGateway},
		{&core.DataShapeError{}, http.StatusBadGateway},
		{errRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

type invalidatingCatalog struct {
	*fakeCatalog
	invalidated int
}

func (c *invalidatingCatalog) Invalidate(context.Context) error {
	c.invalidated++
	return nil
}

func TestRefreshCategories(t *testing.T) {
	api := &invalidatingCatalog{fakeCatalog: newFakeCatalog(1)}
	srv := newTestServer(t, api, nil)

	rec := newBrowser(t, srv).do(httptest.NewRequest(http.MethodPost, "/api/categories/refresh", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.invalidated)
	assert.Contains(t, rec.Body.String(), "Electronics")
}
