package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ymalspace/search-gateway/internal/aggregate"
	"github.com/ymalspace/search-gateway/internal/cache"
	"github.com/ymalspace/search-gateway/internal/fanout"
	"github.com/ymalspace/search-gateway/internal/metasearch"
	"github.com/ymalspace/search-gateway/internal/metrics"
	"github.com/ymalspace/search-gateway/internal/promoted"
	"github.com/ymalspace/search-gateway/internal/search"
)

const jwtSecret = "handler-test-secret"

type stubProvider struct {
	name    string
	results []search.Result
	err     error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Search(context.Context, search.Query) (search.Response, error) {
	if p.err != nil {
		return search.Response{}, p.err
	}
	return search.Response{Provider: p.name, Results: p.results, Total: len(p.results), Instance: "https://searx.example"}, nil
}

func newRouter(t *testing.T, providers ...search.Provider) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	m := metrics.New()
	f := fanout.New(search.NewRegistry(providers...), cache.NewMemory(16, time.Minute), m, zap.NewNop(), fanout.Config{Timeout: time.Second})
	catalog := promoted.NewCatalog(promoted.StaticLoader{
		{Title: "Cat Food", URL: "https://catfood.example", TriggerKeywords: []string{"cat"}},
	}, nil)
	_, err = catalog.Reload(context.Background())
	require.NoError(t, err)

	svc := metasearch.New(f, aggregate.New(), catalog, m, zap.NewNop(), metasearch.Config{})
	return NewRouter(RouterOptions{
		Service:        svc,
		Admin:          AdminOptions{Username: "admin", PasswordHash: string(hash), JWTSecret: jwtSecret},
		AllowedOrigins: []string{"https://search.ymal.space"},
		Metrics:        m.Handler(),
		Logger:         zap.NewNop(),
	})
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func cats() search.Provider {
	return stubProvider{name: "searxng", results: []search.Result{
		{Title: "Cats", URL: "https://cats.org", Engine: "bing"},
		{Title: "Cat", URL: "https://en.wikipedia.org/wiki/Cat"},
	}}
}

func TestSearch(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/search?q=cat&page=1&size=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data metasearch.Page `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cat", body.Data.Query)
	assert.Equal(t, 2, body.Data.Total)
	assert.Equal(t, 2, body.Data.TotalPages)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "cats.org", body.Data.Items[0].Domain)
	require.Len(t, body.Data.Promoted, 1)
	assert.Equal(t, fanout.StateOK, body.Data.Sources["searxng"].State)
}

type pageRecorder struct {
	stubProvider
	pages chan int
}

func (p pageRecorder) Search(ctx context.Context, q search.Query) (search.Response, error) {
	p.pages <- q.Page
	return p.stubProvider.Search(ctx, q)
}

func TestSearch_HugePage(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/search?q=cat&page=922337203685477582", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data metasearch.Page `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Total)
	assert.Equal(t, 1, body.Data.TotalPages)
	assert.Empty(t, body.Data.Items)
}

func TestProxy_HugePageIsCapped(t *testing.T) {
	p := pageRecorder{stubProvider: cats().(stubProvider), pages: make(chan int, 4)}
	h := newRouter(t, p)
	rec := do(h, http.MethodGet, "/api/search?q=cat&page=922337203685477582", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, p.pages, 1)
	assert.Equal(t, search.MaxPage, <-p.pages)
}

func TestSearch_MissingQuery(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/search", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Query parameter is required")
}

func TestProxy(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/api/search?q=cat&page=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body search.ProxyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cat", body.Query)
	assert.Len(t, body.Results, 2)
	assert.Equal(t, "bing", body.Results[0].Engine)
	assert.Equal(t, "web", body.Results[1].Engine)
	assert.Nil(t, body.Results[0].PublishedDate)
	assert.Equal(t, "https://searx.example", body.InstanceUsed)
	assert.False(t, body.Fallback)
}

func TestProxy_FailureStillOK(t *testing.T) {
	h := newRouter(t, stubProvider{name: "searxng", err: errors.New("connection refused")})
	rec := do(h, http.MethodGet, "/api/search?q=cat", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"cat","results":[],"number_of_results":0,"suggestions":[],"error":"Search temporarily unavailable","fallback":true}`, rec.Body.String())
}

func TestProxy_MissingQuery(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/api/search?q=%20%20", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Query parameter is required"}`, rec.Body.String())
}

func TestProxy_CORS(t *testing.T) {
	h := newRouter(t, cats())
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=cat", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newRouter(t, cats())
	rec := do(h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"searxng":"closed"`)

	do(h, http.MethodGet, "/search?q=cat", "", "")
	rec = do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "search_requests_total")
}

func TestAdmin(t *testing.T) {
	h := newRouter(t, cats())

	rec := do(h, http.MethodPost, "/admin/login", `{"username":"admin","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodGet, "/admin/promoted", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/admin/login", `{"username":"admin","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Data struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expiresAt"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.Token)
	assert.NotEmpty(t, login.Data.ExpiresAt)

	rec = do(h, http.MethodGet, "/admin/promoted", "", login.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cat Food")

	rec = do(h, http.MethodPost, "/admin/promoted/reload", "", login.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"count":1}}`, rec.Body.String())
}

func TestAdminLogin_Disabled(t *testing.T) {
	h := NewAdminHandler(AdminOptions{}, promoted.NewCatalog(nil, nil), zap.NewNop())
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
