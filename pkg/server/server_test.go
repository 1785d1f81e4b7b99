package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	srv, err := New(cfg, setupTestDB(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8001", srv.Addr)
	return srv.Handler
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()
	h := newTestServer(t, config.NewForTest())

	cases := []struct {
		method string
		target string
		body   string
		status int
	}{
		{http.MethodGet, "/api/books", "", http.StatusOK},
		{http.MethodPost, "/api/books", `{"title":"A","status":"Reading","rating":4}`, http.StatusOK},
		{http.MethodPut, "/api/books/A", `{"rating":5}`, http.StatusOK},
		{http.MethodGet, "/api/quotes", "", http.StatusOK},
		{http.MethodGet, "/api/quotes/A", "", http.StatusOK},
		{http.MethodPost, "/api/quotes", `{"book_title":"A","text":"hi","user_id":2}`, http.StatusOK},
		{http.MethodPut, "/api/quotes/A/hi", `{"discussion":"nice"}`, http.StatusOK},
		{http.MethodGet, "/api/books-with-quotes", "", http.StatusOK},
		{http.MethodDelete, "/api/quotes/A/hi", "", http.StatusOK},
		{http.MethodDelete, "/api/books/A", "", http.StatusOK},
		{http.MethodGet, "/api/missing", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		rr := serve(h, tc.method, tc.target, tc.body)
		assert.Equal(t, tc.status, rr.Code, "%s %s: %s", tc.method, tc.target, rr.Body.String())
	}
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()
	cfg := config.NewForTest()
	cfg.CORSOrigins = []string{"https://shelf.example.com"}
	h := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set(echo.HeaderOrigin, "https://shelf.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "https://shelf.example.com", rr.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rr.Header().Get(echo.HeaderAccessControlAllowCredentials))

	req = httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set(echo.HeaderOrigin, "https://elsewhere.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()
	cfg := config.NewForTest()
	cfg.RateLimitPerSecond = 1
	h := newTestServer(t, cfg)

	limited := false
	for i := 0; i < 10; i++ {
		rr := serve(h, http.MethodGet, "/api/books", "")
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.True(t, limited)

	// Only /api is limited.
	rr := serve(h, http.MethodDelete, "/test/data", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_TestRoutes(t *testing.T) {
	t.Parallel()

	t.Run("registered in test", func(tt *testing.T) {
		h := newTestServer(tt, config.NewForTest())
		rr := serve(h, http.MethodPost, "/api/books", `{"title":"A","status":"Reading","rating":4}`)
		require.Equal(tt, http.StatusOK, rr.Code)

		rr = serve(h, http.MethodDelete, "/test/data", "")
		require.Equal(tt, http.StatusOK, rr.Code)
		assert.JSONEq(tt, `{"books":1,"quotes":1}`, rr.Body.String())

		rr = serve(h, http.MethodGet, "/api/books", "")
		assert.JSONEq(tt, `[]`, rr.Body.String())
	})

	t.Run("absent elsewhere", func(tt *testing.T) {
		cfg := config.NewForTest()
		cfg.Environment = "production"
		h := newTestServer(tt, cfg)
		rr := serve(h, http.MethodDelete, "/test/data", "")
		assert.Equal(tt, http.StatusNotFound, rr.Code)
	})
}
