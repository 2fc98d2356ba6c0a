package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voucher-portal/internal/domain/auth"
	"voucher-portal/internal/pkg/permission"
	"voucher-portal/internal/pkg/session"
	"voucher-portal/internal/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func makeToken(t *testing.T, perms []string, exp time.Time) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"sub":         "7",
		"name":        "Achieng",
		"role":        "Cashier",
		"permissions": perms,
		"exp":         exp.Unix(),
	})
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256"}`)) + "." + enc.EncodeToString(body) + ".sig"
}

type brokenStore struct{}

var errBackendDown = errors.New("backend down")

func (brokenStore) Get(context.Context, string, string) (string, error) { return "", errBackendDown }
func (brokenStore) Set(context.Context, string, string, string) error   { return errBackendDown }
func (brokenStore) Delete(context.Context, string, ...string) error     { return errBackendDown }

type harness struct {
	engine  *gin.Engine
	manager *session.Manager
}

func newHarness(t *testing.T, store storage.Store) *harness {
	t.Helper()
	tables, err := permission.DefaultTables()
	require.NoError(t, err)

	manager := session.NewManager(store, zap.NewNop())
	mw := NewAuthMiddleware(permission.NewResolver(tables), zap.NewNop())

	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), Scope(manager, false))
	r.GET("/scope", func(c *gin.Context) {
		c.String(http.StatusOK, MustGetSession(c).ID())
	})

	loaded := r.Group("")
	loaded.Use(mw.LoadUser())
	loaded.GET("/me", mw.Auth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, GetUser(c))
	})
	r.NoRoute(mw.LoadUser(), mw.PageGuard(), func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})

	return &harness{engine: r, manager: manager}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, perms ...string) string {
	t.Helper()
	scope := ulid.Make().String()
	_, err := h.manager.Scope(scope).Login(context.Background(), &auth.LoginRequest{
		Token: makeToken(t, perms, time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return scope
}

func get(path, scope string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if scope != "" {
		req.Header.Set(ScopeHeader, scope)
	}
	return req
}

func TestScope(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore(0))

	t.Run("new scope when absent", func(t *testing.T) {
		rec := h.do(get("/scope", ""))
		require.Equal(t, http.StatusOK, rec.Code)

		id := rec.Body.String()
		_, err := ulid.ParseStrict(id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Header().Get(ScopeHeader))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, ScopeCookie, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("header wins", func(t *testing.T) {
		id := ulid.Make().String()
		rec := h.do(get("/scope", id))
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("cookie reused", func(t *testing.T) {
		id := ulid.Make().String()
		req := get("/scope", "")
		req.AddCookie(&http.Cookie{Name: ScopeCookie, Value: id})
		assert.Equal(t, id, h.do(req).Body.String())
	})

	t.Run("invalid id replaced", func(t *testing.T) {
		rec := h.do(get("/scope", "../../etc"))
		assert.NotEqual(t, "../../etc", rec.Body.String())
		_, err := ulid.ParseStrict(rec.Body.String())
		assert.NoError(t, err)
	})
}

func TestAuth(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore(0))

	rec := h.do(get("/me", ulid.Make().String()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	scope := h.login(t, "Reports")
	rec = h.do(get("/me", scope))
	require.Equal(t, http.StatusOK, rec.Code)

	var user auth.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, []string{"Reports"}, user.Permissions)
}

func TestAuth_ExpiredTokenIsCleared(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore(0))
	scope := ulid.Make().String()
	sess := h.manager.Scope(scope)
	require.NoError(t, sess.SetToken(context.Background(), makeToken(t, nil, time.Now().Add(-time.Minute))))

	rec := h.do(get("/me", scope))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := sess.GetToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestLoadUser_StorageDown(t *testing.T) {
	h := newHarness(t, brokenStore{})
	rec := h.do(get("/me", ulid.Make().String()))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPageGuard(t *testing.T) {
	h := newHarness(t, storage.NewMemoryStore(0))
	reporter := h.login(t, "Reports")

	cases := []struct {
		name     string
		path     string
		scope    string
		code     int
		location string
	}{
		{"public login page", "/admin-login", "", http.StatusOK, ""},
		{"anonymous admin page", "/reports", "", http.StatusFound, permission.AdminLoginPath},
		{"anonymous customer page", "/customer/vouchers", "", http.StatusFound, permission.CustomerLoginPath},
		{"missing capability", "/organization/users", reporter, http.StatusFound, permission.DashboardPath},
		{"granted capability", "/reports/coupon-redemption-report", reporter, http.StatusOK, ""},
		{"dashboard", "/dashboard", reporter, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(get(tc.path, tc.scope))
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://portal.example"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://portal.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://portal.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
