package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"posadmin/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func init() { gin.SetMode(gin.TestMode) }

func sign(t *testing.T, claims JWTClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func accessClaims(role model.Role) JWTClaims {
	return JWTClaims{
		UserID:    uuid.NewString(),
		Email:     "u@pos.com",
		Role:      string(role),
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type denySet map[string]bool

func (d denySet) IsRevoked(_ context.Context, jti string) bool { return d[jti] }

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	revoked := accessClaims(model.RoleAdmin)
	deny := denySet{revoked.ID: true}

	r := gin.New()
	r.GET("/me", JWTAuth(secret, deny), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, string(actor.Role))
	})

	expired := accessClaims(model.RoleAdmin)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	refresh := accessClaims(model.RoleAdmin)
	refresh.TokenType = "refresh"
	badUser := accessClaims(model.RoleAdmin)
	badUser.UserID = "not-a-uuid"

	cases := []struct {
		name  string
		token string
		code  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
		{"expired", sign(t, expired), http.StatusUnauthorized},
		{"refresh token", sign(t, refresh), http.StatusUnauthorized},
		{"bad user id", sign(t, badUser), http.StatusUnauthorized},
		{"revoked", sign(t, revoked), http.StatusUnauthorized},
		{"valid", sign(t, accessClaims(model.RoleCashier)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/me", tc.token)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	w := do(r, http.MethodGet, "/me", sign(t, accessClaims(model.RoleCashier)))
	assert.Equal(t, "cashier", w.Body.String())
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuth(secret, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims(model.RoleAdmin)).SignedString([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", tok).Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/branches", JWTAuth(secret, nil), RequireRole(model.RoleSuperAdmin, model.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/branches", sign(t, accessClaims(model.RoleAdmin))).Code)
	w := do(r, http.MethodGet, "/branches", sign(t, accessClaims(model.RoleCashier)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"detail":"Insufficient permissions"}`, w.Body.String())
}

type fakeAccounts struct {
	roles map[uuid.UUID]model.Role
	err   error
}

func (f fakeAccounts) ActiveRole(_ context.Context, id uuid.UUID) (model.Role, bool, error) {
	role, ok := f.roles[id]
	return role, ok, f.err
}

func TestCurrentAccount(t *testing.T) {
	demoted := accessClaims(model.RoleAdmin)
	steady := accessClaims(model.RoleAdmin)
	accounts := fakeAccounts{roles: map[uuid.UUID]model.Role{
		uuid.MustParse(demoted.UserID): model.RoleCashier,
		uuid.MustParse(steady.UserID):  model.RoleAdmin,
	}}

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/branches", JWTAuth(secret, nil), CurrentAccount(accounts), RequireRole(model.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/branches", sign(t, steady)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/branches", sign(t, demoted)).Code,
		"stored role wins over the token")

	w := do(r, http.MethodGet, "/branches", sign(t, accessClaims(model.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "deactivated or deleted account")
	assert.JSONEq(t, `{"detail":"Account is no longer active"}`, w.Body.String())
}

func TestCurrentAccount_LookupError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", JWTAuth(secret, nil), CurrentAccount(fakeAccounts{err: errors.New("db down")}),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/me", sign(t, accessClaims(model.RoleAdmin)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type fakeShifts struct {
	open map[uuid.UUID]bool
	err  error
}

func (f fakeShifts) HasOpenShift(_ context.Context, id uuid.UUID) (bool, error) {
	return f.open[id], f.err
}

func gatedEngine(checker ShiftChecker) *gin.Engine {
	names := NewRouteNames()
	r := gin.New()
	r.Use(ErrorHandler())
	g := r.Group("/", JWTAuth(secret, nil), ShiftGate(checker, names))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	g.GET("/pos", ok)
	names.Add(http.MethodGet, "/pos", "pos")
	g.GET("/shifts/open", ok)
	names.Add(http.MethodGet, "/shifts/open", "shifts.open")
	return r
}

func TestShiftGate(t *testing.T) {
	cashier := accessClaims(model.RoleCashier)
	withShift := accessClaims(model.RoleCashier)
	r := gatedEngine(fakeShifts{open: map[uuid.UUID]bool{uuid.MustParse(withShift.UserID): true}})

	w := do(r, http.MethodGet, "/pos", sign(t, cashier))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"/shifts/open"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/shifts/open", sign(t, cashier)).Code, "exempt route")
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/pos", sign(t, withShift)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/pos", sign(t, accessClaims(model.RoleAdmin))).Code,
		"only cashiers are gated")
}

func TestShiftGate_LookupError(t *testing.T) {
	r := gatedEngine(fakeShifts{err: errors.New("db down")})
	w := do(r, http.MethodGet, "/pos", sign(t, accessClaims(model.RoleCashier)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	l := NewIPLimiter(0.001, 2)
	r := gin.New()
	r.GET("/", RateLimiter(l), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestIPLimiter_Purge(t *testing.T) {
	l := NewIPLimiter(1, 1)
	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")

	assert.Equal(t, 0, l.Purge(time.Hour))
	assert.Equal(t, 2, l.Purge(-time.Second))
	assert.True(t, l.Allow("10.0.0.1"), "purged visitor starts with a fresh bucket")
}
