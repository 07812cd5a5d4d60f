package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/concert-seat-selection/internal/config"
)

func callAdmin(t *testing.T, cfg config.Config, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/seats/1-1-A", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := AdminAuth(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestAdminAuthPlainToken(t *testing.T) {
	cfg := config.Config{AdminToken: "s3cret"}

	require.Equal(t, http.StatusOK, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "s3cret"}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "wrong"}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, nil).Code)
}

func TestAdminAuthBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{AdminTokenHash: string(hash)}

	require.Equal(t, http.StatusOK, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "s3cret"}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "wrong"}).Code)
}

func TestAdminAuthJWT(t *testing.T) {
	cfg := config.Config{JWTSecret: "jwt-secret"}

	sign := func(claims jwt.MapClaims, secret string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		s, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	admin := sign(jwt.MapClaims{"role": "admin", "exp": time.Now().Add(time.Hour).Unix()}, "jwt-secret")
	user := sign(jwt.MapClaims{"role": "user", "exp": time.Now().Add(time.Hour).Unix()}, "jwt-secret")
	forged := sign(jwt.MapClaims{"role": "admin"}, "other-secret")

	require.Equal(t, http.StatusOK, callAdmin(t, cfg, map[string]string{"Authorization": "Bearer " + admin}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"Authorization": "Bearer " + user}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"Authorization": "Bearer " + forged}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"Authorization": "Basic abc"}).Code)
}

func TestAdminAuthDevDefault(t *testing.T) {
	// With no credential configured, any non-empty header passes.
	cfg := config.Config{}
	require.Equal(t, http.StatusOK, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "anything"}).Code)
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, nil).Code)

	// Once a JWT secret exists, the open default is off.
	cfg.JWTSecret = "jwt-secret"
	require.Equal(t, http.StatusForbidden, callAdmin(t, cfg, map[string]string{"X-Admin-Token": "anything"}).Code)
}
