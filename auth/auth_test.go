package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kucukaslan/activity/config"
)

const secret = "test-secret-with-enough-entropy-1234"

func newAuth() *Authenticator {
	return New(config.AuthConfig{JWTSecret: secret, AdminRole: "admin"})
}

func call(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestTokenRoundTrip(t *testing.T) {
	a := newAuth()
	token, err := a.GenerateToken("42", "customer", time.Hour)
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "customer", claims.Role)

	expired, err := a.GenerateToken("42", "customer", -time.Minute)
	require.NoError(t, err)
	_, err = a.ValidateToken(expired)
	assert.Error(t, err)

	other := New(config.AuthConfig{JWTSecret: "another-secret"})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newAuth().ValidateToken(token)
	assert.Error(t, err)
}

func TestOptional(t *testing.T) {
	a := newAuth()
	app := fiber.New()
	app.Get("/", a.Optional(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	status, body := call(t, app, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body)

	status, body = call(t, app, "garbage")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body)

	token, _ := a.GenerateToken("42", "customer", time.Hour)
	_, body = call(t, app, token)
	assert.Equal(t, "42", body)
}

func TestRequireAndAdmin(t *testing.T) {
	a := newAuth()
	app := fiber.New()
	app.Get("/", a.Require(), a.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	status, _ := call(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	customer, _ := a.GenerateToken("42", "customer", time.Hour)
	status, _ = call(t, app, customer)
	assert.Equal(t, fiber.StatusForbidden, status)

	admin, _ := a.GenerateToken("1", "admin", time.Hour)
	status, body := call(t, app, admin)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body)
}
