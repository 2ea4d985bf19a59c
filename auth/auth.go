// Package auth identifies the caller from a bearer token. Tokens are issued by the
// storefront; this service only verifies them.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"

	"kucukaslan/activity/config"
	"kucukaslan/activity/logging"
)

const (
	localsUserID = "auth.user_id"
	localsRole   = "auth.role"
)

// Claims carries the user id in the subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 tokens.
type Authenticator struct {
	secret    []byte
	adminRole string
}

func New(cfg config.AuthConfig) *Authenticator {
	role := cfg.AdminRole
	if role == "" {
		role = "admin"
	}
	return &Authenticator{secret: []byte(cfg.JWTSecret), adminRole: role}
}

// GenerateToken signs a token for userID valid for ttl.
func (a *Authenticator) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm and expiry.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("JWT secret is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func bearer(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

func (a *Authenticator) identify(c *fiber.Ctx) error {
	token, ok := bearer(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		logging.Ctx(c.UserContext()).Debug().Err(err).Msg("Rejected bearer token")
		return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, token failed")
	}
	c.Locals(localsUserID, utils.CopyString(claims.Subject))
	c.Locals(localsRole, utils.CopyString(claims.Role))
	return nil
}

// Optional identifies the caller when a valid token is present and lets anonymous
// visitors through.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := bearer(c); ok {
			_ = a.identify(c)
		}
		return c.Next()
	}
}

// Require rejects requests without a valid token.
func (a *Authenticator) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := a.identify(c); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAdmin rejects authenticated callers without the admin role. Use after Require.
func (a *Authenticator) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
		}
		if !a.IsAdmin(c) {
			return fiber.NewError(fiber.StatusForbidden, "User role is not authorized to access this route")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous callers.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsUserID).(string)
	return id
}

func (a *Authenticator) IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals(localsRole).(string)
	return role != "" && role == a.adminRole
}
