// Package session resolves the browsing-session identifier of a request.
package session

import (
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

const (
	CookieName = "sessionId"
	Prefix     = "sess_"
	DefaultAge = 30 * 24 * time.Hour
)

var wellFormed = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// Resolver reuses well-formed tokens and mints new ones otherwise. Minted ids are
// never checked against existing sessions.
type Resolver struct {
	mint func() string
}

func NewResolver() *Resolver {
	return &Resolver{mint: func() string { return Prefix + ulid.Make().String() }}
}

// Resolve returns the session id for token and whether it was freshly minted.
func (r *Resolver) Resolve(token string) (id string, minted bool) {
	if WellFormed(token) {
		return token, false
	}
	return r.mint(), true
}

// WellFormed reports whether token can be reused as a session id.
func WellFormed(token string) bool {
	return wellFormed.MatchString(token)
}

// Cookie builds the cookie that hands id back to the browser.
func Cookie(id string, maxAge time.Duration, secure bool) *fiber.Cookie {
	if maxAge <= 0 {
		maxAge = DefaultAge
	}
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
