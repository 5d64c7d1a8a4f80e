package mudradesk

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultSessionCookie is the cookie the session token travels in.
const DefaultSessionCookie = "mudra_session"

// CookieSessions writes, reads and clears the session cookie. Cookies
// are HTTPOnly and SameSite=Lax; Secure is flipped on in production.
type CookieSessions struct {
	name     string
	duration time.Duration
	secure   bool
	logger   Logger
}

type CookieSessionsOption func(*CookieSessions)

func WithCookieLogger(logger Logger) CookieSessionsOption {
	return func(cs *CookieSessions) {
		if logger != nil {
			cs.logger = logger
		}
	}
}

func WithCookieDuration(d time.Duration) CookieSessionsOption {
	return func(cs *CookieSessions) {
		if d > 0 {
			cs.duration = d
		}
	}
}

func WithSecureCookies(secure bool) CookieSessionsOption {
	return func(cs *CookieSessions) {
		cs.secure = secure
	}
}

func NewCookieSessions(name string, opts ...CookieSessionsOption) *CookieSessions {
	if name == "" {
		name = DefaultSessionCookie
	}

	cs := &CookieSessions{
		name: name,
		// Sessions are effectively permanent; expiry hardening is a
		// known open item.
		duration: 36500 * 24 * time.Hour,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cs)
		}
	}

	return cs
}

// Name returns the cookie name.
func (cs *CookieSessions) Name() string {
	return cs.name
}

// Write stores the session token in the response cookie.
func (cs *CookieSessions) Write(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cs.name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cs.duration),
		HTTPOnly: true,
		Secure:   cs.secure,
		SameSite: "Lax",
	})
}

// Read returns the raw session token, or "" when the request has none.
func (cs *CookieSessions) Read(c *fiber.Ctx) string {
	return c.Cookies(cs.name)
}

// Clear expires the session cookie.
func (cs *CookieSessions) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     cs.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   cs.secure,
		SameSite: "Lax",
	})
}

// redirectStatus mirrors browser expectations: GET navigations use 302,
// form posts use 303 so a refresh never replays the POST.
func redirectStatus(c *fiber.Ctx) int {
	if c.Method() == fiber.MethodGet {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
