package mudradesk

import (
	"github.com/gofiber/fiber/v2"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Gate flash copy. The wording is part of the UI contract.
const (
	msgLoginRequired   = "Please log in to access this page."
	msgSessionExpired  = "Session expired. Please log in again."
	msgDeactivated     = "Your account has been deactivated."
	msgPendingApproval = "Your account is pending admin approval."
	msgAdminRequired   = "Admin access required."
)

// GateDecision is the tagged result of a guard check. A zero Target
// means the request may proceed with the resolved account; otherwise
// the caller must apply the redirect.
type GateDecision struct {
	Account      *Account
	Session      *SessionObject
	Target       string
	Message      string
	Level        string
	ClearSession bool
}

// Allowed reports whether the request may proceed.
func (d GateDecision) Allowed() bool {
	return d.Target == ""
}

// Gate implements the request guards. Guards are called explicitly at
// the top of each protected handler rather than hiding behind
// middleware, so every handler states its own requirement.
type Gate struct {
	accounts AccountResolver
	tokens   TokenService
	sessions *CookieSessions
	logger   Logger
}

type GateOption func(*Gate)

func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGate(accounts AccountResolver, tokens TokenService, sessions *CookieSessions, opts ...GateOption) *Gate {
	g := &Gate{
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// RequireMember admits authenticated, approved, active accounts.
func (g *Gate) RequireMember(c *fiber.Ctx) GateDecision {
	d := g.resolve(c)
	if !d.Allowed() {
		return d
	}

	account := d.Account

	if !account.Active {
		return GateDecision{
			Target:       "/login",
			Message:      msgDeactivated,
			Level:        FlashError,
			ClearSession: true,
		}
	}

	if !account.Approved && !account.Admin {
		return GateDecision{
			Target:  "/pending-approval",
			Message: msgPendingApproval,
			Level:   FlashInfo,
		}
	}

	return d
}

// RequireAdmin admits admin sessions. A valid non-admin session is sent
// home with an error but keeps its cookie.
func (g *Gate) RequireAdmin(c *fiber.Ctx) GateDecision {
	d := g.resolve(c)
	if !d.Allowed() {
		return d
	}

	if !d.Account.Active {
		return GateDecision{
			Target:       "/login",
			Message:      msgDeactivated,
			Level:        FlashError,
			ClearSession: true,
		}
	}

	if !d.Account.Admin {
		return GateDecision{
			Target:  "/",
			Message: msgAdminRequired,
			Level:   FlashError,
		}
	}

	return d
}

// Apply turns a denial into a flash plus redirect. Calling it on an
// allowed decision is a no-op returning nil.
func (g *Gate) Apply(c *fiber.Ctx, d GateDecision) error {
	if d.Allowed() {
		return nil
	}

	if d.ClearSession && g.sessions != nil {
		g.sessions.Clear(c)
	}

	if d.Message != "" {
		Flash(c, d.Level, d.Message)
	}

	return c.Redirect(d.Target, redirectStatus(c))
}

// resolve maps the raw cookie to an account. Super-admin claims carry
// their whole identity, so no store round trip happens for them.
func (g *Gate) resolve(c *fiber.Ctx) GateDecision {
	raw := g.sessions.Read(c)
	if raw == "" {
		return GateDecision{
			Target:  "/login",
			Message: msgLoginRequired,
			Level:   FlashWarning,
		}
	}

	claims, err := g.tokens.Validate(raw)
	if err != nil {
		g.logger.Debug("gate token validation failed", "error", err)
		return g.expiredDecision()
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		return g.expiredDecision()
	}

	if claims.IsSuperAdmin() {
		return GateDecision{
			Account: superAdminAccountFromClaims(claims),
			Session: session,
		}
	}

	account, err := g.accounts.GetAccount(c.Context(), claims.AccountID())
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			g.logger.Error("gate account lookup error", "error", err)
		}
		return g.expiredDecision()
	}

	return GateDecision{
		Account: account,
		Session: session,
	}
}

func (g *Gate) expiredDecision() GateDecision {
	return GateDecision{
		Target:       "/login",
		Message:      msgSessionExpired,
		Level:        FlashError,
		ClearSession: true,
	}
}

func superAdminAccountFromClaims(claims *SessionClaims) *Account {
	id, err := uuid.Parse(claims.AccountID())
	if err != nil {
		id = uuid.New()
	}

	return &Account{
		ID:           id,
		Email:        claims.Email(),
		BusinessName: "Super Admin",
		Admin:        true,
		Approved:     true,
		Active:       true,
	}
}
