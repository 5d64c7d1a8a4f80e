package mudradesk

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// LoginResult carries the outcome of a successful authentication.
type LoginResult struct {
	Token      string
	Account    *Account
	SuperAdmin bool
}

// Auther authenticates credentials against the super-admin env pair
// first and the account store second.
type Auther struct {
	accounts     AccountFinder
	tokens       TokenService
	super        SuperAdmin
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(accounts AccountFinder, tokens TokenService) *Auther {
	return &Auther{
		accounts:     accounts,
		tokens:       tokens,
		super:        SuperAdminFromEnv(),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithSuperAdmin overrides the env-sourced operator credentials.
func (s *Auther) WithSuperAdmin(super SuperAdmin) *Auther {
	s.super = super
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login resolves credentials to a session token. The error reveals as
// little as possible: unknown email and wrong password both come back
// as ErrInvalidCredentials. Pending and deactivated accounts are
// distinct outcomes so the UI can route them.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.super.Matches(email, password) {
		account := s.super.MintAccount()
		token, err := s.tokens.Generate(account, true)
		if err != nil {
			s.logger.Error("Login super admin token error", "error", err)
			return nil, err
		}

		s.emitAuthEvent(ctx, ActivityEventSuperAdminLogin, ActorRef{ID: account.ID.String(), Type: "superadmin"}, account.ID.String(), map[string]any{
			"email": account.Email,
		})

		return &LoginResult{Token: token, Account: account, SuperAdmin: true}, nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"email": email,
				"error": ErrInvalidCredentials.Message,
			})
			return nil, ErrInvalidCredentials
		}

		s.logger.Error("Login account lookup error", "error", err)
		return nil, goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
			WithTextCode(ErrStoreUnavailable.TextCode).
			WithCode(ErrStoreUnavailable.Code)
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email": email,
			"error": ErrInvalidCredentials.Message,
		})
		return nil, ErrInvalidCredentials
	}

	if !account.Active {
		s.logger.Warn("Login blocked for deactivated account", "account_id", account.ID.String())
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email":  email,
			"error":  ErrAccountDeactivated.Message,
			"status": account.Status(),
		})
		return nil, ErrAccountDeactivated
	}

	if !account.Approved && !account.Admin {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email":  email,
			"error":  ErrAccountPending.Message,
			"status": account.Status(),
		})
		return nil, ErrAccountPending
	}

	token, err := s.tokens.Generate(account, false)
	if err != nil {
		s.logger.Error("Login token generation error", "error", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromAccount(account), account.ID.String(), map[string]any{
		"email": email,
	})

	return &LoginResult{Token: token, Account: account}, nil
}

// SessionFromToken validates a raw cookie value into a session.
func (s *Auther) SessionFromToken(raw string) (*SessionObject, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   account.ID.String(),
		Type: "account",
	}
}
