package mudradesk

import (
	"context"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var MarkAccountApprovedSQL = `UPDATE "accounts" AS "acc"
SET
	"is_approved" = TRUE,
	"is_active" = TRUE,
	"approved_at" = ?,
	"approved_by" = ?
WHERE (
	"acc"."id" = ?
) RETURNING *;`

var SetAccountActiveSQL = `UPDATE "accounts" AS "acc"
SET
	"is_active" = ?
WHERE (
	"acc"."id" = ?
) RETURNING *;`

// Accounts is the account repository surface. The lifecycle helpers
// (Approve, Reject, Deactivate, Reactivate, Delete) route through the
// state machine so the allowed-transition table is enforced everywhere.
type Accounts interface {
	repository.Repository[*Account]
	AccountLifecycleStore
	AccountFinder
	AccountResolver

	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	ListAll(ctx context.Context, includeAdmins bool) ([]*Account, error)
	ListPending(ctx context.Context) ([]*Account, error)

	MarkApprovedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, approvedAt time.Time, approvedBy *uuid.UUID) (*Account, error)
	SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error)
	RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	Approve(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	Reject(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) error
	Deactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	Reactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	DeleteAccount(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) error
}

type accounts struct {
	repository.Repository[*Account]
	db                  *bun.DB
	stateMachine        AccountStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
	_ AccountLifecycleStore           = (*accounts)(nil)
)

type AccountsOption func(*accounts)

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func WithAccountsStateMachineOptions(options ...StateMachineOption) AccountsOption {
	return func(a *accounts) {
		if len(options) == 0 {
			return
		}
		a.stateMachineOptions = append(a.stateMachineOptions, options...)
		a.stateMachine = nil
	}
}

func WithAccountsStateMachine(sm AccountStateMachine) AccountsOption {
	return func(a *accounts) {
		a.stateMachine = sm
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetAccount resolves the account backing a session id.
func (a *accounts) GetAccount(ctx context.Context, id string) (*Account, error) {
	return a.Repository.GetByID(ctx, id)
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) ListAll(ctx context.Context, includeAdmins bool) ([]*Account, error) {
	var records []*Account
	q := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC")

	if !includeAdmins {
		q.Where("?TableAlias.is_admin = ?", false)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *accounts) ListPending(ctx context.Context) ([]*Account, error) {
	var records []*Account
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_approved = ?", false).
		Where("?TableAlias.is_admin = ?", false).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *accounts) MarkApproved(ctx context.Context, id uuid.UUID, approvedAt time.Time, approvedBy *uuid.UUID) (*Account, error) {
	return a.MarkApprovedTx(ctx, a.db, id, approvedAt, approvedBy)
}

func (a *accounts) MarkApprovedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, approvedAt time.Time, approvedBy *uuid.UUID) (*Account, error) {
	var by any
	if approvedBy != nil {
		by = approvedBy.String()
	}

	res, err := a.Repository.RawTx(ctx, tx, MarkAccountApprovedSQL, approvedAt, by, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *accounts) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	return a.SetActiveTx(ctx, a.db, id, active)
}

func (a *accounts) SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, SetAccountActiveSQL, active, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *accounts) Remove(ctx context.Context, id uuid.UUID) error {
	return a.RemoveTx(ctx, a.db, id)
}

func (a *accounts) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) Approve(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusActive, opts...)
}

// Reject permanently removes a pending registration.
func (a *accounts) Reject(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) error {
	_, err := a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusDeleted, opts...)
	return err
}

func (a *accounts) Deactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusDeactivated, opts...)
}

func (a *accounts) Reactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusActive, opts...)
}

func (a *accounts) DeleteAccount(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) error {
	_, err := a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusDeleted, opts...)
	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	// New registrations start active and unapproved.
	if !record.Admin && !record.Approved {
		record.Active = true
	}
}

func (a *accounts) lifecycleMachine() AccountStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewAccountStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
