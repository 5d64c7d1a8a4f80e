package mudradesk_test

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/mudradesk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockLifecycleStore implements mudradesk.AccountLifecycleStore
type MockLifecycleStore struct {
	mock.Mock
}

func (m *MockLifecycleStore) MarkApproved(ctx context.Context, id uuid.UUID, approvedAt time.Time, approvedBy *uuid.UUID) (*mudradesk.Account, error) {
	args := m.Called(ctx, id, approvedAt, approvedBy)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockLifecycleStore) SetActive(ctx context.Context, id uuid.UUID, active bool) (*mudradesk.Account, error) {
	args := m.Called(ctx, id, active)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockLifecycleStore) Remove(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAccountFinder implements mudradesk.AccountFinder
type MockAccountFinder struct {
	mock.Mock
}

func (m *MockAccountFinder) GetByEmail(ctx context.Context, email string) (*mudradesk.Account, error) {
	args := m.Called(ctx, email)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

// MockAccountResolver implements mudradesk.AccountResolver
type MockAccountResolver struct {
	mock.Mock
}

func (m *MockAccountResolver) GetAccount(ctx context.Context, id string) (*mudradesk.Account, error) {
	args := m.Called(ctx, id)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

// MockAccounts embeds the Accounts interface so only the methods a test
// exercises need concrete implementations.
type MockAccounts struct {
	mock.Mock
	mudradesk.Accounts
}

func (m *MockAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*mudradesk.Account, error) {
	args := m.Called(ctx, id)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) UpdateTx(ctx context.Context, tx bun.IDB, record *mudradesk.Account, criteria ...repository.UpdateCriteria) (*mudradesk.Account, error) {
	args := m.Called(ctx, tx, record)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *mudradesk.Account, criteria ...repository.InsertCriteria) (*mudradesk.Account, error) {
	args := m.Called(ctx, tx, record)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) GetAccount(ctx context.Context, id string) (*mudradesk.Account, error) {
	args := m.Called(ctx, id)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*mudradesk.Account, error) {
	args := m.Called(ctx, email)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*mudradesk.Account, error) {
	args := m.Called(ctx, tx, email)
	var account *mudradesk.Account
	if v := args.Get(0); v != nil {
		account = v.(*mudradesk.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) ListAll(ctx context.Context, includeAdmins bool) ([]*mudradesk.Account, error) {
	args := m.Called(ctx, includeAdmins)
	var records []*mudradesk.Account
	if v := args.Get(0); v != nil {
		records = v.([]*mudradesk.Account)
	}
	return records, args.Error(1)
}

func (m *MockAccounts) ListPending(ctx context.Context) ([]*mudradesk.Account, error) {
	args := m.Called(ctx)
	var records []*mudradesk.Account
	if v := args.Get(0); v != nil {
		records = v.([]*mudradesk.Account)
	}
	return records, args.Error(1)
}

func (m *MockAccounts) Approve(ctx context.Context, actor mudradesk.ActorRef, account *mudradesk.Account, opts ...mudradesk.TransitionOption) (*mudradesk.Account, error) {
	args := m.Called(ctx, actor, account)
	var result *mudradesk.Account
	if v := args.Get(0); v != nil {
		result = v.(*mudradesk.Account)
	}
	return result, args.Error(1)
}

func (m *MockAccounts) Reject(ctx context.Context, actor mudradesk.ActorRef, account *mudradesk.Account, opts ...mudradesk.TransitionOption) error {
	args := m.Called(ctx, actor, account)
	return args.Error(0)
}

func (m *MockAccounts) Deactivate(ctx context.Context, actor mudradesk.ActorRef, account *mudradesk.Account, opts ...mudradesk.TransitionOption) (*mudradesk.Account, error) {
	args := m.Called(ctx, actor, account)
	var result *mudradesk.Account
	if v := args.Get(0); v != nil {
		result = v.(*mudradesk.Account)
	}
	return result, args.Error(1)
}

func (m *MockAccounts) Reactivate(ctx context.Context, actor mudradesk.ActorRef, account *mudradesk.Account, opts ...mudradesk.TransitionOption) (*mudradesk.Account, error) {
	args := m.Called(ctx, actor, account)
	var result *mudradesk.Account
	if v := args.Get(0); v != nil {
		result = v.(*mudradesk.Account)
	}
	return result, args.Error(1)
}

func (m *MockAccounts) DeleteAccount(ctx context.Context, actor mudradesk.ActorRef, account *mudradesk.Account, opts ...mudradesk.TransitionOption) error {
	args := m.Called(ctx, actor, account)
	return args.Error(0)
}

// MockActivitySink records events for assertions.
type MockActivitySink struct {
	Events []mudradesk.ActivityEvent
}

func (m *MockActivitySink) Record(_ context.Context, event mudradesk.ActivityEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

// MockRepositoryManager implements mudradesk.RepositoryManager backed by
// a MockAccounts. RunInTx invokes the callback with a zero transaction;
// the repositories under test never touch it directly.
type MockRepositoryManager struct {
	accounts mudradesk.Accounts
}

func NewMockRepositoryManager(accounts mudradesk.Accounts) *MockRepositoryManager {
	return &MockRepositoryManager{accounts: accounts}
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() mudradesk.Accounts {
	return m.accounts
}
