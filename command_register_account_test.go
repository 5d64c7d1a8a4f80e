package mudradesk_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/mudradesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validRegistration() mudradesk.RegisterAccountMessage {
	return mudradesk.RegisterAccountMessage{
		BusinessName:    "Sharma Traders",
		OwnerName:       "A Sharma",
		Email:           "owner@sharmatraders.in",
		Mobile:          "+91 98765 43210",
		BusinessAddress: "12 MG Road, Pune",
		GSTNumber:       "27AAPFU0939F1ZV",
		Password:        "Str0ng!pass",
	}
}

func approveAllGST(ctx context.Context, gstin string) (mudradesk.GSTResult, error) {
	return mudradesk.GSTResult{Valid: true}, nil
}

func TestRegisterAccountHappyPath(t *testing.T) {
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@sharmatraders.in").
		Return(nil, repository.NewRecordNotFound()).Once()

	var created *mudradesk.Account
	accounts.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*mudradesk.Account)
		}).
		Return(&mudradesk.Account{Email: "owner@sharmatraders.in"}, nil).Once()

	handler := mudradesk.NewRegisterAccountHandler(repo, mudradesk.GSTVerifierFunc(approveAllGST))

	account, err := handler.Execute(context.Background(), validRegistration())
	require.NoError(t, err)
	require.NotNil(t, account)

	require.NotNil(t, created)
	assert.False(t, created.Admin)
	assert.False(t, created.Approved)
	assert.True(t, created.Active)
	assert.True(t, created.GSTVerified)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "Str0ng!pass", created.PasswordHash)
	accounts.AssertExpectations(t)
}

func TestRegisterAccountRecordsActivity(t *testing.T) {
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@sharmatraders.in").
		Return(nil, repository.NewRecordNotFound()).Once()
	accounts.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&mudradesk.Account{Email: "owner@sharmatraders.in"}, nil).Once()

	sink := &MockActivitySink{}
	handler := mudradesk.NewRegisterAccountHandler(repo, mudradesk.GSTVerifierFunc(approveAllGST)).
		WithActivitySink(sink)

	_, err := handler.Execute(context.Background(), validRegistration())
	require.NoError(t, err)

	require.Len(t, sink.Events, 1)
	assert.Equal(t, mudradesk.ActivityEventAccountRegistered, sink.Events[0].EventType)
	assert.Equal(t, mudradesk.AccountStatusPending, sink.Events[0].ToStatus)
	assert.Equal(t, "owner@sharmatraders.in", sink.Events[0].Metadata["email"])
}

func TestRegisterAccountRequiresAllFieldsExceptGST(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*mudradesk.RegisterAccountMessage)
		valid bool
	}{
		{"missing owner name", func(m *mudradesk.RegisterAccountMessage) { m.OwnerName = "" }, false},
		{"missing mobile", func(m *mudradesk.RegisterAccountMessage) { m.Mobile = "" }, false},
		{"missing business address", func(m *mudradesk.RegisterAccountMessage) { m.BusinessAddress = "" }, false},
		{"missing GST number is fine", func(m *mudradesk.RegisterAccountMessage) { m.GSTNumber = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validRegistration()
			tt.mut(&msg)

			err := msg.Validate()
			if tt.valid {
				assert.Nil(t, err)
				return
			}

			require.NotNil(t, err)
			assert.Equal(t, goerrors.CategoryValidation, err.Category)
		})
	}
}

func TestRegisterAccountDuplicateEmail(t *testing.T) {
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@sharmatraders.in").
		Return(&mudradesk.Account{Email: "owner@sharmatraders.in"}, nil).Once()

	handler := mudradesk.NewRegisterAccountHandler(repo, mudradesk.GSTVerifierFunc(approveAllGST))

	_, err := handler.Execute(context.Background(), validRegistration())
	assert.ErrorIs(t, err, mudradesk.ErrDuplicateEmail)
	accounts.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterAccountWeakPasswordCollectsAllProblems(t *testing.T) {
	handler := mudradesk.NewRegisterAccountHandler(NewMockRepositoryManager(&MockAccounts{}), nil)

	msg := validRegistration()
	msg.Password = "abc"

	_, err := handler.Execute(context.Background(), msg)
	require.Error(t, err)

	problems := mudradesk.PasswordProblems(err)
	assert.Len(t, problems, 4)
}

func TestRegisterAccountInvalidPayload(t *testing.T) {
	handler := mudradesk.NewRegisterAccountHandler(NewMockRepositoryManager(&MockAccounts{}), nil)

	msg := validRegistration()
	msg.Email = ""

	_, err := handler.Execute(context.Background(), msg)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
}

func TestRegisterAccountInvalidMobile(t *testing.T) {
	handler := mudradesk.NewRegisterAccountHandler(NewMockRepositoryManager(&MockAccounts{}), nil)

	msg := validRegistration()
	msg.Mobile = "12345"

	_, err := handler.Execute(context.Background(), msg)
	assert.Error(t, err)
}

func TestRegisterAccountGSTVerificationFailure(t *testing.T) {
	handler := mudradesk.NewRegisterAccountHandler(
		NewMockRepositoryManager(&MockAccounts{}),
		mudradesk.GSTVerifierFunc(func(ctx context.Context, gstin string) (mudradesk.GSTResult, error) {
			return mudradesk.GSTResult{Valid: false, Error: "not registered"}, nil
		}),
	)

	_, err := handler.Execute(context.Background(), validRegistration())
	require.Error(t, err)
	assert.ErrorIs(t, err, mudradesk.ErrVerificationFailed)
}

func TestRegisterAccountWithoutGSTSkipsVerification(t *testing.T) {
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "owner@sharmatraders.in").
		Return(nil, repository.NewRecordNotFound()).Once()

	var created *mudradesk.Account
	accounts.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(2).(*mudradesk.Account)
		}).
		Return(&mudradesk.Account{}, nil).Once()

	verifierCalled := false
	handler := mudradesk.NewRegisterAccountHandler(repo, mudradesk.GSTVerifierFunc(func(ctx context.Context, gstin string) (mudradesk.GSTResult, error) {
		verifierCalled = true
		return mudradesk.GSTResult{Valid: true}, nil
	}))

	msg := validRegistration()
	msg.GSTNumber = ""

	_, err := handler.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, verifierCalled)
	require.NotNil(t, created)
	assert.False(t, created.GSTVerified)
}

func TestRegisterAccountCancelledContext(t *testing.T) {
	handler := mudradesk.NewRegisterAccountHandler(NewMockRepositoryManager(&MockAccounts{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, validRegistration())
	assert.Error(t, err)
}
