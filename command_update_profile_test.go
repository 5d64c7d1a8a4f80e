package mudradesk_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/mudradesk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func storedAccount(t *testing.T) *mudradesk.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Curr3nt!pass"), bcrypt.MinCost)
	require.NoError(t, err)

	return &mudradesk.Account{
		ID:           uuid.New(),
		Email:        "owner@shop.in",
		PasswordHash: string(hash),
		BusinessName: "Shop",
		Approved:     true,
		Active:       true,
	}
}

func profileUpdateFor(account *mudradesk.Account) mudradesk.UpdateProfileMessage {
	return mudradesk.UpdateProfileMessage{
		AccountID:       account.ID,
		BusinessName:    "Shop Renamed",
		OwnerName:       "New Owner",
		Email:           account.Email,
		Mobile:          "+91 98765 43210",
		CurrentPassword: "Curr3nt!pass",
	}
}

func TestUpdateProfileHappyPath(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
	accounts.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(account, nil).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	result, err := handler.Execute(context.Background(), profileUpdateFor(account))
	require.NoError(t, err)
	assert.False(t, result.EmailChanged)
	assert.Equal(t, "Shop Renamed", account.BusinessName)
	assert.Equal(t, "New Owner", account.OwnerName)
	accounts.AssertExpectations(t)
}

func TestUpdateProfileRecordsActivity(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
	accounts.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(account, nil).Once()

	sink := &MockActivitySink{}
	handler := mudradesk.NewUpdateProfileHandler(repo).WithActivitySink(sink)

	_, err := handler.Execute(context.Background(), profileUpdateFor(account))
	require.NoError(t, err)

	require.Len(t, sink.Events, 1)
	assert.Equal(t, mudradesk.ActivityEventProfileUpdated, sink.Events[0].EventType)
	assert.Equal(t, account.ID.String(), sink.Events[0].AccountID)
	assert.Equal(t, false, sink.Events[0].Metadata["password_changed"])
}

func TestUpdateProfileWrongCurrentPassword(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	msg := profileUpdateFor(account)
	msg.CurrentPassword = "wrong"

	_, err := handler.Execute(context.Background(), msg)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "CURRENT_PASSWORD_MISMATCH", richErr.TextCode)
	accounts.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileEmailChangeChecksDuplicates(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "new@shop.in").
		Return(nil, repository.NewRecordNotFound()).Once()
	accounts.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(account, nil).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	msg := profileUpdateFor(account)
	msg.Email = "New@Shop.IN"

	result, err := handler.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, result.EmailChanged)
	assert.Equal(t, "new@shop.in", account.Email)
	accounts.AssertExpectations(t)
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
	accounts.On("GetByEmailTx", mock.Anything, mock.Anything, "taken@shop.in").
		Return(&mudradesk.Account{Email: "taken@shop.in"}, nil).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	msg := profileUpdateFor(account)
	msg.Email = "taken@shop.in"

	_, err := handler.Execute(context.Background(), msg)
	assert.ErrorIs(t, err, mudradesk.ErrDuplicateEmail)
	accounts.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileCaseOnlyEmailChangeIsNotAChange(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
	accounts.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(account, nil).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	msg := profileUpdateFor(account)
	msg.Email = "OWNER@shop.in"

	result, err := handler.Execute(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, result.EmailChanged)
	accounts.AssertNotCalled(t, "GetByEmailTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileNewPasswordValidatedAndRehashed(t *testing.T) {
	account := storedAccount(t)
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	t.Run("weak new password rejected upfront", func(t *testing.T) {
		handler := mudradesk.NewUpdateProfileHandler(repo)

		msg := profileUpdateFor(account)
		msg.NewPassword = "short"
		msg.ConfirmPassword = "short"

		_, err := handler.Execute(context.Background(), msg)
		require.Error(t, err)
		assert.NotEmpty(t, mudradesk.PasswordProblems(err))
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("mismatched confirmation rejected upfront", func(t *testing.T) {
		handler := mudradesk.NewUpdateProfileHandler(repo)

		msg := profileUpdateFor(account)
		msg.NewPassword = "N3w!passphrase"
		msg.ConfirmPassword = "Different!1"

		_, err := handler.Execute(context.Background(), msg)
		assert.ErrorIs(t, err, mudradesk.ErrPasswordConfirmation)
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("strong new password replaces hash", func(t *testing.T) {
		oldHash := account.PasswordHash
		accounts.On("GetByID", mock.Anything, account.ID.String()).Return(account, nil).Once()
		accounts.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
			Return(account, nil).Once()

		handler := mudradesk.NewUpdateProfileHandler(repo)

		msg := profileUpdateFor(account)
		msg.NewPassword = "N3w!passphrase"
		msg.ConfirmPassword = "N3w!passphrase"

		_, err := handler.Execute(context.Background(), msg)
		require.NoError(t, err)
		assert.NotEqual(t, oldHash, account.PasswordHash)
	})
}

func TestUpdateProfileAccountNotFound(t *testing.T) {
	accounts := &MockAccounts{}
	repo := NewMockRepositoryManager(accounts)

	id := uuid.New()
	accounts.On("GetByID", mock.Anything, id.String()).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := mudradesk.NewUpdateProfileHandler(repo)

	msg := mudradesk.UpdateProfileMessage{
		AccountID:       id,
		BusinessName:    "Shop",
		Email:           "owner@shop.in",
		CurrentPassword: "Curr3nt!pass",
	}

	_, err := handler.Execute(context.Background(), msg)
	assert.ErrorIs(t, err, mudradesk.ErrAccountNotFound)
}
