package mudradesk

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateProfileMessage struct {
	AccountID       uuid.UUID `json:"account_id"`
	BusinessName    string    `json:"business_name"`
	OwnerName       string    `json:"owner_name"`
	Email           string    `json:"email"`
	Mobile          string    `json:"mobile"`
	BusinessAddress string    `json:"business_address"`
	GSTNumber       string    `json:"gst_number"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
	ConfirmPassword string    `json:"confirm_password"`
}

func (e UpdateProfileMessage) Type() string { return "account.profile.update" }

func (e UpdateProfileMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.BusinessName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&e.Mobile, validation.By(ValidateIndianMobile)),
			validation.Field(&e.CurrentPassword, validation.Required),
		)
	}, "Invalid profile payload")
}

// UpdateProfileResult reports whether the email changed so the caller
// can invalidate the session.
type UpdateProfileResult struct {
	Account      *Account
	EmailChanged bool
}

type UpdateProfileHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
}

func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink configures the audit sink profile changes report to.
func (h *UpdateProfileHandler) WithActivitySink(sink ActivitySink) *UpdateProfileHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) (*UpdateProfileResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) (*UpdateProfileResult, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.NewPassword != "" {
		if event.NewPassword != event.ConfirmPassword {
			return nil, ErrPasswordConfirmation
		}
		if problems := ValidatePasswordStrength(event.NewPassword); len(problems) > 0 {
			return nil, PasswordStrengthError(problems)
		}
	}

	result := &UpdateProfileResult{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByID(ctx, event.AccountID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrAccountNotFound.WithMetadata(map[string]any{
					"id": event.AccountID.String(),
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
		}

		// Profile changes require re-entering the current password.
		if err := ComparePasswordAndHash(event.CurrentPassword, account.PasswordHash); err != nil {
			return goerrors.New("current password is incorrect", goerrors.CategoryAuth).
				WithTextCode("CURRENT_PASSWORD_MISMATCH").
				WithCode(goerrors.CodeUnauthorized)
		}

		newEmail := strings.TrimSpace(strings.ToLower(event.Email))
		emailChanged := !strings.EqualFold(newEmail, account.Email)

		if emailChanged {
			if _, err := h.repo.Accounts().GetByEmailTx(ctx, tx, newEmail); err == nil {
				return ErrDuplicateEmail
			} else if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
			}
		}

		account.Email = newEmail
		account.BusinessName = event.BusinessName
		account.OwnerName = event.OwnerName
		account.BusinessAddress = event.BusinessAddress
		account.Mobile = event.Mobile
		account.GSTNumber = event.GSTNumber

		if event.NewPassword != "" {
			hash, err := HashPassword(event.NewPassword)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			account.PasswordHash = hash
		}

		updated, err := h.repo.Accounts().UpdateTx(ctx, tx, account, repository.UpdateByID(account.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not update account")
		}

		result.Account = updated
		result.EmailChanged = emailChanged
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	activity := ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor:     ActorRef{ID: event.AccountID.String(), Type: "account"},
		AccountID: event.AccountID.String(),
		Metadata: map[string]any{
			"email_changed":    result.EmailChanged,
			"password_changed": event.NewPassword != "",
		},
		OccurredAt: time.Now(),
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, activity); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}

	return result, nil
}
