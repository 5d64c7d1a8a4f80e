package mudradesk

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	BusinessName    string `json:"business_name"`
	OwnerName       string `json:"owner_name"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	BusinessAddress string `json:"business_address"`
	GSTNumber       string `json:"gst_number"`
	Password        string `json:"password"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate runs the structural rules; password strength has its own
// collecting validator so all unmet rules surface together. Every
// field except the GST number is required.
func (e RegisterAccountMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.BusinessName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.OwnerName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&e.Mobile, validation.Required, validation.By(ValidateIndianMobile)),
			validation.Field(&e.BusinessAddress, validation.Required),
			validation.Field(&e.Password, validation.Required),
		)
	}, "Invalid registration payload")
}

// ValidateIndianMobile accepts empty values and otherwise requires a
// number that parses as a valid Indian mobile.
func ValidateIndianMobile(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "IN")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid mobile number")
	}
	return nil
}

type RegisterAccountHandler struct {
	repo         RepositoryManager
	verifier     GSTVerifier
	logger       Logger
	activitySink ActivitySink
}

func NewRegisterAccountHandler(repo RepositoryManager, verifier GSTVerifier) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:         repo,
		verifier:     verifier,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithActivitySink configures the audit sink new registrations report to.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	if problems := ValidatePasswordStrength(event.Password); len(problems) > 0 {
		return nil, PasswordStrengthError(problems)
	}

	gstVerified := false
	if event.GSTNumber != "" && h.verifier != nil {
		result, err := h.verifier.Verify(ctx, event.GSTNumber)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "GST verification unavailable")
		}
		if !result.Valid {
			return nil, ErrVerificationFailed.WithMetadata(map[string]any{
				"gst_number": event.GSTNumber,
				"reason":     result.Error,
			})
		}
		gstVerified = true
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		// Check-then-insert; the unique index on LOWER(email) is the
		// real arbiter when two registrations race.
		if _, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrDuplicateEmail
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
		}

		account.Email = event.Email
		account.PasswordHash = hash
		account.BusinessName = event.BusinessName
		account.OwnerName = event.OwnerName
		account.BusinessAddress = event.BusinessAddress
		account.Mobile = event.Mobile
		account.GSTNumber = event.GSTNumber
		account.GSTVerified = gstVerified
		account.Admin = false
		account.Approved = false
		account.Active = true

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	activityEvent := ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor:     ActorRef{ID: account.ID.String(), Type: "account"},
		AccountID: account.ID.String(),
		ToStatus:  AccountStatusPending,
		Metadata: map[string]any{
			"email":        account.Email,
			"gst_verified": account.GSTVerified,
		},
		OccurredAt: time.Now(),
	}
	if err := normalizeActivitySink(h.activitySink).Record(ctx, activityEvent); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}

	return account, nil
}
