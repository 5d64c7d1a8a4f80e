package mudradesk

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// ErrNoEmptyString passwords must have content before hashing
var ErrNoEmptyString = errors.New("password must not be empty")

// ErrInvalidCredentials is the deliberately generic login failure: unknown
// email and bad password are indistinguishable to the caller.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when bcrypt comparison fails.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountPending marks a successful credential check against an
// account no admin has approved yet.
var ErrAccountPending = goerrors.New("account is pending admin approval", goerrors.CategoryAuthz).
	WithTextCode("PENDING_APPROVAL").
	WithCode(goerrors.CodeForbidden)

// ErrAccountDeactivated is returned for accounts an admin toggled off.
var ErrAccountDeactivated = goerrors.New("account has been deactivated", goerrors.CategoryAuthz).
	WithTextCode("ACCOUNT_DEACTIVATED").
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateEmail rejects registration against an existing email.
var ErrDuplicateEmail = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_EMAIL").
	WithCode(goerrors.CodeConflict)

// ErrVerificationFailed is returned when the external tax-number check rejects a GSTIN.
var ErrVerificationFailed = goerrors.New("GST number verification failed", goerrors.CategoryValidation).
	WithTextCode("GST_VERIFICATION_FAILED").
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordConfirmation rejects a password change whose confirmation
// does not match.
var ErrPasswordConfirmation = goerrors.New("new passwords do not match", goerrors.CategoryValidation).
	WithTextCode("PASSWORD_CONFIRMATION_MISMATCH").
	WithCode(goerrors.CodeBadRequest)

// ErrForbiddenTarget rejects destructive operations aimed at admin accounts.
var ErrForbiddenTarget = goerrors.New("cannot delete admin account", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN_TARGET").
	WithCode(goerrors.CodeForbidden)

// ErrStoreUnavailable wraps infrastructure failures talking to the account store.
var ErrStoreUnavailable = goerrors.New("account store unavailable", goerrors.CategoryInternal).
	WithTextCode("STORE_UNAVAILABLE").
	WithCode(goerrors.CodeInternal)

// ErrAccountNotFound is the rich variant for missing accounts.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode("ACCOUNT_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired marks session tokens past their expiry.
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed marks tokens we could not parse or verify.
var ErrTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)
