package mudradesk

import (
	"errors"
	"strings"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

const passwordMinLength = 8

// passwordSymbols is the accepted special character set; any whitespace
// also satisfies the symbol rule.
const passwordSymbols = "!@#$%^&*(),.?\":{}|<>_-+=[]\\/~`';"

// ValidatePasswordStrength runs every strength rule and reports all
// violations together so the user can fix them in one pass. An empty
// slice means the password is acceptable.
func ValidatePasswordStrength(password string) []string {
	var problems []string

	if len(password) < passwordMinLength {
		problems = append(problems, "Password must be at least 8 characters long")
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r) || unicode.IsSpace(r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !hasDigit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !hasSymbol {
		problems = append(problems, "Password must contain at least one special character")
	}

	return problems
}

// PasswordStrengthError folds rule violations into a single rich
// validation error, keeping the individual messages in metadata.
func PasswordStrengthError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return goerrors.New("password does not meet the strength policy", goerrors.CategoryValidation).
		WithTextCode("WEAK_PASSWORD").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"password": problems,
		})
}

// PasswordProblems extracts the per-rule messages from an error produced
// by PasswordStrengthError. Returns nil for any other error.
func PasswordProblems(err error) []string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	raw, ok := richErr.Metadata["password"]
	if !ok {
		return nil
	}
	switch msgs := raw.(type) {
	case []string:
		return msgs
	case []any:
		out := make([]string, 0, len(msgs))
		for _, m := range msgs {
			if s, ok := m.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
