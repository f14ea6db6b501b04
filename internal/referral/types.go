package referral

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds referral program configuration
type Config struct {
	// CodePrefix is the fixed prefix of generated referral codes, e.g. "MLM".
	CodePrefix string

	// DefaultDirectAmount is paid to a sponsor when no settings row has
	// been activated yet.
	DefaultDirectAmount decimal.Decimal

	// DefaultMatchingPct is the fallback matching-income percentage.
	DefaultMatchingPct decimal.Decimal
}

// DefaultConfig returns the referral program defaults matching the
// original product configuration.
func DefaultConfig() Config {
	return Config{
		CodePrefix:          "MLM",
		DefaultDirectAmount: decimal.NewFromInt(200),
		DefaultMatchingPct:  decimal.New(600, -2), // 6.00
	}
}

// EnrollRequest carries the input for enrolling a new member
type EnrollRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Mobile      *string `json:"mobile,omitempty"`
	Password    string  `json:"password" binding:"required,min=8"`
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name"`
	SponsorCode string  `json:"sponsor_code"` // claimed sponsor referral code, may be empty or unresolvable
}

// PasswordHasher abstracts credential hashing so the engine does not
// depend on the auth package.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ValidatePasswordStrength(password string) error
}

// ValidationError reports recoverable input problems as a list of
// human-readable messages.
type ValidationError struct {
	Messages []string `json:"messages"`
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Error codes surfaced by the referral engine
type ReferralError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ReferralError) Error() string {
	return e.Message
}

var (
	ErrEmailExists  = ReferralError{Code: "EMAIL_EXISTS", Message: "email already registered"}
	ErrMobileExists = ReferralError{Code: "MOBILE_EXISTS", Message: "mobile number already registered"}
)
