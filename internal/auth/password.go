package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the production cost factor; tests dial it
	// down for speed.
	DefaultBcryptCost = 12

	// MinPasswordLength is the floor the configurable minimum clamps to.
	MinPasswordLength = 8

	// MaxPasswordLength matches bcrypt's 72-byte input limit, beyond
	// which the algorithm would silently truncate.
	MaxPasswordLength = 72
)

// Character classes counted toward password strength.
const (
	classUpper = 1 << iota
	classLower
	classDigit
	classSymbol
)

// PasswordManager hashes member passwords and enforces the account
// password policy: a configurable minimum length and a mix of at least
// three character classes. Enrollment and password change both funnel
// through ValidatePasswordStrength.
type PasswordManager struct {
	cost      int
	minLength int
}

// NewPasswordManager creates a PasswordManager. Out-of-range bcrypt
// costs fall back to the default; minLength is clamped to the policy
// floor.
func NewPasswordManager(cost, minLength int) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if minLength < MinPasswordLength {
		minLength = MinPasswordLength
	}
	return &PasswordManager{cost: cost, minLength: minLength}
}

// HashPassword returns the bcrypt hash of password.
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("password exceeds %d characters", MaxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func (p *PasswordManager) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength checks password against the policy: length
// within bounds and at least three of the four character classes.
func (p *PasswordManager) ValidatePasswordStrength(password string) error {
	if len(password) < p.minLength {
		return fmt.Errorf("password must be at least %d characters", p.minLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}

	classes := 0
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes |= classUpper
		case unicode.IsLower(r):
			classes |= classLower
		case unicode.IsDigit(r):
			classes |= classDigit
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			classes |= classSymbol
		}
	}

	if bits.OnesCount(uint(classes)) < 3 {
		return fmt.Errorf("password must contain at least 3 of: uppercase, lowercase, numbers, special characters")
	}
	return nil
}

// HashRefreshToken returns the hex SHA-256 digest stored in place of a
// raw refresh token, so a leaked sessions table reveals nothing usable.
func HashRefreshToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
