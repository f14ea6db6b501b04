package auth

import (
	"strings"
	"testing"
	"time"
)

// TestJWTRoundTrip verifies a generated access token validates back to
// the same claims
func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-key-for-tests", 15*time.Minute, 7*24*time.Hour)

	claims := UserClaims{
		UserID:  "user-123",
		Email:   "member@example.com",
		IsAdmin: true,
	}

	token, err := manager.GenerateAccessToken(claims)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	parsed, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}

	if parsed.UserID != claims.UserID {
		t.Errorf("Expected user ID %s, got %s", claims.UserID, parsed.UserID)
	}
	if parsed.Email != claims.Email {
		t.Errorf("Expected email %s, got %s", claims.Email, parsed.Email)
	}
	if !parsed.IsAdmin {
		t.Error("Expected admin flag to survive the round trip")
	}
}

// TestJWTRejectsWrongSecret verifies tokens signed with another secret
// fail validation
func TestJWTRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret-one", 15*time.Minute, time.Hour)
	other := NewJWTManager("secret-two", 15*time.Minute, time.Hour)

	token, err := manager.GenerateAccessToken(UserClaims{UserID: "u1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("Expected validation to fail with wrong secret")
	}
}

// TestJWTRejectsExpiredToken verifies expired tokens are rejected
func TestJWTRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute, time.Hour)

	token, err := manager.GenerateAccessToken(UserClaims{UserID: "u1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("Expected validation to fail for expired token")
	}
}

// TestJWTRejectsGarbage verifies malformed tokens are rejected
func TestJWTRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute, time.Hour)

	for _, token := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := manager.ValidateAccessToken(token); err == nil {
			t.Errorf("Expected validation to fail for %q", token)
		}
	}
}

// TestGenerateRefreshTokenUniqueness verifies refresh tokens do not
// repeat
func TestGenerateRefreshTokenUniqueness(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := manager.GenerateRefreshToken()
		if err != nil {
			t.Fatalf("GenerateRefreshToken failed: %v", err)
		}
		if seen[token] {
			t.Fatal("Duplicate refresh token generated")
		}
		seen[token] = true
	}
}

// TestPasswordHashAndVerify verifies a password verifies against its
// own hash and nothing else
func TestPasswordHashAndVerify(t *testing.T) {
	pm := NewPasswordManager(4, 8) // low cost for test speed

	hash, err := pm.HashPassword("Str0ngPass!")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !pm.VerifyPassword("Str0ngPass!", hash) {
		t.Error("Expected password to verify against its hash")
	}
	if pm.VerifyPassword("WrongPass1!", hash) {
		t.Error("Expected wrong password to fail verification")
	}
}

// TestValidatePasswordStrength exercises the 3-of-4 character class
// rule and length bounds
func TestValidatePasswordStrength(t *testing.T) {
	pm := NewPasswordManager(4, 8)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"strong mixed", "Str0ngPass!", false},
		{"upper lower number", "Passw0rdX", false},
		{"lower number special", "passw0rd!", false},
		{"too short", "Ab1!", true},
		{"only lowercase", "alllowercase", true},
		{"only two classes", "lowercase1234", true},
		{"beyond bcrypt input limit", strings.Repeat("Aa1!", 20), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pm.ValidatePasswordStrength(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePasswordStrength(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

// TestHashPasswordRejectsOverlongInput verifies inputs past bcrypt's
// 72-byte limit are refused instead of silently truncated
func TestHashPasswordRejectsOverlongInput(t *testing.T) {
	pm := NewPasswordManager(4, 8)

	if _, err := pm.HashPassword(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("Expected an error for an overlong password")
	}
	if _, err := pm.HashPassword(strings.Repeat("x", MaxPasswordLength)); err != nil {
		t.Errorf("Password at the limit should hash: %v", err)
	}
}

// TestHashRefreshTokenDeterministic verifies the stored hash is stable
// and does not reveal the token
func TestHashRefreshTokenDeterministic(t *testing.T) {
	token := "some-refresh-token"

	h1 := HashRefreshToken(token)
	h2 := HashRefreshToken(token)

	if h1 != h2 {
		t.Error("Expected identical hashes for the same token")
	}
	if h1 == token {
		t.Error("Hash must not equal the token")
	}
	if len(h1) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(h1))
	}
}
