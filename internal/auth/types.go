package auth

import (
	"time"

	"mlm-referral-app/internal/database"
)

// UserClaims represents the JWT claims for a member
type UserClaims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// LoginRequest represents a member login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// UserResponse represents member data returned to the client
type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Mobile         *string   `json:"mobile,omitempty"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ReferralCode   string    `json:"referral_code"`
	SponsorCode    *string   `json:"sponsor_code,omitempty"`
	AccountBalance string    `json:"account_balance"`
	IsActiveMember bool      `json:"is_active_member"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUserResponse converts a database user to the client representation
func NewUserResponse(u *database.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Mobile:         u.Mobile,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ReferralCode:   u.ReferralCode,
		SponsorCode:    u.SponsorCode,
		AccountBalance: u.AccountBalance.StringFixed(2),
		IsActiveMember: u.IsActiveMember,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      u.CreatedAt,
	}
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse represents a token refresh response
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// Config holds authentication configuration
type Config struct {
	JWTSecret            string        `json:"jwt_secret"`
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	RefreshTokenDuration time.Duration `json:"refresh_token_duration"`
	MinPasswordLength    int           `json:"min_password_length"`
}

// AuthError is a typed authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidCredentials = AuthError{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrUserNotFound       = AuthError{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrInvalidToken       = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired       = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrSessionRevoked     = AuthError{Code: "SESSION_REVOKED", Message: "session has been revoked"}
	ErrUnauthorized       = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
	ErrForbidden          = AuthError{Code: "FORBIDDEN", Message: "access forbidden"}
	ErrWeakPassword       = AuthError{Code: "WEAK_PASSWORD", Message: "password does not meet requirements"}
)
