package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"
)

// Store is the persistence surface the auth service needs.
// *database.Repository satisfies it.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUserByID(ctx context.Context, id string) (*database.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	CreateSession(ctx context.Context, s *database.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*database.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// Service handles login, token refresh and password management.
// Registration lives in the referral engine, which owns sponsor
// resolution and commission payout.
type Service struct {
	store      Store
	jwtManager *JWTManager
	passwords  *PasswordManager
	logger     *logging.Logger
}

// NewService creates a new auth service
func NewService(store Store, jwtManager *JWTManager, passwords *PasswordManager) *Service {
	return &Service{
		store:      store,
		jwtManager: jwtManager,
		passwords:  passwords,
		logger:     logging.WithComponent("auth"),
	}
}

// Login authenticates a member and issues an access/refresh token pair.
// The refresh token is stored hashed; the plaintext only travels to the
// client.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		// Burn a hash comparison so missing and wrong-password logins
		// take comparable time.
		s.passwords.VerifyPassword(req.Password, "$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinv")
		return nil, ErrInvalidCredentials
	}

	if !s.passwords.VerifyPassword(req.Password, user.PasswordHash) {
		s.logger.Warn("Login failed: bad password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Member logged in", "user_id", user.ID, "email", user.Email)

	return &LoginResponse{
		User:         NewUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

// Refresh rotates a refresh token: the presented token's session is
// deleted and a new pair is issued. A token that matches no live
// session has expired or been revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	tokenHash := HashRefreshToken(refreshToken)

	session, err := s.store.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionRevoked
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// Rotate: the old session dies with this refresh.
	if err := s.store.DeleteSession(ctx, tokenHash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the session behind a refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.store.DeleteSession(ctx, HashRefreshToken(refreshToken))
}

// LogoutAll revokes every session for a member
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("All sessions revoked", "user_id", userID)
	return nil
}

// ChangePassword verifies the current password, stores a new hash and
// revokes every existing session so stolen refresh tokens die with the
// old password.
func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if !s.passwords.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.passwords.ValidatePasswordStrength(req.NewPassword); err != nil {
		return AuthError{Code: ErrWeakPassword.Code, Message: err.Error()}
	}

	newHash, err := s.passwords.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdateUserPassword(ctx, userID, newHash); err != nil {
		return err
	}

	if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("Failed to revoke sessions after password change", "user_id", userID)
	}

	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

// GetUser returns a member by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*database.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// issueTokens creates an access/refresh token pair and persists the
// refresh session.
func (s *Service) issueTokens(ctx context.Context, user *database.User) (*RefreshResponse, error) {
	claims := UserClaims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(claims)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &database.Session{
		UserID:           user.ID,
		RefreshTokenHash: HashRefreshToken(refreshToken),
		ExpiresAt:        time.Now().Add(s.jwtManager.RefreshTokenDuration()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessTokenDuration().Seconds()),
	}, nil
}
