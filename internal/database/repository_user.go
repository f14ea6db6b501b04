package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const userColumns = `id, email, mobile, password_hash, first_name, last_name,
		referral_code, sponsor_code, sponsor_id, account_balance,
		is_active_member, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Mobile, &user.PasswordHash,
		&user.FirstName, &user.LastName,
		&user.ReferralCode, &user.SponsorCode, &user.SponsorID, &user.AccountBalance,
		&user.IsActiveMember, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user. Uniqueness of email, mobile and referral
// code is enforced by the storage layer; callers inspect unique violations
// via IsUniqueViolation / UniqueConstraintName.
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			email, mobile, password_hash, first_name, last_name,
			referral_code, sponsor_code, sponsor_id, account_balance,
			is_active_member, is_admin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.Email,
		user.Mobile,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ReferralCode,
		user.SponsorCode,
		user.SponsorID,
		user.AccountBalance,
		user.IsActiveMember,
		user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByMobile retrieves a user by mobile number
func (r *Repository) GetUserByMobile(ctx context.Context, mobile string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE mobile = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, mobile))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by mobile: %w", err)
	}
	return user, nil
}

// GetUserByReferralCode retrieves a user by their shareable referral code
func (r *Repository) GetUserByReferralCode(ctx context.Context, code string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return user, nil
}

// ReferralCodeExists checks whether a referral code is already taken
func (r *Repository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}

// UpdateUserProfile updates a user's profile fields
func (r *Repository) UpdateUserProfile(ctx context.Context, userID, firstName, lastName string, mobile *string) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, mobile = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, userID, firstName, lastName, mobile)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash
func (r *Repository) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetActiveMember flips the active-member flag
func (r *Repository) SetActiveMember(ctx context.Context, userID string, active bool) error {
	query := `UPDATE users SET is_active_member = $2, updated_at = NOW() WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, userID, active)
	if err != nil {
		return fmt.Errorf("failed to set active member: %w", err)
	}
	return nil
}

// CreditBalance atomically adds amount to a user's balance
func (r *Repository) CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET account_balance = account_balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to credit balance: user %s not found", userID)
	}
	return nil
}

// GetBalance returns a user's current balance
func (r *Repository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.Pool.QueryRow(ctx,
		`SELECT account_balance FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ListUsers retrieves users ordered by creation date, newest first
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.Email, &u.Mobile, &u.PasswordHash,
			&u.FirstName, &u.LastName,
			&u.ReferralCode, &u.SponsorCode, &u.SponsorID, &u.AccountBalance,
			&u.IsActiveMember, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// CountUsers returns the total number of registered members
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// SetAdmin grants or revokes admin rights
func (r *Repository) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	query := `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}
