package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EnrollUser creates a new user and, when sponsorID is non-nil, the
// referral edge plus the sponsor's commission credit, all in a single
// transaction. Either the account, the edge and the credit are all
// visible afterwards, or none of them are.
//
// Unique violations (duplicate email/mobile, referral-code collision,
// duplicate referred-user edge) are returned unwrapped so callers can
// dispatch on the constraint name.
func (r *Repository) EnrollUser(ctx context.Context, user *User, commission decimal.Decimal) (*Referral, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertUser := `
		INSERT INTO users (
			email, mobile, password_hash, first_name, last_name,
			referral_code, sponsor_code, sponsor_id, account_balance,
			is_active_member, is_admin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, false)
		RETURNING id, account_balance, created_at, updated_at
	`

	err = tx.QueryRow(ctx, insertUser,
		user.Email,
		user.Mobile,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.ReferralCode,
		user.SponsorCode,
		user.SponsorID,
		user.IsActiveMember,
	).Scan(&user.ID, &user.AccountBalance, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// No resolved sponsor: account only, no edge, no payout.
	if user.SponsorID == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit enrollment: %w", err)
		}
		return nil, nil
	}

	referral := &Referral{
		SponsorID:        *user.SponsorID,
		ReferredUserID:   user.ID,
		CommissionEarned: commission,
	}

	insertEdge := `
		INSERT INTO referrals (sponsor_id, referred_user_id, commission_earned)
		VALUES ($1, $2, $3)
		RETURNING id, referral_date
	`

	err = tx.QueryRow(ctx, insertEdge,
		referral.SponsorID, referral.ReferredUserID, referral.CommissionEarned,
	).Scan(&referral.ID, &referral.ReferralDate)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create referral edge: %w", err)
	}

	creditSponsor := `
		UPDATE users
		SET account_balance = account_balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, creditSponsor, referral.SponsorID, commission)
	if err != nil {
		return nil, fmt.Errorf("failed to credit sponsor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("failed to credit sponsor: user %s not found", referral.SponsorID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit enrollment: %w", err)
	}

	return referral, nil
}

// GetReferralByReferredUser retrieves the edge pointing at a referred member
func (r *Repository) GetReferralByReferredUser(ctx context.Context, referredUserID string) (*Referral, error) {
	query := `
		SELECT id, sponsor_id, referred_user_id, commission_earned, referral_date
		FROM referrals WHERE referred_user_id = $1
	`

	ref := &Referral{}
	err := r.db.Pool.QueryRow(ctx, query, referredUserID).Scan(
		&ref.ID, &ref.SponsorID, &ref.ReferredUserID, &ref.CommissionEarned, &ref.ReferralDate,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	return ref, nil
}

// GetReferralsBySponsor retrieves a sponsor's downline edges, newest first
func (r *Repository) GetReferralsBySponsor(ctx context.Context, sponsorID string) ([]Referral, error) {
	query := `
		SELECT id, sponsor_id, referred_user_id, commission_earned, referral_date
		FROM referrals
		WHERE sponsor_id = $1
		ORDER BY referral_date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, sponsorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	defer rows.Close()

	var referrals []Referral
	for rows.Next() {
		var ref Referral
		err := rows.Scan(&ref.ID, &ref.SponsorID, &ref.ReferredUserID, &ref.CommissionEarned, &ref.ReferralDate)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}

	return referrals, rows.Err()
}

// CountReferralsBySponsor returns the size of a sponsor's direct downline
func (r *Repository) CountReferralsBySponsor(ctx context.Context, sponsorID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE sponsor_id = $1`, sponsorID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}

// TotalCommissionBySponsor sums all commission ever credited to a sponsor
func (r *Repository) TotalCommissionBySponsor(ctx context.Context, sponsorID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(commission_earned), 0) FROM referrals WHERE sponsor_id = $1`, sponsorID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum commissions: %w", err)
	}
	return total, nil
}
