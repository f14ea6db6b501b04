package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ActivateReferralSettings deactivates every other settings row and
// inserts the new active one as a single transaction. The
// referral_settings_one_active partial index backstops concurrent
// activations: the loser's insert fails with a unique violation, which
// is returned unwrapped so the caller can retry.
func (r *Repository) ActivateReferralSettings(ctx context.Context, settings *ReferralSettings) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE referral_settings SET is_active = false WHERE is_active`,
	); err != nil {
		return fmt.Errorf("failed to deactivate settings: %w", err)
	}

	insert := `
		INSERT INTO referral_settings (direct_referral_amount, matching_income_percentage, is_active)
		VALUES ($1, $2, true)
		RETURNING id, updated_at
	`

	err = tx.QueryRow(ctx, insert,
		settings.DirectReferralAmount, settings.MatchingIncomePercentage,
	).Scan(&settings.ID, &settings.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert settings: %w", err)
	}
	settings.IsActive = true

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settings activation: %w", err)
	}

	return nil
}

// GetActiveReferralSettings returns the most recently activated settings
// row, or nil when none has ever been activated.
func (r *Repository) GetActiveReferralSettings(ctx context.Context) (*ReferralSettings, error) {
	query := `
		SELECT id, direct_referral_amount, matching_income_percentage, is_active, updated_at
		FROM referral_settings
		WHERE is_active
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`

	settings := &ReferralSettings{}
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&settings.ID, &settings.DirectReferralAmount, &settings.MatchingIncomePercentage,
		&settings.IsActive, &settings.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active settings: %w", err)
	}
	return settings, nil
}
