package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateWithdrawal debits the user's balance and inserts the pending
// request in one transaction. The debit is conditional on sufficient
// balance; it returns (nil, false, nil) when the balance is too low,
// leaving the account untouched. The conditional UPDATE takes the row
// lock, so concurrent debits against the same account serialize and the
// loser observes the reduced balance.
func (r *Repository) CreateWithdrawal(ctx context.Context, w *Withdrawal) (bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	debit := `
		UPDATE users
		SET account_balance = account_balance - $2, updated_at = NOW()
		WHERE id = $1 AND account_balance >= $2
	`

	tag, err := tx.Exec(ctx, debit, w.UserID, w.Amount)
	if err != nil {
		return false, fmt.Errorf("failed to debit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Insufficient balance (or unknown user); nothing was changed.
		return false, nil
	}

	insert := `
		INSERT INTO withdrawals (user_id, amount, admin_charge, net_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, requested_date
	`

	err = tx.QueryRow(ctx, insert,
		w.UserID, w.Amount, w.AdminCharge, w.NetAmount, w.Status, w.Notes,
	).Scan(&w.ID, &w.RequestedDate)
	if err != nil {
		return false, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	return true, nil
}

// GetWithdrawalByID retrieves a withdrawal request by ID
func (r *Repository) GetWithdrawalByID(ctx context.Context, id int64) (*Withdrawal, error) {
	query := `
		SELECT id, user_id, amount, admin_charge, net_amount, status,
			requested_date, processed_date, notes
		FROM withdrawals WHERE id = $1
	`

	w := &Withdrawal{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.AdminCharge, &w.NetAmount, &w.Status,
		&w.RequestedDate, &w.ProcessedDate, &w.Notes,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	return w, nil
}

// TransitionWithdrawal moves a withdrawal from one of fromStatuses to
// toStatus, optionally stamping processed_date and attaching notes. It
// returns the updated row, or nil when the request is not currently in
// an allowed source status (the guard and the update are a single
// statement, so concurrent admin actions cannot double-apply).
func (r *Repository) TransitionWithdrawal(ctx context.Context, id int64, fromStatuses []string, toStatus string, notes *string, stampProcessed bool) (*Withdrawal, error) {
	query := `
		UPDATE withdrawals
		SET status = $2,
			notes = COALESCE($3, notes),
			processed_date = CASE WHEN $4 THEN NOW() ELSE processed_date END
		WHERE id = $1 AND status = ANY($5)
		RETURNING id, user_id, amount, admin_charge, net_amount, status,
			requested_date, processed_date, notes
	`

	w := &Withdrawal{}
	err := r.db.Pool.QueryRow(ctx, query, id, toStatus, notes, stampProcessed, fromStatuses).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.AdminCharge, &w.NetAmount, &w.Status,
		&w.RequestedDate, &w.ProcessedDate, &w.Notes,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition withdrawal: %w", err)
	}
	return w, nil
}

// RejectWithdrawal transitions a pending withdrawal to rejected and
// refunds the full requested amount (not the net amount) in one
// transaction. Returns nil when the request was not pending.
func (r *Repository) RejectWithdrawal(ctx context.Context, id int64, notes *string) (*Withdrawal, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE withdrawals
		SET status = $2, notes = COALESCE($3, notes), processed_date = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, amount, admin_charge, net_amount, status,
			requested_date, processed_date, notes
	`

	w := &Withdrawal{}
	err = tx.QueryRow(ctx, update, id, WithdrawalStatusRejected, notes, WithdrawalStatusPending).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.AdminCharge, &w.NetAmount, &w.Status,
		&w.RequestedDate, &w.ProcessedDate, &w.Notes,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject withdrawal: %w", err)
	}

	refund := `
		UPDATE users
		SET account_balance = account_balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, refund, w.UserID, w.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to refund balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("failed to refund balance: user %s not found", w.UserID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rejection: %w", err)
	}

	return w, nil
}

// GetWithdrawalsByUser retrieves a member's withdrawal requests, newest first
func (r *Repository) GetWithdrawalsByUser(ctx context.Context, userID string) ([]Withdrawal, error) {
	query := `
		SELECT id, user_id, amount, admin_charge, net_amount, status,
			requested_date, processed_date, notes
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY requested_date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawals: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// ListWithdrawals retrieves withdrawal requests, optionally filtered by status
func (r *Repository) ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]Withdrawal, error) {
	query := `
		SELECT id, user_id, amount, admin_charge, net_amount, status,
			requested_date, processed_date, notes
		FROM withdrawals
		WHERE ($1 = '' OR status = $1)
		ORDER BY requested_date DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	return collectWithdrawals(rows)
}

// CountWithdrawalsByStatus counts withdrawal requests in the given
// status; an empty status counts everything
func (r *Repository) CountWithdrawalsByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawals WHERE ($1 = '' OR status = $1)`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}

func collectWithdrawals(rows pgx.Rows) ([]Withdrawal, error) {
	var withdrawals []Withdrawal
	for rows.Next() {
		var w Withdrawal
		err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.AdminCharge, &w.NetAmount, &w.Status,
			&w.RequestedDate, &w.ProcessedDate, &w.Notes,
		)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
