package wallet

import (
	"context"
	"errors"
	"strconv"

	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"

	"github.com/shopspring/decimal"
)

// DefaultChargeRate is the admin charge deducted from every withdrawal
// at request time: 10%.
var DefaultChargeRate = decimal.New(10, -2)

// Store is the persistence surface the ledger needs. *database.Repository
// satisfies it.
type Store interface {
	CreateWithdrawal(ctx context.Context, w *database.Withdrawal) (bool, error)
	GetWithdrawalByID(ctx context.Context, id int64) (*database.Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id int64, fromStatuses []string, toStatus string, notes *string, stampProcessed bool) (*database.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id int64, notes *string) (*database.Withdrawal, error)
	GetWithdrawalsByUser(ctx context.Context, userID string) ([]database.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]database.Withdrawal, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Service is the withdrawal ledger: it validates requests, debits
// balances at request time, and applies admin-driven status transitions.
type Service struct {
	store      Store
	chargeRate decimal.Decimal
}

// NewService creates a new withdrawal ledger service
func NewService(store Store, chargeRate decimal.Decimal) *Service {
	if chargeRate.IsZero() {
		chargeRate = DefaultChargeRate
	}
	return &Service{store: store, chargeRate: chargeRate}
}

// Request creates a withdrawal request for rawAmount. The amount is
// debited from the balance immediately, not on approval. The admin
// charge and net amount are computed once here and never recomputed:
// charge = round(amount * rate, 2), net = amount - charge, so
// net + charge == amount exactly.
func (s *Service) Request(ctx context.Context, userID, rawAmount string) (*database.Withdrawal, error) {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return nil, err
	}

	charge := amount.Mul(s.chargeRate).Round(2)
	net := amount.Sub(charge)

	w := &database.Withdrawal{
		UserID:      userID,
		Amount:      amount,
		AdminCharge: charge,
		NetAmount:   net,
		Status:      database.WithdrawalStatusPending,
	}

	debited, err := s.store.CreateWithdrawal(ctx, w)
	if err != nil {
		return nil, err
	}
	if !debited {
		// Nothing was debited either because the balance is short or
		// because the user id matches no account at all.
		balance, berr := s.store.GetBalance(ctx, userID)
		if errors.Is(berr, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		if berr != nil {
			return nil, berr
		}
		return nil, &InsufficientBalanceError{Balance: balance.StringFixed(2)}
	}

	logging.WithdrawalContext(strconv.FormatInt(w.ID, 10), userID, amount.StringFixed(2)).
		Info("Withdrawal requested",
			"admin_charge", charge.StringFixed(2),
			"net_amount", net.StringFixed(2))

	return w, nil
}

// ApplyAction applies an admin action to a withdrawal request.
// Valid transitions: pending -> approved, pending -> rejected,
// pending -> completed and approved -> completed. Acting on a request
// already past those states returns ErrAlreadyProcessed; an unknown
// action persists nothing, notes included.
func (s *Service) ApplyAction(ctx context.Context, id int64, action string, notes *string) (*database.Withdrawal, error) {
	var (
		w   *database.Withdrawal
		err error
	)

	switch action {
	case ActionApprove:
		w, err = s.store.TransitionWithdrawal(ctx, id,
			[]string{database.WithdrawalStatusPending},
			database.WithdrawalStatusApproved, notes, false)
	case ActionReject:
		// Rejection refunds the full requested amount, not the net.
		w, err = s.store.RejectWithdrawal(ctx, id, notes)
	case ActionComplete:
		w, err = s.store.TransitionWithdrawal(ctx, id,
			[]string{database.WithdrawalStatusPending, database.WithdrawalStatusApproved},
			database.WithdrawalStatusCompleted, notes, true)
	default:
		return nil, ErrUnknownAction
	}

	if err != nil {
		return nil, err
	}

	if w == nil {
		// Either the id does not exist or the request is not in an
		// allowed source status; distinguish for the caller.
		existing, gerr := s.store.GetWithdrawalByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyProcessed
	}

	logging.WithdrawalContext(strconv.FormatInt(w.ID, 10), w.UserID, w.Amount.StringFixed(2)).
		Info("Withdrawal action applied", "action", action, "status", w.Status)

	return w, nil
}

// Get retrieves a single withdrawal request
func (s *Service) Get(ctx context.Context, id int64) (*database.Withdrawal, error) {
	w, err := s.store.GetWithdrawalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNotFound
	}
	return w, nil
}

// History returns a member's withdrawal requests, newest first
func (s *Service) History(ctx context.Context, userID string) ([]database.Withdrawal, error) {
	return s.store.GetWithdrawalsByUser(ctx, userID)
}

// List returns withdrawal requests for admin review, optionally
// filtered by status
func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]database.Withdrawal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListWithdrawals(ctx, status, limit, offset)
}

// parseAmount parses and validates a requested withdrawal amount.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	// Amounts are money; anything finer than two decimal places is a
	// caller bug, not something to silently round away.
	if amount.Exponent() < -2 {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}
