package wallet

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mlm-referral-app/internal/database"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store for ledger tests
type fakeStore struct {
	withdrawals map[int64]*database.Withdrawal
	balances    map[string]decimal.Decimal
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		withdrawals: make(map[int64]*database.Withdrawal),
		balances:    make(map[string]decimal.Decimal),
	}
}

func (f *fakeStore) CreateWithdrawal(ctx context.Context, w *database.Withdrawal) (bool, error) {
	balance := f.balances[w.UserID]
	if balance.LessThan(w.Amount) {
		return false, nil
	}
	f.balances[w.UserID] = balance.Sub(w.Amount)

	f.nextID++
	w.ID = f.nextID
	w.RequestedDate = time.Now()
	stored := *w
	f.withdrawals[w.ID] = &stored
	return true, nil
}

func (f *fakeStore) GetWithdrawalByID(ctx context.Context, id int64) (*database.Withdrawal, error) {
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (f *fakeStore) TransitionWithdrawal(ctx context.Context, id int64, fromStatuses []string, toStatus string, notes *string, stampProcessed bool) (*database.Withdrawal, error) {
	w, ok := f.withdrawals[id]
	if !ok {
		return nil, nil
	}

	allowed := false
	for _, s := range fromStatuses {
		if w.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil
	}

	w.Status = toStatus
	w.Notes = notes
	if stampProcessed {
		now := time.Now()
		w.ProcessedDate = &now
	}
	copied := *w
	return &copied, nil
}

func (f *fakeStore) RejectWithdrawal(ctx context.Context, id int64, notes *string) (*database.Withdrawal, error) {
	w, err := f.TransitionWithdrawal(ctx, id,
		[]string{database.WithdrawalStatusPending},
		database.WithdrawalStatusRejected, notes, true)
	if err != nil || w == nil {
		return w, err
	}
	// Refund the full requested amount
	f.balances[w.UserID] = f.balances[w.UserID].Add(w.Amount)
	return w, nil
}

func (f *fakeStore) GetWithdrawalsByUser(ctx context.Context, userID string) ([]database.Withdrawal, error) {
	var out []database.Withdrawal
	for _, w := range f.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeStore) ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]database.Withdrawal, error) {
	var out []database.Withdrawal
	for _, w := range f.withdrawals {
		if status == "" || w.Status == status {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	balance, ok := f.balances[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("user %s: %w", userID, database.ErrUserNotFound)
	}
	return balance, nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, DefaultChargeRate)
}

// TestRequestDebitsImmediately verifies the full amount leaves the
// balance at request time, before any admin action
func TestRequestDebitsImmediately(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, err := svc.Request(context.Background(), "u1", "600.00")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if w.Status != database.WithdrawalStatusPending {
		t.Errorf("Expected pending status, got %s", w.Status)
	}
	if !store.balances["u1"].Equal(decimal.NewFromInt(400)) {
		t.Errorf("Expected balance 400 after debit, got %s", store.balances["u1"])
	}
}

// TestRequestChargeComputation verifies charge = 10% of amount and
// net + charge == amount exactly
func TestRequestChargeComputation(t *testing.T) {
	tests := []struct {
		amount     string
		wantCharge string
		wantNet    string
	}{
		{"1000", "100.00", "900.00"},
		{"100.00", "10.00", "90.00"},
		{"0.01", "0.00", "0.01"},
		{"33.33", "3.33", "30.00"},
		{"99.99", "10.00", "89.99"},
		{"0.05", "0.01", "0.04"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			store := newFakeStore()
			store.balances["u1"] = decimal.NewFromInt(100000)
			svc := newTestService(store)

			w, err := svc.Request(context.Background(), "u1", tt.amount)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}

			if w.AdminCharge.StringFixed(2) != tt.wantCharge {
				t.Errorf("Expected charge %s, got %s", tt.wantCharge, w.AdminCharge.StringFixed(2))
			}
			if w.NetAmount.StringFixed(2) != tt.wantNet {
				t.Errorf("Expected net %s, got %s", tt.wantNet, w.NetAmount.StringFixed(2))
			}
			if !w.NetAmount.Add(w.AdminCharge).Equal(w.Amount) {
				t.Errorf("net %s + charge %s != amount %s", w.NetAmount, w.AdminCharge, w.Amount)
			}
		})
	}
}

// TestRequestInvalidAmounts verifies malformed and non-positive amounts
// are rejected before any debit
func TestRequestInvalidAmounts(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	for _, amount := range []string{"", "abc", "0", "-5", "1.234"} {
		t.Run(amount, func(t *testing.T) {
			_, err := svc.Request(context.Background(), "u1", amount)
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("Expected ErrInvalidAmount for %q, got %v", amount, err)
			}
		})
	}

	if !store.balances["u1"].Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Balance changed by rejected requests: %s", store.balances["u1"])
	}
}

// TestRequestInsufficientBalance verifies the typed error carries the
// balance at the time of the attempt
func TestRequestInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromFloat(49.50)
	svc := newTestService(store)

	_, err := svc.Request(context.Background(), "u1", "50.00")

	var insufficientErr *InsufficientBalanceError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Expected InsufficientBalanceError, got %v", err)
	}
	if insufficientErr.Balance != "49.50" {
		t.Errorf("Expected reported balance 49.50, got %s", insufficientErr.Balance)
	}
	if !store.balances["u1"].Equal(decimal.NewFromFloat(49.50)) {
		t.Errorf("Balance changed by failed request: %s", store.balances["u1"])
	}
}

// TestRequestForUnknownUser verifies a withdrawal against a user id
// with no account surfaces the typed not-found error, not a raw
// storage error
func TestRequestForUnknownUser(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Request(context.Background(), "ghost", "10.00")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	var insufficientErr *InsufficientBalanceError
	if errors.As(err, &insufficientErr) {
		t.Error("Missing account must not read as an insufficient balance")
	}
}

// TestApproveTransition verifies pending -> approved
func TestApproveTransition(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, _ := svc.Request(context.Background(), "u1", "100")

	updated, err := svc.ApplyAction(context.Background(), w.ID, ActionApprove, nil)
	if err != nil {
		t.Fatalf("ApplyAction(approve) failed: %v", err)
	}
	if updated.Status != database.WithdrawalStatusApproved {
		t.Errorf("Expected approved, got %s", updated.Status)
	}
	if updated.ProcessedDate != nil {
		t.Error("Approval should not stamp processed date")
	}
}

// TestRejectRefundsFullAmount verifies rejection refunds the requested
// amount, not the net
func TestRejectRefundsFullAmount(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, _ := svc.Request(context.Background(), "u1", "300")
	if !store.balances["u1"].Equal(decimal.NewFromInt(700)) {
		t.Fatalf("Expected balance 700 after debit, got %s", store.balances["u1"])
	}

	notes := "bank details invalid"
	updated, err := svc.ApplyAction(context.Background(), w.ID, ActionReject, &notes)
	if err != nil {
		t.Fatalf("ApplyAction(reject) failed: %v", err)
	}
	if updated.Status != database.WithdrawalStatusRejected {
		t.Errorf("Expected rejected, got %s", updated.Status)
	}
	if updated.Notes == nil || *updated.Notes != notes {
		t.Error("Expected notes to be recorded")
	}
	if !store.balances["u1"].Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected full refund to 1000, got %s", store.balances["u1"])
	}
}

// TestCompleteFromPendingAndApproved verifies both allowed paths to
// completed stamp the processed date
func TestCompleteFromPendingAndApproved(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	// pending -> completed directly
	w1, _ := svc.Request(context.Background(), "u1", "100")
	done, err := svc.ApplyAction(context.Background(), w1.ID, ActionComplete, nil)
	if err != nil {
		t.Fatalf("Complete from pending failed: %v", err)
	}
	if done.Status != database.WithdrawalStatusCompleted || done.ProcessedDate == nil {
		t.Errorf("Expected completed with processed date, got %s / %v", done.Status, done.ProcessedDate)
	}

	// pending -> approved -> completed
	w2, _ := svc.Request(context.Background(), "u1", "100")
	if _, err := svc.ApplyAction(context.Background(), w2.ID, ActionApprove, nil); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	done, err = svc.ApplyAction(context.Background(), w2.ID, ActionComplete, nil)
	if err != nil {
		t.Fatalf("Complete from approved failed: %v", err)
	}
	if done.Status != database.WithdrawalStatusCompleted {
		t.Errorf("Expected completed, got %s", done.Status)
	}
}

// TestActionsOnTerminalRequests verifies acting on rejected or
// completed requests fails without side effects
func TestActionsOnTerminalRequests(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, _ := svc.Request(context.Background(), "u1", "200")
	if _, err := svc.ApplyAction(context.Background(), w.ID, ActionReject, nil); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	balanceAfterReject := store.balances["u1"]

	for _, action := range []string{ActionApprove, ActionReject, ActionComplete} {
		_, err := svc.ApplyAction(context.Background(), w.ID, action, nil)
		if !errors.Is(err, ErrAlreadyProcessed) {
			t.Errorf("Expected ErrAlreadyProcessed for %s on rejected request, got %v", action, err)
		}
	}

	if !store.balances["u1"].Equal(balanceAfterReject) {
		t.Errorf("Balance changed by actions on terminal request: %s", store.balances["u1"])
	}
}

// TestApproveThenReject verifies an approved request cannot be rejected
func TestApproveThenReject(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, _ := svc.Request(context.Background(), "u1", "200")
	if _, err := svc.ApplyAction(context.Background(), w.ID, ActionApprove, nil); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err := svc.ApplyAction(context.Background(), w.ID, ActionReject, nil)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("Expected ErrAlreadyProcessed rejecting an approved request, got %v", err)
	}
	if !store.balances["u1"].Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected balance unchanged at 800, got %s", store.balances["u1"])
	}
}

// TestUnknownActionPersistsNothing verifies a bogus action leaves the
// request untouched, notes included
func TestUnknownActionPersistsNothing(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(1000)
	svc := newTestService(store)

	w, _ := svc.Request(context.Background(), "u1", "100")

	notes := "should not be saved"
	_, err := svc.ApplyAction(context.Background(), w.ID, "escalate", &notes)
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Expected ErrUnknownAction, got %v", err)
	}

	stored, _ := svc.Get(context.Background(), w.ID)
	if stored.Status != database.WithdrawalStatusPending {
		t.Errorf("Expected status unchanged, got %s", stored.Status)
	}
	if stored.Notes != nil {
		t.Errorf("Expected no notes persisted, got %q", *stored.Notes)
	}
}

// TestActionOnMissingRequest verifies missing ids surface ErrNotFound
func TestActionOnMissingRequest(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.ApplyAction(context.Background(), 9999, ActionApprove, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_, err = svc.Get(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got %v", err)
	}
}

// TestSequentialRequestsDrainBalance verifies repeated withdrawals stop
// exactly when the balance runs out
func TestSequentialRequestsDrainBalance(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = decimal.NewFromInt(250)
	svc := newTestService(store)

	if _, err := svc.Request(context.Background(), "u1", "100"); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	if _, err := svc.Request(context.Background(), "u1", "100"); err != nil {
		t.Fatalf("Second request failed: %v", err)
	}

	_, err := svc.Request(context.Background(), "u1", "100")
	var insufficientErr *InsufficientBalanceError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("Expected InsufficientBalanceError on third request, got %v", err)
	}
	if insufficientErr.Balance != "50.00" {
		t.Errorf("Expected remaining balance 50.00, got %s", insufficientErr.Balance)
	}
}
