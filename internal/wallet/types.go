package wallet

// WalletError is a typed, recoverable wallet error
type WalletError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e WalletError) Error() string {
	return e.Message
}

// Common wallet errors
var (
	ErrInvalidAmount    = WalletError{Code: "INVALID_AMOUNT", Message: "amount must be a positive number"}
	ErrNotFound         = WalletError{Code: "NOT_FOUND", Message: "withdrawal request not found"}
	ErrUserNotFound     = WalletError{Code: "NOT_FOUND", Message: "user account not found"}
	ErrUnknownAction    = WalletError{Code: "UNKNOWN_ACTION", Message: "unknown withdrawal action"}
	ErrAlreadyProcessed = WalletError{Code: "ALREADY_PROCESSED", Message: "withdrawal request has already been processed"}
)

// InsufficientBalanceError reports a withdrawal attempt above the
// current balance, including the balance at the time of the attempt.
type InsufficientBalanceError struct {
	Balance string `json:"balance"`
}

func (e *InsufficientBalanceError) Error() string {
	return "insufficient balance: available " + e.Balance
}

// Withdrawal actions accepted by ApplyAction
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionComplete = "complete"
)
