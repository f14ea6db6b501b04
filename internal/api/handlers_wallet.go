package api

import (
	"errors"
	"net/http"
	"strconv"

	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/wallet"

	"github.com/gin-gonic/gin"
)

// WithdrawalResponse is the client representation of a withdrawal
// request. Amounts are fixed-point strings, never floats.
type WithdrawalResponse struct {
	ID            int64   `json:"id"`
	UserID        string  `json:"user_id"`
	Amount        string  `json:"amount"`
	AdminCharge   string  `json:"admin_charge"`
	NetAmount     string  `json:"net_amount"`
	Status        string  `json:"status"`
	RequestedDate string  `json:"requested_date"`
	ProcessedDate *string `json:"processed_date,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

func newWithdrawalResponse(w *database.Withdrawal) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:            w.ID,
		UserID:        w.UserID,
		Amount:        w.Amount.StringFixed(2),
		AdminCharge:   w.AdminCharge.StringFixed(2),
		NetAmount:     w.NetAmount.StringFixed(2),
		Status:        w.Status,
		RequestedDate: w.RequestedDate.Format("2006-01-02T15:04:05Z07:00"),
		Notes:         w.Notes,
	}
	if w.ProcessedDate != nil {
		s := w.ProcessedDate.Format("2006-01-02T15:04:05Z07:00")
		resp.ProcessedDate = &s
	}
	return resp
}

func newWithdrawalResponses(ws []database.Withdrawal) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(ws))
	for i := range ws {
		out = append(out, newWithdrawalResponse(&ws[i]))
	}
	return out
}

type withdrawalRequest struct {
	// Amount is a decimal string so precision survives the JSON trip.
	Amount string `json:"amount" binding:"required"`
}

// handleRequestWithdrawal creates a withdrawal request. The amount is
// debited immediately; the 10% admin charge is locked in at request
// time.
func (s *Server) handleRequestWithdrawal(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	w, err := s.walletService.Request(c.Request.Context(), userID, req.Amount)
	if err != nil {
		s.handleWalletError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    newWithdrawalResponse(w),
	})
}

// handleGetWithdrawalHistory returns the member's withdrawal requests
func (s *Server) handleGetWithdrawalHistory(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	ws, err := s.walletService.History(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load withdrawals")
		return
	}

	successResponse(c, newWithdrawalResponses(ws))
}

// handleGetWithdrawal returns a single withdrawal request. Members can
// only see their own requests; admins can see any.
func (s *Server) handleGetWithdrawal(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid withdrawal id")
		return
	}

	w, err := s.walletService.Get(c.Request.Context(), id)
	if err != nil {
		s.handleWalletError(c, err)
		return
	}

	if w.UserID != userID && !auth.IsAdmin(c) {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "withdrawal request not found")
		return
	}

	successResponse(c, newWithdrawalResponse(w))
}

// handleGetBalance returns the member's current account balance
func (s *Server) handleGetBalance(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	balance, err := s.repo.GetBalance(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load balance")
		return
	}

	successResponse(c, gin.H{"account_balance": balance.StringFixed(2)})
}

func (s *Server) handleWalletError(c *gin.Context, err error) {
	var insufficientErr *wallet.InsufficientBalanceError
	if errors.As(err, &insufficientErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "INSUFFICIENT_BALANCE",
			"message": insufficientErr.Error(),
			"balance": insufficientErr.Balance,
		})
		return
	}

	var werr wallet.WalletError
	if errors.As(err, &werr) {
		status := http.StatusBadRequest
		switch werr.Code {
		case wallet.ErrNotFound.Code:
			status = http.StatusNotFound
		case wallet.ErrAlreadyProcessed.Code:
			status = http.StatusConflict
		}
		errorResponse(c, status, werr.Code, werr.Message)
		return
	}

	s.logger.WithError(err).Error("Wallet operation failed")
	errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
