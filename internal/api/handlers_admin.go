package api

import (
	"errors"
	"net/http"
	"strconv"

	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/referral"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// handleAdminListUsers lists member accounts with pagination
func (s *Server) handleAdminListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()

	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list users")
		return
	}

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to count users")
		return
	}

	responses := make([]auth.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, auth.NewUserResponse(&users[i]))
	}

	successResponse(c, gin.H{
		"users":  responses,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleAdminStats returns platform totals for the admin overview
func (s *Server) handleAdminStats(c *gin.Context) {
	ctx := c.Request.Context()

	totalUsers, err := s.repo.CountUsers(ctx)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load stats")
		return
	}

	counts := make(map[string]int, 4)
	for _, status := range []string{
		database.WithdrawalStatusPending, database.WithdrawalStatusApproved,
		database.WithdrawalStatusRejected, database.WithdrawalStatusCompleted,
	} {
		n, err := s.repo.CountWithdrawalsByStatus(ctx, status)
		if err != nil {
			errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load stats")
			return
		}
		counts[status] = n
	}

	successResponse(c, gin.H{
		"total_users": totalUsers,
		"withdrawals": counts,
	})
}

// handleAdminGetUser returns one member with their referral activity
func (s *Server) handleAdminGetUser(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load user")
		return
	}
	if user == nil {
		errorResponse(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}

	teamSize, err := s.referralService.TeamSize(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load user")
		return
	}

	totalCommission, err := s.repo.TotalCommissionBySponsor(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load user")
		return
	}

	successResponse(c, gin.H{
		"user":             auth.NewUserResponse(user),
		"team_size":        teamSize,
		"total_commission": totalCommission.StringFixed(2),
	})
}

type setFlagRequest struct {
	Value *bool `json:"value" binding:"required"`
}

// handleAdminSetActiveMember toggles a member's active flag
func (s *Server) handleAdminSetActiveMember(c *gin.Context) {
	var req setFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	userID := c.Param("id")
	if err := s.repo.SetActiveMember(c.Request.Context(), userID, *req.Value); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update member")
		return
	}

	successResponse(c, gin.H{"user_id": userID, "is_active_member": *req.Value})
}

// handleAdminSetAdmin toggles a member's admin flag
func (s *Server) handleAdminSetAdmin(c *gin.Context) {
	var req setFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	userID := c.Param("id")
	if err := s.repo.SetAdmin(c.Request.Context(), userID, *req.Value); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update member")
		return
	}

	successResponse(c, gin.H{"user_id": userID, "is_admin": *req.Value})
}

// handleAdminListWithdrawals lists withdrawal requests for review,
// optionally filtered by status
func (s *Server) handleAdminListWithdrawals(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", database.WithdrawalStatusPending, database.WithdrawalStatusApproved,
		database.WithdrawalStatusRejected, database.WithdrawalStatusCompleted:
	default:
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown status filter")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ws, err := s.walletService.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list withdrawals")
		return
	}

	successResponse(c, newWithdrawalResponses(ws))
}

type withdrawalActionRequest struct {
	Action string  `json:"action" binding:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// handleAdminWithdrawalAction applies an admin action to a withdrawal
// request: approve, reject (refunds the full amount) or complete.
func (s *Server) handleAdminWithdrawalAction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid withdrawal id")
		return
	}

	var req withdrawalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	w, err := s.walletService.ApplyAction(c.Request.Context(), id, req.Action, req.Notes)
	if err != nil {
		s.handleWalletError(c, err)
		return
	}

	successResponse(c, newWithdrawalResponse(w))
}

// handleAdminGetReferralSettings returns the active commission settings
func (s *Server) handleAdminGetReferralSettings(c *gin.Context) {
	settings, err := s.referralService.GetActivePolicy(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load settings")
		return
	}

	successResponse(c, gin.H{"settings": settings})
}

type referralSettingsRequest struct {
	DirectReferralAmount     string `json:"direct_referral_amount" binding:"required"`
	MatchingIncomePercentage string `json:"matching_income_percentage" binding:"required"`
}

// handleAdminActivateReferralSettings activates a new commission
// settings row, deactivating all previous ones
func (s *Server) handleAdminActivateReferralSettings(c *gin.Context) {
	var req referralSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	directAmount, err := decimal.NewFromString(req.DirectReferralAmount)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "direct_referral_amount must be a decimal number")
		return
	}
	matchingPct, err := decimal.NewFromString(req.MatchingIncomePercentage)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "matching_income_percentage must be a decimal number")
		return
	}

	settings, err := s.referralService.ActivatePolicy(c.Request.Context(), directAmount, matchingPct)
	if err != nil {
		var verr *referral.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "VALIDATION_FAILED",
				"messages": verr.Messages,
			})
			return
		}
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to activate settings")
		return
	}

	successResponse(c, gin.H{"settings": settings})
}

type productRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Price       string  `json:"price" binding:"required"`
}

// handleAdminCreateProduct adds a product to the catalog
func (s *Server) handleAdminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "price must be a decimal number")
		return
	}

	product, err := s.catalogService.CreateProduct(c.Request.Context(), req.Name, req.Description, price)
	if err != nil {
		s.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    product,
	})
}

// handleAdminUpdateProduct updates an existing product
func (s *Server) handleAdminUpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid product id")
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "price must be a decimal number")
		return
	}

	product := &database.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
	}
	if err := s.catalogService.UpdateProduct(c.Request.Context(), product); err != nil {
		s.handleCatalogError(c, err)
		return
	}

	successResponse(c, product)
}

// handleAdminDeleteProduct removes a product from the catalog
func (s *Server) handleAdminDeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid product id")
		return
	}

	if err := s.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete product")
		return
	}

	successResponse(c, gin.H{"deleted": id})
}

type sectionRequest struct {
	SectionType  string  `json:"section_type" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Subtitle     *string `json:"subtitle,omitempty"`
	IsActive     bool    `json:"is_active"`
	DisplayOrder int     `json:"display_order"`
}

// handleAdminSaveSection creates or updates a homepage section
func (s *Server) handleAdminSaveSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	section := &database.HomePageSection{
		SectionType:  req.SectionType,
		Title:        req.Title,
		Subtitle:     req.Subtitle,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.catalogService.SaveSection(c.Request.Context(), section); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to save section")
		return
	}

	successResponse(c, section)
}

// handleAdminAddPlanItem adds a homepage plan item
func (s *Server) handleAdminAddPlanItem(c *gin.Context) {
	var item database.PlanItem
	if err := c.ShouldBindJSON(&item); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := s.catalogService.AddPlanItem(c.Request.Context(), &item); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to add plan item")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// handleAdminRemovePlanItem deletes a homepage plan item
func (s *Server) handleAdminRemovePlanItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid item id")
		return
	}

	if err := s.catalogService.RemovePlanItem(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to remove plan item")
		return
	}

	successResponse(c, gin.H{"deleted": id})
}

// handleAdminAddProductItem adds a homepage product item
func (s *Server) handleAdminAddProductItem(c *gin.Context) {
	var item database.ProductItem
	if err := c.ShouldBindJSON(&item); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if err := s.catalogService.AddProductItem(c.Request.Context(), &item); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to add product item")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// handleAdminRemoveProductItem deletes a homepage product item
func (s *Server) handleAdminRemoveProductItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid item id")
		return
	}

	if err := s.catalogService.RemoveProductItem(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to remove product item")
		return
	}

	successResponse(c, gin.H{"deleted": id})
}
