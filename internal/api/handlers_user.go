package api

import (
	"net/http"

	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/database"

	"github.com/gin-gonic/gin"
)

// TeamMember is a downline entry on the member dashboard
type TeamMember struct {
	ReferredUserID   string `json:"referred_user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	CommissionEarned string `json:"commission_earned"`
	ReferralDate     string `json:"referral_date"`
}

// handleGetDashboard returns the member dashboard: balance, team size,
// commission totals and purchase activity in one payload.
func (s *Server) handleGetDashboard(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load user for dashboard", "user_id", userID)
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load dashboard")
		return
	}
	if user == nil {
		errorResponse(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}

	teamSize, err := s.referralService.TeamSize(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load dashboard")
		return
	}

	totalCommission, err := s.repo.TotalCommissionBySponsor(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load dashboard")
		return
	}

	purchaseCount, purchaseTotal, err := s.catalogService.PurchaseStats(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load dashboard")
		return
	}

	successResponse(c, gin.H{
		"user":             auth.NewUserResponse(user),
		"account_balance":  user.AccountBalance.StringFixed(2),
		"team_size":        teamSize,
		"total_commission": totalCommission.StringFixed(2),
		"purchase_count":   purchaseCount,
		"purchase_total":   purchaseTotal.StringFixed(2),
	})
}

// handleGetProfile returns the member's profile
func (s *Server) handleGetProfile(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	user, err := s.repo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load profile")
		return
	}
	if user == nil {
		errorResponse(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}

	successResponse(c, auth.NewUserResponse(user))
}

type updateProfileRequest struct {
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name"`
	Mobile    *string `json:"mobile,omitempty"`
}

// handleUpdateProfile updates the member's profile fields
func (s *Server) handleUpdateProfile(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := s.repo.UpdateUserProfile(ctx, userID, req.FirstName, req.LastName, req.Mobile); err != nil {
		if database.UniqueConstraintName(err) == "users_mobile_key" {
			errorResponse(c, http.StatusConflict, "MOBILE_EXISTS", "mobile number already registered")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update profile")
		return
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	successResponse(c, auth.NewUserResponse(user))
}

// handleGetTeam returns the member's direct downline with the
// commission recorded on each edge
func (s *Server) handleGetTeam(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	edges, err := s.referralService.Team(ctx, userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load team")
		return
	}

	members := make([]TeamMember, 0, len(edges))
	for _, edge := range edges {
		member := TeamMember{
			ReferredUserID:   edge.ReferredUserID,
			CommissionEarned: edge.CommissionEarned.StringFixed(2),
			ReferralDate:     edge.ReferralDate.Format("2006-01-02"),
		}
		if u, err := s.repo.GetUserByID(ctx, edge.ReferredUserID); err == nil && u != nil {
			member.Name = u.FullName()
			member.Email = u.Email
		}
		members = append(members, member)
	}

	successResponse(c, gin.H{
		"team_size": len(members),
		"members":   members,
	})
}
