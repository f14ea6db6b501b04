package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/referral"
)

// Handlers provides HTTP handlers for authentication endpoints.
// Registration delegates to the referral engine so the sponsor edge and
// commission payout stay inside a single transaction.
type Handlers struct {
	service  *Service
	enroller *referral.Service
}

// NewHandlers creates authentication handlers
func NewHandlers(service *Service, enroller *referral.Service) *Handlers {
	return &Handlers{
		service:  service,
		enroller: enroller,
	}
}

// RegisterRoutes registers authentication routes on the given group
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup, jwtManager *JWTManager) {
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)

	authed := group.Group("")
	authed.Use(Middleware(jwtManager))
	authed.POST("/logout-all", h.LogoutAll)
	authed.POST("/change-password", h.ChangePassword)
	authed.GET("/me", h.Me)
}

// Register handles new member enrollment
func (h *Handlers) Register(c *gin.Context) {
	var req referral.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	user, edge, err := h.enroller.Enroll(c.Request.Context(), req)
	if err != nil {
		h.handleEnrollError(c, err)
		return
	}

	resp := gin.H{"user": NewUserResponse(user)}
	if edge != nil {
		resp["sponsor_id"] = edge.SponsorID
	}
	c.JSON(http.StatusCreated, resp)
}

// Login handles member login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token for a new token pair
func (h *Handlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	resp, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token
func (h *Handlers) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL_ERROR",
			"message": "failed to log out",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutAll revokes every session for the authenticated member
func (h *Handlers) LogoutAll(c *gin.Context) {
	userID := GetUserID(c)
	if err := h.service.LogoutAll(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL_ERROR",
			"message": "failed to log out",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all sessions revoked"})
}

// ChangePassword updates the authenticated member's password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}

	userID := GetUserID(c)
	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// Me returns the authenticated member's profile
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": NewUserResponse(user)})
}

func (h *Handlers) handleEnrollError(c *gin.Context, err error) {
	var verr *referral.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "VALIDATION_FAILED",
			"messages": verr.Messages,
		})
		return
	}

	var rerr referral.ReferralError
	if errors.As(err, &rerr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   rerr.Code,
			"message": rerr.Message,
		})
		return
	}

	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "CONFLICT",
			"message": "account already exists",
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "INTERNAL_ERROR",
		"message": "failed to enroll member",
	})
}

func (h *Handlers) handleAuthError(c *gin.Context, err error) {
	var authErr AuthError
	if errors.As(err, &authErr) {
		status := http.StatusUnauthorized
		switch authErr.Code {
		case ErrUserNotFound.Code:
			status = http.StatusNotFound
		case ErrForbidden.Code:
			status = http.StatusForbidden
		case ErrWeakPassword.Code:
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   authErr.Code,
			"message": authErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "INTERNAL_ERROR",
		"message": "internal server error",
	})
}
