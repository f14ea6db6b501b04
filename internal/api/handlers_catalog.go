package api

import (
	"errors"
	"net/http"

	"mlm-referral-app/internal/catalog"

	"github.com/gin-gonic/gin"
)

// handleGetHomePage returns the public homepage payload: active
// sections, plan items and product items
func (s *Server) handleGetHomePage(c *gin.Context) {
	page, err := s.catalogService.HomePage(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to assemble homepage")
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load homepage")
		return
	}

	successResponse(c, page)
}

// handleListProducts lists the product catalog
func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load products")
		return
	}

	successResponse(c, products)
}

type purchaseRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// handleCreatePurchase records a product purchase for the member
func (s *Server) handleCreatePurchase(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	purchase, err := s.catalogService.Purchase(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		s.handleCatalogError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    purchase,
	})
}

// handleGetPurchaseHistory returns the member's purchases, newest first
func (s *Server) handleGetPurchaseHistory(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	purchases, err := s.catalogService.PurchaseHistory(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load purchases")
		return
	}

	successResponse(c, purchases)
}

func (s *Server) handleCatalogError(c *gin.Context, err error) {
	var cerr catalog.CatalogError
	if errors.As(err, &cerr) {
		status := http.StatusBadRequest
		if cerr.Code == catalog.ErrProductNotFound.Code {
			status = http.StatusNotFound
		}
		errorResponse(c, status, cerr.Code, cerr.Message)
		return
	}

	s.logger.WithError(err).Error("Catalog operation failed")
	errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
