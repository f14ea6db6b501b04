package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"mlm-referral-app/internal/auth"
	"mlm-referral-app/internal/catalog"
	"mlm-referral-app/internal/database"
	"mlm-referral-app/internal/logging"
	"mlm-referral-app/internal/referral"
	"mlm-referral-app/internal/wallet"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ProductionMode bool
	AllowedOrigins []string
}

// Server represents the HTTP API server
type Server struct {
	router          *gin.Engine
	httpServer      *http.Server
	repo            *database.Repository
	config          ServerConfig
	authService     *auth.Service
	jwtManager      *auth.JWTManager
	referralService *referral.Service
	walletService   *wallet.Service
	catalogService  *catalog.Service
	rateLimiter     *RateLimiter // throttles credential endpoints
	logger          *logging.Logger
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	authService *auth.Service,
	jwtManager *auth.JWTManager,
	referralService *referral.Service,
	walletService *wallet.Service,
	catalogService *catalog.Service,
) *Server {
	// Set Gin mode
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:          router,
		repo:            repo,
		config:          config,
		authService:     authService,
		jwtManager:      jwtManager,
		referralService: referralService,
		walletService:   walletService,
		catalogService:  catalogService,
		rateLimiter:     NewRateLimiter(30, time.Minute), // 30 credential attempts per minute per endpoint
		logger:          logging.WithComponent("api"),
	}

	server.setupRoutes()

	return server
}

// rateLimitMiddleware throttles requests per client IP and endpoint.
// It guards the credential endpoints against brute forcing.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(c.ClientIP() + "|" + path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "too many requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Public homepage content
	s.router.GET("/api/home", s.handleGetHomePage)

	// Auth routes (register/login are public and rate limited)
	authHandlers := auth.NewHandlers(s.authService, s.referralService)
	authGroup := s.router.Group("/api/auth")
	authGroup.Use(s.rateLimitMiddleware())
	authHandlers.RegisterRoutes(authGroup, s.jwtManager)

	// Member routes (authentication required)
	api := s.router.Group("/api")
	api.Use(auth.Middleware(s.jwtManager))
	{
		// Member dashboard & profile
		api.GET("/user/dashboard", s.handleGetDashboard)
		api.GET("/user/profile", s.handleGetProfile)
		api.PUT("/user/profile", s.handleUpdateProfile)
		api.GET("/user/team", s.handleGetTeam)

		// Withdrawal ledger
		api.POST("/wallet/withdrawals", s.handleRequestWithdrawal)
		api.GET("/wallet/withdrawals", s.handleGetWithdrawalHistory)
		api.GET("/wallet/withdrawals/:id", s.handleGetWithdrawal)
		api.GET("/wallet/balance", s.handleGetBalance)

		// Catalog & purchases
		api.GET("/products", s.handleListProducts)
		api.POST("/purchases", s.handleCreatePurchase)
		api.GET("/purchases", s.handleGetPurchaseHistory)
	}

	// Admin endpoints (requires admin role)
	admin := api.Group("/admin")
	admin.Use(auth.RequireAdmin())
	{
		// Overview
		admin.GET("/stats", s.handleAdminStats)

		// Member management
		admin.GET("/users", s.handleAdminListUsers)
		admin.GET("/users/:id", s.handleAdminGetUser)
		admin.PUT("/users/:id/active", s.handleAdminSetActiveMember)
		admin.PUT("/users/:id/admin", s.handleAdminSetAdmin)

		// Withdrawal review
		admin.GET("/withdrawals", s.handleAdminListWithdrawals)
		admin.POST("/withdrawals/:id/action", s.handleAdminWithdrawalAction)

		// Commission settings
		admin.GET("/settings/referral", s.handleAdminGetReferralSettings)
		admin.PUT("/settings/referral", s.handleAdminActivateReferralSettings)

		// Product management
		admin.POST("/products", s.handleAdminCreateProduct)
		admin.PUT("/products/:id", s.handleAdminUpdateProduct)
		admin.DELETE("/products/:id", s.handleAdminDeleteProduct)

		// Homepage content management
		admin.PUT("/home/sections", s.handleAdminSaveSection)
		admin.POST("/home/plan-items", s.handleAdminAddPlanItem)
		admin.DELETE("/home/plan-items/:id", s.handleAdminRemovePlanItem)
		admin.POST("/home/product-items", s.handleAdminAddProductItem)
		admin.DELETE("/home/product-items/:id", s.handleAdminRemoveProductItem)
	}

	// Undefined API routes return JSON, not an HTML error page
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "NOT_FOUND",
			"message": "endpoint does not exist",
			"path":    c.Request.URL.Path,
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.repo.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, gin.H{
		"error":   code,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// getUserIDRequired returns the authenticated user ID and sends an
// error when missing
func (s *Server) getUserIDRequired(c *gin.Context) (string, bool) {
	userID := auth.GetUserID(c)
	if userID == "" {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return userID, true
}
