package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// EnrollmentContext creates a logger context for member enrollment
func EnrollmentContext(email, sponsorCode string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"email":        email,
		"sponsor_code": sponsorCode,
	}).WithComponent("enrollment")
}

// WithdrawalContext creates a logger context for withdrawal operations
func WithdrawalContext(withdrawalID, userID, amount string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"withdrawal_id": withdrawalID,
		"user_id":       userID,
		"amount":        amount,
	}).WithComponent("withdrawal")
}

// CommissionContext creates a logger context for commission payouts
func CommissionContext(sponsorID, referredUserID, amount string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"sponsor_id":       sponsorID,
		"referred_user_id": referredUserID,
		"amount":           amount,
	}).WithComponent("commission")
}

// PurchaseContext creates a logger context for product purchases
func PurchaseContext(userID string, productID int64, quantity int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}).WithComponent("purchase")
}

// APIContext creates a logger context for API operations
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// DatabaseContext creates a logger context for database operations
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}

// HTTPMiddleware is a middleware that adds logging to HTTP requests
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		// Create logger with request context
		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).WithComponent("http")

		// Add logger to context
		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call next handler
		next.ServeHTTP(wrapped, r)

		// Log request completion
		duration := time.Since(start)
		l.WithDuration(duration).WithField("status_code", wrapped.statusCode).Info("Request completed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
