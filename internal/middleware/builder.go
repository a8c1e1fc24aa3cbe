// Package middleware composes the HTTP middleware stack for the
// item-sync server (§6).
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/notesync/transition-core/pkg/logger"
	pkgmiddleware "github.com/notesync/transition-core/pkg/middleware"
)

// StackConfig holds configuration for building the item-sync server's
// middleware stack.
type StackConfig struct {
	Logger         *slog.Logger
	MaxRequestSize int64
	RequestTimeout time.Duration
}

// BuildItemSyncStack builds the middleware stack applied to the
// item-sync endpoint, outermost to innermost:
//  1. Security headers
//  2. Panic recovery
//  3. Request metrics
//  4. Request ID + request logging
//  5. Request size limit
//  6. Request timeout
func BuildItemSyncStack(config StackConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		handler := next

		if config.RequestTimeout > 0 {
			handler = http.TimeoutHandler(handler, config.RequestTimeout, "request timeout")
		}

		if config.MaxRequestSize > 0 {
			handler = limitRequestSize(handler, config.MaxRequestSize)
		}

		handler = logger.LoggingMiddleware(config.Logger)(handler)
		handler = withMetrics(handler)
		handler = recoverPanics(handler, config.Logger)
		handler = pkgmiddleware.SecureHeaders()(handler)

		return handler
	}
}

func limitRequestSize(next http.Handler, max int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > max {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}

func recoverPanics(next http.Handler, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
