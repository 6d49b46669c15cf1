package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/config"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/security"
)

const tokenCookie = "token"

// requestLogger attaches a request-scoped logger carrying the request ID and
// logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithContext(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.InfoContext(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// authMiddleware resolves the caller for every route that is not public.
// The route template, not the raw path, selects the security level.
func authMiddleware(tokens security.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			template := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if t, err := route.GetPathTemplate(); err == nil {
					template = t
				}
			}
			if config.GetSecurityLevel(r.Method, template) == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeError(w, r, apperr.Authentication("Authentication required"))
				return
			}
			caller, err := tokens.Authenticate(token)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := authz.WithCaller(r.Context(), caller)
			ctx = logger.WithContext(ctx, "user_id", caller.UserID, "role", caller.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
