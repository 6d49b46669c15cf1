package http

import (
	"net"
	"net/http"
	"time"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/metrics"
)

// Login authenticates by email and password, sets the session cookie and
// returns the token for clients that prefer a bearer header.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, "login", clientIP(r)) {
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.services.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, "Login successful", result)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, "Logout successful", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	user, err := h.services.Auth.Me(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "User retrieved", user)
}

// allow applies the limiter. A limiter backend failure lets the request
// through: throttling is advisory and must not lock users out.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, endpoint, key string) bool {
	if h.limiter == nil {
		return true
	}
	allowed, err := h.limiter.Allow(r.Context(), endpoint+":"+key)
	if err != nil {
		logger.WarnContext(r.Context(), "Rate limiter unavailable", "endpoint", endpoint, "error", err)
		return true
	}
	if !allowed {
		metrics.IncRateLimited(endpoint)
		writeError(w, r, apperr.RateLimited("Too many requests"))
		return false
	}
	return true
}

// clientIP reads the address RealIP has already resolved.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
