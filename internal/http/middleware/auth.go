package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sentrolokal/barangay/internal/auth"
	"github.com/sentrolokal/barangay/internal/service"
)

type contextKey string

const (
	ContextKeySubject  contextKey = "subject"
	ContextKeyRole     contextKey = "role"
	ContextKeyBarangay contextKey = "barangay"
	ContextKeyClaims   contextKey = "claims"
)

// SessionCookieName is the http-only cookie carrying the session token.
const SessionCookieName = "session"

// Auth validates the session token and injects the claims into the request
// context. The token may arrive as the session cookie or a bearer header.
// A missing token is Forbidden; an invalid or expired one is Unauthorized.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "missing session token")
				return
			}

			claims, err := jwtManager.ParseAndValidate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "invalid or expired session token")
				return
			}
			if claims.Purpose != "" {
				// Single-purpose tokens (password reset) never open a session.
				writeError(w, http.StatusUnauthorized, "AUTH", "token not valid for a session")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = context.WithValue(ctx, ContextKeyBarangay, claims.Barangay)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetSubject returns the authenticated subject id.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetRole returns the caller's role.
func GetRole(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyRole).(string)
	return val
}

// GetBarangay returns the caller's barangay partition.
func GetBarangay(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyBarangay).(string)
	return val
}

// GetClaims returns the full decoded claim set.
func GetClaims(ctx context.Context) *auth.SessionClaims {
	val, _ := ctx.Value(ContextKeyClaims).(*auth.SessionClaims)
	return val
}

// RequireOperation gates a route on the permission table.
func RequireOperation(op service.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !service.Can(GetRole(r.Context()), op) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
