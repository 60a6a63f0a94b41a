package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/comilla/site-backend/internal/api/problem"
	"github.com/comilla/site-backend/internal/auth"
)

// SessionCookieName is the cookie set by POST /login.
const SessionCookieName = "access_token"

type sessionKey struct{}

// Session rejects requests without a valid session token. The token is read
// from the access_token cookie, falling back to an Authorization bearer.
func Session(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}

			token := sessionToken(r)
			if token == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), claims)))
		})
	}
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

func ContextWithSession(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, sessionKey{}, claims)
}

// SessionClaims returns the authenticated claims, or nil outside Session.
func SessionClaims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(sessionKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}
