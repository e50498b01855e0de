package jwt

import (
	"context"
	"net/http"
	"strings"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/logx"
)

type contextKey string

const (
	// ContextIdentityKey is the request context key holding the verified user.Identity.
	ContextIdentityKey contextKey = "auth_identity"

	// CookieName is the cookie carrying the credential for browser clients.
	CookieName = "token"
)

// CredentialFromRequest returns the raw credential from, in order, the
// Authorization bearer header, the token cookie, or the token query parameter.
// The query parameter exists for websocket clients that cannot set headers.
func CredentialFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// IdentityExtractorMiddleware verifies the request credential, if any, and stores
// the identity in the context. It never rejects a request: a missing or invalid
// credential leaves the request anonymous.
func IdentityExtractorMiddleware(verifier *Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromRequest(r)
			if credential == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.Verify(credential)
			if err != nil {
				logx.Warn("Invalid or expired credential, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by IdentityExtractorMiddleware.
// ok is false for anonymous requests.
func IdentityFromContext(r *http.Request) (user.Identity, bool) {
	identity, ok := r.Context().Value(ContextIdentityKey).(user.Identity)
	return identity, ok
}
