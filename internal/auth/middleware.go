package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/glucolog/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue takes any key, but a plain string like "userID" could
// be read or shadowed by any package that knows the string. A package-private
// type means only this package can put or read userID values in a context.
type contextKey string

const userIDKey contextKey = "userID"

// Cookie names for the two token kinds. The refresh cookie is scoped to the
// refresh endpoint path so browsers don't attach the long-lived token to
// every API call.
const (
	AccessCookieName  = "token"
	RefreshCookieName = "refresh_token"
)

// UserLookup is the slice of the user store the resolver needs: a read-only
// existence check. Satisfied by repository.UserRepository.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver maps an inbound request to an authenticated user id.
//
// RESOLUTION RULES:
//   - The ONLY identity source is the verified token — never an id field in
//     the body or query string.
//   - The access token is read from the "token" cookie first, then from an
//     "Authorization: Bearer" header (for non-browser clients).
//   - A token that is absent, expired, tampered, of the wrong kind, or whose
//     subject no longer exists in the user store all produce the same
//     negative result. Callers cannot distinguish "almost valid" from
//     "missing" — that distinction would leak information.
//   - Resolve is read-only; it never writes to the store or the response.
type Resolver struct {
	tokens *TokenService
	users  UserLookup
}

// NewResolver creates a Resolver. users may not be nil — a token whose user
// has been deleted must not resolve.
func NewResolver(tokens *TokenService, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns the authenticated userID, or ("", false) when the request
// carries no usable credentials. The false result is a normal outcome, not
// an error — the API layer turns it into a 401.
func (rs *Resolver) Resolve(r *http.Request) (string, bool) {
	tokenStr := tokenFromRequest(r)
	if tokenStr == "" {
		return "", false
	}

	userID, err := rs.tokens.Validate(tokenStr, KindAccess)
	if err != nil {
		return "", false
	}

	// The token may outlive the account. A valid signature over a deleted
	// user still resolves to "unauthenticated".
	if _, err := rs.users.GetUserByID(r.Context(), userID); err != nil {
		return "", false
	}

	return userID, true
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It resolves the caller's identity and stores the userID in the request
// context. If resolution fails it returns 401 Unauthorized with a generic
// body and stops the chain — handlers behind it can assume a valid user.
//
// The access token lives in an HttpOnly cookie, so JavaScript can't read it
// (XSS protection); the Bearer header path exists for CLI and test clients.
func RequireAuth(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolver.Resolve(r)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context.
//
// Returns ("", false) if the request never passed RequireAuth. On protected
// routes it always returns (id, true); handlers still check the bool as a
// guard against wiring mistakes.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// tokenFromRequest extracts the raw access token: cookie first, then the
// Authorization header.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(token)
	}

	return ""
}
