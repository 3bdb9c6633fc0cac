// Package auth provides JWT token generation and validation for the glucolog API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User signs in — either via /auth/google/login → Google → callback,
//     or via POST /api/auth/login with email and password
//  2. Server upserts/loads the user and issues TWO JWTs:
//     - an access token (15 min) in the "token" HttpOnly cookie
//     - a refresh token (30 days) in the "refresh_token" HttpOnly cookie
//  3. On API calls, middleware reads the access token (cookie or
//     Authorization: Bearer header), validates it, and puts the userID in
//     the request context
//  4. When the access token expires, the SPA calls POST /api/auth/refresh;
//     the refresh token is validated and a fresh pair is issued
//
// The two token kinds are distinguished by the JWT "aud" (audience) claim.
// A refresh token presented to an API route fails validation, and an access
// token presented to /api/auth/refresh fails too — the kinds are not
// interchangeable.
//
// WHY JWT?
// JWT is stateless — the server stores no session table. Everything needed
// (userID, expiry, kind) is inside the signed token, and the HMAC signature
// makes tampering detectable without a DB lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "glucolog"

// Audience values marking the token kind.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Default token lifetimes. The access token is short so a stolen cookie has
// a small window; the refresh token keeps the user signed in across visits.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations — keep it safe and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// the standard fields (Issuer, Subject, Audience, ExpiresAt, IssuedAt).
//
// "sub" carries the internal user ID; "aud" carries the token kind.
type claims struct {
	jwt.RegisteredClaims
}

// GenerateAccess creates and signs a new access token for the given userID.
func (s *TokenService) GenerateAccess(userID string) (string, error) {
	return s.generate(userID, KindAccess, AccessTokenTTL)
}

// GenerateRefresh creates and signs a new refresh token for the given userID.
// Refresh tokens are only accepted by Validate with kind == KindRefresh,
// i.e. on the /api/auth/refresh path.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	return s.generate(userID, KindRefresh, RefreshTokenTTL)
}

// GenerateWithDuration creates an access-kind token with a custom expiry.
// Used in tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.generate(userID, KindAccess, d)
}

func (s *TokenService) generate(userID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{kind},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string of the expected kind.
// Returns the userID (the "sub" claim) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "glucolog" (rejects tokens minted by other apps)
//   - Audience matches the expected kind (access vs refresh)
//   - Algorithm is HS256 (prevents algorithm confusion attacks, where an
//     attacker re-signs a token with "none" or a public-key algorithm)
func (s *TokenService) Validate(tokenStr, kind string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(kind),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
