// Package auth provides JWT token issuance/verification, password hashing,
// and the HTTP access gate for protected routes.
//
// Tokens are stateless: everything needed to authenticate a request (the
// subject's user id and the expiry) lives inside the signed token, so no
// session storage exists and nothing is revoked server-side. Expiry is the
// only way a token dies — after 30 minutes the client must log in again.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// TokenTTL is how long an issued token stays valid. There is no refresh
// mechanism; expiry forces re-login.
const TokenTTL = 30 * time.Minute

const issuer = "examboard"

// TokenService signs and verifies JWT access tokens with a process-wide
// HMAC secret (HS256).
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims embeds jwt.RegisteredClaims; the user id travels in the standard
// "sub" claim as a decimal string.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs an access token for the given user.
func (s *TokenService) Issue(userID int64) (string, error) {
	return s.IssueWithDuration(userID, TokenTTL)
}

// IssueWithDuration creates a token with a custom lifetime. Used by tests to
// produce already-expired tokens; production code goes through Issue.
func (s *TokenService) IssueWithDuration(userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
			ID:        xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a JWT string and returns the user id from its
// subject claim.
//
// The library checks the signature, the expiry, the issuer, and — via
// WithValidMethods — that the token was actually signed with HS256. Pinning
// the method matters: without it a token claiming alg "none" or an
// asymmetric algorithm could slip through (algorithm confusion).
func (s *TokenService) Verify(tokenStr string) (int64, error) {
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
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: token has no valid subject")
	}

	return userID, nil
}
