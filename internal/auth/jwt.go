// Package auth verifies the HS256 access tokens that identify API callers
// and provides the HTTP middleware built on them.
//
// Tokens are issued by the TrashMob identity front end; this server only
// needs the subject (the user's UUID). Generate exists for tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
const MinSecretLength = 16

// DefaultTokenTTL is the lifetime of tokens minted by Generate.
const DefaultTokenTTL = 15 * time.Minute

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and validates JWTs.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a TokenService. issuer is written to and required
// in the "iss" claim.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if issuer == "" {
		return nil, errors.New("auth: JWT issuer must not be empty")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

// Generate signs a token for userID valid for DefaultTokenTTL.
func (s *TokenService) Generate(userID uuid.UUID) (string, error) {
	return s.GenerateWithDuration(userID, DefaultTokenTTL)
}

// GenerateWithDuration signs a token for userID valid for d. A negative d
// yields an already expired token.
func (s *TokenService) GenerateWithDuration(userID uuid.UUID, d time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    s.issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies tokenStr and returns the user id in its
// subject. Only HS256 with this service's secret and issuer is accepted, and
// an expiry is required.
func (s *TokenService) Validate(tokenStr string) (uuid.UUID, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("auth: invalid token claims")
	}

	if c.Subject == "" {
		return uuid.Nil, errors.New("auth: token has no subject")
	}
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth: token subject is not a user id: %w", err)
	}
	return userID, nil
}
