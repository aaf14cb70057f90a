package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims in an access token
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies signed access tokens. Tokens are
// stateless: verification is signature plus expiry, never a session lookup.
type TokenManager struct {
	secretKey []byte
	method    jwt.SigningMethod
	lifetime  time.Duration
}

// NewTokenManager creates a TokenManager for the given HMAC algorithm
// (HS256, HS384 or HS512).
func NewTokenManager(secretKey, algorithm string, lifetime time.Duration) (*TokenManager, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}
	return &TokenManager{
		secretKey: []byte(secretKey),
		method:    method,
		lifetime:  lifetime,
	}, nil
}

// Lifetime returns the configured access-token lifetime
func (tm *TokenManager) Lifetime() time.Duration {
	return tm.lifetime
}

// Generate creates a new signed access token for a user
func (tm *TokenManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(tm.method, claims)
	return token.SignedString(tm.secretKey)
}

// Validate verifies signature and expiry and returns the claims
func (tm *TokenManager) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
