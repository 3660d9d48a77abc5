// Package auth implements the signed-token codec: HS256 JWTs carrying the
// user id, email and token version. Access and refresh tokens use the same
// claim set but are signed with two independent secrets and lifetimes, so
// the version-based invalidation applies to both uniformly.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

// Claims is the token payload: registered claims (sub, exp, iat) plus the
// user's email and the generation counter the token belongs to.
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email"`
	TokenVersion int64  `json:"token_version"`
}

// GenerateToken signs a token for the given user with the provided secret
// and validity window. The token version stamps the token with the user's
// current generation.
func GenerateToken(userID, email string, tokenVersion int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email:        email,
		TokenVersion: tokenVersion,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired; any other failure
// (bad signature, malformed string, wrong algorithm) yields
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
