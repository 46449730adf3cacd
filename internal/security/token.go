package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetSecretBytes gives reset secrets 256 bits of entropy.
const ResetSecretBytes = 32

// AccessClaims identify the acting account. Tokens are minted by the login
// service that shares the signing secret; this service only verifies them.
type AccessClaims struct {
	AccountID string `json:"aid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(secret string, accountID string, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   accountID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseAccessToken(tokenStr string, secret string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid && claims.AccountID != "" {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// GenerateResetSecret returns an opaque base64url secret and the digest that
// is persisted in its place.
func GenerateResetSecret() (string, []byte, error) {
	buf := make([]byte, ResetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate reset secret: %w", err)
	}

	secret := base64.RawURLEncoding.EncodeToString(buf)
	return secret, HashResetSecret(secret), nil
}

func HashResetSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
