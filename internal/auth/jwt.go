// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every ingestion token.
const Issuer = "chatstats"

var ErrInvalidToken = errors.New("invalid token")

// GenerateServiceToken mints an HS256 token for an ingestion client.
func GenerateServiceToken(subject string, ttl time.Duration, secretKey []byte) (string, error) {
	if subject == "" {
		return "", errors.New("subject cannot be empty")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	if len(secretKey) == 0 {
		return "", errors.New("secret key cannot be empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": Issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey)
}

// ValidateToken checks signature, expiry and issuer and returns the subject.
func ValidateToken(tokenString string, secretKey []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if subject, ok := claims["sub"].(string); ok && subject != "" {
			return subject, nil
		}
	}
	return "", ErrInvalidToken
}
