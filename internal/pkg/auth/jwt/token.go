package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"hzarena/internal/app/user"
)

const (
	// DefaultIdentityExpiration is used when no TTL is configured.
	DefaultIdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "HZArena-Server"
)

// ErrInvalidIdentity is returned for a well-signed token whose identity is unusable.
var ErrInvalidIdentity = errors.New("token carries an invalid identity")

// GenerateToken creates and signs an identity token for id valid for duration.
func GenerateToken(id user.Identity, secretKey string, duration time.Duration) (string, error) {
	if duration <= 0 {
		duration = DefaultIdentityExpiration
	}
	now := time.Now()

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
			Subject:   id.String(),
		},
		Name:   id.Name,
		Source: id.Source,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates the JWT Token string using the provided secretKey.
func ParseToken(tokenString string, secretKey string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	// bots are server-side only and never hold tokens
	if claims.Name == "" || (claims.Source != user.SourceGuest && claims.Source != user.SourceRegistered) {
		return nil, ErrInvalidIdentity
	}

	return claims, nil
}
