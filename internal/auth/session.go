// Package auth issues and verifies guest-session tokens. Players have no
// password accounts; a guest session simply binds a fresh user ID to a
// signed JWT so later requests can prove who they are.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long a session token stays valid (0 = no expiry).
	tokenTTL time.Duration
)

var ErrInvalidToken = errors.New("invalid session token")

// Init generates a fresh ed25519 key pair at runtime and reads the token
// lifetime from TOKEN_EXPIRE_TIME. Sessions do not survive a restart, which
// is fine for an in-memory service.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate session key pair: %w", err)
	}

	ttl := os.Getenv("TOKEN_EXPIRE_TIME")
	switch ttl {
	case "", "0", "never":
		tokenTTL = 0
	default:
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("parse TOKEN_EXPIRE_TIME: %w", err)
		}
		tokenTTL = d
	}
	return nil
}

// NewSession mints a user ID and a signed token for it.
func NewSession() (uuid.UUID, string, error) {
	userID := uuid.New()
	token, err := CreateToken(userID)
	return userID, token, err
}

// CreateToken signs a JWT with "sub" = userID.
func CreateToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{"sub": userID.String()}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifyToken checks the signature and returns the user ID from "sub".
func VerifyToken(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil || !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
