package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const resetTokenTTL = 10 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims are the session token claims; Subject carries the identity id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-limited session tokens and
// computes password-reset tokens.
type TokenService struct {
	secretKey []byte
	validity  time.Duration
}

// NewTokenService creates a TokenService with the given signing secret and
// token validity window.
func NewTokenService(secretKey string, validity time.Duration) *TokenService {
	return &TokenService{secretKey: []byte(secretKey), validity: validity}
}

// Issue produces a signed token binding identityID and the issuance time.
func (ts *TokenService) Issue(identityID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.validity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Expired tokens
// report ErrExpiredToken; anything else malformed reports ErrInvalidToken.
func (ts *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validity is the configured token validity window.
func (ts *TokenService) Validity() time.Duration {
	return ts.validity
}

// IsStaleRelativeTo reports whether a token issued at issuedAt predates the
// identity's last password change. Stale tokens must be treated as invalid
// regardless of their own expiry.
func (ts *TokenService) IsStaleRelativeTo(issuedAt time.Time, passwordChangedAt *time.Time) bool {
	if passwordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < passwordChangedAt.Unix()
}

// ResetToken pairs the one-time secret with its persisted hash and expiry.
// Only Hash and ExpiresAt are stored; Secret is delivered once to the
// requester and never persisted.
type ResetToken struct {
	Secret    string
	Hash      string
	ExpiresAt time.Time
}

// CreateResetToken generates a random 32-byte secret and its sha256 hash,
// valid for 10 minutes.
func (ts *TokenService) CreateResetToken() (ResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, fmt.Errorf("failed to generate reset token: %w", err)
	}
	secret := hex.EncodeToString(buf)
	return ResetToken{
		Secret:    secret,
		Hash:      ts.HashResetSecret(secret),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}, nil
}

// HashResetSecret re-derives the stored hash from a presented secret. It is
// the same derivation used by CreateResetToken.
func (ts *TokenService) HashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
