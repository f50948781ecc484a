package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	resetPurpose = "password_reset"
	resetIssuer  = "studyroom-service"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// ResetClaims are the claims of a password reset token
type ResetClaims struct {
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// ResetTokenManager issues and verifies stateless password reset tokens.
// Tokens are bound to a fingerprint of the password hash so they stop
// working once the password changes.
type ResetTokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokenManager(secret string, ttl time.Duration) *ResetTokenManager {
	return &ResetTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (m *ResetTokenManager) WithClock(now func() time.Time) *ResetTokenManager {
	m.now = now
	return m
}

func (m *ResetTokenManager) TTL() time.Duration {
	return m.ttl
}

// Fingerprint derives the token binding from a stored password hash
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (m *ResetTokenManager) Generate(email, fingerprint string) (string, error) {
	now := m.now()
	claims := ResetClaims{
		Email:       email,
		Purpose:     resetPurpose,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    resetIssuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature, expiry and purpose, returning the embedded claims
func (m *ResetTokenManager) Verify(tokenString string) (*ResetClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuer(resetIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid || claims.Purpose != resetPurpose || claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
