package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionService issues and validates the signed cookie tokens that back
// admin PIN logins.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

type SessionClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// IssueAdminSession returns a signed session token valid for the configured
// TTL.
func (s *SessionService) IssueAdminSession() (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "admin",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ValidateAdminSession reports whether tokenString is a live admin session.
func (s *SessionService) ValidateAdminSession(tokenString string) bool {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(*SessionClaims)
	return ok && claims.Admin
}
