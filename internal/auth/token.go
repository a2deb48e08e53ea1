// Package auth issues and verifies signed session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret  = errors.New("token signing secret is not configured")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrMalformedToken = errors.New("token malformed")
)

const DefaultTTL = 24 * time.Hour

// Claims is the token payload. A user token carries UserID and Email; a
// recognized-person token carries only RecognizedName.
type Claims struct {
	UserID         string     `json:"uid,omitempty"`
	Email          string     `json:"email,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	RecognizedName string     `json:"recognized_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs HS256 tokens with a single process-wide secret. It never
// consults the user store.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs c with iat=now and exp=now+ttl.
func (s *TokenService) Issue(c Claims) (string, error) {
	now := s.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrBadSignature
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.UserID == "" && claims.RecognizedName == "" {
		return nil, fmt.Errorf("%w: no subject", ErrMalformedToken)
	}
	return claims, nil
}
