package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the validity window of an issued access token
const DefaultTokenTTL = 60 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims represents the JWT claims. Subject carries the username.
type Claims struct {
	UserID *uint `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the caller resolved from a valid token
type Identity struct {
	Username string `json:"username"`
	UserID   uint   `json:"user_id"`
}

// TokenService issues and validates HS256 access tokens.
// Tokens are stateless: there is no revocation, a token lives until it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService
type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// WithTTL overrides DefaultTokenTTL
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		s.ttl = ttl
	}
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime given to tokens issued by Issue
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token for the user valid for the service TTL
func (s *TokenService) Issue(username string, userID uint) (string, error) {
	return s.IssueWithTTL(username, userID, s.ttl)
}

// IssueWithTTL creates a token expiring at now+ttl
func (s *TokenService) IssueWithTTL(username string, userID uint, ttl time.Duration) (string, error) {
	now := s.now()
	id := userID
	claims := &Claims{
		UserID: &id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate verifies signature and expiry and returns the identity the token carries
func (s *TokenService) Validate(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.UserID == nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{Username: claims.Subject, UserID: *claims.UserID}, nil
}
