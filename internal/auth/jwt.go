// Package auth issues and verifies session tokens and hashes passwords.
//
// SESSION MODEL:
// A session is a signed HS256 JWT that carries the caller's identity claims
// (user ID, email, name, username). Nothing is stored server-side:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"<userID>","email":…,"name":…,"username":…,"exp":…,"jti":…}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// Claims are a snapshot taken at issuance. After a profile edit or password
// change the caller must be handed a freshly issued token; the old one keeps
// its stale claims until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "inkwell"

	// DefaultSessionTTL is how long a session token stays valid.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Identity is the set of claims embedded in a session token.
type Identity struct {
	UserID   string
	Email    string
	Name     string
	Username string
}

// Claims is the verified payload of a session token.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A zero ttl selects DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of tokens produced by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new session token for id using the configured lifetime.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.IssueWithTTL(id, s.ttl)
}

// IssueWithTTL signs a token with a custom lifetime. A negative ttl yields an
// already expired token, which tests use to exercise expiry.
func (s *TokenService) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: cannot issue a session without a user ID")
	}
	now := s.now()

	c := Claims{
		Email:    id.Email,
		Name:     id.Name,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Parse verifies a token and returns its claims, or an error describing why
// it was rejected.
//
// Checks: HS256 only (rejects "none" and algorithm confusion), signature,
// issuer, expiry present and in the future, non-empty subject.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}

// Verify is the fail-closed form of Parse: any problem with the token means
// "no session" and the caller is treated as anonymous.
func (s *TokenService) Verify(tokenStr string) (*Claims, bool) {
	if tokenStr == "" {
		return nil, false
	}
	c, err := s.Parse(tokenStr)
	if err != nil {
		return nil, false
	}
	return c, true
}
