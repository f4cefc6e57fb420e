package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testIdentity = Identity{
	UserID:   "user-123",
	Email:    "a@x.com",
	Name:     "Ada",
	Username: "ada",
}

// newTestTokenService creates a TokenService with a fixed secret so tests
// are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.TTL() != DefaultSessionTTL {
		t.Errorf("TTL() = %v, want %v", ts.TTL(), DefaultSessionTTL)
	}
	if DefaultSessionTTL != 7*24*time.Hour {
		t.Errorf("DefaultSessionTTL = %v, want 7 days", DefaultSessionTTL)
	}
}

// =========================================================================
// ISSUE
// =========================================================================

func TestIssue_ReturnsJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Issue() token doesn't look like a JWT: %q", token)
	}
}

func TestIssue_RequiresUserID(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Issue(Identity{Email: "a@x.com"}); err == nil {
		t.Fatal("Issue() should reject an identity without a user ID")
	}
}

func TestIssue_SameIdentityGetsDistinctTokens(t *testing.T) {
	ts := newTestTokenService(t)

	t1, _ := ts.Issue(testIdentity)
	t2, _ := ts.Issue(testIdentity)
	if t1 == t2 {
		t.Error("Issue() returned identical tokens; jti should differ")
	}
}

// =========================================================================
// VERIFY / PARSE
// =========================================================================

func TestVerify_RoundTripCarriesClaims(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(testIdentity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	c, ok := ts.Verify(token)
	if !ok {
		t.Fatal("Verify() rejected a freshly issued token")
	}
	if c.UserID() != testIdentity.UserID {
		t.Errorf("UserID() = %q, want %q", c.UserID(), testIdentity.UserID)
	}
	if c.Email != testIdentity.Email || c.Name != testIdentity.Name || c.Username != testIdentity.Username {
		t.Errorf("claims = %+v, want %+v", c, testIdentity)
	}
	if c.ExpiresAt == nil || c.ExpiresAt.Time.Before(time.Now()) {
		t.Errorf("ExpiresAt = %v, want a future time", c.ExpiresAt)
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	valid, _ := ts.Issue(testIdentity)
	expired, _ := ts.IssueWithTTL(testIdentity, -time.Second)
	foreign, _ := other.Issue(testIdentity)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongIssuerToken, _ := wrongIssuer.SignedString(ts.secret)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123", Issuer: issuer},
	})
	noExpiryToken, _ := noExpiry.SignedString(ts.secret)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noSubjectToken, _ := noSubject.SignedString(ts.secret)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"tampered signature", valid[:len(valid)-3] + "xxx"},
		{"expired", expired},
		{"signed with another secret", foreign},
		{"alg none", unsigned},
		{"wrong issuer", wrongIssuerToken},
		{"missing expiry", noExpiryToken},
		{"missing subject", noSubjectToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ts.Verify(tt.token)
			if ok || c != nil {
				t.Errorf("Verify() = (%v, %v), want (nil, false)", c, ok)
			}
		})
	}
}

func TestParse_ExpiredTokenError(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueWithTTL(testIdentity, -time.Second)
	if err != nil {
		t.Fatalf("IssueWithTTL() error = %v", err)
	}

	_, err = ts.Parse(token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("Parse() error = %v, want an expiry error", err)
	}
}

func TestVerify_UsesServiceClock(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testIdentity)

	// Jump past the one hour lifetime.
	ts.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok := ts.Verify(token); ok {
		t.Error("Verify() accepted a token past its lifetime")
	}
}
