package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Issue("store1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.TenantID != "store1" {
		t.Errorf("TenantID = %q, want %q", claims.TenantID, "store1")
	}
	if claims.Issuer != "relaygate" {
		t.Errorf("Issuer = %q, want relaygate", claims.Issuer)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Errorf("token TTL = %v, want ~24h", ttl)
	}
}

// All verification failures must be indistinguishable: an expired token, a
// garbage token, a token signed with another secret and a token using a
// non-HMAC algorithm all surface as ErrInvalidToken.
func TestVerifyFailuresCollapse(t *testing.T) {
	svc := NewTokenService("test-secret")

	expired := signed(t, "test-secret", jwt.SigningMethodHS256, Claims{
		TenantID: "store1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongSecret := signed(t, "other-secret", jwt.SigningMethodHS256, Claims{
		TenantID: "store1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noTenant := signed(t, "test-secret", jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	cases := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", wrongSecret},
		{"missing tenant claim", noTenant},
		{"malformed", "not-a-token"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(tc.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%s) = %v, want ErrInvalidToken", tc.name, err)
			}
		})
	}
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}
