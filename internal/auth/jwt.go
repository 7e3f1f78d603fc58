package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error Verify returns for a bad token. A missing
// signature, a wrong signature, an expired token and a malformed token all
// collapse into it so a caller can't probe which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenTTL matches the original session lifetime: one day from issuance.
const TokenTTL = 24 * time.Hour

// Claims is the payload inside every session token. The relay is
// tenant-scoped, not user-scoped: the token proves tenant identity only, and
// the end user is named per-request in the webhook payload.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed session tokens. It is stateless —
// no storage, no revocation list — so any number of workers can verify
// concurrently with nothing shared but the secret.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue produces a signed HS256 token binding the caller to a tenant for
// TokenTTL.
func (s *TokenService) Issue(tenantID string) (string, error) {
	now := time.Now()

	claims := Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "relaygate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the embedded claims.
// Every failure mode returns ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			// Reject anything but HMAC before the signature is checked;
			// this closes the algorithm-confusion hole.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
