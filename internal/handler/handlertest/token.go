// Package handlertest issues bearer tokens accepted by handler.Tokens, for
// use in tests. Production tokens come from the identity provider.
package handlertest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/handler"
)

type claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Token signs a token for id that expires after ttl.
func Token(t testing.TB, cfg handler.TokenConfig, id auth.Identity, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		c.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	for _, r := range id.Roles {
		c.Roles = append(c.Roles, string(r))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(cfg.Secret)
	require.NoError(t, err)
	return signed
}

// Bearer is Token formatted as an Authorization header value.
func Bearer(t testing.TB, cfg handler.TokenConfig, id auth.Identity) string {
	t.Helper()
	return "Bearer " + Token(t, cfg, id, time.Hour)
}
