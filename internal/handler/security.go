package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader carries an integration API key.
const APIKeyHeader = "api_key"

const identityKey = "identity"

var (
	errUnauthenticated = apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthorized, "authentication required")
	errBadCredentials  = apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthorized, "invalid credentials")
)

// TokenConfig configures bearer token verification.
type TokenConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// Tokens verifies HS256 bearer tokens. The subject is the user id and the
// roles claim lists granted roles. Tokens are issued by the identity
// provider, never by this service.
type Tokens struct {
	cfg TokenConfig
}

// NewTokens creates Tokens for cfg.
func NewTokens(cfg TokenConfig) *Tokens {
	return &Tokens{cfg: cfg}
}

type claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses a token and returns the identity it carries.
func (t *Tokens) Verify(token string) (auth.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}
	if t.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(t.cfg.Audience))
	}

	var c claims
	if _, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	}, opts...); err != nil {
		return auth.Identity{}, errors.Wrap(err, "parse token")
	}
	if c.Subject == "" {
		return auth.Identity{}, errors.New("token has no subject")
	}

	id := auth.Identity{UserID: c.Subject}
	for _, s := range c.Roles {
		if r, ok := auth.ParseRole(s); ok {
			id.Roles = append(id.Roles, r)
		}
	}
	if len(id.Roles) == 0 {
		id.Roles = []auth.Role{auth.RoleCustomer}
	}
	return id, nil
}

// SecurityHandler authenticates API requests either by bearer token or by
// an HMAC-SHA256 hashed API key.
type SecurityHandler struct {
	tokens  *Tokens
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler.
func NewSecurityHandler(tokens *Tokens, apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		tokens:  tokens,
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate resolves the caller's identity when credentials are present.
// Requests without credentials pass through anonymously; invalid
// credentials are rejected.
func (s *SecurityHandler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			id  auth.Identity
			err error
		)
		switch {
		case c.GetHeader("Authorization") != "":
			id, err = s.bearer(c.GetHeader("Authorization"))
		case c.GetHeader(APIKeyHeader) != "":
			id, err = s.apiKey(c, c.GetHeader(APIKeyHeader))
		default:
			c.Next()
			return
		}
		if err != nil {
			abort(c, errBadCredentials)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (s *SecurityHandler) bearer(header string) (auth.Identity, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return auth.Identity{}, errors.New("malformed authorization header")
	}
	return s.tokens.Verify(strings.TrimSpace(token))
}

func (s *SecurityHandler) apiKey(c *gin.Context, key string) (auth.Identity, error) {
	hexHash := auth.HashAPIKey(s.pepper, key)
	info, err := s.apikeys.FindByHash(c.Request.Context(), hexHash)
	if err != nil {
		return auth.Identity{}, err
	}

	// The repository matched on the hash; compare again in constant time so
	// a wrong row can never authenticate.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return auth.Identity{}, errors.Wrap(err, "decode stored hash")
	}
	computed, _ := hex.DecodeString(hexHash)
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return auth.Identity{}, errors.New("api key hash mismatch")
	}
	return info.Identity(), nil
}

// requireAuth rejects anonymous requests.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identityFrom(c); !ok {
			abort(c, errUnauthenticated)
			return
		}
		c.Next()
	}
}

// requireRole rejects callers holding none of roles.
func requireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFrom(c)
		if !ok {
			abort(c, errUnauthenticated)
			return
		}
		if !id.HasRole(roles...) {
			abort(c, apperr.Forbidden("insufficient role"))
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// caller returns the authenticated identity. Routes using it are guarded by
// requireAuth or requireRole.
func caller(c *gin.Context) auth.Identity {
	id, _ := identityFrom(c)
	return id
}

