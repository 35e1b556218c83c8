package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// APIKeyInfo holds the identity and permission data for a validated API key.
// Scopes are role names granted to the key holder.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Identity converts the key into the identity it authenticates as.
func (k *APIKeyInfo) Identity() Identity {
	roles := make([]Role, 0, len(k.Scopes))
	for _, s := range k.Scopes {
		if r, ok := ParseRole(s); ok {
			roles = append(roles, r)
		}
	}
	return Identity{UserID: "apikey:" + k.ID, Roles: roles}
}

// Repository provides lookup and registration of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, key *APIKeyInfo) error
}

// HashAPIKey returns the hex-encoded HMAC-SHA256 of key under pepper.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
