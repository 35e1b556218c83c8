package memory

import (
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

var _ auth.Repository = (*APIKeys)(nil)

// APIKeys stores API keys by hash.
type APIKeys struct {
	s *Store
}

func (r *APIKeys) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var k auth.APIKeyInfo
	err := r.s.do(ctx, func(st *state) error {
		cur, ok := st.apiKeys[hash]
		if !ok {
			return apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthorized, "api key not found")
		}
		k = cur
		k.Scopes = slices.Clone(cur.Scopes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *APIKeys) Create(ctx context.Context, key *auth.APIKeyInfo) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.apiKeys[key.KeyHash]; ok {
			return apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "api key already exists")
		}
		k := *key
		k.Scopes = slices.Clone(key.Scopes)
		st.apiKeys[k.KeyHash] = k
		return nil
	})
}
