package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes FROM api_keys WHERE key_hash = $1 AND active`

	createAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes) VALUES ($1, $2, $3, $4)`
)

// ErrAPIKeyNotFound is returned when no active key matches a hash.
var ErrAPIKeyNotFound = apperr.New(apperr.KindUnauthenticated, apperr.CodeUnauthorized, "api key not found")

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository returns an APIKeyRepository that uses db.
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	rows, err := r.db.q(ctx).Query(ctx, getAPIKeyByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	k, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[auth.APIKeyInfo])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &k, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKeyInfo) error {
	_, err := r.db.q(ctx).Exec(ctx, createAPIKeySQL, key.ID, key.KeyHash, key.Name, key.Scopes)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperr.New(apperr.KindConflict, apperr.CodeDuplicate, "api key already exists")
		}
		return fmt.Errorf("creating api key %q: %w", key.Name, err)
	}
	return nil
}
