// Package postgres reads admission access lists from the backing store.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fd1az/swap-quoter/internal/apperror"
)

// Querier is the subset of pgxpool.Pool the store uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads the IP blacklist and API keys. It never writes.
type Store struct {
	db Querier
}

// NewStore creates a store over db.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// BlacklistedIPs lists every blacklisted address.
func (s *Store) BlacklistedIPs(ctx context.Context) ([]string, error) {
	return s.strings(ctx, "blacklisted ips", `SELECT ip FROM blacklisted_ips`)
}

// APIKeys lists keys that have not been revoked.
func (s *Store) APIKeys(ctx context.Context) ([]string, error) {
	return s.strings(ctx, "api keys", `SELECT key FROM api_keys WHERE revoked_at IS NULL`)
}

func (s *Store) strings(ctx context.Context, what, sql string) ([]string, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeStoreQueryFailed, "query "+what, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperror.Internal(apperror.CodeStoreQueryFailed, "scan "+what, err)
	}
	return out, nil
}
