// Package postgres reads market maker registrations from the backing store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
)

const selectMarketMaker = `SELECT account_id, public_key, beta, use_mev_factor, mev_factors
FROM market_makers
WHERE account_id = $1`

// Querier is the subset of pgxpool.Pool the store uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store looks up market makers by account id.
type Store struct {
	db Querier
}

// NewStore creates a store over db.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// MarketMaker returns the registration for accountID. mev_factors is a
// nullable jsonb object keyed by asset id.
func (s *Store) MarketMaker(ctx context.Context, accountID string) (*domain.MarketMaker, error) {
	var (
		mm      domain.MarketMaker
		factors []byte
	)
	err := s.db.QueryRow(ctx, selectMarketMaker, accountID).
		Scan(&mm.AccountID, &mm.PublicKey, &mm.Beta, &mm.UseMevFactor, &factors)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMarketMakerNotFound
	}
	if err != nil {
		return nil, apperror.Internal(apperror.CodeStoreQueryFailed, "market maker "+accountID, err)
	}

	if len(factors) > 0 {
		if err := json.Unmarshal(factors, &mm.MevFactors); err != nil {
			return nil, apperror.Internal(apperror.CodeStoreQueryFailed, "mev factors of "+accountID, err)
		}
	}
	if mm.MevFactors == nil {
		mm.MevFactors = map[asset.InternalAsset]int32{}
	}
	return &mm, nil
}
