// Package app contains the market maker authentication and RFQ services.
package app

import (
	"context"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	statechain "github.com/fd1az/swap-quoter/business/statechain/domain"
)

// MarketMakerStore looks up registered market makers. Unknown accounts
// return domain.ErrMarketMakerNotFound.
type MarketMakerStore interface {
	MarketMaker(ctx context.Context, accountID string) (*domain.MarketMaker, error)
}

// AccountTracker is told which accounts have live sessions.
type AccountTracker interface {
	Add(account string)
	Remove(account string)
}

// BalanceReader returns free balances of the tracked accounts.
type BalanceReader interface {
	Balances(ctx context.Context) (statechain.Balances, error)
}

// Conn is the transport half of a session.
type Conn interface {
	Send(ctx context.Context, env *domain.Envelope) error
	Close(reason string)
}
