// Package app contains the port definitions for the state chain context.
package app

import (
	"context"

	"github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/version"
)

// StateChain is the read-only view of the state chain node used by the
// quoter and the balance tracker.
type StateChain interface {
	// Environment returns pool and network fee parameters.
	Environment(ctx context.Context) (*domain.Environment, error)

	// RuntimeVersion returns the node's runtime as a semantic version.
	RuntimeVersion(ctx context.Context) (version.Semver, error)

	// SwapRate simulates a swap, optionally with extra limit orders.
	// JSON-RPC error replies surface as CodeStateChainRPCError.
	SwapRate(ctx context.Context, req domain.SwapRateRequest) (*domain.SwapRate, error)

	// FreeBalances queries every account in one batch. Any failed element
	// fails the whole call.
	FreeBalances(ctx context.Context, accounts []string) (domain.Balances, error)

	// Close releases the node connection.
	Close()
}
