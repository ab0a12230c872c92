// Package di contains dependency injection tokens for the state chain context.
package di

import (
	"github.com/fd1az/swap-quoter/business/statechain/app"
	"github.com/fd1az/swap-quoter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	StateChain = di.NewToken[app.StateChain]("statechain.StateChain")
)

// GetStateChain returns the shared state chain client.
func GetStateChain(c di.ServiceRegistry) app.StateChain {
	return di.GetToken(c, StateChain)
}
