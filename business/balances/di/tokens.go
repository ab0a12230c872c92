// Package di contains dependency injection tokens for the balances context.
package di

import (
	"github.com/fd1az/swap-quoter/business/balances/app"
	"github.com/fd1az/swap-quoter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Tracker = di.NewToken[*app.Tracker]("balances.Tracker")
)

// GetTracker returns the shared balance tracker.
func GetTracker(c di.ServiceRegistry) *app.Tracker {
	return di.GetToken(c, Tracker)
}
