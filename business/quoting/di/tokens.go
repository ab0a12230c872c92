// Package di contains dependency injection tokens for the quoting context.
package di

import (
	"github.com/gin-gonic/gin"

	"github.com/fd1az/swap-quoter/business/quoting/app"
	"github.com/fd1az/swap-quoter/business/quoting/infra/prices"
	"github.com/fd1az/swap-quoter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("quoting.Orchestrator")
	Router       = di.NewToken[*gin.Engine]("quoting.Router")
)

// Private dependency tokens - internal to quoting module
var (
	Prices = di.NewToken[*prices.Client]("quoting:prices")
)

func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetRouter(c di.ServiceRegistry) *gin.Engine {
	return di.GetToken(c, Router)
}

func GetPrices(c di.ServiceRegistry) *prices.Client {
	return di.GetToken(c, Prices)
}
