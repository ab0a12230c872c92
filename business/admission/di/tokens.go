// Package di contains dependency injection tokens for the admission context.
package di

import (
	"github.com/gin-gonic/gin"

	"github.com/fd1az/swap-quoter/business/admission/app"
	"github.com/fd1az/swap-quoter/business/admission/infra/postgres"
	"github.com/fd1az/swap-quoter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	IPGuard       = di.NewToken[*app.IPGuard]("admission.IPGuard")
	APIKeyChecker = di.NewToken[*app.APIKeyChecker]("admission.APIKeyChecker")
	Middleware    = di.NewToken[gin.HandlerFunc]("admission.Middleware")
)

// Private dependency tokens - internal to admission module
var (
	Store = di.NewToken[*postgres.Store]("admission:store")
)

// Helper functions for type-safe access
func GetIPGuard(c di.ServiceRegistry) *app.IPGuard {
	return di.GetToken(c, IPGuard)
}

func GetAPIKeyChecker(c di.ServiceRegistry) *app.APIKeyChecker {
	return di.GetToken(c, APIKeyChecker)
}

func GetMiddleware(c di.ServiceRegistry) gin.HandlerFunc {
	return di.GetToken(c, Middleware)
}

func GetStore(c di.ServiceRegistry) *postgres.Store {
	return di.GetToken(c, Store)
}
