// Package di contains dependency injection tokens for the market maker context.
package di

import (
	"github.com/fd1az/swap-quoter/business/marketmaker/app"
	"github.com/fd1az/swap-quoter/business/marketmaker/infra/postgres"
	"github.com/fd1az/swap-quoter/business/marketmaker/infra/ws"
	"github.com/fd1az/swap-quoter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Exchange = di.NewToken[*app.Exchange]("marketmaker.Exchange")
	Registry = di.NewToken[*app.Registry]("marketmaker.Registry")
	Handler  = di.NewToken[*ws.Handler]("marketmaker.Handler")
)

// Private dependency tokens - internal to market maker module
var (
	Store         = di.NewToken[*postgres.Store]("marketmaker:store")
	Authenticator = di.NewToken[*app.Authenticator]("marketmaker:authenticator")
)

func GetExchange(c di.ServiceRegistry) *app.Exchange {
	return di.GetToken(c, Exchange)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetHandler(c di.ServiceRegistry) *ws.Handler {
	return di.GetToken(c, Handler)
}

func GetStore(c di.ServiceRegistry) *postgres.Store {
	return di.GetToken(c, Store)
}

func GetAuthenticator(c di.ServiceRegistry) *app.Authenticator {
	return di.GetToken(c, Authenticator)
}
