package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig holds the routes mounted next to the quote endpoint.
type RouterConfig struct {
	ServiceName    string
	TrustedProxies []string
	// Admission guards the quote endpoint; nil admits everything.
	Admission gin.HandlerFunc
	// MarketMakerPath and MarketMakers mount the RFQ websocket endpoint.
	MarketMakerPath string
	MarketMakers    http.Handler
}

// NewRouter builds the public HTTP router.
func NewRouter(cfg RouterConfig, quotes *QuoteHandler) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery())

	quote := []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName)}
	if cfg.Admission != nil {
		quote = append(quote, cfg.Admission)
	}
	r.GET(QuotePath, append(quote, quotes.Quote)...)

	if cfg.MarketMakers != nil && cfg.MarketMakerPath != "" {
		r.GET(cfg.MarketMakerPath, gin.WrapH(cfg.MarketMakers))
	}
	return r, nil
}
