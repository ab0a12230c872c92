// Package httpapi serves the quote REST endpoint.
package httpapi

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fd1az/swap-quoter/business/quoting/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
)

// QuotePath is the quote endpoint.
const QuotePath = "/v2/quote"

// Quoter computes quotes.
type Quoter interface {
	Quote(ctx context.Context, req *domain.Request) (*domain.Result, error)
}

// QuoteHandler translates HTTP requests into quote requests.
type QuoteHandler struct {
	quoter Quoter
	assets *asset.Registry
	logger logger.LoggerInterface
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(quoter Quoter, assets *asset.Registry, log logger.LoggerInterface) *QuoteHandler {
	return &QuoteHandler{quoter: quoter, assets: assets, logger: log}
}

// Quote handles GET /v2/quote.
func (h *QuoteHandler) Quote(c *gin.Context) {
	req, err := h.parse(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.quoter.Quote(c.Request.Context(), req)
	if err != nil {
		if apperror.StatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error(c.Request.Context(), "quote failed", "error", err)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(res))
}

func (h *QuoteHandler) parse(c *gin.Context) (*domain.Request, error) {
	src, err := h.resolve(c.Query("srcChain"), c.Query("srcAsset"))
	if err != nil {
		return nil, err
	}
	dst, err := h.resolve(c.Query("destChain"), c.Query("destAsset"))
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(c.Query("amount"))
	if err != nil {
		return nil, err
	}

	req := &domain.Request{Src: src, Dst: dst, Amount: amount}

	if v := c.Query("brokerCommissionBps"); v != "" {
		bps, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, apperror.Validation(apperror.CodeInvalidInput, "invalid brokerCommissionBps")
		}
		req.BrokerCommissionBps = uint16(bps)
	}
	if req.DCAEnabled, err = parseBool(c.Query("dcaEnabled"), "dcaEnabled"); err != nil {
		return nil, err
	}
	if req.IsOnChain, err = parseBool(c.Query("isOnChain"), "isOnChain"); err != nil {
		return nil, err
	}
	return req, nil
}

func (h *QuoteHandler) resolve(chain, symbol string) (*asset.Asset, error) {
	if chain == "" || symbol == "" {
		return nil, apperror.Validation(apperror.CodeInvalidAsset, "chain and asset are required")
	}
	a, ok := h.assets.Resolve(asset.ChainAsset{Chain: asset.Chain(chain), Asset: strings.ToUpper(symbol)})
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidAsset, chain+"."+symbol)
	}
	return a, nil
}

// parseAmount accepts a decimal or 0x-prefixed hex integer.
func parseAmount(s string) (*big.Int, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "amount must be a positive integer")
	}
	return v, nil
}

func parseBool(s, name string) (bool, error) {
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, apperror.Validation(apperror.CodeInvalidInput, "invalid "+name)
	}
	return v, nil
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.StatusCode(err), apperror.ToBody(err))
}
