package httpapi

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/business/quoting/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
)

type quoterFunc func(ctx context.Context, req *domain.Request) (*domain.Result, error)

func (f quoterFunc) Quote(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	return f(ctx, req)
}

func sampleResult(req *domain.Request) *domain.Result {
	regular := &domain.Quote{
		Type:   domain.QuoteRegular,
		Src:    req.Src,
		Dst:    req.Dst,
		Input:  req.Amount,
		Output: big.NewInt(25_000_000_000),
		Fees: []domain.Fee{
			{Type: domain.FeeNetwork, Asset: asset.USDC, Amount: big.NewInt(25_000_000)},
			{Type: domain.FeeLiquidity, Asset: req.Src, Amount: big.NewInt(500_000_000_000_000)},
		},
		SlippagePercent:   decimal.RequireFromString("1.5"),
		EstimatedDuration: 42 * time.Second,
	}
	res := &domain.Result{Regular: regular}
	if req.DCAEnabled {
		dca := *regular
		dca.Type = domain.QuoteDCA
		dca.DCA = &domain.DCAParams{NumberOfChunks: 5, ChunkSize: big.NewInt(2e17), ChunkIntervalBlocks: 2}
		res.DCA = &dca
	}
	return res
}

func newTestRouter(t *testing.T, q Quoter, admission gin.HandlerFunc, mm http.Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(RouterConfig{
		ServiceName:     "test",
		Admission:       admission,
		MarketMakerPath: "/ws/market-maker",
		MarketMakers:    mm,
	}, NewQuoteHandler(q, asset.DefaultRegistry(), logger.NewNop()))
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestQuoteHandler_Success(t *testing.T) {
	var got *domain.Request
	r := newTestRouter(t, quoterFunc(func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
		got = req
		return sampleResult(req), nil
	}), nil, nil)

	rec := get(r, QuotePath+"?srcChain=Ethereum&srcAsset=eth&destChain=Ethereum&destAsset=USDC&amount=0xde0b6b3a7640000&brokerCommissionBps=25&dcaEnabled=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got.Src != asset.ETH || got.Dst != asset.USDC || got.Amount.String() != "1000000000000000000" ||
		got.BrokerCommissionBps != 25 || !got.DCAEnabled || got.IsOnChain {
		t.Errorf("parsed request = %+v", got)
	}

	var body []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("quotes = %d, want 2", len(body))
	}
	regular := body[0]
	if regular["type"] != "REGULAR" || regular["egressAmount"] != "25000000000" || regular["depositAmount"] != "1000000000000000000" {
		t.Errorf("regular = %v", regular)
	}
	if regular["recommendedSlippageTolerancePercent"] != 1.5 || regular["estimatedDurationSeconds"] != 42.0 {
		t.Errorf("regular = %v", regular)
	}
	if _, ok := regular["dcaParams"]; ok {
		t.Error("regular quote carries dca params")
	}
	fees := regular["includedFees"].([]any)
	fee := fees[0].(map[string]any)
	if fee["type"] != "NETWORK" || fee["chain"] != "Ethereum" || fee["asset"] != "USDC" || fee["amount"] != "25000000" {
		t.Errorf("fee = %v", fee)
	}
	dca := body[1]["dcaParams"].(map[string]any)
	if dca["numberOfChunks"] != 5.0 || dca["chunkSize"] != "200000000000000000" {
		t.Errorf("dca = %v", dca)
	}
}

func TestQuoteHandler_Errors(t *testing.T) {
	liquidity := quoterFunc(func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity)
	})
	unreachable := quoterFunc(func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
		t.Error("quoter called for an invalid request")
		return nil, nil
	})

	tests := []struct {
		name       string
		quoter     Quoter
		query      string
		wantStatus int
		wantCode   string
	}{
		{"unknown asset", unreachable, "?srcChain=Ethereum&srcAsset=DOGE&destChain=Ethereum&destAsset=USDC&amount=1", 400, "INVALID_ASSET"},
		{"missing chain", unreachable, "?srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1", 400, "INVALID_ASSET"},
		{"bad amount", unreachable, "?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1.5", 400, "INVALID_AMOUNT"},
		{"negative amount", unreachable, "?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=-1", 400, "INVALID_AMOUNT"},
		{"bad commission", unreachable, "?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1&brokerCommissionBps=70000", 400, "INVALID_INPUT"},
		{"bad flag", unreachable, "?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1&dcaEnabled=maybe", 400, "INVALID_INPUT"},
		{"no liquidity", liquidity, "?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1", 400, "INSUFFICIENT_LIQUIDITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newTestRouter(t, tt.quoter, nil, nil), QuotePath+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			var body apperror.Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode || body.Message == "" {
				t.Errorf("body = %+v, want code %s", body, tt.wantCode)
			}
		})
	}
}

func TestQuoteHandler_LiquidityMessage(t *testing.T) {
	r := newTestRouter(t, quoterFunc(func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity)
	}), nil, nil)

	rec := get(r, QuotePath+"?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1")
	var body apperror.Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "insufficient liquidity" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRouter_AdmissionAndMarketMakerRoute(t *testing.T) {
	admission := func(c *gin.Context) {
		if c.GetHeader("x-api-key") == "" {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
	mm := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r := newTestRouter(t, quoterFunc(func(ctx context.Context, req *domain.Request) (*domain.Result, error) {
		return sampleResult(req), nil
	}), admission, mm)

	if rec := get(r, QuotePath+"?srcChain=Ethereum&srcAsset=ETH&destChain=Ethereum&destAsset=USDC&amount=1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("quote without key = %d, want 429", rec.Code)
	}
	if rec := get(r, "/ws/market-maker"); rec.Code != http.StatusTeapot {
		t.Errorf("market maker route = %d, want it to bypass admission", rec.Code)
	}
}
