// Package rpc implements the state chain port over the node's JSON-RPC API.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/apm"
	"github.com/fd1az/swap-quoter/internal/apperror"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/circuitbreaker"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/version"
)

const (
	tracerName = "github.com/fd1az/swap-quoter/business/statechain/infra/rpc"
	meterName  = tracerName

	cacheEnvironment = "environment"
	cacheRuntime     = "runtime_version"

	methodEnvironment    = "cf_environment"
	methodRuntimeVersion = "state_getRuntimeVersion"
	methodFreeBalances   = "cf_free_balances"
	methodSwapRate       = "swap_rate"
)

// Config holds client settings.
type Config struct {
	URL            string
	RequestTimeout time.Duration
	EnvironmentTTL time.Duration
	RuntimeTTL     time.Duration
}

// Client talks to a state chain node. Environment and runtime version are
// cached; swap rates and balances always hit the node.
type Client struct {
	config   Config
	rpc      *gethrpc.Client
	registry *asset.Registry
	logger   logger.LoggerInterface

	cache    *cache.Keyed
	swapRate *version.Table[swapRateVariant]
	cb       *circuitbreaker.CircuitBreaker[json.RawMessage]

	tracer *apm.Tracer
	calls  metric.Int64Counter
}

// New dials the node. HTTP endpoints dial lazily, so New only fails on a
// malformed URL.
func New(ctx context.Context, cfg Config, registry *asset.Registry, log logger.LoggerInterface) (*Client, error) {
	rpcClient, err := gethrpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, apperror.New(apperror.CodeStateChainConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("dial "+cfg.URL))
	}

	c := &Client{
		config:   cfg,
		rpc:      rpcClient,
		registry: registry,
		logger:   log,
		cache:    cache.NewKeyed(),
		swapRate: newSwapRateTable(),
		tracer:   apm.NewTracer(tracerName),
	}

	c.calls, err = otel.Meter(meterName).Int64Counter(
		"statechain_rpc_calls_total",
		metric.WithDescription("State chain RPC calls by method and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("statechain-rpc")
	cbCfg.IsSuccessful = isHealthyReply
	c.cb = circuitbreaker.New[json.RawMessage](cbCfg)

	cache.Register(c.cache, cacheEnvironment, cfg.EnvironmentTTL, c.fetchEnvironment)
	cache.Register(c.cache, cacheRuntime, cfg.RuntimeTTL, c.fetchRuntimeVersion)

	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// Environment returns the cached cf_environment subset.
func (c *Client) Environment(ctx context.Context) (*domain.Environment, error) {
	return cache.Fetch[*domain.Environment](ctx, c.cache, cacheEnvironment)
}

// RuntimeVersion returns the cached runtime version.
func (c *Client) RuntimeVersion(ctx context.Context) (version.Semver, error) {
	return cache.Fetch[version.Semver](ctx, c.cache, cacheRuntime)
}

// SwapRate simulates req with the method the running runtime supports.
func (c *Client) SwapRate(ctx context.Context, req domain.SwapRateRequest) (*domain.SwapRate, error) {
	ctx, span := c.tracer.Start(ctx, "statechain.swap_rate",
		attribute.String("from", req.From.String()),
		attribute.String("to", req.To.String()),
		attribute.Int("additional_orders", len(req.AdditionalOrders)),
	)
	defer span.End()

	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "swap rate amount must be positive")
	}

	v, err := c.RuntimeVersion(ctx)
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	variant, err := c.swapRate.Resolve(methodSwapRate, v)
	if err != nil {
		span.Fail(err)
		return nil, apperror.New(apperror.CodeUnsupportedRuntime,
			apperror.WithCause(err),
			apperror.WithContext(v.String()))
	}
	span.Set(attribute.String("method", variant.method))

	raw, err := c.call(ctx, variant.method, variant.params(req)...)
	if err != nil {
		span.Fail(err)
		return nil, err
	}

	var res swapRateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, apperror.Internal(apperror.CodeStateChainRPCError, "decode "+variant.method, err)
	}

	rate := res.toDomain()
	span.Set(attribute.String("output", rate.Output.String()))
	return rate, nil
}

// FreeBalances fetches the free balances of accounts in one batch request.
func (c *Client) FreeBalances(ctx context.Context, accounts []string) (domain.Balances, error) {
	ctx, span := c.tracer.Start(ctx, "statechain.free_balances", attribute.Int("accounts", len(accounts)))
	defer span.End()

	out := make(domain.Balances, len(accounts))
	if len(accounts) == 0 {
		return out, nil
	}

	results := make([]map[asset.Chain]map[string]domain.U256, len(accounts))
	batch := make([]gethrpc.BatchElem, len(accounts))
	for i, account := range accounts {
		batch[i] = gethrpc.BatchElem{
			Method: methodFreeBalances,
			Args:   []any{account},
			Result: &results[i],
		}
	}

	_, err := c.cb.Execute(func() (json.RawMessage, error) {
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		return nil, c.rpc.BatchCallContext(callCtx, batch)
	})
	if err != nil {
		c.record(ctx, methodFreeBalances, err)
		span.Fail(err)
		return nil, classify(err, methodFreeBalances)
	}

	for i, elem := range batch {
		if elem.Error != nil {
			c.record(ctx, methodFreeBalances, elem.Error)
			span.Fail(elem.Error)
			return nil, apperror.New(apperror.CodeBalanceFetchFailed,
				apperror.WithCause(elem.Error),
				apperror.WithContext(accounts[i]))
		}
		out[accounts[i]] = c.toAccountBalances(ctx, results[i])
	}
	c.record(ctx, methodFreeBalances, nil)
	return out, nil
}

func (c *Client) toAccountBalances(ctx context.Context, raw map[asset.Chain]map[string]domain.U256) domain.AccountBalances {
	balances := make(domain.AccountBalances)
	for chain, bySymbol := range raw {
		for symbol, amount := range bySymbol {
			a, ok := c.registry.Resolve(asset.ChainAsset{Chain: chain, Asset: symbol})
			if !ok {
				c.logger.Debug(ctx, "skipping balance of unknown asset", "chain", chain, "asset", symbol)
				continue
			}
			balances[a.ID()] = amount.Big()
		}
	}
	return balances
}

type environmentResult struct {
	Swapping struct {
		NetworkFeeHundredthPips uint32 `json:"network_fee_hundredth_pips"`
	} `json:"swapping"`
	Pools struct {
		Fees map[asset.Chain]map[string]*struct {
			LimitOrderFeeHundredthPips uint32 `json:"limit_order_fee_hundredth_pips"`
		} `json:"fees"`
	} `json:"pools"`
}

func (c *Client) fetchEnvironment(ctx context.Context) (*domain.Environment, error) {
	raw, err := c.call(ctx, methodEnvironment)
	if err != nil {
		return nil, err
	}

	var res environmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, apperror.Internal(apperror.CodeStateChainRPCError, "decode "+methodEnvironment, err)
	}

	env := &domain.Environment{
		NetworkFeeHundredthPips: res.Swapping.NetworkFeeHundredthPips,
		PoolFees:                make(map[asset.InternalAsset]uint32),
	}
	for chain, bySymbol := range res.Pools.Fees {
		for symbol, pool := range bySymbol {
			if pool == nil {
				continue
			}
			a, ok := c.registry.Resolve(asset.ChainAsset{Chain: chain, Asset: symbol})
			if !ok {
				continue
			}
			env.PoolFees[a.ID()] = pool.LimitOrderFeeHundredthPips
		}
	}
	return env, nil
}

type runtimeVersionResult struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

func (c *Client) fetchRuntimeVersion(ctx context.Context) (version.Semver, error) {
	raw, err := c.call(ctx, methodRuntimeVersion)
	if err != nil {
		return version.Semver{}, err
	}

	var res runtimeVersionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return version.Semver{}, apperror.Internal(apperror.CodeStateChainRPCError, "decode "+methodRuntimeVersion, err)
	}
	v := version.FromSpecVersion(res.SpecVersion)
	c.logger.Debug(ctx, "state chain runtime", "spec_name", res.SpecName, "version", v.String())
	return v, nil
}

// call runs one request through the breaker and translates failures.
func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	raw, err := c.cb.Execute(func() (json.RawMessage, error) {
		callCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		var out json.RawMessage
		err := c.rpc.CallContext(callCtx, &out, method, params...)
		return out, err
	})
	c.record(ctx, method, err)
	if err != nil {
		return nil, classify(err, method)
	}
	return raw, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.RequestTimeout)
}

func (c *Client) record(ctx context.Context, method string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case isHealthyReply(err):
		outcome = "rpc_error"
	default:
		outcome = "transport_error"
	}
	c.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

// isHealthyReply keeps JSON-RPC error replies from tripping the breaker:
// the node answered, it just rejected the request.
func isHealthyReply(err error) bool {
	if err == nil {
		return true
	}
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr)
}

func classify(err error, method string) error {
	var rpcErr gethrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		return apperror.New(apperror.CodeStateChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: code %d", method, rpcErr.ErrorCode())))
	case apperror.GetCode(err) == apperror.CodeCircuitOpen:
		return err
	default:
		return apperror.External(apperror.CodeStateChainConnectionFailed, method, err)
	}
}
