// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/swap-quoter/internal/asset"
)

// DCA chunk-size precedence policies.
const (
	PrecedenceBuyFirst  = "buy_first"
	PrecedenceSellFirst = "sell_first"
)

// Config holds all application configuration. It is loaded once at start-up
// and handed to constructors; nothing mutates it afterwards.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	StateChain  StateChainConfig  `mapstructure:"statechain"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Admission   AdmissionConfig   `mapstructure:"admission"`
	MarketMaker MarketMakerConfig `mapstructure:"market_maker"`
	Quoting     QuotingConfig     `mapstructure:"quoting"`
	Prices      PricesConfig      `mapstructure:"prices"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"tui_mode"`
}

// ServerConfig holds the quote API listener settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	HealthPort      int           `mapstructure:"health_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// StateChainConfig holds the state chain RPC node settings.
type StateChainConfig struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	EnvironmentTTL   time.Duration `mapstructure:"environment_ttl"`
	RuntimeTTL       time.Duration `mapstructure:"runtime_ttl"`
	BalanceAttempts  int           `mapstructure:"balance_attempts"`
	BalanceFreshness time.Duration `mapstructure:"balance_freshness"`
}

// DatabaseConfig holds the read-only backing store settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// AdmissionConfig holds rate limiting and access list settings.
type AdmissionConfig struct {
	RateLimitEnabled bool          `mapstructure:"rate_limit_enabled"`
	Window           time.Duration `mapstructure:"window"`
	MaxRequests      int           `mapstructure:"max_requests"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
}

// MarketMakerConfig holds the RFQ protocol settings.
type MarketMakerConfig struct {
	Path              string        `mapstructure:"path"`
	QuoteTimeout      time.Duration `mapstructure:"quote_timeout"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	MaxTimestampSkew  time.Duration `mapstructure:"max_timestamp_skew"`
	BetaEnabled       bool          `mapstructure:"beta_enabled"`
	MevFactorEnabled  bool          `mapstructure:"mev_factor_enabled"`
	MessagesPerSecond float64       `mapstructure:"messages_per_second"`
	MessageBurst      int           `mapstructure:"message_burst"`
	// Per remote IP.
	HandshakesPerSecond float64 `mapstructure:"handshakes_per_second"`
	HandshakeBurst      int     `mapstructure:"handshake_burst"`
}

// QuotingConfig holds the quote computation settings.
type QuotingConfig struct {
	RequestTimeout            time.Duration      `mapstructure:"request_timeout"`
	NetworkFeeHundredthPips   uint32             `mapstructure:"network_fee_hundredth_pips"`
	MaxBrokerCommissionBps    uint16             `mapstructure:"max_broker_commission_bps"`
	LiquidityWarningThreshold float64            `mapstructure:"liquidity_warning_threshold"` // percent
	DefaultSlippagePercent    float64            `mapstructure:"default_slippage_percent"`
	SlippagePercent           map[string]float64 `mapstructure:"slippage_percent"` // "btc-usdc"
	DCA                       DCAConfig          `mapstructure:"dca"`
}

// DCAConfig holds chunk sizing settings. Asset keys are internal asset ids;
// viper lowercases them, so lookups go through the accessor methods.
type DCAConfig struct {
	DefaultChunkSizeUSD float64            `mapstructure:"default_chunk_size_usd"`
	BuyChunkSizeUSD     map[string]float64 `mapstructure:"buy_chunk_size_usd"`
	SellChunkSizeUSD    map[string]float64 `mapstructure:"sell_chunk_size_usd"`
	ChunkIntervalBlocks uint32             `mapstructure:"chunk_interval_blocks"`
	MaxChunks           int                `mapstructure:"max_chunks"`
	Precedence          string             `mapstructure:"precedence"`
}

// BuyChunkSize returns the configured buy-side chunk size for a.
func (c *DCAConfig) BuyChunkSize(a asset.InternalAsset) (decimal.Decimal, bool) {
	return lookupUSD(c.BuyChunkSizeUSD, a)
}

// SellChunkSize returns the configured sell-side chunk size for a.
func (c *DCAConfig) SellChunkSize(a asset.InternalAsset) (decimal.Decimal, bool) {
	return lookupUSD(c.SellChunkSizeUSD, a)
}

// DefaultChunkSize returns the global fallback chunk size.
func (c *DCAConfig) DefaultChunkSize() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultChunkSizeUSD)
}

// Slippage returns the recommended slippage for a pair, falling back to the
// default. Pairs are looked up in either order.
func (c *QuotingConfig) Slippage(src, dst asset.InternalAsset) decimal.Decimal {
	for _, key := range []string{pairKey(src, dst), pairKey(dst, src)} {
		if v, ok := c.SlippagePercent[key]; ok {
			return decimal.NewFromFloat(v)
		}
	}
	return decimal.NewFromFloat(c.DefaultSlippagePercent)
}

// LiquidityWarningThresholdDecimal returns the warning threshold in percent.
func (c *QuotingConfig) LiquidityWarningThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.LiquidityWarningThreshold)
}

func pairKey(a, b asset.InternalAsset) string {
	return strings.ToLower(string(a)) + "-" + strings.ToLower(string(b))
}

func lookupUSD(m map[string]float64, a asset.InternalAsset) (decimal.Decimal, bool) {
	v, ok := m[strings.ToLower(string(a))]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// PricesConfig holds the index price source settings.
type PricesConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // otlp-grpc, otlp-http, zipkin, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"` // key=value,key2=value2
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Headers parses OTLPHeaders.
func (c *TelemetryConfig) Headers() map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(c.OTLPHeaders, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

// Option overrides a key after the file and environment are read.
type Option func(v *viper.Viper)

// WithTUIMode forces app.tui_mode, as the serve --tui flag does.
func WithTUIMode(on bool) Option {
	return func(v *viper.Viper) {
		v.Set("app.tui_mode", on)
	}
}

// Load loads configuration from file and environment variables, then
// applies opts before validation.
func Load(configPath string, opts ...Option) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// Unprefixed aliases commonly set by deployment platforms.
	v.BindEnv("app.environment", "QUOTER_APP_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "QUOTER_APP_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("statechain.rpc_url", "QUOTER_STATECHAIN_RPC_URL", "RPC_NODE_HTTPS_URL")
	v.BindEnv("database.url", "QUOTER_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("telemetry.enabled", "QUOTER_TELEMETRY_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "QUOTER_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "QUOTER_TELEMETRY_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swap-quoter")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("statechain.request_timeout", "5s")
	v.SetDefault("statechain.environment_ttl", "6s")
	v.SetDefault("statechain.runtime_ttl", "60s")
	v.SetDefault("statechain.balance_attempts", 5)
	v.SetDefault("statechain.balance_freshness", "10s")

	v.SetDefault("database.max_conns", 4)

	v.SetDefault("admission.rate_limit_enabled", true)
	v.SetDefault("admission.window", "60s")
	v.SetDefault("admission.max_requests", 100)
	v.SetDefault("admission.refresh_interval", "60s")

	v.SetDefault("market_maker.path", "/ws/market-maker")
	v.SetDefault("market_maker.quote_timeout", "750ms")
	v.SetDefault("market_maker.handshake_timeout", "5s")
	v.SetDefault("market_maker.max_timestamp_skew", "30s")
	v.SetDefault("market_maker.beta_enabled", false)
	v.SetDefault("market_maker.mev_factor_enabled", false)
	v.SetDefault("market_maker.messages_per_second", 20)
	v.SetDefault("market_maker.message_burst", 40)
	v.SetDefault("market_maker.handshakes_per_second", 1)
	v.SetDefault("market_maker.handshake_burst", 5)

	v.SetDefault("quoting.request_timeout", "5s")
	v.SetDefault("quoting.network_fee_hundredth_pips", 1000) // 0.1%
	v.SetDefault("quoting.max_broker_commission_bps", 1000)
	v.SetDefault("quoting.liquidity_warning_threshold", 2)
	v.SetDefault("quoting.default_slippage_percent", 2)
	v.SetDefault("quoting.dca.default_chunk_size_usd", 2000)
	v.SetDefault("quoting.dca.chunk_interval_blocks", 2)
	v.SetDefault("quoting.dca.max_chunks", 50)
	v.SetDefault("quoting.dca.precedence", PrecedenceBuyFirst)

	v.SetDefault("prices.ttl", "10s")
	v.SetDefault("prices.timeout", "3s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-quoter")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StateChain.RPCURL == "" {
		return fmt.Errorf("statechain.rpc_url is required")
	}
	if c.StateChain.BalanceAttempts < 1 {
		return fmt.Errorf("statechain.balance_attempts must be at least 1")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Prices.BaseURL == "" {
		return fmt.Errorf("prices.base_url is required")
	}
	if c.Admission.RateLimitEnabled && (c.Admission.Window <= 0 || c.Admission.MaxRequests < 1) {
		return fmt.Errorf("admission.window and admission.max_requests must be positive")
	}
	if c.MarketMaker.QuoteTimeout <= 0 {
		return fmt.Errorf("market_maker.quote_timeout must be positive")
	}
	if c.Quoting.NetworkFeeHundredthPips > asset.HundredthPipDenominator {
		return fmt.Errorf("quoting.network_fee_hundredth_pips out of range: %d", c.Quoting.NetworkFeeHundredthPips)
	}
	return c.Quoting.DCA.Validate()
}

// Validate validates the DCA settings.
func (c *DCAConfig) Validate() error {
	if c.DefaultChunkSizeUSD <= 0 {
		return fmt.Errorf("quoting.dca.default_chunk_size_usd must be positive")
	}
	if c.MaxChunks < 1 {
		return fmt.Errorf("quoting.dca.max_chunks must be at least 1")
	}
	switch c.Precedence {
	case PrecedenceBuyFirst, PrecedenceSellFirst:
	default:
		return fmt.Errorf("invalid quoting.dca.precedence: %q", c.Precedence)
	}
	for name, tbl := range map[string]map[string]float64{"buy": c.BuyChunkSizeUSD, "sell": c.SellChunkSizeUSD} {
		for k, v := range tbl {
			if v <= 0 {
				return fmt.Errorf("quoting.dca.%s_chunk_size_usd[%s] must be positive", name, k)
			}
		}
	}
	return nil
}
