package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-quoter/internal/asset"
)

const testYAML = `
statechain:
  rpc_url: http://localhost:9944
database:
  url: postgres://localhost/quoter
prices:
  base_url: http://localhost:9000
quoting:
  slippage_percent:
    btc-usdc: 0.5
  dca:
    sell_chunk_size_usd:
      Btc: 3000
    buy_chunk_size_usd:
      Eth: 5000
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MarketMaker.QuoteTimeout != 750*time.Millisecond {
		t.Errorf("quote timeout = %v", cfg.MarketMaker.QuoteTimeout)
	}
	if cfg.Admission.Window != time.Minute {
		t.Errorf("admission window = %v", cfg.Admission.Window)
	}
	if cfg.Quoting.DCA.MaxChunks != 50 || cfg.Quoting.DCA.Precedence != PrecedenceBuyFirst {
		t.Errorf("dca defaults = %+v", cfg.Quoting.DCA)
	}

	got, ok := cfg.Quoting.DCA.SellChunkSize(asset.Btc)
	if !ok || !got.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("SellChunkSize(Btc) = %s, %v", got, ok)
	}
	if _, ok := cfg.Quoting.DCA.SellChunkSize(asset.Eth); ok {
		t.Error("unexpected sell chunk size for Eth")
	}
	if got, ok := cfg.Quoting.DCA.BuyChunkSize(asset.Eth); !ok || !got.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("BuyChunkSize(Eth) = %s, %v", got, ok)
	}

	if s := cfg.Quoting.Slippage(asset.Usdc, asset.Btc); !s.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("slippage(Usdc, Btc) = %s", s)
	}
	if s := cfg.Quoting.Slippage(asset.Eth, asset.Usdc); !s.Equal(decimal.NewFromInt(2)) {
		t.Errorf("slippage fallback = %s", s)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUOTER_MARKET_MAKER_QUOTE_TIMEOUT", "1s")
	t.Setenv("DATABASE_URL", "postgres://override/quoter")

	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MarketMaker.QuoteTimeout != time.Second {
		t.Errorf("quote timeout = %v", cfg.MarketMaker.QuoteTimeout)
	}
	if cfg.Database.URL != "postgres://override/quoter" {
		t.Errorf("database url = %s", cfg.Database.URL)
	}
}

func TestLoad_TUIModeOption(t *testing.T) {
	path := writeConfig(t, testYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.TUIMode {
		t.Error("tui mode on without the option")
	}

	cfg, err = Load(path, WithTUIMode(true))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.App.TUIMode {
		t.Error("tui mode off with WithTUIMode(true)")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.StateChain.RPCURL = "" }},
		{"bad precedence", func(c *Config) { c.Quoting.DCA.Precedence = "random" }},
		{"zero max chunks", func(c *Config) { c.Quoting.DCA.MaxChunks = 0 }},
		{"negative chunk", func(c *Config) { c.Quoting.DCA.SellChunkSizeUSD = map[string]float64{"btc": -1} }},
		{"fee over 100%", func(c *Config) { c.Quoting.NetworkFeeHundredthPips = 2_000_000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, testYAML))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
