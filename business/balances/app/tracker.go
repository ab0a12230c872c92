// Package app contains the balance tracker: a best-effort fresh view of the
// free balances of every connected market maker.
package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fd1az/swap-quoter/business/statechain/domain"
	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// BalanceSource performs the bulk balance query.
type BalanceSource interface {
	FreeBalances(ctx context.Context, accounts []string) (domain.Balances, error)
}

// Config holds tracker settings.
type Config struct {
	Attempts  int           // bulk query attempts per refresh, no delay between them
	Freshness time.Duration // snapshot age after which a read refreshes
}

// DefaultConfig returns 5 attempts and a 10s freshness window.
func DefaultConfig() Config {
	return Config{Attempts: 5, Freshness: 10 * time.Second}
}

// Tracker keeps the latest balance snapshot of the monitored accounts.
type Tracker struct {
	source      BalanceSource
	config      Config
	logger      logger.LoggerInterface
	instruments *metrics.Instruments
	now         func() time.Time

	mu        sync.Mutex
	accounts  map[string]struct{}
	snapshot  domain.Balances
	fetchedAt time.Time // zero until a refresh succeeds
	seq       uint64

	// refreshes is keyed by sequence number: readers join the refresh of
	// the latest seq while it runs.
	refreshes cache.Group[uint64, domain.Balances]
}

// NewTracker creates a tracker with no monitored accounts.
func NewTracker(source BalanceSource, cfg Config, log logger.LoggerInterface, instruments *metrics.Instruments) *Tracker {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if instruments == nil {
		instruments = metrics.NewNoopInstruments()
	}
	return &Tracker{
		source:      source,
		config:      cfg,
		logger:      log,
		instruments: instruments,
		now:         time.Now,
		accounts:    make(map[string]struct{}),
		snapshot:    make(domain.Balances),
	}
}

// Add starts monitoring account and refreshes in the background.
func (t *Tracker) Add(account string) {
	t.mu.Lock()
	t.accounts[account] = struct{}{}
	t.seq++
	t.refreshLocked()
	t.mu.Unlock()
}

// Remove stops monitoring account. Balances already fetched stay in the
// snapshot until the next refresh replaces it.
func (t *Tracker) Remove(account string) {
	t.mu.Lock()
	delete(t.accounts, account)
	t.mu.Unlock()
}

// Accounts returns the monitored accounts, sorted.
func (t *Tracker) Accounts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accountsLocked()
}

// Balances returns the snapshot when it is fresh, otherwise joins the
// refresh in flight or starts one. It never fails on upstream errors; only
// ctx ending aborts the wait.
func (t *Tracker) Balances(ctx context.Context) (domain.Balances, error) {
	t.mu.Lock()
	if !t.fetchedAt.IsZero() && t.now().Sub(t.fetchedAt) < t.config.Freshness {
		snap := t.snapshot
		t.mu.Unlock()
		return snap, nil
	}
	call := t.refreshLocked()
	t.mu.Unlock()

	return call.Wait(ctx)
}

func (t *Tracker) accountsLocked() []string {
	out := make([]string, 0, len(t.accounts))
	for a := range t.accounts {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// refreshLocked joins the refresh running for the current seq or starts
// one. Only the refresh holding the latest seq may publish its result.
func (t *Tracker) refreshLocked() *cache.Call[domain.Balances] {
	seq := t.seq
	accounts := t.accountsLocked()
	call, _ := t.refreshes.Do(seq, func() (domain.Balances, error) {
		return t.refresh(seq, accounts), nil
	})
	return call
}

func (t *Tracker) refresh(seq uint64, accounts []string) domain.Balances {
	ctx := context.Background()

	result, ok := t.fetch(ctx, accounts)
	t.instruments.BalanceRefresh(ctx, ok)

	t.mu.Lock()
	if seq == t.seq {
		t.snapshot = result
		if ok {
			t.fetchedAt = t.now()
		} else {
			t.fetchedAt = time.Time{}
		}
	}
	t.mu.Unlock()

	return result
}

func (t *Tracker) fetch(ctx context.Context, accounts []string) (domain.Balances, bool) {
	if len(accounts) == 0 {
		return make(domain.Balances), true
	}

	var lastErr error
	for attempt := 1; attempt <= t.config.Attempts; attempt++ {
		balances, err := t.source.FreeBalances(ctx, accounts)
		if err == nil {
			return balances, true
		}
		lastErr = err
		t.logger.Debug(ctx, "balance refresh attempt failed", "attempt", attempt, "error", err)
	}

	t.logger.Error(ctx, "balance refresh failed, serving empty balances",
		"attempts", t.config.Attempts,
		"accounts", len(accounts),
		"error", lastErr)
	return make(domain.Balances), false
}
