package app

import (
	"context"
	"time"

	"github.com/fd1az/swap-quoter/business/admission/domain"
	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/ratelimit"
)

// ExemptFunc reports whether a caller bypasses rate limiting.
type ExemptFunc func(ctx context.Context, caller domain.Caller) bool

// IPGuard admits callers by IP: blacklisted IPs are always rejected,
// everyone else is subject to an optional fixed-window limit.
type IPGuard struct {
	blacklist *accessList
	limiter   *ratelimit.FixedWindow
	isExempt  ExemptFunc
}

// GuardOption configures an IPGuard.
type GuardOption func(*IPGuard)

// WithRateLimit enables per-IP fixed-window limiting.
func WithRateLimit(limiter *ratelimit.FixedWindow) GuardOption {
	return func(g *IPGuard) { g.limiter = limiter }
}

// WithExemption lets trusted callers skip the rate limit (never the
// blacklist).
func WithExemption(fn ExemptFunc) GuardOption {
	return func(g *IPGuard) { g.isExempt = fn }
}

// NewIPGuard creates a guard whose blacklist reloads every interval.
func NewIPGuard(store BlacklistStore, interval time.Duration, log logger.LoggerInterface, cacheOpts []cache.Option, opts ...GuardOption) *IPGuard {
	g := &IPGuard{
		blacklist: newAccessList("ip_blacklist", interval, store.BlacklistedIPs, log, cacheOpts...),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides whether caller may proceed. The blacklist is consulted
// before the limiter so a blacklisted IP never consumes quota.
func (g *IPGuard) Check(ctx context.Context, caller domain.Caller) domain.Decision {
	if g.blacklist.contains(ctx, caller.IP) {
		return domain.RejectBlacklisted()
	}
	if g.limiter == nil {
		return domain.Allow()
	}
	if g.isExempt != nil && g.isExempt(ctx, caller) {
		return domain.Allow()
	}
	if retryAfter, ok := g.limiter.Check(caller.IP); !ok {
		return domain.RejectRateLimited(retryAfter)
	}
	return domain.Allow()
}

// Warm loads the blacklist without counting a request.
func (g *IPGuard) Warm(ctx context.Context) {
	g.blacklist.contains(ctx, "")
}

// Reload forces the next check to reload the blacklist.
func (g *IPGuard) Reload() {
	g.blacklist.invalidate()
}

// Dispose stops the limiter's sweep.
func (g *IPGuard) Dispose() {
	if g.limiter != nil {
		g.limiter.Dispose()
	}
}
