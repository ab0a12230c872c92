package app

import (
	"context"
	"time"

	"github.com/fd1az/swap-quoter/business/admission/domain"
	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/logger"
)

// APIKeyChecker validates API keys against a periodically reloaded set.
type APIKeyChecker struct {
	keys *accessList
}

// NewAPIKeyChecker creates a checker reloading store every interval.
func NewAPIKeyChecker(store APIKeyStore, interval time.Duration, log logger.LoggerInterface, opts ...cache.Option) *APIKeyChecker {
	return &APIKeyChecker{keys: newAccessList("api_keys", interval, store.APIKeys, log, opts...)}
}

// IsValid reports whether key is a known key. The empty key is never valid.
func (c *APIKeyChecker) IsValid(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	return c.keys.contains(ctx, key)
}

// IsExempt adapts IsValid to the guard's exemption predicate.
func (c *APIKeyChecker) IsExempt(ctx context.Context, caller domain.Caller) bool {
	return c.IsValid(ctx, caller.APIKey)
}

// Warm loads the key set.
func (c *APIKeyChecker) Warm(ctx context.Context) {
	c.keys.contains(ctx, "")
}

// Reload forces the next check to reload the key set.
func (c *APIKeyChecker) Reload() {
	c.keys.invalidate()
}
