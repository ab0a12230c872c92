// Package app contains the admission control services.
package app

import "context"

// BlacklistStore lists blacklisted IP addresses.
type BlacklistStore interface {
	BlacklistedIPs(ctx context.Context) ([]string, error)
}

// APIKeyStore lists currently valid API keys.
type APIKeyStore interface {
	APIKeys(ctx context.Context) ([]string, error)
}
