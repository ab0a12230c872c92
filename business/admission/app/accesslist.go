package app

import (
	"context"
	"time"

	"github.com/fd1az/swap-quoter/internal/cache"
	"github.com/fd1az/swap-quoter/internal/logger"
)

// accessList is a string set reloaded from a store at most once per
// interval. A failed load is logged and served as the empty set until the
// next interval.
type accessList struct {
	set *cache.Lazy[struct{}, map[string]struct{}]
}

func newAccessList(name string, interval time.Duration, load func(ctx context.Context) ([]string, error), log logger.LoggerInterface, opts ...cache.Option) *accessList {
	fetch := func(ctx context.Context, _ struct{}) (map[string]struct{}, error) {
		items, err := load(ctx)
		if err != nil {
			log.Error(ctx, "access list refresh failed, treating as empty", "list", name, "error", err)
			return map[string]struct{}{}, nil
		}
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			set[item] = struct{}{}
		}
		log.Debug(ctx, "access list refreshed", "list", name, "size", len(set))
		return set, nil
	}
	return &accessList{set: cache.NewLazy(interval, fetch, opts...)}
}

func (l *accessList) contains(ctx context.Context, item string) bool {
	set, err := l.set.Get(ctx, struct{}{})
	if err != nil {
		return false
	}
	_, ok := set[item]
	return ok
}

func (l *accessList) invalidate() {
	l.set.Invalidate(struct{}{})
}
