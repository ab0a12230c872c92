package ratelimit

import (
	"math"
	"sync"
	"time"
)

// FixedWindowConfig configures a FixedWindow limiter.
type FixedWindowConfig struct {
	Window      time.Duration
	MaxRequests int
}

type window struct {
	count int
	start time.Time
}

// FixedWindow counts requests per identity in fixed windows. Idle windows
// are swept every 5×Window so memory stays bounded.
type FixedWindow struct {
	cfg FixedWindowConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stop     chan struct{}
	stopOnce sync.Once
}

// FixedWindowOption customizes a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithClock overrides the clock used for window arithmetic.
func WithClock(now func() time.Time) FixedWindowOption {
	return func(f *FixedWindow) { f.now = now }
}

// NewFixedWindow creates the limiter and starts its sweep.
func NewFixedWindow(cfg FixedWindowConfig, opts ...FixedWindowOption) *FixedWindow {
	f := &FixedWindow{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	go f.sweepLoop(5 * cfg.Window)

	return f
}

// Check counts one request for id. It returns ok while id is within its
// quota; otherwise retryAfter holds the whole seconds until the window
// resets.
func (f *FixedWindow) Check(id string) (retryAfter int, ok bool) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	w, exists := f.windows[id]
	if !exists || now.Sub(w.start) >= f.cfg.Window {
		w = &window{start: now}
		f.windows[id] = w
	}
	w.count++

	if w.count <= f.cfg.MaxRequests {
		return 0, true
	}

	remaining := w.start.Add(f.cfg.Window).Sub(now)
	return int(math.Ceil(remaining.Seconds())), false
}

// Len returns the number of tracked identities.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

func (f *FixedWindow) sweepLoop(every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}

// Sweep drops windows that ended at least one window length ago.
func (f *FixedWindow) Sweep() {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	for id, w := range f.windows {
		if now.Sub(w.start) >= f.cfg.Window {
			delete(f.windows, id)
		}
	}
}

// Dispose stops the sweep and clears all state. Safe to call twice.
func (f *FixedWindow) Dispose() {
	f.stopOnce.Do(func() { close(f.stop) })

	f.mu.Lock()
	f.windows = make(map[string]*window)
	f.mu.Unlock()
}
