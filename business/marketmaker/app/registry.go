package app

import (
	"context"
	"sort"
	"sync"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/asset"
	"github.com/fd1az/swap-quoter/internal/logger"
	"github.com/fd1az/swap-quoter/internal/metrics"
)

// SessionObserver is notified when a session connects or disconnects.
type SessionObserver func(session *domain.Session, connected bool)

type peer struct {
	session *domain.Session
	conn    Conn
}

// Registry holds the live market maker sessions, one per account.
type Registry struct {
	tracker     AccountTracker
	log         logger.LoggerInterface
	instruments *metrics.Instruments
	observe     SessionObserver

	mu    sync.RWMutex
	peers map[string]peer
}

// NewRegistry creates a session registry. observe may be nil.
func NewRegistry(tracker AccountTracker, log logger.LoggerInterface, instruments *metrics.Instruments, observe SessionObserver) *Registry {
	if instruments == nil {
		instruments = metrics.NewNoopInstruments()
	}
	return &Registry{
		tracker:     tracker,
		log:         log,
		instruments: instruments,
		observe:     observe,
		peers:       make(map[string]peer),
	}
}

// Connect registers an authenticated session. A second connection for the
// same account supersedes the first, which is closed.
func (r *Registry) Connect(ctx context.Context, session *domain.Session, conn Conn) {
	r.mu.Lock()
	old, replaced := r.peers[session.AccountID]
	r.peers[session.AccountID] = peer{session: session, conn: conn}
	r.mu.Unlock()

	if replaced {
		old.conn.Close("superseded by a new connection")
		r.log.Info(ctx, "market maker session replaced", "account_id", session.AccountID)
	} else {
		r.tracker.Add(session.AccountID)
		r.instruments.SessionOpened(ctx)
		r.log.Info(ctx, "market maker connected",
			"account_id", session.AccountID,
			"client_version", session.ClientVersion,
			"beta", session.Beta)
	}
	if r.observe != nil {
		r.observe(session, true)
	}
}

// Disconnect removes the session if conn is still the account's current
// connection.
func (r *Registry) Disconnect(ctx context.Context, session *domain.Session, conn Conn) {
	r.mu.Lock()
	cur, ok := r.peers[session.AccountID]
	if !ok || cur.conn != conn {
		r.mu.Unlock()
		return
	}
	delete(r.peers, session.AccountID)
	r.mu.Unlock()

	r.tracker.Remove(session.AccountID)
	r.instruments.SessionClosed(ctx)
	r.log.Info(ctx, "market maker disconnected", "account_id", session.AccountID)
	if r.observe != nil {
		r.observe(session, false)
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Sessions returns the live sessions ordered by account.
func (r *Registry) Sessions() []*domain.Session {
	r.mu.RLock()
	out := make([]*domain.Session, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p.session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// eligible returns the sessions quoting every base, skipping beta sessions
// unless includeBeta.
func (r *Registry) eligible(bases []*asset.Asset, includeBeta bool) []peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []peer
	for _, p := range r.peers {
		if p.session.Beta && !includeBeta {
			continue
		}
		if p.session.Quotes(bases...) {
			out = append(out, p)
		}
	}
	return out
}
