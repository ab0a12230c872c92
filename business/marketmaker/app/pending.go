package app

import (
	"sync"
	"time"

	"github.com/fd1az/swap-quoter/business/marketmaker/domain"
	"github.com/fd1az/swap-quoter/internal/apperror"
)

// pendingRequest collects the answers to one quote request.
type pendingRequest struct {
	legs     []*domain.Leg
	sessions map[string]*domain.Session // asked and not yet answered
	orders   []domain.Order
	answered int
	timer    *time.Timer
	done     chan struct{}
}

// pendingTable correlates quote responses with open requests. Each entry
// expires on its own timer.
type pendingTable struct {
	mu   sync.Mutex
	reqs map[string]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{reqs: make(map[string]*pendingRequest)}
}

func (p *pendingTable) open(id string, legs []*domain.Leg, sessions []*domain.Session, timeout time.Duration) *pendingRequest {
	req := &pendingRequest{
		legs:     legs,
		sessions: make(map[string]*domain.Session, len(sessions)),
		done:     make(chan struct{}),
	}
	for _, s := range sessions {
		req.sessions[s.AccountID] = s
	}

	p.mu.Lock()
	p.reqs[id] = req
	req.timer = time.AfterFunc(timeout, func() { p.finish(id) })
	p.mu.Unlock()
	return req
}

// finish closes the request and removes it from the table. It returns
// nil when the request was already finished.
func (p *pendingTable) finish(id string) *pendingRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishLocked(id)
}

func (p *pendingTable) finishLocked(id string) *pendingRequest {
	req, ok := p.reqs[id]
	if !ok {
		return nil
	}
	delete(p.reqs, id)
	req.timer.Stop()
	close(req.done)
	return req
}

// withdraw stops waiting for account, e.g. when the request could not be
// sent to it.
func (p *pendingTable) withdraw(id, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.reqs[id]
	if !ok {
		return
	}
	delete(req.sessions, account)
	if len(req.sessions) == 0 {
		p.finishLocked(id)
	}
}

// deliver records account's answer to request id. The request finishes
// early once every asked session has answered.
func (p *pendingTable) deliver(id, account string, resp *domain.QuoteResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.reqs[id]
	if !ok {
		return apperror.Validation(apperror.CodeMarketMakerMessage, "unknown or expired request "+id)
	}
	if _, ok := req.sessions[account]; !ok {
		return apperror.Validation(apperror.CodeMarketMakerMessage, "request "+id+" was not sent to this account or is already answered")
	}

	orders, err := domain.ParseOrders(account, req.legs, resp)
	if err != nil {
		return err
	}
	delete(req.sessions, account)
	req.orders = append(req.orders, orders...)
	req.answered++
	if len(req.sessions) == 0 {
		p.finishLocked(id)
	}
	return nil
}

func (p *pendingTable) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reqs)
}
