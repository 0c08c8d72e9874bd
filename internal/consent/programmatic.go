package consent

import (
	"context"
	"sync"
)

// ProgrammaticProvider is backed by an in-process queue of pre-set
// answers, for tests that need deterministic consent outcomes. Answers
// may be seeded globally (consumed FIFO regardless of session) or
// pinned to a specific session id, which takes priority. An empty queue
// denies, per the deny-by-default contract.
type ProgrammaticProvider struct {
	mu        sync.Mutex
	queue     []Result
	bySession map[string][]Result
}

// NewProgrammaticProvider returns an empty provider; seed it with
// Enqueue or EnqueueFor before use.
func NewProgrammaticProvider() *ProgrammaticProvider {
	return &ProgrammaticProvider{bySession: make(map[string][]Result)}
}

// Enqueue appends a canned answer to the global FIFO queue.
func (p *ProgrammaticProvider) Enqueue(result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, result)
}

// EnqueueFor appends a canned answer reserved for a specific session id.
func (p *ProgrammaticProvider) EnqueueFor(sessionID string, result Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bySession[sessionID] = append(p.bySession[sessionID], result)
}

// RequestConsent implements Provider.
func (p *ProgrammaticProvider) RequestConsent(_ context.Context, req Request) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pinned, ok := p.bySession[req.SessionID]; ok && len(pinned) > 0 {
		result := pinned[0]
		p.bySession[req.SessionID] = pinned[1:]
		return clampResult(result, req)
	}

	if len(p.queue) == 0 {
		return Result{Outcome: Denied}
	}
	result := p.queue[0]
	p.queue = p.queue[1:]
	return clampResult(result, req)
}

func clampResult(result Result, req Request) Result {
	if result.Outcome == Granted {
		result.GrantedDevices = clampToRequested(result.GrantedDevices, req.RequestedDevices)
	}
	return result
}
