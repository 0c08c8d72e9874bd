package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/bnema/waymon/internal/capture"
	"github.com/bnema/waymon/internal/devicemodel"
	"github.com/bnema/waymon/internal/obs"
	"github.com/bnema/waymon/internal/ratelimit"
	"github.com/bnema/waymon/internal/sink"
)

// DefaultMaxSessions matches spec.md §6.3's max_sessions default.
const DefaultMaxSessions = 10

// Manager is the sole owner of every Session: a single concurrent map
// guarded by a sync.RWMutex (many concurrent readers, one writer at a
// time), plus the rate limiter and sink
// every session's hot path runs through. No other package holds a
// *Session; everything outside looks sessions up by ID.
type Manager struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	maxSessions int

	limiter *ratelimit.Limiter
	sink    sink.Sink
}

// NewManager constructs a Manager. maxSessions <= 0 falls back to
// DefaultMaxSessions.
func NewManager(maxSessions int, limiter *ratelimit.Limiter, snk sink.Sink) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		limiter:     limiter,
		sink:        snk,
	}
}

// Create registers a new session in the Created state. Returns
// ErrAlreadyExists if id is already registered, ErrCapacityExceeded if
// the manager is at maxSessions.
func (m *Manager) Create(idValue, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[idValue]; ok {
		return fmt.Errorf("create %q: %w", idValue, ErrAlreadyExists)
	}
	if len(m.sessions) >= m.maxSessions {
		return fmt.Errorf("create %q: %w", idValue, ErrCapacityExceeded)
	}

	m.sessions[idValue] = &Session{
		id:        NewID(idValue),
		appID:     appID,
		createdAt: time.Now(),
		state:     Created,
	}
	return nil
}

// SelectDevices records the requested device set and transitions
// Created→DevicesSelected. Devices must be non-empty.
func (m *Manager) SelectDevices(idValue string, devices devicemodel.DeviceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[idValue]
	if !ok {
		return fmt.Errorf("select_devices %q: %w", idValue, ErrNotFound)
	}
	if s.state != Created {
		return fmt.Errorf("select_devices %q: %w (in %s)", idValue, ErrWrongState, s.state)
	}
	if devices.Empty() {
		return fmt.Errorf("select_devices %q: %w", idValue, ErrEmptyDeviceSet)
	}

	s.requestedDevices = devices
	s.state = DevicesSelected
	return nil
}

// Authorize applies a consent outcome and capture preparation result,
// deriving the session's final mode, and transitions
// DevicesSelected→Started. granted is clamped to the session's
// requested devices before it is stored, so the authorized set is always
// a subset of the requested set.
func (m *Manager) Authorize(idValue string, granted devicemodel.DeviceType, tier capture.Tier, handle capture.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[idValue]
	if !ok {
		return fmt.Errorf("authorize %q: %w", idValue, ErrNotFound)
	}
	if s.state != DevicesSelected {
		return fmt.Errorf("authorize %q: %w (in %s)", idValue, ErrWrongState, s.state)
	}

	s.authorizedDevices = granted & s.requestedDevices
	s.captureTier = tier
	s.captureHandle = handle
	if handle != nil {
		s.streamIDs = handle.StreamIDs()
	}
	s.mode = DeriveMode(s.authorizedDevices, handle != nil)
	s.state = Started
	s.startedAt = time.Now()

	if m.limiter != nil {
		m.limiter.Register(idValue)
	}
	return nil
}

// NotifyInput is the hot path described by spec.md §4.4: lookup, state
// check, device-authorization check, rate-limit check, validation, then
// enqueue to the sink, in that order, with the first failure winning and
// no partial effects. The read lock is held for the entire call so that
// s.state/s.authorizedDevices can never be observed mid-mutation by a
// concurrent Close — every Session field write elsewhere in Manager
// happens under m.mu's write lock.
func (m *Manager) NotifyInput(idValue string, event devicemodel.InputEvent) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[idValue]
	if !ok {
		return fmt.Errorf("notify_input %q: %w", idValue, ErrNotFound)
	}

	if s.state != Started {
		return fmt.Errorf("notify_input %q: %w (in %s)", idValue, ErrWrongState, s.state)
	}

	class := event.DeviceClass()
	if !class.Subset(s.authorizedDevices) {
		s.unauthorizedDrops.Add(1)
		obs.NotifyActivity("DROP", fmt.Sprintf("session %s: unauthorized %s event", idValue, class))
		return fmt.Errorf("notify_input %q: %w", idValue, ErrUnauthorized)
	}

	if m.limiter != nil && m.limiter.Check(idValue, class) == ratelimit.Drop {
		s.rateLimitedDrops.Add(1)
		obs.NotifyActivity("DROP", fmt.Sprintf("session %s: rate limited %s event", idValue, class))
		return fmt.Errorf("notify_input %q: %w", idValue, ErrRateLimited)
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("notify_input %q: %w: %v", idValue, ErrInvalid, err)
	}

	if m.sink == nil {
		return nil
	}
	switch m.sink.Deliver(idValue, event) {
	case sink.Accepted:
		return nil
	case sink.Backpressured:
		s.rateLimitedDrops.Add(1)
		obs.NotifyActivity("DROP", fmt.Sprintf("session %s: sink backpressured", idValue))
		return fmt.Errorf("notify_input %q: %w (sink backpressured)", idValue, ErrRateLimited)
	default: // sink.Rejected
		return fmt.Errorf("notify_input %q: %w (sink closed)", idValue, ErrUnauthorized)
	}
}

// Close tears the session down: releases its capture handle, forgets
// its rate-limiter state, interns its id release, and removes it from
// the map. Idempotent — closing an unknown or already-closed id is a
// no-op, matching the state diagram's "close reachable from anywhere".
// The write lock is held across the whole teardown, including the
// capture handle release, so a concurrent NotifyInput holding the read
// lock always observes either the pre-close or fully-closed state, never
// a partially torn-down Session.
func (m *Manager) Close(idValue string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[idValue]
	if !ok {
		return
	}
	delete(m.sessions, idValue)

	if s.captureHandle != nil {
		if err := s.captureHandle.Release(); err != nil {
			obs.Warnf("session %s: release capture handle: %v", idValue, err)
		}
	}
	if m.limiter != nil {
		m.limiter.Forget(idValue)
	}
	s.state = Closed
	s.id.Release()
}

// CloseAll transitions every live session to Closed, e.g. on bus
// disconnect (spec.md §7's Fatal error kind).
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// Snapshot returns a read-only copy of the session's state, or ok=false
// if idValue is unknown.
func (m *Manager) Snapshot(idValue string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[idValue]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// State returns the current lifecycle state of idValue, or ok=false if
// unknown.
func (m *Manager) State(idValue string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[idValue]
	if !ok {
		return 0, false
	}
	return s.state, true
}
