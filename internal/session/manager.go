package session

import (
	"errors"
	"sync"
	"time"

	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/logger"
)

// State is a session's position in the inactivity state machine
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
	StateWarning  State = "warning"
	StateExpired  State = "expired"
)

// ErrUnknownSession is returned when operating on a session the manager is
// not tracking
var ErrUnknownSession = errors.New("unknown session")

// Manager tracks per-session inactivity. Each session runs a two-stage timer
// pair: a warning fires at (timeout - warning lead) of inactivity, forced
// expiry at the full timeout. Any activity or an explicit extension resets
// the pair; only one pair is ever live per session.
type Manager struct {
	cfg config.SessionConfig
	log *logger.Logger

	mu       sync.Mutex
	sessions map[string]*record
	closed   bool

	onWarning func(sessionID string)
	onExpire  func(sessionID string)
}

type record struct {
	state        State
	lastActivity time.Time
	// gen invalidates timers scheduled before the latest reset; a stale
	// AfterFunc firing after reset sees a mismatched gen and does nothing
	gen         uint64
	warnTimer   *time.Timer
	expireTimer *time.Timer
}

// NewManager creates a Manager with the given inactivity configuration
func NewManager(cfg config.SessionConfig, log *logger.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log.WithComponent("session"),
		sessions: make(map[string]*record),
	}
}

// OnWarning registers the callback invoked when a session enters the warning
// stage. Must be set before Start.
func (m *Manager) OnWarning(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// OnExpire registers the callback invoked when a session expires. The
// callback is responsible for the forced sign-out. Must be set before Start.
func (m *Manager) OnExpire(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// Start begins tracking a newly authenticated session
func (m *Manager) Start(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	if existing, ok := m.sessions[sessionID]; ok {
		existing.stopTimers()
	}

	rec := &record{state: StateActive, lastActivity: time.Now()}
	m.sessions[sessionID] = rec
	m.scheduleLocked(sessionID, rec)
}

// Touch records activity on a session, resetting it to active with a fresh
// timer pair. Unknown or expired sessions are ignored.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok || (rec.state != StateActive && rec.state != StateWarning) {
		return
	}
	rec.stopTimers()
	rec.state = StateActive
	rec.lastActivity = time.Now()
	m.scheduleLocked(sessionID, rec)
}

// Extend is the explicit "keep me signed in" action from the warning stage
func (m *Manager) Extend(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	rec.stopTimers()
	rec.state = StateActive
	rec.lastActivity = time.Now()
	m.scheduleLocked(sessionID, rec)
	return nil
}

// State returns the session's current state
func (m *Manager) State(sessionID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return StateInactive
	}
	return rec.state
}

// Remaining returns how long until forced expiry at the current activity level
func (m *Manager) Remaining(sessionID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return 0
	}
	remaining := m.cfg.Timeout - time.Since(rec.lastActivity)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Stop removes a session (sign-out)
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.sessions[sessionID]; ok {
		rec.stopTimers()
		delete(m.sessions, sessionID)
	}
}

// Close tears down all sessions and timers. The manager is unusable after.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.sessions {
		rec.stopTimers()
		delete(m.sessions, id)
	}
	m.closed = true
}

// scheduleLocked arms a fresh timer pair. Caller holds m.mu.
func (m *Manager) scheduleLocked(sessionID string, rec *record) {
	rec.gen++
	gen := rec.gen

	warnAfter := m.cfg.Timeout - m.cfg.WarningLead
	rec.warnTimer = time.AfterFunc(warnAfter, func() {
		m.fireWarning(sessionID, gen)
	})
	rec.expireTimer = time.AfterFunc(m.cfg.Timeout, func() {
		m.fireExpiry(sessionID, gen)
	})
}

func (m *Manager) fireWarning(sessionID string, gen uint64) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.gen != gen || rec.state != StateActive {
		m.mu.Unlock()
		return
	}
	rec.state = StateWarning
	fn := m.onWarning
	m.mu.Unlock()

	m.log.Info().Str("session_id", sessionID).Msg("session inactivity warning")
	if fn != nil {
		fn(sessionID)
	}
}

func (m *Manager) fireExpiry(sessionID string, gen uint64) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.gen != gen {
		m.mu.Unlock()
		return
	}
	// The record stays, marked expired, so a late request on this session
	// is refused rather than silently re-admitted. Stop frees it.
	rec.state = StateExpired
	rec.stopTimers()
	fn := m.onExpire
	m.mu.Unlock()

	m.log.Info().Str("session_id", sessionID).Msg("session expired from inactivity")
	if fn != nil {
		fn(sessionID)
	}
}

func (r *record) stopTimers() {
	if r.warnTimer != nil {
		r.warnTimer.Stop()
		r.warnTimer = nil
	}
	if r.expireTimer != nil {
		r.expireTimer.Stop()
		r.expireTimer = nil
	}
}
