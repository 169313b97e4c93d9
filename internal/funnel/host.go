// internal/funnel/host.go
package funnel

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lead-funnel/internal/abtest"
	"lead-funnel/internal/common/errors"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/delivery"
	"lead-funnel/internal/models"
)

// View is the page a hosted session is looking at.
type View string

const (
	ViewHome       View = "home"
	ViewOnboarding View = "onboarding"
)

// Host owns the live capture sessions and the home/onboarding navigation
// around them. Returning home always discards the session and its lead and
// starts a fresh one at the email step.
type Host struct {
	mu      sync.Mutex
	entries map[string]*hostEntry

	deps       Deps
	logger     logger.Logger
	sessionTTL time.Duration
	clock      func() time.Time
	newID      func() string
}

type hostEntry struct {
	session  *Session
	view     View
	lastSeen time.Time
}

// NewHost builds a Host. A non-positive sessionTTL disables idle expiry.
func NewHost(deps Deps, sessionTTL time.Duration, log logger.Logger) *Host {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Host{
		entries:    make(map[string]*hostEntry),
		deps:       deps,
		logger:     log.WithFields(map[string]interface{}{"component": "funnel-host"}),
		sessionTTL: sessionTTL,
		clock:      clock,
		newID:      uuid.NewString,
	}
}

// StartSession creates a new session for the visitor and returns it.
func (h *Host) StartSession(visitorID string, meta delivery.Meta) *Session {
	id := h.newID()
	session := NewSession(id, visitorID, meta, h.deps)

	h.mu.Lock()
	h.entries[id] = &hostEntry{session: session, view: ViewHome, lastSeen: h.clock()}
	h.mu.Unlock()

	h.logger.Info("capture session started", map[string]interface{}{
		"sessionId": id,
		"visitorId": visitorID,
	})
	return session
}

// Get returns the session by id and refreshes its idle timer.
func (h *Host) Get(sessionID string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	entry.lastSeen = h.clock()
	return entry.session, nil
}

// ViewOf returns the current page for the session.
func (h *Host) ViewOf(sessionID string) (View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sessionID]
	if !ok {
		return "", errors.NewSessionNotFoundError(sessionID)
	}
	return entry.view, nil
}

// ViewOnboarding navigates a completed session to the onboarding preview and
// attributes the view to the visitor's headline variant.
func (h *Host) ViewOnboarding(ctx context.Context, sessionID string) (*models.LeadRecord, error) {
	h.mu.Lock()
	entry, ok := h.entries[sessionID]
	if !ok {
		h.mu.Unlock()
		return nil, errors.NewSessionNotFoundError(sessionID)
	}
	session := entry.session
	h.mu.Unlock()

	lead := session.Lead()
	if lead == nil {
		return nil, errors.NewInvalidTransitionError(string(session.Snapshot().Step), "viewOnboarding")
	}

	h.mu.Lock()
	entry.view = ViewOnboarding
	entry.lastSeen = h.clock()
	h.mu.Unlock()

	h.deps.AB.TrackConversion(ctx, session.VisitorID(), abtest.ConversionOnboardingView)
	return lead, nil
}

// ReturnHome discards the session state and replaces it with a fresh session
// at the email step. The old lead is gone; the webhook already has it.
func (h *Host) ReturnHome(sessionID string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sessionID]
	if !ok {
		return nil, errors.NewSessionNotFoundError(sessionID)
	}

	old := entry.session
	fresh := NewSession(sessionID, old.VisitorID(), old.meta, h.deps)
	entry.session = fresh
	entry.view = ViewHome
	entry.lastSeen = h.clock()

	h.logger.Info("session returned home, state discarded", map[string]interface{}{
		"sessionId": sessionID,
	})
	return fresh, nil
}

// Len reports the number of live sessions.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Sweep drops sessions idle past the TTL and returns how many were dropped.
func (h *Host) Sweep() int {
	if h.sessionTTL <= 0 {
		return 0
	}

	cutoff := h.clock().Add(-h.sessionTTL)

	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for id, entry := range h.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(h.entries, id)
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Info("swept idle sessions", map[string]interface{}{
			"dropped":   dropped,
			"remaining": len(h.entries),
		})
	}
	return dropped
}

// RunSweeper sweeps on the interval until the context is cancelled.
func (h *Host) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}
