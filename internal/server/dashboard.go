// internal/server/dashboard.go
package server

import (
	"net/http"
	"strconv"
)

// handleDashboardReport aggregates the in-memory event queue into the
// running variant report with confidence intervals.
func (s *Server) handleDashboardReport(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		http.Error(w, "Memory sink disabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.ab.BuildReport(s.memory.Snapshot()))
}

// handleDashboardEvents dumps the tail of the in-memory event queue.
func (s *Server) handleDashboardEvents(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		http.Error(w, "Memory sink disabled", http.StatusServiceUnavailable)
		return
	}

	events := s.memory.Snapshot()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleDashboardSession exposes raw session state for funnel debugging.
func (s *Server) handleDashboardSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	view, _ := s.host.ViewOf(session.ID())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": session.ID(),
		"visitorId": session.VisitorID(),
		"view":      view,
		"state":     session.Snapshot(),
		"lead":      session.Lead(),
	})
}
