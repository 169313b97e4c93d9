// internal/server/auth.go
package server

import "net/http"

// authMiddleware gates the dashboard behind the configured static token,
// taken from the query param or the X-Dashboard-Token header. An empty
// configured token disables the dashboard entirely.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DashboardToken == "" {
			http.Error(w, "Dashboard disabled", http.StatusNotFound)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			token = r.Header.Get("X-Dashboard-Token")
		}
		if token != s.cfg.DashboardToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
