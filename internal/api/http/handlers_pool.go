package apihttp

import "net/http"

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "pool manager is not configured")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Snapshot())
}

// handleMemoryPressure lets the host platform (or an operator) force the
// pool to shed roughly half of its cached players.
func (s *Server) handleMemoryPressure(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "pool manager is not configured")
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.pool.HandleMemoryPressure()
	writeJSON(w, http.StatusOK, s.pool.Snapshot())
}

func (s *Server) handlePoolStopAll(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "pool manager is not configured")
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.pool.StopAll()
	writeJSON(w, http.StatusOK, s.pool.Snapshot())
}
