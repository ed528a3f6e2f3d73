package api

import (
	"net/http"

	"github.com/dgallion1/ronten/internal/ledger"
)

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	diag, err := s.deps.Content.Reload(r.Context())
	if err != nil {
		s.log.Error("reload failed", "error", err)
		jsonError(w, "reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Content.Diagnostics())
}

type studyTime struct {
	TodaySeconds     float64 `json:"today_seconds"`
	YesterdaySeconds float64 `json:"yesterday_seconds"`
	Today            string  `json:"today"`
	Yesterday        string  `json:"yesterday"`
}

func (s *Server) handleStudyTime(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		jsonError(w, "study time ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	today, yesterday, err := s.deps.Ledger.Totals(r.Context(), s.deps.Now())
	if err != nil {
		s.log.Error("read study time", "error", err)
		jsonError(w, "failed to read study time", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, studyTime{
		TodaySeconds:     today,
		YesterdaySeconds: yesterday,
		Today:            ledger.Format(today),
		Yesterday:        ledger.Format(yesterday),
	})
}

func (s *Server) handleRemoteStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Remote == nil {
		jsonError(w, "remote source not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"breaker": s.deps.Remote.BreakerState(),
		"stats":   s.deps.Remote.Stats().Snapshot(),
	})
}
