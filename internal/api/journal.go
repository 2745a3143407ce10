package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleJournalRecent returns the most recent journal entries.
//
// Query parameters:
//   - limit: maximum entries to return (default 50, capped at 200)
func (s *Server) handleJournalRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event journal is not configured")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "failed to read journal")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleJournalBySession returns journal entries for one device session.
// A complete session has two entries, the arrival and the departure.
func (s *Server) handleJournalBySession(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event journal is not configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	entries, err := s.journal.BySession(r.Context(), sessionID, 0)
	if err != nil {
		s.logger.Error("journal query failed", "session_id", sessionID, "error", err)
		writeInternalError(w, "failed to read journal")
		return
	}
	if len(entries) == 0 {
		writeNotFound(w, "no journal entries for session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// parseLimit parses an optional limit query value. Empty means 0, which the
// journal store replaces with its default.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if limit < 0 {
		return 0, strconv.ErrRange
	}
	return limit, nil
}
