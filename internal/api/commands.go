package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/fleetlock/internal/audit"
)

// handleListCommands returns the command log, newest first.
//
// Query parameters:
//   - device, code, outcome: exact-match filters
//   - limit (default 50, max 500), offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "command log is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Device:  q.Get("device"),
		Code:    q.Get("code"),
		Outcome: q.Get("outcome"),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command log", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
