package http

import (
	"net/http"

	"seguimiento/internal/activity"
	"seguimiento/internal/core"
	"seguimiento/internal/logfeed"
	"seguimiento/internal/session"
)

// handleLogs serves the latest polled activity feed, optionally restricted
// to one email. Without a feed the gateway is read on each request.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, sess session.Session) {
	s.record(r, sess.Email, activity.ActionLogsAccess, "Usuario accedió al registro de actividad")

	var snap logfeed.Snapshot
	if s.deps.Feed != nil {
		snap = s.deps.Feed.Snapshot()
	} else {
		entries, err := s.deps.Gateway.RecentActivity(r.Context(), logfeed.DefaultLimit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		snap = logfeed.NewSnapshot(entries, s.now())
	}
	if snap.Entries == nil {
		snap.Entries = []core.LogEntry{}
	}
	writeData(w, snap.Filter(sanitizeInput(r.URL.Query().Get("email"))))
}
