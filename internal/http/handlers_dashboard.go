package http

import (
	"context"
	"net/http"
	"time"

	"budgettracker/internal/session"
)

const dashboardTimeout = 7 * time.Second

// handleDashboard serves the month overview, the current month unless
// year and month are given.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess session.Session) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	o, err := s.svc.Dashboard.Overview(ctx, sess, p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(overviewView(o)).Write(w)
}
