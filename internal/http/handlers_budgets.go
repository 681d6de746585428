package http

import (
	"net/http"

	"budgettracker/internal/log"
	"budgettracker/internal/session"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, sess session.Session) {
	views, err := s.svc.Budgets.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]any{"budgets": budgetViews(views)}).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := req.budget()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Create(r.Context(), sess, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpCreate, "budget", view.ID, sess.UserID)
	Created(budgetView(view)).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Get(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(budgetView(view)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Update(r.Context(), sess, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpUpdate, "budget", id, sess.UserID)
	OK(budgetView(view)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), sess, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpDelete, "budget", id, sess.UserID)
	NoContent().Write(w)
}

func (s *Server) handleBudgetStats(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.svc.Budgets.Stats(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(status).Write(w)
}

func (s *Server) handleBudgetDashboard(w http.ResponseWriter, r *http.Request, sess session.Session) {
	p, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Budgets.Dashboard(r.Context(), sess, p.Year, p.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(budgetDashboardView(d)).Write(w)
}
