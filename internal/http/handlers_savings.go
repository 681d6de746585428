package http

import (
	"net/http"

	"budgettracker/internal/log"
	"budgettracker/internal/session"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, sess session.Session) {
	views, err := s.svc.Savings.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]any{"goals": goalViews(views)}).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req savingsGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := req.goal()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Savings.Create(r.Context(), sess, g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpCreate, "savings_goal", view.ID, sess.UserID)
	Created(goalView(view)).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Savings.Get(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(goalView(view)).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req savingsGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Savings.Update(r.Context(), sess, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpUpdate, "savings_goal", id, sess.UserID)
	OK(goalView(view)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Savings.Delete(r.Context(), sess, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpDelete, "savings_goal", id, sess.UserID)
	NoContent().Write(w)
}
