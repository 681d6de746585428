package http

import (
	"bytes"
	"net/http"
	"strconv"

	"budgettracker/internal/core"
	"budgettracker/internal/export"
	"budgettracker/internal/log"
	"budgettracker/internal/session"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess session.Session) {
	q, err := ParseTransactionQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Transactions.List(r.Context(), sess, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(transactionPageView(page)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.transaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Transactions.Create(r.Context(), sess, t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpCreate, "transaction", created.ID, sess.UserID)
	Created(transactionView(created)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(transactionView(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.svc.Transactions.Update(r.Context(), sess, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpUpdate, "transaction", id, sess.UserID)
	OK(transactionView(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess session.Session) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), sess, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpDelete, "transaction", id, sess.UserID)
	NoContent().Write(w)
}

// handleExportCSV buffers the file so a failure can still produce a JSON
// error instead of a truncated download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, sess session.Session) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	n, err := s.svc.Transactions.ExportCSV(r.Context(), sess, f, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(s.now())+`"`)
	w.Header().Set("X-Export-Rows", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportSheet(w http.ResponseWriter, r *http.Request, sess session.Session) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.svc.Transactions.ExportSheet(r.Context(), sess, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]string{"range": ref}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, sess session.Session) {
	cats, err := s.svc.Transactions.Categories(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats.Income, cats.Expense, cats.All = orEmpty(cats.Income), orEmpty(cats.Expense), orEmpty(cats.All)
	OK(cats).Write(w)
}

func (s *Server) handleCategoriesByType(w http.ResponseWriter, r *http.Request, sess session.Session) {
	typ, err := core.ParseTransactionType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, core.Invalid("type", err))
		return
	}
	cats, err := s.svc.Transactions.CategoriesByType(r.Context(), sess, typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string][]string{"categories": orEmpty(cats)}).Write(w)
}
