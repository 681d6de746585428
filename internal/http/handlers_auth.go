package http

import (
	"errors"
	"net/http"
	"strings"

	"budgettracker/internal/core"
	"budgettracker/internal/log"
	"budgettracker/internal/session"
)

// authedHandler is a handler that runs with a resolved session.
type authedHandler func(w http.ResponseWriter, r *http.Request, sess session.Session)

// requireAuth resolves the session cookie, refreshing it with the current
// expiry, and rejects the request with 401 when it is missing or stale.
func (s *Server) requireAuth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		sess, err := s.svc.Accounts.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrUnauthenticated) {
				http.SetCookie(w, s.expiredCookie())
			}
			writeError(w, r, err)
			return
		}

		http.SetCookie(w, s.sessionCookie(sess))
		ctx := session.NewContext(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		h(w, r.WithContext(ctx), sess)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, sess, err := s.svc.Accounts.Register(r.Context(), req.registration())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpCreate, "user", u.ID, u.ID)
	Created(map[string]any{"user": userView(u), "session": sessionView(sess)}).
		Cookie(s.sessionCookie(sess)).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.svc.Accounts.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]any{"session": sessionView(sess)}).
		Cookie(s.sessionCookie(sess)).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if err := s.svc.Accounts.Logout(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Cookie(s.expiredCookie()).Write(w)
}

type forgotPasswordResponse struct {
	Message   string `json:"message"`
	Delivered bool   `json:"delivered"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Accounts.ForgotPassword(r.Context(), sanitizeInput(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("no account found for this email").Write(w)
			return
		}
		writeError(w, r, err)
		return
	}

	msg := "a reset link has been sent"
	if !res.Notification.Delivered {
		msg = "the reset link could not be sent, try again later"
	}
	OK(forgotPasswordResponse{Message: msg, Delivered: res.Notification.Delivered}).Write(w)
}

func (s *Server) handleShowReset(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PathValue("token"))
	u, err := s.svc.Accounts.CheckResetToken(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]any{"valid": true, "email": u.Email, "expiresAt": u.ResetTokenExpiry}).Write(w)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token := strings.TrimSpace(r.PathValue("token"))
	if err := s.svc.Accounts.ResetPassword(r.Context(), token, req.Password, req.ConfirmPassword); err != nil {
		writeError(w, r, err)
		return
	}
	OK(map[string]string{"message": "password updated, please log in"}).
		Cookie(s.expiredCookie()).
		Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, sess session.Session) {
	u, err := s.svc.Accounts.Profile(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(userView(u)).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, display, err := s.svc.Accounts.UpdateProfile(r.Context(), sess, req.update())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess.Display = display
	s.events.LogRecord(r.Context(), log.OpUpdate, "user", u.ID, u.ID)
	OK(map[string]any{"user": userView(u), "session": sessionView(sess)}).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.ChangePassword(r.Context(), sess, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, sess session.Session) {
	var req deleteAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.DeleteAccount(r.Context(), sess, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	s.events.LogRecord(r.Context(), log.OpDelete, "user", sess.UserID, sess.UserID)
	NoContent().Cookie(s.expiredCookie()).Write(w)
}
