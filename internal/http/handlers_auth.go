package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"seguimiento/internal/activity"
	"seguimiento/internal/core"
	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionView is the client-side copy of a session, the same fields the
// ungrd_auth blob used to carry.
type sessionView struct {
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiration"`
	Token     string    `json:"token,omitempty"`
}

func viewOf(sess session.Session) sessionView {
	return sessionView{Email: sess.Email, IsAdmin: sess.IsAdmin, ExpiresAt: sess.ExpiresAt}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	email := sanitizeInput(req.Email)
	switch {
	case email == "":
		writeError(w, r, core.ErrEmptyEmail)
		return
	case req.Password == "":
		writeError(w, r, core.ErrEmptyPassword)
		return
	}

	ctx := r.Context()
	res, err := s.deps.Gateway.VerifyAccess(ctx, email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !res.Success {
		s.metrics.unauthorized.Add(1)
		msg := res.Message
		if msg == "" {
			msg = "Credenciales inválidas"
		}
		log.FromContext(ctx).WarnContext(ctx, "Login rejected",
			log.FieldComponent, log.ComponentSession,
			log.FieldEmail, email)
		_ = NewJSONResponse().Fail(http.StatusUnauthorized, msg).Write(w)
		return
	}

	isAdmin := false
	if adm, err := s.deps.Gateway.VerifyAdmin(ctx, email); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Admin check failed, continuing as regular user",
			log.FieldEmail, email, log.FieldError, err.Error())
	} else {
		isAdmin = adm.IsAdmin
	}

	sess, err := s.deps.Sessions.Create(ctx, email, isAdmin)
	if err != nil {
		writeError(w, r, fmt.Errorf("create session: %w", err))
		return
	}
	s.setCookie(w, sess)
	s.record(r, sess.Email, activity.ActionLogin, "Inicio de sesión exitoso")

	view := viewOf(sess)
	view.Token = sess.Token
	_ = NewJSONResponse().Message("Inicio de sesión exitoso").Data(view).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess session.Session) {
	s.record(r, sess.Email, activity.ActionLogout, "Usuario cerró sesión")
	s.deps.Edits.Discard(sess.Token)
	if err := s.deps.Sessions.Destroy(r.Context(), sess.Token); err != nil {
		writeError(w, r, fmt.Errorf("destroy session: %w", err))
		return
	}
	s.clearCookie(w)
	writeMessage(w, "Sesión cerrada")
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request, sess session.Session) {
	writeData(w, viewOf(sess))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, sess session.Session) {
	s.record(r, sess.Email, activity.ActionDashboardAccess, "Usuario accedió al dashboard")
	if sess.IsAdmin {
		s.record(r, sess.Email, activity.ActionAdminGranted, "Acceso admin automático para: "+sess.Email)
	}
	version, err := s.currentVersion(r.Context())
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Version unavailable", log.FieldError, err.Error())
	}
	writeData(w, map[string]any{
		"usuario": viewOf(sess),
		"version": version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, _ session.Session) {
	version, err := s.currentVersion(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"version": version})
}

// currentVersion serves the cached version, refreshing it from the gateway
// configuration. When the gateway is unreachable the persisted hint is
// returned instead.
func (s *Server) currentVersion(ctx context.Context) (string, error) {
	if v, ok := s.version.Get(session.HintVersion); ok {
		return v, nil
	}
	cfg, err := s.deps.Gateway.Config(ctx)
	if err == nil && cfg.Version != "" {
		s.rememberVersion(ctx, cfg.Version)
		return cfg.Version, nil
	}
	hint, herr := s.deps.Sessions.Store().Hint(ctx, session.HintVersion)
	if herr == nil && hint != "" {
		return hint, nil
	}
	return "", err
}

func (s *Server) rememberVersion(ctx context.Context, version string) {
	s.version.Set(session.HintVersion, version)
	if err := s.deps.Sessions.Store().SetHint(ctx, session.HintVersion, version); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Persisting version hint failed", log.FieldError, err.Error())
	}
}

// handleVerifyAdmin checks an email typed in the admin prompt and, when the
// gateway confirms it, grants admin rights to the current session.
func (s *Server) handleVerifyAdmin(w http.ResponseWriter, r *http.Request, sess session.Session) {
	email := sanitizeInput(r.URL.Query().Get("email"))
	if email == "" {
		email = sess.Email
	}
	s.record(r, sess.Email, activity.ActionAdminAttempt, "Intento de acceso admin con email: "+email)

	res, err := s.deps.Gateway.VerifyAdmin(r.Context(), email)
	if err != nil {
		s.record(r, sess.Email, activity.ActionAdminError, "Error en verificación admin: "+err.Error())
		writeError(w, r, err)
		return
	}
	if !res.IsAdmin {
		s.record(r, sess.Email, activity.ActionAdminDenied, "Acceso admin denegado para: "+email)
		writeData(w, map[string]bool{"isAdmin": false})
		return
	}

	if !sess.IsAdmin {
		if _, err := s.deps.Sessions.SetAdmin(r.Context(), sess, true); err != nil {
			writeError(w, r, fmt.Errorf("update session: %w", err))
			return
		}
	}
	s.record(r, sess.Email, activity.ActionAdminGranted, "Acceso admin autorizado para: "+email)
	writeData(w, map[string]bool{"isAdmin": true})
}
