package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"seguimiento/internal/log"
	"seguimiento/internal/session"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	clientIPKey
)

// requestIDFromContext returns the id assigned by withRequestID.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// middleware chains logging context, request ids and the security layer
// around every route.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.withSecurityHeaders(next)
	h = log.Middleware(s.deps.Logger, log.ComponentHTTP, func(r *http.Request) []any {
		return []any{log.FieldRequestID, requestIDFromContext(r.Context())}
	})(h)
	return withRequestID(h)
}

// withRequestID assigns a request id and echoes it in X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := generateRequestID()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = context.WithValue(ctx, clientIPKey, extractClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withSecurityHeaders logs the request, flags scanner traffic, rate limits
// mutating methods and sets the security headers.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP, _ := ctx.Value(clientIPKey).(string)
		logger := log.FromContext(ctx)
		structured := log.NewStructuredLogger(logger)

		structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		setSecurityHeaders(w.Header())
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if isMutating(r.Method) && !s.limiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			_ = NewJSONResponse().
				Header("Retry-After", "60").
				Fail(http.StatusTooManyRequests, "Demasiadas solicitudes, intente de nuevo en un minuto").
				Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// authedHandler is a handler that runs with a live session.
type authedHandler func(w http.ResponseWriter, r *http.Request, sess session.Session)

// authed resolves the session from the ungrd_auth cookie or a bearer token.
// Expired sessions are removed by the resolver and their cookie cleared.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			s.metrics.unauthorized.Add(1)
			writeError(w, r, errUnauthenticated)
			return
		}
		sess, err := s.deps.Sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
				s.metrics.unauthorized.Add(1)
				s.deps.Edits.Discard(token)
				s.clearCookie(w)
			}
			writeError(w, r, err)
			return
		}
		h(w, r.WithContext(log.WithAttrs(r.Context(), log.FieldEmail, sess.Email)), sess)
	}
}

// admin is authed plus an administrator check.
func (s *Server) admin(h authedHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		if !sess.IsAdmin {
			s.metrics.forbidden.Add(1)
			writeError(w, r, errForbidden)
			return
		}
		h(w, r, sess)
	})
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func (s *Server) setCookie(w http.ResponseWriter, sess session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
