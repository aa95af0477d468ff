package web

import (
	"context"
	"net/http"

	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/observability"
)

// SessionCookie is the name of the cookie that holds the session ID.
const SessionCookie = "session_id"

func (s *Server) setSessionCookie(w http.ResponseWriter, token auth.Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    string(token),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Path:     "/",
		MaxAge:   -1, // Setting the age in the past will delete the cookie.
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// session is a middleware that resolves the session cookie and injects the
// user in the context. Unknown sessions are treated as no session at all.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			// No session.
			next.ServeHTTP(w, r)
			return
		}

		user, ok, err := s.deps.AuthService.UserFromSession(r.Context(), auth.Token(cookie.Value))
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guard is a middleware that rejects anonymous requests to paths that require authentication.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Guard.RequireAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := UserFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if info, ok := requestInfoFromContext(r.Context()); ok {
			info.route = "guard"
		}

		s.deps.Metrics.RecordAuthEvent("guard", observability.OutcomeDenied)
		s.handleError(w, r, errForbidden)
	})
}

type ctxKey string

const userKey ctxKey = "gatekeeperUser"

func ContextWithUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey).(auth.User)
	return user, ok
}
