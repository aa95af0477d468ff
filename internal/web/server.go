package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/gatekeeper/internal/access"
	"github.com/willemschots/gatekeeper/internal/auth"
	"github.com/willemschots/gatekeeper/internal/email"
	"github.com/willemschots/gatekeeper/internal/errorz"
	"github.com/willemschots/gatekeeper/internal/observability"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// Auth events as counted by the metrics.
const (
	eventRegister      = "register"
	eventLogin         = "login"
	eventLogout        = "logout"
	eventResetRequest  = "reset_request"
	eventPasswordReset = "password_reset"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	Guard          *access.Guard
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	SecureCookie bool
}

type Server struct {
	deps    *ServerDeps
	cfg     ServerConfig
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		mux:     http.NewServeMux(),
		decoder: decoder,
	}

	// Most endpoints below are created using the newHandler functions.
	// These functions return handlers that automatically map between HTTP requests, target functions and HTTP responses.
	// The request mapping and response writing is customizable.

	s.route("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusOK, messageResponse{Message: "Bienvenue"})
	}))

	// Register user endpoint.
	{
		const route = "POST /users"
		h := newHandler(s, deps.AuthService.RegisterUser)
		h.onSuccess(func(res result[auth.Credentials, auth.User]) error {
			s.deps.Metrics.RecordAuthEvent(eventRegister, observability.OutcomeOK)
			return writeJSON(res.w, http.StatusOK, emailMessageResponse{
				Email:   res.out.Email,
				Message: "user created",
			})
		})
		h.onFail(func(sh shared, err error) {
			if errors.Is(err, auth.ErrUserAlreadyExists) {
				s.deps.Metrics.RecordAuthEvent(eventRegister, observability.OutcomeDenied)
				s.writeJSON(sh.w, sh.r, http.StatusBadRequest, messageResponse{Message: "email already registered"})
				return
			}

			s.handleError(sh.w, sh.r, err)
		})

		s.route(route, h)
	}

	// Login endpoint.
	{
		const route = "POST /sessions"
		h := newHandler(s, s.login)
		h.onSuccess(func(res result[auth.Credentials, auth.Token]) error {
			s.setSessionCookie(res.w, res.out)
			return writeJSON(res.w, http.StatusOK, emailMessageResponse{
				Email:   res.in.Email,
				Message: "logged in",
			})
		})

		s.route(route, h)
	}

	// Logout endpoint.
	{
		const route = "DELETE /sessions"
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				s.deps.Metrics.RecordAuthEvent(eventLogout, observability.OutcomeDenied)
				s.handleError(w, r, errForbidden)
				return
			}

			err := s.deps.AuthService.DestroySession(r.Context(), user.ID)
			if err != nil {
				s.deps.Metrics.RecordAuthEvent(eventLogout, observability.OutcomeError)
				s.handleError(w, r, err)
				return
			}

			s.deps.Metrics.RecordAuthEvent(eventLogout, observability.OutcomeOK)
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/", http.StatusFound)
		})

		s.route(route, h)
	}

	// Profile endpoint.
	{
		const route = "GET /profile"
		h := newOutputHandler(s, func(ctx context.Context) (profileResponse, error) {
			user, ok := UserFromContext(ctx)
			if !ok {
				return profileResponse{}, errForbidden
			}

			return profileResponse{Email: user.Email}, nil
		})

		s.route(route, h)
	}

	// Request password reset endpoint.
	{
		const route = "POST /reset_password"
		h := newHandler(s, s.requestPasswordReset)

		s.route(route, h)
	}

	// Update password endpoint.
	{
		const route = "PUT /reset_password"
		h := newInputHandler(s, s.updatePassword)
		h.onSuccess(func(res result[passwordUpdate, struct{}]) error {
			return writeJSON(res.w, http.StatusOK, emailMessageResponse{
				Email:   res.in.Email,
				Message: "Password updated",
			})
		})

		s.route(route, h)
	}

	s.route("GET /metrics", deps.MetricsHandler)

	// Everything else is not found.
	s.route("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handleError(w, r, errorz.ErrNotFound)
	}))

	// Wrap the mux with global middlewares.
	middlewares := []func(http.Handler) http.Handler{
		s.instrument,
		s.session,
		s.guard,
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// route registers the handler and labels its requests with the pattern.
func (s *Server) route(pattern string, h http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := requestInfoFromContext(r.Context()); ok {
			info.route = pattern
		}
		h.ServeHTTP(w, r)
	}))
}

func (s *Server) login(ctx context.Context, c auth.Credentials) (auth.Token, error) {
	ok, err := s.deps.AuthService.ValidLogin(ctx, c)
	if err != nil {
		s.deps.Metrics.RecordAuthEvent(eventLogin, observability.OutcomeError)
		return "", err
	}

	if !ok {
		s.deps.Metrics.RecordAuthEvent(eventLogin, observability.OutcomeDenied)
		s.deps.Logger.InfoContext(ctx, "login rejected", "account", c.Email)
		return "", errUnauthorized
	}

	token, ok, err := s.deps.AuthService.CreateSession(ctx, c.Email)
	if err != nil {
		s.deps.Metrics.RecordAuthEvent(eventLogin, observability.OutcomeError)
		return "", err
	}

	if !ok {
		// The user was removed between validating the login and creating the session.
		s.deps.Metrics.RecordAuthEvent(eventLogin, observability.OutcomeDenied)
		return "", errUnauthorized
	}

	s.deps.Metrics.RecordAuthEvent(eventLogin, observability.OutcomeOK)
	return token, nil
}

type resetRequest struct {
	Email email.Address `schema:"email,required"`
}

func (s *Server) requestPasswordReset(ctx context.Context, req resetRequest) (resetTokenResponse, error) {
	token, err := s.deps.AuthService.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.deps.Metrics.RecordAuthEvent(eventResetRequest, observability.OutcomeDenied)
			return resetTokenResponse{}, errForbidden
		}
		s.deps.Metrics.RecordAuthEvent(eventResetRequest, observability.OutcomeError)
		return resetTokenResponse{}, err
	}

	s.deps.Metrics.RecordAuthEvent(eventResetRequest, observability.OutcomeOK)
	return resetTokenResponse{
		Email:      req.Email,
		ResetToken: string(token),
	}, nil
}

type passwordUpdate struct {
	Email       email.Address `schema:"email,required"`
	ResetToken  auth.Token    `schema:"reset_token,required"`
	NewPassword auth.Password `schema:"new_password,required"`
}

func (s *Server) updatePassword(ctx context.Context, upd passwordUpdate) error {
	err := s.deps.AuthService.UpdatePassword(ctx, upd.ResetToken, upd.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			s.deps.Metrics.RecordAuthEvent(eventPasswordReset, observability.OutcomeDenied)
			return errForbidden
		}
		s.deps.Metrics.RecordAuthEvent(eventPasswordReset, observability.OutcomeError)
		return err
	}

	s.deps.Metrics.RecordAuthEvent(eventPasswordReset, observability.OutcomeOK)
	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

type emailMessageResponse struct {
	Email   email.Address `json:"email"`
	Message string        `json:"message"`
}

type profileResponse struct {
	Email email.Address `json:"email"`
}

type resetTokenResponse struct {
	Email      email.Address `json:"email"`
	ResetToken string        `json:"reset_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidInput errorz.InvalidInput
	switch {
	case errors.Is(err, errUnauthorized):
		s.writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
	case errors.Is(err, errForbidden):
		s.writeJSON(w, r, http.StatusForbidden, errorResponse{Error: "Forbidden"})
	case errors.Is(err, errorz.ErrNotFound):
		s.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.As(err, &invalidInput):
		s.deps.Logger.InfoContext(r.Context(), "rejected invalid input", "url", r.URL.Path, "requestID", requestID(r.Context()), "fields", invalidInput.Keys())
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Bad request"})
	case errors.Is(err, auth.ErrInvalidPassword):
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Bad request"})
	default:
		s.deps.Logger.ErrorContext(r.Context(), "internal server error", "url", r.URL.Path, "requestID", requestID(r.Context()), "error", err)
		s.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// writeJSON writes v and logs when that fails, at that point
// the status has been sent and nothing else can be done.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	err := writeJSON(w, status, v)
	if err != nil {
		s.deps.Logger.ErrorContext(r.Context(), "failed to write response", "requestID", requestID(r.Context()), "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
