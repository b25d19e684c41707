package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/TrustyKrab/Englix-Server/internal/metrics"
	"github.com/TrustyKrab/Englix-Server/internal/services"
)

const (
	sessionCookieName = "token"
	// The web client has always received a 360 second cookie; the token's own
	// exp claim still decides validity.
	sessionCookieMaxAge = 360 * time.Second
)

// AuthHandler serves registration, login, and password recovery.
type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Metrics
	crossSite   bool
	now         func() time.Time
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
// crossSite issues the session cookie as SameSite=None; Secure.
func NewAuthHandler(authService *services.AuthService, m *metrics.Metrics, crossSite bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		metrics:     m,
		crossSite:   crossSite,
		now:         time.Now,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, m *metrics.Metrics, crossSite bool) *AuthHandler {
	handler := NewAuthHandler(authService, m, crossSite)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password/{token}", handler.ResetPassword)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
	return handler
}

// RequireAuth accepts a session token from the Authorization header or the
// session cookie and injects the resolved user into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := sessionToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.authService.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			log.Error().Err(err).Msg("Failed to authenticate session")
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Register creates a new account. It does not log the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.metrics.AuthEvent("register", metrics.OutcomeFailure)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.authService.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.metrics.AuthEvent("register", metrics.OutcomeFailure)
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "email already registered")
		case errors.Is(err, services.ErrDuplicateUsername):
			writeError(w, http.StatusBadRequest, "username already registered")
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, "missing required fields")
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
			writeError(w, http.StatusBadRequest, "failed to register user")
		}
		return
	}

	h.metrics.AuthEvent("register", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusCreated, StatusResponse{Status: true, Message: "user registered"})
}

// Login verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.metrics.AuthEvent("login", metrics.OutcomeFailure)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.AuthEvent("login", metrics.OutcomeFailure)
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			log.Warn().Str("email", req.Email).Msg("Failed authentication attempt")
			writeError(w, http.StatusBadRequest, "wrong password")
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to log in user")
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.metrics.AuthEvent("login", metrics.OutcomeSuccess)
	http.SetCookie(w, h.sessionCookie(result.Token, int(sessionCookieMaxAge/time.Second), h.now().Add(sessionCookieMaxAge)))
	writeJSON(w, http.StatusOK, LoginResponse{Message: "login successful", Token: result.Token})
}

// Logout clears the session cookie. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionCookie("", -1, time.Unix(0, 0)))
	writeJSON(w, http.StatusOK, StatusResponse{Status: true})
}

// sessionCookie builds the token cookie. Clearing it must repeat the
// attributes it was set with or the browser keeps the original.
func (h *AuthHandler) sessionCookie(value string, maxAge int, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.crossSite {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	return cookie
}

// ForgotPassword mails a reset link to a registered address.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.metrics.AuthEvent("forgot_password", metrics.OutcomeFailure)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.metrics.AuthEvent("forgot_password", metrics.OutcomeFailure)
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			writeError(w, http.StatusBadRequest, "user not found")
		case errors.Is(err, services.ErrEmailDelivery):
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to send reset email")
			writeError(w, http.StatusInternalServerError, "failed to send email")
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("Failed to start password reset")
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.metrics.AuthEvent("forgot_password", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, StatusResponse{Status: true, Message: "email sent"})
}

// ResetPassword sets a new password using the token from the reset mail.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.authService.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		h.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, "password is required")
		case errors.Is(err, services.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
		case errors.Is(err, services.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			log.Error().Err(err).Msg("Failed to reset password")
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.metrics.AuthEvent("reset_password", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, StatusResponse{Status: true, Message: "password updated"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"notlp"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// sessionToken prefers an Authorization bearer token and falls back to the cookie.
func sessionToken(r *http.Request) (string, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization")
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			return "", errors.New("invalid authorization")
		}
		return token, nil
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("missing session")
	}
	return cookie.Value, nil
}
