package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/TrustyKrab/Englix-Server/internal/metrics"
	"github.com/TrustyKrab/Englix-Server/internal/services"
	"github.com/TrustyKrab/Englix-Server/types"
)

// UserHandler serves profile lookups, edits, and quiz submissions.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers every /user route, auth included.
func UserRouter(r chi.Router, authService *services.AuthService, userService *services.UserService, m *metrics.Metrics, crossSite bool) {
	AuthRouter(r, authService, m, crossSite)

	handler := NewUserHandler(userService)
	r.Get("/getUsers", handler.GetUsers)
	r.Get("/getUserByUsername", handler.GetUserByUsername)
	r.Post("/submitresult", handler.SubmitResult)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/getUserByID", handler.GetUserByID)
		r.Patch("/updateUser", handler.UpdateUser)
		r.Delete("/deleteUser", handler.DeleteUser)
	})
}

// GetUsers lists every user.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []types.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUserByID returns one user by id.
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, services.ErrAccountNotFound) {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to get user by ID")
		}
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUserByUsername returns one user by the username query parameter.
func (h *UserHandler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Failed to get user by username")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser merges the supplied profile fields into the user.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.userService.Update(r.Context(), id, services.UpdateUserInput{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "email already registered")
		case errors.Is(err, services.ErrDuplicateUsername):
			writeError(w, http.StatusBadRequest, "username already registered")
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, "no valid fields to update")
		default:
			log.Error().Err(err).Str("user_id", id).Msg("Failed to update user")
			writeError(w, http.StatusBadRequest, "failed to update user")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user updated", Result: result})
}

// DeleteUser removes the user. Deleting an unknown id reports a zero count.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.userService.Delete(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		writeError(w, http.StatusBadRequest, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user deleted", Result: result})
}

// SubmitResult appends a quiz attempt to the named user's history.
func (h *UserHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var req SubmitResultRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attempt, err := h.userService.SubmitQuizResult(r.Context(), req.Username, *req.Score, req.QuizName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, "username is required")
		default:
			log.Error().Err(err).Str("username", req.Username).Msg("Failed to submit quiz result")
			writeError(w, http.StatusBadRequest, "failed to submit quiz result")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "quiz result saved", Result: attempt})
}

// UpdateUserRequest lists the only fields a client may change.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=1"`
	Phone    *string `json:"notlp"`
	Password *string `json:"password" validate:"omitempty,min=1"`
}

type SubmitResultRequest struct {
	Username string   `json:"username" validate:"required"`
	Score    *float64 `json:"score" validate:"required"`
	QuizName string   `json:"quizname"`
}
