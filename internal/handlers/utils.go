package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/TrustyKrab/Englix-Server/types"
)

type contextKey string

const contextUserKey contextKey = "user"

var validate = validator.New()

var (
	errEmptyBody   = errors.New("empty request body")
	errInvalidBody = errors.New("invalid request body")
)

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

// UserFromContext returns the user attached by RequireAuth.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// decodeBody reads a JSON body into dst and runs its validate tags.
// When strict is set, fields dst does not declare are rejected.
// The returned error text is safe to send to the client.
func decodeBody(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request body")
		return errInvalidBody
	}
	if err := validate.Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

// describeValidation lists the failing fields and tags, never their values.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		log.Debug().Err(err).Msg("Validation did not run")
		return errInvalidBody
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: false, Message: message})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// StatusResponse acknowledges a request that returns no resource.
type StatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// MessageResponse carries a message and an optional operation result.
type MessageResponse struct {
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}
