package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// formatValidationError turns validator errors into a field → message map
// keyed by the JSON field name.
func formatValidationError(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["body"] = "invalid value"
		return fields
	}
	for _, e := range verrs {
		field := strings.ToLower(e.Field()[:1]) + e.Field()[1:]
		switch e.Tag() {
		case "required":
			fields[field] = "this field is required"
		case "email":
			fields[field] = "invalid email format"
		case "min":
			fields[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "max":
			fields[field] = fmt.Sprintf("must be at most %s", e.Param())
		case "len":
			fields[field] = fmt.Sprintf("must be exactly %s characters", e.Param())
		case "numeric":
			fields[field] = "must contain digits only"
		case "alphanum":
			fields[field] = "must contain letters and digits only"
		case "oneof":
			fields[field] = fmt.Sprintf("must be one of: %s", e.Param())
		default:
			fields[field] = "invalid value"
		}
	}
	return fields
}

// decodeAndValidate reads a JSON body into req and validates its struct tags.
// It writes the error response itself and reports whether handling may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  "invalid request",
			Fields: formatValidationError(err),
		})
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status and a client-facing
// message. Unknown errors map to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, models.ErrSessionRevoked):
		return http.StatusUnauthorized, "session revoked"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, models.ErrCaseNotFound):
		return http.StatusNotFound, "case not found"
	case errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, models.ErrRegistrationNotFound):
		return http.StatusNotFound, "no pending registration"
	case errors.Is(err, models.ErrNotOwner):
		return http.StatusForbidden, "item belongs to another user"
	case errors.Is(err, models.ErrUserExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, models.ErrCodeExpired):
		return http.StatusGone, "verification code expired"
	case errors.Is(err, models.ErrCodeInvalid):
		return http.StatusBadRequest, "invalid verification code"
	case errors.Is(err, models.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many attempts"
	case errors.Is(err, models.ErrNotTradable):
		return http.StatusUnprocessableEntity, "item is not tradable"
	case errors.Is(err, models.ErrSelfGift):
		return http.StatusUnprocessableEntity, "cannot gift to yourself"
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid amount"
	case errors.Is(err, models.ErrUnknownCounter):
		return http.StatusBadRequest, "unknown counter"
	}
	return http.StatusInternalServerError, "internal error"
}

// respondServiceError writes the response for err, logging it when it is
// not a known domain error.
func respondServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	respondError(w, status, msg)
}
