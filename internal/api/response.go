package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/crestbank/teller/internal/domain"
)

// genericErrorMessage is what callers see for any failure that is not a
// domain error. The wrapped detail stays in the server log.
const genericErrorMessage = "an internal error occurred"

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes. Configuration
// errors (unbuilt index, model mismatch) map to 503: the service is up but
// cannot answer until an operator intervenes.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeConfiguration:
		return http.StatusServiceUnavailable
	case domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError maps the error to a status code and writes a caller-safe
// message. Domain errors expose only their Message; everything else gets a
// fixed generic line so transport and provider detail never reaches the
// caller. The full error is logged either way.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	log.Printf("request failed (%d): %v", status, err)

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		Error(w, status, domainErr.Message)
		return
	}

	Error(w, status, genericErrorMessage)
}
