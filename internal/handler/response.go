package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"negotiation/internal/provider"
	"negotiation/internal/repository"
	"negotiation/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripAttributes),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidInitiatorID),
		errors.Is(err, service.ErrInvalidResponderID),
		errors.Is(err, service.ErrInvalidNegotiationID),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrOfferOutOfBounds),
		errors.Is(err, service.ErrInvalidCounterAmount):
		return http.StatusBadRequest

	// Conflict errors - a legitimate race was lost
	case errors.Is(err, service.ErrActiveNegotiationExists),
		errors.Is(err, service.ErrNegotiationNotPending),
		errors.Is(err, service.ErrWrongState):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrWrongInitiator):
		return http.StatusForbidden

	// Upstream providers unavailable
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
