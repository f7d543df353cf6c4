package handlers

import (
	"errors"
	"log"
	"net/http"

	"case_registry_go/services"

	"github.com/labstack/echo/v4"
)

// errorStatus maps a service error category to an HTTP status
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// serviceError converts a service error into an echo HTTP error with a JSON body.
// Internal errors are logged and never leak their message.
func serviceError(err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %v", err)
		return echo.NewHTTPError(status, map[string]interface{}{"error": "Internal server error"})
	}

	body := map[string]interface{}{"error": err.Error()}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		body["error"] = "Validation failed"
		body["details"] = verr.Fields
	}
	return echo.NewHTTPError(status, body)
}

// badRequest returns a 400 with a plain message
func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{"error": message})
}
