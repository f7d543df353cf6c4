package handlers

import (
	"net/http"
	"strconv"

	"case_registry_go/middleware"
	"case_registry_go/services"

	"github.com/labstack/echo/v4"
)

// AddTrackingEntryHandler appends a manual entry to a case's ledger
func (h *CaseHandler) AddTrackingEntryHandler(c echo.Context) error {
	var in services.TrackingEntryInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}

	entry, err := h.Cases.AddTrackingEntry(c.Request().Context(), c.Param("id"), in, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// ListTrackingEntriesHandler returns a case's ledger, newest first.
// visible_only=true leaves out entries hidden from complainants.
func (h *CaseHandler) ListTrackingEntriesHandler(c echo.Context) error {
	visibleOnly := false
	if v := c.QueryParam("visible_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("Invalid visible_only value")
		}
		visibleOnly = parsed
	}

	entries, err := h.Cases.TrackingEntries(c.Request().Context(), c.Param("id"), visibleOnly)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
