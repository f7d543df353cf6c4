package handlers

import (
	"net/http"
	"time"

	"case_registry_go/models"

	"github.com/labstack/echo/v4"
)

type publicParty struct {
	Role models.PartyRole `json:"role"`
	Name string           `json:"name,omitempty"`
}

type publicTrackingEntry struct {
	Action    string             `json:"action"`
	Comment   string             `json:"comment"`
	NewStatus *models.CaseStatus `json:"new_status,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// publicCaseView is what a complainant sees when looking up their case.
// Contact details and document numbers are never included.
type publicCaseView struct {
	ID              string                `json:"id"`
	Code            string                `json:"code"`
	Type            models.CaseType       `json:"type"`
	Status          models.CaseStatus     `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`
	DueDate         time.Time             `json:"due_date"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	Resolution      *string               `json:"resolution,omitempty"`
	Complainant     *publicParty          `json:"complainant,omitempty"`
	Respondent      *publicParty          `json:"respondent,omitempty"`
	TrackingEntries []publicTrackingEntry `json:"tracking_entries"`
}

func newPublicCaseView(c *models.Case, entries []models.TrackingEntry) publicCaseView {
	view := publicCaseView{
		ID:              c.ID,
		Code:            c.Code,
		Type:            c.Type,
		Status:          c.Status,
		CreatedAt:       c.CreatedAt,
		DueDate:         c.DueDate,
		ResolvedAt:      c.ResolvedAt,
		Resolution:      c.Resolution,
		TrackingEntries: make([]publicTrackingEntry, 0, len(entries)),
	}

	// Names are withheld on confidential cases, and the complainant's on anonymous ones
	if c.Complainant != nil {
		view.Complainant = &publicParty{Role: c.Complainant.Role}
		if !c.IsAnonymous && !c.IsConfidential {
			view.Complainant.Name = c.Complainant.FullName()
		}
	}
	if c.Respondent != nil {
		view.Respondent = &publicParty{Role: c.Respondent.Role}
		if !c.IsConfidential {
			view.Respondent.Name = c.Respondent.FullName()
		}
	}

	for _, e := range entries {
		view.TrackingEntries = append(view.TrackingEntries, publicTrackingEntry{
			Action:    e.Action,
			Comment:   e.Comment,
			NewStatus: e.NewStatus,
			CreatedAt: e.CreatedAt,
		})
	}
	return view
}

// PublicCaseLookupHandler lets a complainant follow a case by its code.
// Only entries marked visible are returned.
func (h *CaseHandler) PublicCaseLookupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	found, err := h.Cases.FindByCode(ctx, c.Param("code"))
	if err != nil {
		return serviceError(err)
	}

	entries, err := h.Cases.TrackingEntries(ctx, found.ID, true)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, newPublicCaseView(found, entries))
}
