package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"case_registry_go/middleware"
	"case_registry_go/models"
	"case_registry_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HeaderTurnstileToken carries the CAPTCHA token of the public intake form
const HeaderTurnstileToken = "CF-Turnstile-Response"

// managerRoles may archive and assign cases
var managerRoles = []string{models.UserRoleAdmin, models.UserRoleOfficer}

// CaseHandler serves the case registry API
type CaseHandler struct {
	Cases         *services.CaseService
	Attachments   *services.AttachmentService
	Stats         *services.StatisticsService
	MaxUploadSize int64

	// TurnstileSecretKey enables the CAPTCHA check on public intake when set
	TurnstileSecretKey string
	VerifyTurnstile    func(token, secretKey, ip string) (bool, error)
}

// NewCaseHandler wires the handler to its services
func NewCaseHandler(cases *services.CaseService, attachments *services.AttachmentService, stats *services.StatisticsService, maxUploadSize int64) *CaseHandler {
	return &CaseHandler{
		Cases:           cases,
		Attachments:     attachments,
		Stats:           stats,
		MaxUploadSize:   maxUploadSize,
		VerifyTurnstile: services.VerifyTurnstileToken,
	}
}

// checkTurnstile validates the CAPTCHA token when Turnstile is configured
func (h *CaseHandler) checkTurnstile(c echo.Context) error {
	if h.TurnstileSecretKey == "" {
		return nil
	}

	token := strings.TrimSpace(c.Request().Header.Get(HeaderTurnstileToken))
	if token == "" {
		return badRequest("Please complete the CAPTCHA")
	}

	isValid, err := h.VerifyTurnstile(token, h.TurnstileSecretKey, c.RealIP())
	if err != nil || !isValid {
		log.Printf("[WARNING] Turnstile verification failed: %v", err)
		return badRequest("CAPTCHA verification failed")
	}
	return nil
}

// intakeReceipt is what an anonymous submitter gets back
type intakeReceipt struct {
	ID        string            `json:"id"`
	Code      string            `json:"code"`
	Type      models.CaseType   `json:"type"`
	Status    models.CaseStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	DueDate   time.Time         `json:"due_date"`
}

// PublicIntakeHandler registers a case submitted through the public form.
// No actor is known, so the ledger starts empty.
func (h *CaseHandler) PublicIntakeHandler(c echo.Context) error {
	if err := h.checkTurnstile(c); err != nil {
		return err
	}

	var in services.CreateCaseInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}

	created, err := h.Cases.Create(c.Request().Context(), in, nil)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, intakeReceipt{
		ID:        created.ID,
		Code:      created.Code,
		Type:      created.Type,
		Status:    created.Status,
		CreatedAt: created.CreatedAt,
		DueDate:   created.DueDate,
	})
}

// CreateCaseHandler registers a case on behalf of a complainant
func (h *CaseHandler) CreateCaseHandler(c echo.Context) error {
	var in services.CreateCaseInput
	if err := c.Bind(&in); err != nil {
		return badRequest("Invalid request body")
	}

	created, err := h.Cases.Create(c.Request().Context(), in, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// parseCaseFilter reads list filters from the query string
func parseCaseFilter(c echo.Context) (services.CaseFilter, error) {
	filter := services.CaseFilter{
		Type:       models.CaseType(strings.ToUpper(c.QueryParam("type"))),
		Status:     models.CaseStatus(strings.ToUpper(c.QueryParam("status"))),
		Priority:   models.CasePriority(strings.ToUpper(c.QueryParam("priority"))),
		AssigneeID: c.QueryParam("assignee_id"),
		Search:     c.QueryParam("search"),
	}
	if filter.Search == "" {
		filter.Search = c.QueryParam("q")
	}

	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		parsed, err := services.ParseDate(dateFrom)
		if err != nil {
			return filter, badRequest("Invalid date_from format (use YYYY-MM-DD)")
		}
		filter.CreatedFrom = &parsed
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		parsed, err := services.ParseDate(dateTo)
		if err != nil {
			return filter, badRequest("Invalid date_to format (use YYYY-MM-DD)")
		}
		// Include the entire day
		endOfDay := services.EndOfDay(parsed)
		filter.CreatedTo = &endOfDay
	}

	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return filter, badRequest("Invalid limit")
		}
		filter.Limit = n
	}
	if offset := c.QueryParam("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			return filter, badRequest("Invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}

// ListCasesHandler returns a page of cases with filtering
func (h *CaseHandler) ListCasesHandler(c echo.Context) error {
	filter, err := parseCaseFilter(c)
	if err != nil {
		return err
	}

	list, err := h.Cases.List(c.Request().Context(), filter)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetCaseHandler returns a case with its parties, ledger and attachments
func (h *CaseHandler) GetCaseHandler(c echo.Context) error {
	found, err := h.Cases.FindOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// GetCaseByCodeHandler looks a case up by its human-readable code
func (h *CaseHandler) GetCaseByCodeHandler(c echo.Context) error {
	found, err := h.Cases.FindByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// UpdateCaseHandler applies a partial update.
// Archiving and assignment need the same roles as their dedicated routes.
func (h *CaseHandler) UpdateCaseHandler(c echo.Context) error {
	var patch services.UpdateCaseInput
	if err := c.Bind(&patch); err != nil {
		return badRequest("Invalid request body")
	}

	archiving := patch.Status != nil && strings.ToUpper(string(*patch.Status)) == string(models.CaseStatusArchived)
	if (archiving || patch.AssigneeID != nil) && !middleware.HasRole(c, managerRoles...) {
		return echo.NewHTTPError(http.StatusForbidden, map[string]string{"error": "Insufficient permissions"})
	}

	updated, err := h.Cases.Update(c.Request().Context(), c.Param("id"), patch, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// AssignCaseHandler hands the case to a staff user
func (h *CaseHandler) AssignCaseHandler(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return badRequest("assignee_id is required")
	}

	assigned, err := h.Cases.Assign(c.Request().Context(), c.Param("id"), req.AssigneeID, middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, assigned)
}

// ArchiveCaseHandler archives a case. Cases are never removed.
func (h *CaseHandler) ArchiveCaseHandler(c echo.Context) error {
	archived, err := h.Cases.Archive(c.Request().Context(), c.Param("id"), middleware.GetActor(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, archived)
}

// CaseStatsHandler returns the dashboard summary
func (h *CaseHandler) CaseStatsHandler(c echo.Context) error {
	summary, err := h.Stats.Summary(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportCasesHandler downloads the filtered cases and the summary as a workbook
func (h *CaseHandler) ExportCasesHandler(c echo.Context) error {
	filter, err := parseCaseFilter(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	summary, err := h.Stats.Summary(ctx)
	if err != nil {
		return serviceError(err)
	}

	now := time.Now()
	buf, err := services.ExportCasesXLSX(ctx, h.Cases.DB, filter, summary, now)
	if err != nil {
		return serviceError(err)
	}

	filename := fmt.Sprintf("cases_%s.xlsx", now.Format("20060102_150405"))
	c.Response().Header().Set("Content-Disposition", "attachment; filename="+filename)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
