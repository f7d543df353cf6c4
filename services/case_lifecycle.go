package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"case_registry_go/metrics"
	"case_registry_go/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// plainTextPolicy strips all markup from free text before it is stored
var plainTextPolicy = bluemonday.StrictPolicy()

// sanitizeText removes HTML tags and keeps the plain text readable
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(s)))
}

func observeOperation(operation string, start time.Time) {
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CaseService owns every mutation of a case and its tracking ledger
type CaseService struct {
	DB       *gorm.DB
	Counter  SequenceCounter // optional
	Policy   TransitionPolicy
	Users    UserDirectory
	Notifier Notifier
	Now      func() time.Time
}

// NewCaseService creates a controller with the permissive transition policy and the system clock.
// A nil users directory defaults to the users table in db.
func NewCaseService(db *gorm.DB, users UserDirectory, notifier Notifier) *CaseService {
	if users == nil {
		users = NewGormUserDirectory(db)
	}
	return &CaseService{
		DB:       db,
		Policy:   PermissivePolicy{},
		Users:    users,
		Notifier: notifier,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// now returns the injected clock at microsecond precision, which every supported store can hold
func (s *CaseService) now() time.Time {
	clock := s.Now
	if clock == nil {
		clock = time.Now
	}
	return clock().Truncate(time.Microsecond)
}

func (s *CaseService) policy() TransitionPolicy {
	if s.Policy == nil {
		return PermissivePolicy{}
	}
	return s.Policy
}

// Create registers a new case with a fresh code and due date.
// A "Case created" entry is written only when actor is known; public intake leaves the ledger empty.
func (s *CaseService) Create(ctx context.Context, in CreateCaseInput, actor *Actor) (*models.Case, error) {
	defer observeOperation("create", time.Now())

	in.FactsDescription = sanitizeText(in.FactsDescription)
	in.RightsAffected = sanitizeText(in.RightsAffected)
	if err := ValidateCreateCaseInput(&in); err != nil {
		return nil, err
	}

	createdAt := s.now()
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		c := buildCase(&in, createdAt)

		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			code, err := GenerateCaseCode(ctx, tx, s.Counter, c.Type, createdAt)
			if err != nil {
				return err
			}
			c.Code = code

			if err := tx.Create(c).Error; err != nil {
				return err
			}

			if actor == nil {
				return nil
			}
			status := models.CaseStatusPending
			entry := newTrackingEntry(c.ID, actor, ActionCaseCreated, fmt.Sprintf("Case %s registered", code))
			entry.NewStatus = &status
			return appendTrackingEntry(tx, entry)
		})
		if isCodeCollision(err) {
			metrics.CodeCollisions.Inc()
			log.Printf("[CASES] Code %s already taken (attempt %d/%d), retrying", c.Code, attempt, MaxCodeAttempts)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create case: %w", err)
		}

		channel := metrics.ChannelStaff
		if actor == nil {
			channel = metrics.ChannelPublic
		}
		metrics.CasesCreated.WithLabelValues(string(c.Type), channel).Inc()
		log.Printf("[CASES] Registered case %s (%s, %s intake)", c.Code, c.Type, channel)

		return FindCase(ctx, s.DB, c.ID)
	}

	log.Printf("[CASES] [WARNING] Gave up generating a %s code after %d attempts", in.Type, MaxCodeAttempts)
	return nil, ErrCodeExhausted
}

// buildCase creates the row and its parties. Each attempt needs fresh structs since a failed insert assigns ids.
func buildCase(in *CreateCaseInput, createdAt time.Time) *models.Case {
	priority := in.Priority
	if priority == "" {
		priority = models.CasePriorityMedium
	}

	c := &models.Case{
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
		Type:              in.Type,
		Priority:          priority,
		FactsDescription:  in.FactsDescription,
		RightsAffected:    in.RightsAffected,
		IsAnonymous:       in.IsAnonymous,
		RequiresMediation: in.RequiresMediation,
		IsConfidential:    in.IsConfidential,
		Tags:              normalizeTags(in.Tags),
		Status:            models.CaseStatusPending,
		DueDate:           DueDate(createdAt),
	}

	if in.Complainant != nil {
		p := *in.Complainant
		p.ID, p.CaseID = "", ""
		p.Email = strings.TrimSpace(p.Email)
		c.Complainant = &p
	}
	if in.Respondent != nil {
		p := *in.Respondent
		p.ID, p.CaseID = "", ""
		c.Respondent = &p
	}
	return c
}

// resolveAssignee looks the user up in the directory
func (s *CaseService) resolveAssignee(ctx context.Context, assigneeID string) (*models.User, error) {
	user, err := s.Users.ResolveUser(ctx, assigneeID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssigneeNotFound, assigneeID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a partial update. A status change is checked against the transition policy
// and recorded in the ledger after the row update, inside the same transaction.
func (s *CaseService) Update(ctx context.Context, id string, patch UpdateCaseInput, actor *Actor) (*models.Case, error) {
	defer observeOperation("update", time.Now())

	if err := ValidateUpdateCaseInput(&patch); err != nil {
		return nil, err
	}

	var assignee *models.User
	if patch.AssigneeID != nil && strings.TrimSpace(*patch.AssigneeID) != "" {
		// An unknown case is reported before an unknown assignee
		if _, err := findCaseRow(s.DB.WithContext(ctx), id); err != nil {
			return nil, err
		}
		user, err := s.resolveAssignee(ctx, strings.TrimSpace(*patch.AssigneeID))
		if err != nil {
			return nil, err
		}
		assignee = user
	}

	return s.update(ctx, id, patch, actor, assignee)
}

func (s *CaseService) update(ctx context.Context, id string, patch UpdateCaseInput, actor *Actor, assignee *models.User) (*models.Case, error) {
	var from, to models.CaseStatus
	transitioned := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockCase(tx, id)
		if err != nil {
			return err
		}

		now := s.now()
		var columns []string
		var statusEntry *models.TrackingEntry

		if patch.Status != nil && *patch.Status != current.Status {
			from, to = current.Status, *patch.Status
			if err := s.policy().Allow(from, to); err != nil {
				return err
			}

			statusEntry = newTrackingEntry(id, actor, ActionStatusChanged, fmt.Sprintf("Status changed from %s to %s", from, to))
			statusEntry.PreviousStatus = &from
			statusEntry.NewStatus = &to

			current.Status = to
			columns = append(columns, "status")
			if to == models.CaseStatusResolved && patch.ResolvedAt == nil {
				current.ResolvedAt = &now
				columns = append(columns, "resolved_at")
			}
		}

		if patch.ResolvedAt != nil {
			if current.Status != models.CaseStatusResolved {
				return newValidationError([]string{"resolved_at can only be set on a resolved case"})
			}
			resolvedAt := patch.ResolvedAt.UTC()
			current.ResolvedAt = &resolvedAt
			columns = append(columns, "resolved_at")
		}

		if patch.AssigneeID != nil {
			assigneeColumns, err := s.applyAssignee(tx, current, patch, actor, assignee)
			if err != nil {
				return err
			}
			columns = append(columns, assigneeColumns...)
		} else if patch.AssigneeName != nil && current.AssigneeID != nil {
			current.AssigneeName = optionalText(*patch.AssigneeName)
			columns = append(columns, "assignee_name")
		}

		if patch.Priority != nil && *patch.Priority != current.Priority {
			current.Priority = *patch.Priority
			columns = append(columns, "priority")
		}
		if patch.Resolution != nil {
			current.Resolution = optionalText(sanitizeText(*patch.Resolution))
			columns = append(columns, "resolution")
		}
		if patch.Recommendations != nil {
			current.Recommendations = optionalText(sanitizeText(*patch.Recommendations))
			columns = append(columns, "recommendations")
		}
		if patch.Tags != nil {
			current.Tags = normalizeTags(*patch.Tags)
			columns = append(columns, "tags")
		}

		if len(columns) > 0 {
			current.UpdatedAt = now
			columns = append(columns, "updated_at")
			if err := tx.Model(current).Select(columns).Updates(current).Error; err != nil {
				return fmt.Errorf("failed to update case: %w", err)
			}
		}

		if statusEntry != nil {
			if err := appendTrackingEntry(tx, statusEntry); err != nil {
				return err
			}
			transitioned = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		metrics.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()
		log.Printf("[CASES] Case %s moved %s -> %s", id, from, to)
	}

	return FindCase(ctx, s.DB, id)
}

// applyAssignee changes the assignment on current. With a known actor the change is
// written to the ledger before the case row is updated.
func (s *CaseService) applyAssignee(tx *gorm.DB, current *models.Case, patch UpdateCaseInput, actor *Actor, assignee *models.User) ([]string, error) {
	newID := strings.TrimSpace(*patch.AssigneeID)
	if current.AssigneeID != nil && *current.AssigneeID == newID {
		if patch.AssigneeName == nil {
			return nil, nil
		}
		current.AssigneeName = optionalText(*patch.AssigneeName)
		return []string{"assignee_name"}, nil
	}

	if newID == "" {
		if current.AssigneeID == nil {
			return nil, nil
		}
		current.AssigneeID = nil
		current.AssigneeName = nil
		if actor != nil {
			entry := newTrackingEntry(current.ID, actor, ActionCaseUnassigned, "Case unassigned")
			if err := appendTrackingEntry(tx, entry); err != nil {
				return nil, err
			}
		}
		return []string{"assignee_id", "assignee_name"}, nil
	}

	name := newID
	if assignee != nil && assignee.Name != "" {
		name = assignee.Name
	}
	if patch.AssigneeName != nil && strings.TrimSpace(*patch.AssigneeName) != "" {
		name = strings.TrimSpace(*patch.AssigneeName)
	}

	current.AssigneeID = &newID
	current.AssigneeName = &name
	if actor != nil {
		entry := newTrackingEntry(current.ID, actor, ActionCaseAssigned, "Case assigned to "+name)
		if err := appendTrackingEntry(tx, entry); err != nil {
			return nil, err
		}
	}
	return []string{"assignee_id", "assignee_name"}, nil
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Assign hands the case to a staff user and moves it to UNDER_REVIEW
func (s *CaseService) Assign(ctx context.Context, id, assigneeID string, actor *Actor) (*models.Case, error) {
	defer observeOperation("assign", time.Now())

	if _, err := findCaseRow(s.DB.WithContext(ctx), id); err != nil {
		return nil, err
	}
	user, err := s.resolveAssignee(ctx, strings.TrimSpace(assigneeID))
	if err != nil {
		return nil, err
	}

	status := models.CaseStatusUnderReview
	patch := UpdateCaseInput{
		AssigneeID:   &user.ID,
		AssigneeName: &user.Name,
		Status:       &status,
	}
	return s.update(ctx, id, patch, actor, user)
}

// AddTrackingEntry appends a manual entry and links already uploaded attachments of the same case to it
func (s *CaseService) AddTrackingEntry(ctx context.Context, caseID string, in TrackingEntryInput, actor *Actor) (*models.TrackingEntry, error) {
	defer observeOperation("add_tracking_entry", time.Now())

	in.Action = strings.TrimSpace(in.Action)
	in.Comment = sanitizeText(in.Comment)
	if err := ValidateTrackingEntryInput(&in); err != nil {
		return nil, err
	}

	var entryID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findCaseRow(tx, caseID); err != nil {
			return err
		}

		entry := newTrackingEntry(caseID, actor, in.Action, in.Comment)
		if in.IsVisible != nil {
			entry.IsVisible = *in.IsVisible
		}
		if err := appendTrackingEntry(tx, entry); err != nil {
			return err
		}

		linked, err := reparentAttachments(tx, in.AttachmentIDs, caseID, entry.ID)
		if err != nil {
			return err
		}
		if skipped := int64(len(in.AttachmentIDs)) - linked; skipped > 0 {
			log.Printf("[CASES] Ignored %d attachment id(s) not belonging to case %s", skipped, caseID)
		}

		entryID = entry.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetTrackingEntry(ctx, s.DB, entryID)
}

// Archive moves the case to ARCHIVED. Cases are never deleted.
func (s *CaseService) Archive(ctx context.Context, id string, actor *Actor) (*models.Case, error) {
	status := models.CaseStatusArchived
	return s.Update(ctx, id, UpdateCaseInput{Status: &status}, actor)
}

// SendCertificate emails the registration certificate to the complainant.
// Notifier errors are returned to the caller.
func (s *CaseService) SendCertificate(ctx context.Context, id string, document []byte) error {
	defer observeOperation("send_certificate", time.Now())

	if len(document) == 0 {
		return newValidationError([]string{"certificate document is required"})
	}

	c, err := findCaseWithComplainant(s.DB.WithContext(ctx), id)
	if err != nil {
		return err
	}
	if err := checkCertificateRecipient(c); err != nil {
		return err
	}

	err = deliverCertificate(ctx, s.Notifier, c, document, metrics.TriggerExplicit)
	if err != nil {
		return fmt.Errorf("failed to send certificate for case %s: %w", c.Code, err)
	}
	return nil
}

// FindOne returns a case with all relations
func (s *CaseService) FindOne(ctx context.Context, id string) (*models.Case, error) {
	return FindCase(ctx, s.DB, id)
}

// FindByCode returns a case by its code with all relations
func (s *CaseService) FindByCode(ctx context.Context, code string) (*models.Case, error) {
	return FindCaseByCode(ctx, s.DB, code)
}

// List returns one page of cases matching filter
func (s *CaseService) List(ctx context.Context, filter CaseFilter) (*CaseList, error) {
	return ListCases(ctx, s.DB, filter, s.now())
}

// TrackingEntries returns the ledger of a case, newest first
func (s *CaseService) TrackingEntries(ctx context.Context, caseID string, visibleOnly bool) ([]models.TrackingEntry, error) {
	return ListTrackingEntries(ctx, s.DB, caseID, visibleOnly)
}
