package services

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"case_registry_go/models"
)

// Minimum lengths for free text fields
const (
	MinNarrativeLength = 20
	MinCommentLength   = 10
	MinNameLength      = 2
	MinAddressLength   = 10
)

// CreateCaseInput is the intake payload for a new case
type CreateCaseInput struct {
	Type              models.CaseType     `json:"type"`
	Priority          models.CasePriority `json:"priority"`
	FactsDescription  string              `json:"facts_description"`
	RightsAffected    string              `json:"rights_affected"`
	IsAnonymous       bool                `json:"is_anonymous"`
	RequiresMediation bool                `json:"requires_mediation"`
	IsConfidential    bool                `json:"is_confidential"`
	Tags              []string            `json:"tags"`
	Complainant       *models.Complainant `json:"complainant"`
	Respondent        *models.Respondent  `json:"respondent"`
}

// UpdateCaseInput is a partial update. Nil fields are left untouched.
// An empty AssigneeID clears the assignment.
type UpdateCaseInput struct {
	Status          *models.CaseStatus   `json:"status"`
	Priority        *models.CasePriority `json:"priority"`
	AssigneeID      *string              `json:"assignee_id"`
	AssigneeName    *string              `json:"assignee_name"`
	Resolution      *string              `json:"resolution"`
	Recommendations *string              `json:"recommendations"`
	ResolvedAt      *time.Time           `json:"resolved_at"`
	Tags            *[]string            `json:"tags"`
}

// TrackingEntryInput is a manual ledger entry
type TrackingEntryInput struct {
	Action        string   `json:"action"`
	Comment       string   `json:"comment"`
	IsVisible     *bool    `json:"is_visible"`
	AttachmentIDs []string `json:"attachment_ids"`
}

func textLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func checkMinLength(problems []string, field, value string, min int) []string {
	if textLength(value) < min {
		problems = append(problems, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	return problems
}

func checkLengthRange(problems []string, field, value string, min, max int) []string {
	if n := textLength(value); n < min || n > max {
		problems = append(problems, fmt.Sprintf("%s must be between %d and %d characters", field, min, max))
	}
	return problems
}

func isValidEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == strings.TrimSpace(address)
}

// ValidateCreateCaseInput checks an intake payload and reports every problem at once
func ValidateCreateCaseInput(in *CreateCaseInput) error {
	var problems []string

	if !models.IsValidCaseType(in.Type) {
		problems = append(problems, fmt.Sprintf("type must be one of %v", models.AllCaseTypes))
	}
	if in.Priority != "" && !models.IsValidCasePriority(in.Priority) {
		problems = append(problems, fmt.Sprintf("priority must be one of %v", models.AllCasePriorities))
	}
	problems = checkMinLength(problems, "facts_description", in.FactsDescription, MinNarrativeLength)
	problems = checkMinLength(problems, "rights_affected", in.RightsAffected, MinNarrativeLength)

	if p := in.Complainant; p != nil {
		problems = append(problems, validateComplainant(p)...)
	}
	if p := in.Respondent; p != nil {
		problems = append(problems, validateRespondent(p)...)
	}

	return newValidationError(problems)
}

func validateComplainant(p *models.Complainant) []string {
	var problems []string
	if !models.IsValidPartyRole(p.Role) {
		problems = append(problems, "complainant.role is invalid")
	}
	switch p.DocumentType {
	case models.DocumentTypeDNI, models.DocumentTypeForeignID, models.DocumentTypePassport:
	default:
		problems = append(problems, "complainant.document_type is invalid")
	}
	problems = checkLengthRange(problems, "complainant.document_number", p.DocumentNumber, 8, 20)
	problems = checkMinLength(problems, "complainant.given_names", p.GivenNames, MinNameLength)
	problems = checkMinLength(problems, "complainant.paternal_name", p.PaternalName, MinNameLength)
	problems = checkMinLength(problems, "complainant.maternal_name", p.MaternalName, MinNameLength)
	if p.Sex != models.SexMale && p.Sex != models.SexFemale {
		problems = append(problems, "complainant.sex is invalid")
	}
	problems = checkLengthRange(problems, "complainant.mobile", p.Mobile, 9, 15)
	problems = checkMinLength(problems, "complainant.address", p.Address, MinAddressLength)
	if !isValidEmail(p.Email) {
		problems = append(problems, "complainant.email is invalid")
	}
	return problems
}

func validateRespondent(p *models.Respondent) []string {
	var problems []string
	if !models.IsValidPartyRole(p.Role) {
		problems = append(problems, "respondent.role is invalid")
	}
	problems = checkMinLength(problems, "respondent.given_names", p.GivenNames, MinNameLength)
	problems = checkMinLength(problems, "respondent.paternal_name", p.PaternalName, MinNameLength)
	problems = checkMinLength(problems, "respondent.maternal_name", p.MaternalName, MinNameLength)
	if p.Sex != nil && *p.Sex != models.SexMale && *p.Sex != models.SexFemale {
		problems = append(problems, "respondent.sex is invalid")
	}
	if p.Mobile != nil {
		problems = checkLengthRange(problems, "respondent.mobile", *p.Mobile, 9, 15)
	}
	if p.Email != nil && !isValidEmail(*p.Email) {
		problems = append(problems, "respondent.email is invalid")
	}
	return problems
}

// ValidateUpdateCaseInput checks the enum fields of a patch
func ValidateUpdateCaseInput(in *UpdateCaseInput) error {
	var problems []string
	if in.Status != nil && !models.IsValidCaseStatus(*in.Status) {
		problems = append(problems, fmt.Sprintf("status must be one of %v", models.AllCaseStatuses))
	}
	if in.Priority != nil && !models.IsValidCasePriority(*in.Priority) {
		problems = append(problems, fmt.Sprintf("priority must be one of %v", models.AllCasePriorities))
	}
	return newValidationError(problems)
}

// ValidateTrackingEntryInput checks a manual ledger entry
func ValidateTrackingEntryInput(in *TrackingEntryInput) error {
	var problems []string
	if strings.TrimSpace(in.Action) == "" {
		problems = append(problems, "action is required")
	}
	problems = checkMinLength(problems, "comment", in.Comment, MinCommentLength)
	return newValidationError(problems)
}

// normalizeTags trims tags and drops empties and duplicates, keeping order
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
