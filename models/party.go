package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartyRole is the institutional role of a complainant or respondent
type PartyRole string

const (
	PartyRoleStudent        PartyRole = "STUDENT"
	PartyRoleGraduate       PartyRole = "GRADUATE"
	PartyRoleFaculty        PartyRole = "FACULTY"
	PartyRoleAdministrative PartyRole = "ADMINISTRATIVE"
	PartyRoleExternal       PartyRole = "EXTERNAL"
)

// Identity document types
const (
	DocumentTypeDNI       = "DNI"
	DocumentTypeForeignID = "FOREIGN_ID"
	DocumentTypePassport  = "PASSPORT"
)

// Sex values
const (
	SexMale   = "MALE"
	SexFemale = "FEMALE"
)

// IsValidPartyRole checks if the role is valid
func IsValidPartyRole(role PartyRole) bool {
	switch role {
	case PartyRoleStudent, PartyRoleGraduate, PartyRoleFaculty, PartyRoleAdministrative, PartyRoleExternal:
		return true
	}
	return false
}

// IsAcademic reports whether academic fields apply to the role
func (r PartyRole) IsAcademic() bool {
	return r == PartyRoleStudent || r == PartyRoleGraduate
}

// IsStaff reports whether employment fields apply to the role
func (r PartyRole) IsStaff() bool {
	return r == PartyRoleFaculty || r == PartyRoleAdministrative
}

// Complainant is the party who filed the case (at most one per case)
type Complainant struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID string `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`

	Role           PartyRole `gorm:"size:20;not null" json:"role"`
	DocumentType   string    `gorm:"size:20;not null" json:"document_type"`
	DocumentNumber string    `gorm:"size:20;not null" json:"document_number"`
	GivenNames     string    `gorm:"not null" json:"given_names"`
	PaternalName   string    `gorm:"not null" json:"paternal_name"`
	MaternalName   string    `gorm:"not null" json:"maternal_name"`
	Sex            string    `gorm:"size:10" json:"sex"`
	Mobile         string    `gorm:"size:15" json:"mobile"`
	Address        string    `json:"address"`
	Email          string    `json:"email"`
	EmailConsent   bool      `gorm:"not null;default:false" json:"email_consent"`
	IdentityDocURL *string   `json:"identity_doc_url,omitempty"`

	// Students and graduates
	Program        *string `json:"program,omitempty"`
	UniversityCode *string `json:"university_code,omitempty"`
	GraduationTerm *string `json:"graduation_term,omitempty"`
	Faculty        *string `json:"faculty,omitempty"`

	// Faculty and administrative staff
	AcademicDepartment *string `json:"academic_department,omitempty"`
	AdminOffice        *string `json:"admin_office,omitempty"`
	Position           *string `json:"position,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Complainant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Complainant model
func (Complainant) TableName() string {
	return "complainants"
}

// FullName returns given names followed by both surnames
func (p *Complainant) FullName() string {
	return joinNames(p.GivenNames, p.PaternalName, p.MaternalName)
}

// CanReceiveEmail reports whether the complainant left an address and consented to email
func (p *Complainant) CanReceiveEmail() bool {
	return strings.TrimSpace(p.Email) != "" && p.EmailConsent
}

// Respondent is the party the case is filed against (at most one per case)
type Respondent struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CaseID string `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`

	Role         PartyRole `gorm:"size:20;not null" json:"role"`
	GivenNames   string    `gorm:"not null" json:"given_names"`
	PaternalName string    `gorm:"not null" json:"paternal_name"`
	MaternalName string    `gorm:"not null" json:"maternal_name"`
	Sex          *string   `gorm:"size:10" json:"sex,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Mobile       *string   `gorm:"size:15" json:"mobile,omitempty"`

	Program            *string `json:"program,omitempty"`
	UniversityCode     *string `json:"university_code,omitempty"`
	AcademicDepartment *string `json:"academic_department,omitempty"`
	AdminOffice        *string `json:"admin_office,omitempty"`
	Position           *string `json:"position,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Respondent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Respondent model
func (Respondent) TableName() string {
	return "respondents"
}

// FullName returns given names followed by both surnames
func (p *Respondent) FullName() string {
	return joinNames(p.GivenNames, p.PaternalName, p.MaternalName)
}

func joinNames(parts ...string) string {
	var names []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return strings.Join(names, " ")
}
