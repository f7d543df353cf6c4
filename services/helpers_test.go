package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"case_registry_go/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testModels = []interface{}{
	&models.User{},
	&models.Case{},
	&models.Complainant{},
	&models.Respondent{},
	&models.TrackingEntry{},
	&models.Attachment{},
}

// setupTestDB opens an isolated in-memory database with the production error translation
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(testModels...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func stringPtr(s string) *string {
	return &s
}

func statusPtr(s models.CaseStatus) *models.CaseStatus {
	return &s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type sentCertificate struct {
	To       string
	FullName string
	Code     string
	Document []byte
}

// fakeNotifier records certificates instead of sending them
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCertificate
	err  error
}

func (n *fakeNotifier) SendCertificate(ctx context.Context, toEmail, fullName, code string, document []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentCertificate{To: toEmail, FullName: fullName, Code: code, Document: document})
	return nil
}

func (n *fakeNotifier) Sent() []sentCertificate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentCertificate(nil), n.sent...)
}

var errNotifierDown = errors.New("smtp unavailable")

func newTestCaseService(t *testing.T, now time.Time) (*CaseService, *fakeNotifier) {
	t.Helper()
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	svc := NewCaseService(db, nil, notifier)
	svc.Now = fixedClock(now)
	return svc, notifier
}

func narrative() string {
	return gofakeit.Paragraph(1, 3, 12, " ")
}

func validComplainant() *models.Complainant {
	return &models.Complainant{
		Role:           models.PartyRoleStudent,
		DocumentType:   models.DocumentTypeDNI,
		DocumentNumber: "72345678",
		GivenNames:     "Lucia Fernanda",
		PaternalName:   "Quispe",
		MaternalName:   "Huaman",
		Sex:            models.SexFemale,
		Mobile:         "987654321",
		Address:        "Av. Universitaria 1801, San Miguel",
		Email:          gofakeit.Email(),
		EmailConsent:   true,
		Program:        stringPtr("Law"),
	}
}

func validRespondent() *models.Respondent {
	return &models.Respondent{
		Role:         models.PartyRoleAdministrative,
		GivenNames:   gofakeit.FirstName(),
		PaternalName: "Rojas",
		MaternalName: "Mendoza",
		AdminOffice:  stringPtr("Registrar"),
	}
}

func validCaseInput(caseType models.CaseType) CreateCaseInput {
	return CreateCaseInput{
		Type:             caseType,
		FactsDescription: narrative(),
		RightsAffected:   narrative(),
		Tags:             []string{"academic"},
		Complainant:      validComplainant(),
		Respondent:       validRespondent(),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: gofakeit.Email(), Role: models.UserRoleOfficer, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func countEntries(t *testing.T, db *gorm.DB, caseID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.TrackingEntry{}).Where("case_id = ?", caseID).Count(&n).Error)
	return n
}
