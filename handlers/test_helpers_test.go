package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"case_registry_go/middleware"
	"case_registry_go/models"
	"case_registry_go/services"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory name isolates tests
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.Case{},
		&models.Complainant{},
		&models.Respondent{},
		&models.TrackingEntry{},
		&models.Attachment{},
	)
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return testDB
}

type recordingNotifier struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (n *recordingNotifier) SendCertificate(ctx context.Context, toEmail, fullName, code string, document []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes = append(n.codes, code)
	return nil
}

func (n *recordingNotifier) sentCodes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.codes...)
}

var errMailDown = errors.New("mail provider down")

type testEnv struct {
	db       *gorm.DB
	handler  *CaseHandler
	notifier *recordingNotifier
	officer  *models.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := setupTestDB(t)
	notifier := &recordingNotifier{}

	cases := services.NewCaseService(database, nil, notifier)
	cases.Now = func() time.Time { return handlerNow }
	attachments := services.NewAttachmentService(database, services.NewLocalStorage(t.TempDir()), notifier, 1<<20)
	stats := &services.StatisticsService{DB: database, Now: func() time.Time { return handlerNow }}

	officer := &models.User{Name: "Rosa Medina", Email: gofakeit.Email(), Role: models.UserRoleOfficer, IsActive: true}
	require.NoError(t, database.Create(officer).Error)

	return &testEnv{
		db:       database,
		handler:  NewCaseHandler(cases, attachments, stats, 1<<20),
		notifier: notifier,
		officer:  officer,
	}
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return e, c, rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func withParams(c echo.Context, pairs ...string) {
	var names, values []string
	for i := 0; i+1 < len(pairs); i += 2 {
		names = append(names, pairs[i])
		values = append(values, pairs[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func asUser(c echo.Context, user *models.User) {
	c.Set(middleware.ContextKeyUser, user)
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he
}

func caseRequestBody(caseType models.CaseType) map[string]interface{} {
	return map[string]interface{}{
		"type":              caseType,
		"facts_description": "The laboratory fee was charged twice on my student account",
		"rights_affected":   "Right to transparent billing and to a timely refund",
		"tags":              []string{"billing"},
		"complainant": map[string]interface{}{
			"role":            models.PartyRoleStudent,
			"document_type":   models.DocumentTypeDNI,
			"document_number": "70123456",
			"given_names":     "Diego",
			"paternal_name":   "Campos",
			"maternal_name":   "Rivas",
			"sex":             models.SexMale,
			"mobile":          "912345678",
			"address":         "Jr. Las Flores 245, Lima",
			"email":           "diego.campos@example.org",
			"email_consent":   true,
		},
	}
}

func createCase(t *testing.T, env *testEnv, caseType models.CaseType) *models.Case {
	t.Helper()
	in := services.CreateCaseInput{
		Type:             caseType,
		FactsDescription: "The laboratory fee was charged twice on my student account",
		RightsAffected:   "Right to transparent billing and to a timely refund",
		Complainant: &models.Complainant{
			Role:           models.PartyRoleStudent,
			DocumentType:   models.DocumentTypeDNI,
			DocumentNumber: "70123456",
			GivenNames:     "Diego",
			PaternalName:   "Campos",
			MaternalName:   "Rivas",
			Sex:            models.SexMale,
			Mobile:         "912345678",
			Address:        "Jr. Las Flores 245, Lima",
			Email:          "diego.campos@example.org",
			EmailConsent:   true,
		},
	}
	created, err := env.handler.Cases.Create(context.Background(), in, nil)
	require.NoError(t, err)
	return created
}
