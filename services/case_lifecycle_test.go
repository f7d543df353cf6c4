package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	database "case_registry_go/db"
	"case_registry_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testNow   = time.Date(2025, 4, 15, 14, 30, 0, 0, time.UTC)
	testActor = &Actor{ID: "7f1d2c3b-0000-4000-8000-000000000001", Name: "Officer Ramos"}
)

func TestCreate_CodeSequenceScenario(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-0001", first.Code)

	second, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-0002", second.Code)

	denunciation, err := svc.Create(ctx, validCaseInput(models.CaseTypeDenunciation), nil)
	require.NoError(t, err)
	assert.Equal(t, "DEN-2025-0001", denunciation.Code)

	grievance, err := svc.Create(ctx, validCaseInput(models.CaseTypeGrievance), nil)
	require.NoError(t, err)
	assert.Equal(t, "QUE-2025-0001", grievance.Code)
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	in := validCaseInput(models.CaseTypeGrievance)
	in.Tags = []string{" academic ", "", "academic", "harassment"}
	created, err := svc.Create(context.Background(), in, nil)
	require.NoError(t, err)

	stored, err := svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusPending, stored.Status)
	assert.Equal(t, models.CasePriorityMedium, stored.Priority)
	assert.True(t, testNow.Equal(stored.CreatedAt))
	assert.Equal(t, 28*24*time.Hour, stored.DueDate.Sub(stored.CreatedAt))
	assert.Nil(t, stored.ResolvedAt)
	assert.Nil(t, stored.AssigneeID)
	assert.Equal(t, []string{"academic", "harassment"}, stored.Tags)

	require.NotNil(t, stored.Complainant)
	assert.Equal(t, in.Complainant.Email, stored.Complainant.Email)
	assert.Equal(t, stored.ID, stored.Complainant.CaseID)
	require.NotNil(t, stored.Respondent)
	assert.Equal(t, "Rojas", stored.Respondent.PaternalName)
}

func TestCreate_DueDateAlwaysTwentyEightDays(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Now = fixedClock(testNow.Add(time.Duration(i) * 37 * time.Hour).Add(123456 * time.Nanosecond))
		_, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)
	}

	var cases []models.Case
	require.NoError(t, svc.DB.Find(&cases).Error)
	require.Len(t, cases, 5)
	for _, c := range cases {
		assert.Equal(t, ResolutionWindow, c.DueDate.Sub(c.CreatedAt), c.Code)
	}
}

func TestCreate_StaffIntakeWritesInitialEntry(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	created, err := svc.Create(context.Background(), validCaseInput(models.CaseTypeComplaint), testActor)
	require.NoError(t, err)

	require.Len(t, created.TrackingEntries, 1)
	entry := created.TrackingEntries[0]
	assert.Equal(t, ActionCaseCreated, entry.Action)
	assert.Equal(t, "Case REC-2025-0001 registered", entry.Comment)
	assert.Equal(t, testActor.Name, entry.ActorName)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, testActor.ID, *entry.ActorID)
	assert.Nil(t, entry.PreviousStatus)
	require.NotNil(t, entry.NewStatus)
	assert.Equal(t, models.CaseStatusPending, *entry.NewStatus)
	assert.True(t, entry.IsVisible)
}

// Public intake has no actor and leaves the ledger empty, unlike every other mutation.
func TestCreate_AnonymousIntakeWritesNoEntry(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	in := validCaseInput(models.CaseTypeDenunciation)
	in.IsAnonymous = true
	in.Complainant = nil
	created, err := svc.Create(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Empty(t, created.TrackingEntries)
	assert.Equal(t, int64(0), countEntries(t, svc.DB, created.ID))
	assert.Nil(t, created.Complainant)
	assert.True(t, created.IsAnonymous)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	tests := []struct {
		name   string
		mutate func(in *CreateCaseInput)
		field  string
	}{
		{"unknown type", func(in *CreateCaseInput) { in.Type = "SUGGESTION" }, "type"},
		{"unknown priority", func(in *CreateCaseInput) { in.Priority = "CRITICAL" }, "priority"},
		{"short facts", func(in *CreateCaseInput) { in.FactsDescription = "too short" }, "facts_description"},
		{"short rights", func(in *CreateCaseInput) { in.RightsAffected = "   " }, "rights_affected"},
		{"bad complainant email", func(in *CreateCaseInput) { in.Complainant.Email = "not-an-email" }, "complainant.email"},
		{"short document number", func(in *CreateCaseInput) { in.Complainant.DocumentNumber = "123" }, "complainant.document_number"},
		{"bad respondent mobile", func(in *CreateCaseInput) { in.Respondent.Mobile = stringPtr("12") }, "respondent.mobile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCaseInput(models.CaseTypeComplaint)
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in, testActor)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, strings.Join(verr.Fields, "\n"), tt.field)
		})
	}

	var count int64
	svc.DB.Model(&models.Case{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreate_SanitizesNarrative(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	in := validCaseInput(models.CaseTypeComplaint)
	in.FactsDescription = `<script>alert("x")</script>The grading committee & the dean ignored my appeal`
	created, err := svc.Create(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, "The grading committee & the dean ignored my appeal", created.FactsDescription)
}

func TestCreate_ConcurrentIntakeGetsUniqueCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.db")
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(testModels...))
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	svc := NewCaseService(db, nil, &fakeNotifier{})
	svc.Now = fixedClock(testNow)

	const workers = 10
	codes := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.Create(context.Background(), validCaseInput(models.CaseTypeComplaint), nil)
			errs[i] = err
			if err == nil {
				codes[i] = c.Code
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(codes)
	for i, code := range codes {
		assert.Equal(t, fmt.Sprintf("REC-2025-%04d", i+1), code)
	}
}

func TestUpdate_StatusChangeWritesOneEntry(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), testActor)
	require.NoError(t, err)
	before := countEntries(t, svc.DB, created.ID)

	updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusInProgress)}, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusInProgress, updated.Status)
	assert.Equal(t, before+1, countEntries(t, svc.DB, created.ID))

	var entry models.TrackingEntry
	require.NoError(t, svc.DB.Where("case_id = ? AND action = ?", created.ID, ActionStatusChanged).First(&entry).Error)
	require.True(t, entry.IsStatusChange())
	assert.Equal(t, models.CaseStatusPending, *entry.PreviousStatus)
	assert.Equal(t, models.CaseStatusInProgress, *entry.NewStatus)
	assert.Equal(t, "Status changed from PENDING to IN_PROGRESS", entry.Comment)
	assert.Equal(t, testActor.Name, entry.ActorName)

	var stored models.Case
	require.NoError(t, svc.DB.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, models.CaseStatusInProgress, stored.Status)
}

func TestUpdate_StatusChangeWithoutActorIsAttributedToSystem(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusRejected)}, nil)
	require.NoError(t, err)

	entries, err := svc.TrackingEntries(ctx, created.ID, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SystemActorName, entries[0].ActorName)
	assert.Nil(t, entries[0].ActorID)
}

func TestUpdate_ResolveStampsExecutionTime(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeGrievance), nil)
	require.NoError(t, err)

	resolvedAt := testNow.Add(72 * time.Hour)
	svc.Now = fixedClock(resolvedAt)

	updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{
		Status:     statusPtr(models.CaseStatusResolved),
		Resolution: stringPtr("Grade corrected by the academic committee"),
	}, testActor)
	require.NoError(t, err)

	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, resolvedAt.Equal(*updated.ResolvedAt), "got %v", updated.ResolvedAt)
	require.NotNil(t, updated.Resolution)
	assert.Equal(t, "Grade corrected by the academic committee", *updated.Resolution)

	require.Len(t, updated.TrackingEntries, 1)
	entry := updated.TrackingEntries[0]
	assert.Equal(t, models.CaseStatusPending, *entry.PreviousStatus)
	assert.Equal(t, models.CaseStatusResolved, *entry.NewStatus)
}

func TestUpdate_ExplicitResolvedAt(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	explicit := testNow.Add(-2 * time.Hour)
	_, err = svc.Update(ctx, created.ID, UpdateCaseInput{ResolvedAt: &explicit}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{
		Status:     statusPtr(models.CaseStatusResolved),
		ResolvedAt: &explicit,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.True(t, explicit.Equal(*updated.ResolvedAt))
}

func TestUpdate_SameStatusWritesNoEntry(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	high := models.CasePriorityHigh
	updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{
		Status:   statusPtr(models.CaseStatusPending),
		Priority: &high,
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.CasePriorityHigh, updated.Priority)
	assert.Equal(t, int64(0), countEntries(t, svc.DB, created.ID))
}

func TestUpdate_PermissivePolicyAllowsReopening(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusResolved)}, testActor)
	require.NoError(t, err)
	reopened, err := svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusPending)}, testActor)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusPending, reopened.Status)
	assert.Equal(t, int64(2), countEntries(t, svc.DB, created.ID))
}

func TestUpdate_StrictPolicyRejectsTransition(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	svc.Policy = NewStrictPolicy()
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusArchived)}, testActor)
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateCaseInput{Status: statusPtr(models.CaseStatusPending)}, testActor)
	assert.ErrorIs(t, err, ErrTransitionForbidden)
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusArchived, stored.Status)
	assert.Len(t, stored.TrackingEntries, 1)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	_, err := svc.Update(context.Background(), "00000000-0000-4000-8000-000000000000", UpdateCaseInput{Status: statusPtr(models.CaseStatusResolved)}, testActor)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_UnknownCaseReportedBeforeUnknownAssignee(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	missing := "00000000-0000-4000-8000-000000000000"

	_, err := svc.Update(context.Background(), missing, UpdateCaseInput{AssigneeID: stringPtr("nobody")}, testActor)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.NotErrorIs(t, err, ErrAssigneeNotFound)

	_, err = svc.Assign(context.Background(), missing, "nobody", testActor)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.NotErrorIs(t, err, ErrAssigneeNotFound)
}

func TestUpdate_InvalidStatus(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	created, err := svc.Create(context.Background(), validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, UpdateCaseInput{Status: statusPtr("CLOSED")}, testActor)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_AssignmentEntryRequiresActor(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()
	user := createTestUser(t, svc.DB, "Maria Salas")

	t.Run("with actor", func(t *testing.T) {
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)

		updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{AssigneeID: &user.ID}, testActor)
		require.NoError(t, err)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, user.ID, *updated.AssigneeID)
		assert.Equal(t, "Maria Salas", *updated.AssigneeName)
		assert.Equal(t, models.CaseStatusPending, updated.Status)

		require.Len(t, updated.TrackingEntries, 1)
		assert.Equal(t, ActionCaseAssigned, updated.TrackingEntries[0].Action)
		assert.Equal(t, "Case assigned to Maria Salas", updated.TrackingEntries[0].Comment)
	})

	t.Run("without actor", func(t *testing.T) {
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)

		updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{AssigneeID: &user.ID}, nil)
		require.NoError(t, err)
		require.NotNil(t, updated.AssigneeID)
		assert.Empty(t, updated.TrackingEntries)
	})

	t.Run("unassign", func(t *testing.T) {
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)
		_, err = svc.Update(ctx, created.ID, UpdateCaseInput{AssigneeID: &user.ID}, nil)
		require.NoError(t, err)

		updated, err := svc.Update(ctx, created.ID, UpdateCaseInput{AssigneeID: stringPtr("")}, testActor)
		require.NoError(t, err)
		assert.Nil(t, updated.AssigneeID)
		assert.Nil(t, updated.AssigneeName)
		require.Len(t, updated.TrackingEntries, 1)
		assert.Equal(t, ActionCaseUnassigned, updated.TrackingEntries[0].Action)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)

		_, err = svc.Update(ctx, created.ID, UpdateCaseInput{AssigneeID: stringPtr("missing-user")}, testActor)
		assert.ErrorIs(t, err, ErrAssigneeNotFound)
	})
}

func TestAssign(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()
	user := createTestUser(t, svc.DB, "Jorge Paredes")

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeGrievance), nil)
	require.NoError(t, err)

	assigned, err := svc.Assign(ctx, created.ID, user.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusUnderReview, assigned.Status)
	assert.Equal(t, user.ID, *assigned.AssigneeID)
	assert.Equal(t, "Jorge Paredes", *assigned.AssigneeName)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, user.Email, assigned.Assignee.Email)

	var entries []models.TrackingEntry
	require.NoError(t, svc.DB.Where("case_id = ?", created.ID).Order("created_at ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionCaseAssigned, entries[0].Action)
	assert.Equal(t, ActionStatusChanged, entries[1].Action)
	assert.Equal(t, models.CaseStatusUnderReview, *entries[1].NewStatus)

	// The case keeps the name it was assigned under
	require.NoError(t, svc.DB.Model(user).Update("name", "Jorge A. Paredes").Error)
	stored, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jorge Paredes", *stored.AssigneeName)
	assert.Equal(t, "Jorge A. Paredes", stored.Assignee.Name)
}

func TestAssign_UnknownUser(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	created, err := svc.Create(context.Background(), validCaseInput(models.CaseTypeGrievance), nil)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), created.ID, "nobody", testActor)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := svc.FindOne(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusPending, stored.Status)
}

func createTestAttachment(t *testing.T, db *gorm.DB, caseID, name string) *models.Attachment {
	t.Helper()
	a := &models.Attachment{
		CaseID:     caseID,
		FileName:   name,
		StorageKey: GenerateAttachmentKey(caseID, name),
		MediaType:  "application/pdf",
		Size:       128,
		Category:   models.AttachmentCategoryEvidence,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func TestAddTrackingEntry_ReparentsOnlySameCaseAttachments(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	target, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)
	other, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	own := createTestAttachment(t, svc.DB, target.ID, "minutes.pdf")
	foreign := createTestAttachment(t, svc.DB, other.ID, "other-evidence.pdf")

	entry, err := svc.AddTrackingEntry(ctx, target.ID, TrackingEntryInput{
		Action:        "Hearing held",
		Comment:       "Both parties attended the hearing and signed the minutes",
		AttachmentIDs: []string{own.ID, foreign.ID},
	}, testActor)
	require.NoError(t, err)

	require.Len(t, entry.Attachments, 1)
	assert.Equal(t, own.ID, entry.Attachments[0].ID)

	var reloaded models.Attachment
	require.NoError(t, svc.DB.First(&reloaded, "id = ?", foreign.ID).Error)
	assert.Nil(t, reloaded.TrackingEntryID)
	assert.Equal(t, other.ID, reloaded.CaseID)
}

func TestAddTrackingEntry(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
	require.NoError(t, err)

	t.Run("hidden entry", func(t *testing.T) {
		hidden := false
		entry, err := svc.AddTrackingEntry(ctx, created.ID, TrackingEntryInput{
			Action:    "Internal note",
			Comment:   "Requested the grade records from the registrar",
			IsVisible: &hidden,
		}, testActor)
		require.NoError(t, err)
		assert.False(t, entry.IsVisible)
		assert.Equal(t, testActor.Name, entry.ActorName)
		assert.Nil(t, entry.PreviousStatus)
	})

	t.Run("without actor", func(t *testing.T) {
		entry, err := svc.AddTrackingEntry(ctx, created.ID, TrackingEntryInput{
			Action:  "Reminder",
			Comment: "Deadline reminder sent to the assigned office",
		}, nil)
		require.NoError(t, err)
		assert.True(t, entry.IsVisible)
		assert.Equal(t, models.SystemActorName, entry.ActorName)
	})

	t.Run("visible only listing", func(t *testing.T) {
		all, err := svc.TrackingEntries(ctx, created.ID, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		visible, err := svc.TrackingEntries(ctx, created.ID, true)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, "Reminder", visible[0].Action)
	})

	t.Run("short comment", func(t *testing.T) {
		_, err := svc.AddTrackingEntry(ctx, created.ID, TrackingEntryInput{Action: "Note", Comment: "short"}, testActor)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown case", func(t *testing.T) {
		_, err := svc.AddTrackingEntry(ctx, "missing", TrackingEntryInput{Action: "Note", Comment: "A sufficiently long comment"}, testActor)
		assert.ErrorIs(t, err, ErrCaseNotFound)
	})
}

func TestArchive_KeepsCaseAndLedger(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeDenunciation), testActor)
	require.NoError(t, err)
	_, err = svc.AddTrackingEntry(ctx, created.ID, TrackingEntryInput{Action: "Note", Comment: "Evidence reviewed by the committee"}, testActor)
	require.NoError(t, err)

	_, err = svc.Archive(ctx, created.ID, testActor)
	require.NoError(t, err)

	stored, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusArchived, stored.Status)
	assert.Len(t, stored.TrackingEntries, 3)
	assert.NotNil(t, stored.Complainant)
	assert.Equal(t, ActionStatusChanged, stored.TrackingEntries[0].Action)
}

func TestTrackingEntriesAreAppendOnly(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)

	created, err := svc.Create(context.Background(), validCaseInput(models.CaseTypeComplaint), testActor)
	require.NoError(t, err)
	entry := created.TrackingEntries[0]

	err = svc.DB.Model(&entry).Update("comment", "rewritten").Error
	assert.ErrorIs(t, err, models.ErrTrackingEntryImmutable)

	err = svc.DB.Delete(&entry).Error
	assert.ErrorIs(t, err, models.ErrTrackingEntryImmutable)

	assert.Equal(t, int64(1), countEntries(t, svc.DB, created.ID))
}

func TestSendCertificate(t *testing.T) {
	ctx := context.Background()
	document := []byte("%PDF-1.4 certificate")

	t.Run("sends to consenting complainant", func(t *testing.T) {
		svc, notifier := newTestCaseService(t, testNow)
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)

		require.NoError(t, svc.SendCertificate(ctx, created.ID, document))

		sent := notifier.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, created.Complainant.Email, sent[0].To)
		assert.Equal(t, "Lucia Fernanda Quispe Huaman", sent[0].FullName)
		assert.Equal(t, created.Code, sent[0].Code)
		assert.Equal(t, document, sent[0].Document)
	})

	t.Run("no complainant", func(t *testing.T) {
		svc, notifier := newTestCaseService(t, testNow)
		in := validCaseInput(models.CaseTypeComplaint)
		in.Complainant = nil
		created, err := svc.Create(ctx, in, nil)
		require.NoError(t, err)

		err = svc.SendCertificate(ctx, created.ID, document)
		assert.ErrorIs(t, err, ErrNoComplainant)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, notifier.Sent())
	})

	t.Run("no consent", func(t *testing.T) {
		svc, notifier := newTestCaseService(t, testNow)
		in := validCaseInput(models.CaseTypeComplaint)
		in.Complainant.EmailConsent = false
		created, err := svc.Create(ctx, in, nil)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.SendCertificate(ctx, created.ID, document), ErrNoEmailConsent)
		assert.Empty(t, notifier.Sent())
	})

	t.Run("notifier failure surfaces", func(t *testing.T) {
		svc, notifier := newTestCaseService(t, testNow)
		notifier.err = errNotifierDown
		created, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), nil)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.SendCertificate(ctx, created.ID, document), errNotifierDown)
	})

	t.Run("unknown case", func(t *testing.T) {
		svc, _ := newTestCaseService(t, testNow)
		assert.ErrorIs(t, svc.SendCertificate(ctx, "missing", document), ErrCaseNotFound)
	})

	t.Run("empty document", func(t *testing.T) {
		svc, _ := newTestCaseService(t, testNow)
		assert.ErrorIs(t, svc.SendCertificate(ctx, "missing", nil), ErrValidation)
	})
}

func TestFindByCode(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCaseInput(models.CaseTypeGrievance), nil)
	require.NoError(t, err)

	found, err := svc.FindByCode(ctx, " que-2025-0001 ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.FindByCode(ctx, "QUE-2025-0002")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	_, err = svc.FindByCode(ctx, "garbage")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestList(t *testing.T) {
	svc, _ := newTestCaseService(t, testNow)
	ctx := context.Background()
	user := createTestUser(t, svc.DB, "Carla Vega")

	complaint, err := svc.Create(ctx, validCaseInput(models.CaseTypeComplaint), testActor)
	require.NoError(t, err)
	in := validCaseInput(models.CaseTypeDenunciation)
	in.FactsDescription = "Unauthorized fee collected at the library counter last week"
	denunciation, err := svc.Create(ctx, in, nil)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, denunciation.ID, user.ID, testActor)
	require.NoError(t, err)
	createTestAttachment(t, svc.DB, denunciation.ID, "receipt.pdf")

	t.Run("all", func(t *testing.T) {
		list, err := svc.List(ctx, CaseFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
		assert.Len(t, list.Items, 2)
	})

	t.Run("by type", func(t *testing.T) {
		list, err := svc.List(ctx, CaseFilter{Type: models.CaseTypeComplaint})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, complaint.ID, list.Items[0].ID)
		assert.Equal(t, int64(1), list.Items[0].TrackingCount)
	})

	t.Run("by status and assignee", func(t *testing.T) {
		list, err := svc.List(ctx, CaseFilter{Status: models.CaseStatusUnderReview, AssigneeID: user.ID})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		item := list.Items[0]
		assert.Equal(t, denunciation.ID, item.ID)
		assert.Equal(t, int64(2), item.TrackingCount)
		assert.Equal(t, int64(1), item.AttachmentCount)
		assert.False(t, item.IsOverdue)
		assert.Equal(t, 28, item.DaysRemaining)
	})

	t.Run("search", func(t *testing.T) {
		list, err := svc.List(ctx, CaseFilter{Search: "LIBRARY counter"})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, denunciation.ID, list.Items[0].ID)

		list, err = svc.List(ctx, CaseFilter{Search: "rec-2025"})
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, complaint.ID, list.Items[0].ID)
	})

	t.Run("paging", func(t *testing.T) {
		list, err := svc.List(ctx, CaseFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
		assert.Len(t, list.Items, 1)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := svc.List(ctx, CaseFilter{Status: "OPEN"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}
