package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"case_registry_go/models"

	"gorm.io/gorm"
)

// MaxCodeAttempts bounds how many times an intake is retried after a code collision
const MaxCodeAttempts = 10

var casePrefixes = map[models.CaseType]string{
	models.CaseTypeComplaint:    "REC",
	models.CaseTypeGrievance:    "QUE",
	models.CaseTypeDenunciation: "DEN",
}

var (
	caseCodePattern  = regexp.MustCompile(`^(REC|QUE|DEN)-(\d{4})-(\d{4,})$`)
	trailingDigitsRe = regexp.MustCompile(`(\d+)$`)
)

// codeConstraintMessage is how sqlite and libsql name a duplicate case code
const codeConstraintMessage = "UNIQUE constraint failed: cases.code"

// isCodeCollision reports whether an insert failed because the case code is already taken.
// The sqlite and postgres drivers translate this to gorm.ErrDuplicatedKey; libsql (Turso)
// errors carry the constraint as a string code that gorm does not translate.
func isCodeCollision(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, codeConstraintMessage) {
		return true
	}
	return strings.Contains(msg, "SQLITE_CONSTRAINT_UNIQUE") && strings.Contains(msg, "cases.code")
}

// CaseCode is the parsed form of a case code
type CaseCode struct {
	Prefix   string
	Year     int
	Sequence int
}

// SequenceCounter hands out sequence numbers atomically per (prefix, year).
// Next must return a value greater than floor, the highest sequence already stored.
type SequenceCounter interface {
	Next(ctx context.Context, prefix string, year int, floor int) (int, error)
}

// CasePrefix returns the code prefix for a case type
func CasePrefix(caseType models.CaseType) (string, error) {
	prefix, ok := casePrefixes[caseType]
	if !ok {
		return "", &ValidationError{Fields: []string{fmt.Sprintf("unknown case type %q", caseType)}}
	}
	return prefix, nil
}

// FormatCaseCode builds a case code. The sequence is padded to four digits and widens past 9999.
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: REC-2025-0001
func FormatCaseCode(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, sequence)
}

// ParseCaseCode validates a case code and splits it into its parts
func ParseCaseCode(code string) (*CaseCode, error) {
	m := caseCodePattern.FindStringSubmatch(code)
	if m == nil {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("malformed case code %q", code)}}
	}
	year, _ := strconv.Atoi(m[2])
	seq, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("malformed case code %q", code)}}
	}
	return &CaseCode{Prefix: m[1], Year: year, Sequence: seq}, nil
}

// maxCaseSequence returns the highest sequence stored for prefix and year, or 0 when there is none.
// Ordering by length first keeps widened sequences (10000+) above 9999.
func maxCaseSequence(tx *gorm.DB, prefix string, year int) (int, error) {
	var last models.Case
	err := tx.Select("code").
		Where("code LIKE ?", fmt.Sprintf("%s-%d-%%", prefix, year)).
		Order("LENGTH(code) DESC, code DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query max case code: %w", err)
	}

	m := trailingDigitsRe.FindStringSubmatch(last.Code)
	if m == nil {
		return 0, nil
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, nil
	}
	return seq, nil
}

// GenerateCaseCode computes the next code for caseType in the year of createdAt.
// It must run inside the intake transaction; the unique index on cases.code catches any race it loses.
func GenerateCaseCode(ctx context.Context, tx *gorm.DB, counter SequenceCounter, caseType models.CaseType, createdAt time.Time) (string, error) {
	prefix, err := CasePrefix(caseType)
	if err != nil {
		return "", err
	}
	year := createdAt.Year()

	floor, err := maxCaseSequence(tx.WithContext(ctx), prefix, year)
	if err != nil {
		return "", err
	}

	sequence := floor + 1
	if counter != nil {
		next, err := counter.Next(ctx, prefix, year, floor)
		if err != nil {
			log.Printf("[WARNING] Sequence counter unavailable, using stored maximum for %s-%d: %v", prefix, year, err)
		} else {
			sequence = next
		}
	}

	return FormatCaseCode(prefix, year, sequence), nil
}
