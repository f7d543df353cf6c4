package services

import (
	"math"
	"time"

	"case_registry_go/models"
)

// ResolutionWindow is the time allowed to resolve a case: 28 calendar days, roughly 20 business days
const ResolutionWindow = 28 * 24 * time.Hour

// DueDate returns the resolution deadline for a case created at createdAt
func DueDate(createdAt time.Time) time.Time {
	return createdAt.Add(ResolutionWindow)
}

// IsOverdue reports whether an open case has passed its due date
func IsOverdue(c *models.Case, now time.Time) bool {
	return c.IsPendingLike() && now.After(c.DueDate)
}

// DaysRemaining returns whole days left until the due date, negative once overdue
func DaysRemaining(c *models.Case, now time.Time) int {
	return int(math.Floor(c.DueDate.Sub(now).Hours() / 24))
}
