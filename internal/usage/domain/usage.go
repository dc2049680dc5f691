// Package domain defines the usage ledger record type.
package domain

import (
	"time"

	questiondomain "maya-assessment/backend/internal/question/domain"
)

// UsageRecord marks a UNIQUE-policy question as consumed by a user for an
// assessment type. Existence of a record means the question must never be
// selected again for that (user, assessment_type); REPEATABLE questions are
// never recorded here.
type UsageRecord struct {
	UserID         string
	AssessmentType questiondomain.AssessmentType
	QuestionID     string
	SessionID      string
	FirstUsedAt    time.Time
	LastUsedAt     time.Time
}
