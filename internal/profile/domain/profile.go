// Package domain defines the long-lived user profile and the preserved
// assessment records retained after conversational data is scrubbed.
package domain

import (
	"time"
)

// PreservedAssessmentRecord is the durable extract of one completed
// assessment: score and structured feedback only, no conversational content.
// ExpiryDate is stored as RFC3339 text; the retention sweep conservatively
// retains records whose date fails to parse rather than deleting them.
type PreservedAssessmentRecord struct {
	SessionID          string             `json:"session_id"`
	AssessmentType     string             `json:"assessment_type"`
	AssessmentDate     time.Time          `json:"assessment_date"`
	OverallBandScore   float64            `json:"overall_band_score"`
	CriterionScores    map[string]float64 `json:"criterion_scores"`
	StructuredFeedback map[string]string  `json:"structured_feedback"`
	ExpiryDate         string             `json:"expiry_date"`
}

// Expired reports whether the record's expiry has passed. Returns false when
// the expiry date cannot be parsed, so malformed records are kept.
func (r *PreservedAssessmentRecord) Expired(now time.Time) bool {
	t, err := time.Parse(time.RFC3339, r.ExpiryDate)
	if err != nil {
		return false
	}
	return now.After(t)
}

// Profile is the user's long-lived record: billing plan, remaining attempt
// credits, and preserved assessment history. Never deleted by this service;
// only its history is appended to and pruned.
type Profile struct {
	UserID            string
	Plan              string
	AssessmentCredits int
	AssessmentHistory []PreservedAssessmentRecord
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
