// Package scoring hands completed conversations to the external scoring
// service and validates what comes back. The scorer is the only authority on
// band scores; this package never computes one.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrScoringUnavailable wraps any transport or decode failure talking to the
// scorer. Callers treat it as retryable: the session stays completed and
// scoring can be re-requested.
var ErrScoringUnavailable = errors.New("scoring service unavailable")

// Summary is the full conversation snapshot sent to the scorer. Built once,
// at session completion, from engine state.
type Summary struct {
	SessionID            string            `json:"session_id"`
	AssessmentType       string            `json:"assessment_type"`
	ResponseCountsByPart map[string]int    `json:"response_counts_by_part"`
	Responses            []SummaryResponse `json:"responses"`
	EvaluationNotes      []SummaryNote     `json:"evaluation_notes"`
	CompletionStatus     string            `json:"completion_status"`
}

// SummaryResponse is one recorded user turn in scorer wire form.
type SummaryResponse struct {
	Text            string    `json:"text"`
	DurationSeconds float64   `json:"duration_seconds"`
	Stage           string    `json:"stage"`
	Timestamp       time.Time `json:"timestamp"`
}

// SummaryNote is one heuristic observation in scorer wire form.
type SummaryNote struct {
	Criterion   string `json:"criterion"`
	Observation string `json:"observation"`
	Stage       string `json:"stage"`
}

// ScoredAssessment is the scorer's verdict for one session.
type ScoredAssessment struct {
	SessionID          string             `json:"session_id"`
	OverallBandScore   float64            `json:"overall_band_score"`
	CriterionScores    map[string]float64 `json:"criterion_scores"`
	FeedbackSummary    string             `json:"feedback_summary"`
	StructuredFeedback map[string]string  `json:"structured_feedback,omitempty"`
	ScoredAt           time.Time          `json:"scored_at"`
}

// Validate checks all band scores are on the IELTS scale: 0 to 9 in half-band
// steps.
func (s *ScoredAssessment) Validate() error {
	if err := validBand(s.OverallBandScore); err != nil {
		return fmt.Errorf("overall band score: %w", err)
	}
	for criterion, band := range s.CriterionScores {
		if err := validBand(band); err != nil {
			return fmt.Errorf("criterion %q: %w", criterion, err)
		}
	}
	return nil
}

func validBand(band float64) error {
	if band < 0 || band > 9 {
		return fmt.Errorf("band %.2f out of range [0, 9]", band)
	}
	if doubled := band * 2; doubled != math.Trunc(doubled) {
		return fmt.Errorf("band %.2f not a half-band step", band)
	}
	return nil
}

// Scorer scores a completed conversation. Implementations must respect the
// caller's context deadline.
type Scorer interface {
	Score(ctx context.Context, summary *Summary) (*ScoredAssessment, error)
}
