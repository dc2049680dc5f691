package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// rubricIDs maps assessment types to the rubric the scorer applies. Unknown
// types fall back to the generic speaking rubric.
var rubricIDs = map[string]string{
	"academic_speaking": "ielts_speaking_v2",
	"general_speaking":  "ielts_speaking_v2",
	"academic_writing":  "ielts_writing_academic_v2",
	"general_writing":   "ielts_writing_general_v2",
}

const defaultRubricID = "ielts_speaking_v2"

// scoreRequest is the scorer wire request: the summary plus the rubric to
// apply.
type scoreRequest struct {
	RubricID string   `json:"rubric_id"`
	Summary  *Summary `json:"summary"`
}

// HTTPScorer posts conversation summaries to the external scoring service.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPScorer returns a scorer posting to baseURL. The client timeout is a
// backstop only; per-call deadlines come from the caller's context.
func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Score sends the summary and returns the validated verdict. All failures,
// transport, non-200, decode, and invalid bands, wrap ErrScoringUnavailable.
func (s *HTTPScorer) Score(ctx context.Context, summary *Summary) (*ScoredAssessment, error) {
	body, err := json.Marshal(scoreRequest{
		RubricID: rubricFor(summary.AssessmentType),
		Summary:  summary,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrScoringUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrScoringUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: scorer returned %d: %s", ErrScoringUnavailable, resp.StatusCode, snippet)
	}

	var scored ScoredAssessment
	if err := json.NewDecoder(resp.Body).Decode(&scored); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrScoringUnavailable, err)
	}
	if scored.SessionID == "" {
		scored.SessionID = summary.SessionID
	}
	if scored.ScoredAt.IsZero() {
		scored.ScoredAt = time.Now().UTC()
	}
	if err := scored.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}
	return &scored, nil
}

func rubricFor(assessmentType string) string {
	if id, ok := rubricIDs[assessmentType]; ok {
		return id
	}
	return defaultRubricID
}
