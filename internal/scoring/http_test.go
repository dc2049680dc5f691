package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSummary() *Summary {
	return &Summary{
		SessionID:            "sess-1",
		AssessmentType:       "academic_speaking",
		ResponseCountsByPart: map[string]int{"part1": 7},
		CompletionStatus:     "completed",
	}
}

func TestHTTPScorer_Success(t *testing.T) {
	var gotReq scoreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/score" {
			t.Errorf("request = %s %s, want POST /v1/score", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ScoredAssessment{
			SessionID:        "sess-1",
			OverallBandScore: 7.5,
			CriterionScores:  map[string]float64{"fluency_and_coherence": 7.0},
			FeedbackSummary:  "well organised answers",
			ScoredAt:         time.Now().UTC(),
		})
	}))
	defer srv.Close()

	scorer := NewHTTPScorer(srv.URL, 5*time.Second)
	scored, err := scorer.Score(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored.OverallBandScore != 7.5 {
		t.Errorf("band = %v, want 7.5", scored.OverallBandScore)
	}
	if gotReq.RubricID != "ielts_speaking_v2" {
		t.Errorf("rubric = %q, want ielts_speaking_v2", gotReq.RubricID)
	}
	if gotReq.Summary == nil || gotReq.Summary.SessionID != "sess-1" {
		t.Errorf("request summary = %+v, want sess-1", gotReq.Summary)
	}
}

func TestHTTPScorer_FillsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Scorer omits session id and timestamp; the client fills them in.
		json.NewEncoder(w).Encode(map[string]any{"overall_band_score": 6.0})
	}))
	defer srv.Close()

	scorer := NewHTTPScorer(srv.URL, 5*time.Second)
	scored, err := scorer.Score(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scored.SessionID != "sess-1" {
		t.Errorf("session id = %q, want sess-1 from the summary", scored.SessionID)
	}
	if scored.ScoredAt.IsZero() {
		t.Error("scored at should be defaulted")
	}
}

func TestHTTPScorer_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scorer := NewHTTPScorer(srv.URL, 5*time.Second)
	if _, err := scorer.Score(context.Background(), testSummary()); !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("err = %v, want ErrScoringUnavailable", err)
	}
}

func TestHTTPScorer_RejectsInvalidBand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(ScoredAssessment{
			SessionID:        "sess-1",
			OverallBandScore: 9.5,
			ScoredAt:         time.Now().UTC(),
		})
	}))
	defer srv.Close()

	scorer := NewHTTPScorer(srv.URL, 5*time.Second)
	if _, err := scorer.Score(context.Background(), testSummary()); !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("err = %v, want ErrScoringUnavailable for out-of-range band", err)
	}
}

func TestHTTPScorer_ConnectionRefused(t *testing.T) {
	scorer := NewHTTPScorer("http://127.0.0.1:1", 500*time.Millisecond)
	if _, err := scorer.Score(context.Background(), testSummary()); !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("err = %v, want ErrScoringUnavailable", err)
	}
}

func TestHTTPScorer_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	scorer := NewHTTPScorer(srv.URL, 10*time.Second)
	if _, err := scorer.Score(ctx, testSummary()); !errors.Is(err, ErrScoringUnavailable) {
		t.Errorf("err = %v, want ErrScoringUnavailable on deadline", err)
	}
}

func TestRubricFor(t *testing.T) {
	tests := []struct {
		assessmentType string
		want           string
	}{
		{"academic_speaking", "ielts_speaking_v2"},
		{"general_speaking", "ielts_speaking_v2"},
		{"academic_writing", "ielts_writing_academic_v2"},
		{"general_writing", "ielts_writing_general_v2"},
		{"unknown_type", "ielts_speaking_v2"},
	}
	for _, tt := range tests {
		if got := rubricFor(tt.assessmentType); got != tt.want {
			t.Errorf("rubricFor(%q) = %q, want %q", tt.assessmentType, got, tt.want)
		}
	}
}
