package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"maya-assessment/backend/internal/profile/domain"
	"maya-assessment/backend/internal/server/middleware"
)

type fakeStore struct {
	profiles map[string]*domain.Profile
}

func (f *fakeStore) Get(_ context.Context, userID string) (*domain.Profile, error) {
	return f.profiles[userID], nil
}

func getProfile(store *fakeStore, userID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(store).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	if userID != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, ""))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetProfile(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"user-1": {
			UserID:            "user-1",
			Plan:              "free",
			AssessmentCredits: 3,
			AssessmentHistory: []domain.PreservedAssessmentRecord{{
				SessionID:        "sess-1",
				AssessmentType:   "academic_speaking",
				AssessmentDate:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
				OverallBandScore: 7,
				ExpiryDate:       "2027-02-01T10:00:00Z",
			}},
		},
	}}

	rec := getProfile(store, "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		UserID            string                             `json:"user_id"`
		Plan              string                             `json:"plan"`
		AssessmentCredits int                                `json:"assessment_credits"`
		AssessmentHistory []domain.PreservedAssessmentRecord `json:"assessment_history"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != "user-1" || resp.Plan != "free" || resp.AssessmentCredits != 3 {
		t.Errorf("profile = %+v", resp)
	}
	if len(resp.AssessmentHistory) != 1 || resp.AssessmentHistory[0].SessionID != "sess-1" {
		t.Errorf("history = %+v, want the preserved record", resp.AssessmentHistory)
	}
}

func TestGetProfile_EmptyHistoryIsArray(t *testing.T) {
	store := &fakeStore{profiles: map[string]*domain.Profile{
		"user-1": {UserID: "user-1", Plan: "free"},
	}}

	rec := getProfile(store, "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp["assessment_history"]) != "[]" {
		t.Errorf("assessment_history = %s, want []", resp["assessment_history"])
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	rec := getProfile(&fakeStore{profiles: map[string]*domain.Profile{}}, "user-9")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetProfile_NoIdentity(t *testing.T) {
	rec := getProfile(&fakeStore{profiles: map[string]*domain.Profile{}}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
