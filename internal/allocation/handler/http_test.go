package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	allocationservice "maya-assessment/backend/internal/allocation/service"
	"maya-assessment/backend/internal/conversation"
	conversationservice "maya-assessment/backend/internal/conversation/service"
	"maya-assessment/backend/internal/entitlement"
	profiledomain "maya-assessment/backend/internal/profile/domain"
	questiondomain "maya-assessment/backend/internal/question/domain"
	"maya-assessment/backend/internal/server/middleware"
	sessiondomain "maya-assessment/backend/internal/session/domain"
)

type fakeProfiles struct {
	profiles map[string]*profiledomain.Profile
	debits   []string
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*profiledomain.Profile, error) {
	return f.profiles[userID], nil
}

func (f *fakeProfiles) DebitCredit(_ context.Context, userID string) error {
	f.debits = append(f.debits, userID)
	return nil
}

type fakeAllocator struct {
	result *allocationservice.StartResult
	errs   []error // consumed one per call, then nil errors with f.result
	calls  int
}

func (f *fakeAllocator) StartSession(_ context.Context, _ string, _ questiondomain.AssessmentType) (*allocationservice.StartResult, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

type fakeChecker struct {
	decision entitlement.Decision
}

func (f *fakeChecker) Check(_ context.Context, _ *profiledomain.Profile, _ string) (entitlement.Decision, error) {
	return f.decision, nil
}

func startResult(userID string) *allocationservice.StartResult {
	questions := map[questiondomain.Category][]*questiondomain.Question{
		questiondomain.CategoryIntro: {{ID: "q-intro", Text: "Good morning, welcome to the assessment."}},
		questiondomain.CategoryPart1: {{ID: "q-p1", Text: "Tell me about your hometown."}},
		questiondomain.CategoryPart2: {{ID: "q-p2", Text: "Describe a memorable journey."}},
		questiondomain.CategoryPart3: {{ID: "q-p3", Text: "How has travel changed?"}},
	}
	return &allocationservice.StartResult{
		Session: &sessiondomain.Session{
			ID:             "sess-new",
			UserID:         userID,
			AssessmentType: questiondomain.AssessmentAcademicSpeaking,
			Status:         sessiondomain.StatusActive,
			CreatedAt:      time.Now().UTC(),
		},
		Questions: questions,
	}
}

func newConversationService() *conversationservice.Service {
	return conversationservice.NewService(
		nil, nil,
		conversation.NewRegistry(),
		conversation.NewHeuristicEvaluator(),
		conversation.DefaultConfig(),
		nil, nil, nil,
		time.Second,
	)
}

func startAssessment(allocator *fakeAllocator, profiles *fakeProfiles, checker *fakeChecker, userID, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h := NewHandler(allocator, newConversationService(), profiles, checker, nil)
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", strings.NewReader(body))
	if userID != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, ""))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func allowAll() *fakeChecker {
	return &fakeChecker{decision: entitlement.Decision{Allowed: true}}
}

func freeProfile(userID string) *fakeProfiles {
	return &fakeProfiles{profiles: map[string]*profiledomain.Profile{
		userID: {UserID: userID, Plan: "free", AssessmentCredits: 3},
	}}
}

func TestStartAssessment_Success(t *testing.T) {
	profiles := freeProfile("user-1")
	allocator := &fakeAllocator{result: startResult("user-1")}

	rec := startAssessment(allocator, profiles, allowAll(), "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID      string `json:"session_id"`
		AssessmentType string `json:"assessment_type"`
		Prompt         struct {
			Stage string `json:"stage"`
			Text  string `json:"text"`
		} `json:"prompt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "sess-new" {
		t.Errorf("session id = %q, want sess-new", resp.SessionID)
	}
	if resp.AssessmentType != "academic_speaking" {
		t.Errorf("assessment type = %q", resp.AssessmentType)
	}
	if resp.Prompt.Text != "Good morning, welcome to the assessment." {
		t.Errorf("opening prompt = %q, want the intro question", resp.Prompt.Text)
	}
	if resp.Prompt.Stage != "GREETING" {
		t.Errorf("opening stage = %q, want GREETING", resp.Prompt.Stage)
	}

	if len(profiles.debits) != 1 || profiles.debits[0] != "user-1" {
		t.Errorf("debits = %v, want one for user-1", profiles.debits)
	}
}

func TestStartAssessment_UnlimitedPlanNotDebited(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*profiledomain.Profile{
		"user-1": {UserID: "user-1", Plan: "unlimited"},
	}}
	allocator := &fakeAllocator{result: startResult("user-1")}

	rec := startAssessment(allocator, profiles, allowAll(), "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(profiles.debits) != 0 {
		t.Errorf("debits = %v, want none on the unlimited plan", profiles.debits)
	}
}

func TestStartAssessment_EntitlementDenied(t *testing.T) {
	profiles := freeProfile("user-1")
	checker := &fakeChecker{decision: entitlement.Decision{Allowed: false, Reason: "no assessment credits remaining"}}
	allocator := &fakeAllocator{result: startResult("user-1")}

	rec := startAssessment(allocator, profiles, checker, "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no assessment credits remaining") {
		t.Errorf("body = %s, want the denial reason", rec.Body.String())
	}
	if allocator.calls != 0 {
		t.Error("allocator should not run for a denied user")
	}
}

func TestStartAssessment_BadRequests(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		body       string
		wantStatus int
	}{
		{name: "no identity", body: `{"assessment_type":"academic_speaking"}`, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", userID: "user-1", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown type", userID: "user-1", body: `{"assessment_type":"telepathy"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocator := &fakeAllocator{result: startResult("user-1")}
			rec := startAssessment(allocator, freeProfile("user-1"), allowAll(), tt.userID, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestStartAssessment_InsufficientQuestions(t *testing.T) {
	allocator := &fakeAllocator{errs: []error{&allocationservice.InsufficientQuestionsError{
		Category: questiondomain.CategoryPart1,
		Needed:   6,
		Found:    2,
	}}}

	rec := startAssessment(allocator, freeProfile("user-1"), allowAll(), "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "insufficient questions") {
		t.Errorf("body = %s, want the insufficiency detail", rec.Body.String())
	}
}

func TestStartAssessment_RetriesReservationConflict(t *testing.T) {
	allocator := &fakeAllocator{
		errs:   []error{allocationservice.ErrReservationConflict, nil},
		result: startResult("user-1"),
	}

	rec := startAssessment(allocator, freeProfile("user-1"), allowAll(), "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 after retry: %s", rec.Code, rec.Body.String())
	}
	if allocator.calls != 2 {
		t.Errorf("allocator calls = %d, want 2", allocator.calls)
	}
}

func TestStartAssessment_GivesUpAfterRetries(t *testing.T) {
	conflict := allocationservice.ErrReservationConflict
	allocator := &fakeAllocator{errs: []error{conflict, conflict, conflict, conflict}}

	rec := startAssessment(allocator, freeProfile("user-1"), allowAll(), "user-1", `{"assessment_type":"academic_speaking"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if allocator.calls != 3 {
		t.Errorf("allocator calls = %d, want 3 (initial plus two retries)", allocator.calls)
	}
}
