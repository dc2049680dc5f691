package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"maya-assessment/backend/internal/question/domain"
)

type memStore struct {
	mu        sync.Mutex
	questions map[string]*domain.Question
	createErr error
}

func newMemStore() *memStore {
	return &memStore{questions: make(map[string]*domain.Question)}
}

func (m *memStore) Create(_ context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.questions[q.ID] = q
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.questions[id], nil
}

func (m *memStore) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok {
		q.Active = active
	}
	return nil
}

func serve(store *memStore, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(store, nil, 128).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateQuestion(t *testing.T) {
	store := newMemStore()
	body := `{
		"assessment_type": "academic_speaking",
		"category": "part1",
		"text": "Tell me about your hometown.",
		"repeat_policy": "UNIQUE"
	}`
	rec := serve(store, httptest.NewRequest(http.MethodPost, "/v1/questions", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID    string `json:"id"`
		Shard int    `json:"shard"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("id should be generated server-side")
	}
	if resp.Shard < 0 || resp.Shard >= 128 {
		t.Errorf("shard = %d, want [0, 128)", resp.Shard)
	}
	if resp.Shard != shardFor(resp.ID, 128) {
		t.Errorf("shard = %d, want derived from the id", resp.Shard)
	}

	stored := store.questions[resp.ID]
	if stored == nil {
		t.Fatal("question not persisted")
	}
	if !stored.Active {
		t.Error("new questions should be active")
	}
	if stored.Category != domain.CategoryPart1 {
		t.Errorf("category = %q", stored.Category)
	}
}

func TestCreateQuestion_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing text", body: `{"assessment_type":"academic_speaking","category":"part1","repeat_policy":"UNIQUE"}`},
		{name: "unknown category", body: `{"assessment_type":"academic_speaking","category":"part9","text":"x","repeat_policy":"UNIQUE"}`},
		{name: "unknown repeat policy", body: `{"assessment_type":"academic_speaking","category":"part1","text":"x","repeat_policy":"SOMETIMES"}`},
		{name: "writing category on speaking type", body: `{"assessment_type":"academic_speaking","category":"writing_task1","text":"x","repeat_policy":"UNIQUE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			rec := serve(store, httptest.NewRequest(http.MethodPost, "/v1/questions", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if len(store.questions) != 0 {
				t.Error("nothing should be persisted")
			}
		})
	}
}

func TestDeactivateQuestion(t *testing.T) {
	store := newMemStore()
	store.questions["q-1"] = &domain.Question{
		ID:             "q-1",
		AssessmentType: domain.AssessmentAcademicSpeaking,
		Category:       domain.CategoryPart1,
		Text:           "Tell me about your hometown.",
		RepeatPolicy:   domain.RepeatPolicyUnique,
		Active:         true,
	}

	rec := serve(store, httptest.NewRequest(http.MethodPost, "/v1/questions/q-1/deactivate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.questions["q-1"].Active {
		t.Error("question should be inactive")
	}
}

func TestDeactivateQuestion_NotFound(t *testing.T) {
	rec := serve(newMemStore(), httptest.NewRequest(http.MethodPost, "/v1/questions/q-missing/deactivate", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestShardFor_StableAndBounded(t *testing.T) {
	first := shardFor("some-question-id", 128)
	second := shardFor("some-question-id", 128)
	if first != second {
		t.Errorf("shardFor not stable: %d vs %d", first, second)
	}
	for _, id := range []string{"a", "b", "c", "longer-identifier-string"} {
		if s := shardFor(id, 16); s < 0 || s >= 16 {
			t.Errorf("shardFor(%q, 16) = %d, want [0, 16)", id, s)
		}
	}
}
