package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/newsdesk/internal/model"
)

type mockSettingsService struct {
	getFunc  func(ctx context.Context, userID string) (*model.Settings, error)
	saveFunc func(ctx context.Context, settings *model.Settings) error
}

func (m *mockSettingsService) Get(ctx context.Context, userID string) (*model.Settings, error) {
	return m.getFunc(ctx, userID)
}

func (m *mockSettingsService) Save(ctx context.Context, settings *model.Settings) error {
	return m.saveFunc(ctx, settings)
}

func TestSettingsGet_Success(t *testing.T) {
	service := &mockSettingsService{
		getFunc: func(ctx context.Context, userID string) (*model.Settings, error) {
			return &model.Settings{
				UserID:                 userID,
				PromptTemplate:         "prompt",
				NewsletterTemplate:     "template",
				DefaultNewsletterTitle: "The Week In R&D Tax",
				NewsletterExamples:     []string{"example one"},
			}, nil
		},
	}
	h := NewSettingsHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/settings", "user-1", "", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp settingsPayload
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.DefaultNewsletterTitle != "The Week In R&D Tax" {
		t.Errorf("default title = %q", resp.DefaultNewsletterTitle)
	}
	if len(resp.NewsletterExamples) != 1 {
		t.Errorf("examples = %v", resp.NewsletterExamples)
	}
}

func TestSettingsGet_NilExamples_ReturnsEmptyArray(t *testing.T) {
	service := &mockSettingsService{
		getFunc: func(ctx context.Context, userID string) (*model.Settings, error) {
			return &model.Settings{UserID: userID, PromptTemplate: "p", NewsletterTemplate: "t", DefaultNewsletterTitle: "Title"}, nil
		},
	}
	h := NewSettingsHandler(service)

	req := newAuthedRequest(http.MethodGet, "/api/settings", "user-1", "", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	// nullではなく[]を返す
	if string(raw["newsletter_examples"]) != "[]" {
		t.Errorf("newsletter_examples = %s, want []", raw["newsletter_examples"])
	}
}

func TestSettingsGet_Unauthenticated_Returns401(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSettingsUpdate_Success(t *testing.T) {
	var saved *model.Settings
	service := &mockSettingsService{
		saveFunc: func(ctx context.Context, settings *model.Settings) error {
			saved = settings
			return nil
		},
	}
	h := NewSettingsHandler(service)

	body := []byte(`{"prompt_template":"p","newsletter_template":"t","default_newsletter_title":"Title","newsletter_examples":["ex"]}`)
	req := newAuthedRequest(http.MethodPut, "/api/settings", "user-1", "", body)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if saved == nil {
		t.Fatal("Save was not called")
	}
	if saved.UserID != "user-1" {
		t.Errorf("saved.UserID = %q, want %q", saved.UserID, "user-1")
	}
	if saved.PromptTemplate != "p" || saved.DefaultNewsletterTitle != "Title" {
		t.Errorf("saved = %+v", saved)
	}
}

func TestSettingsUpdate_ValidationError_Returns400(t *testing.T) {
	service := &mockSettingsService{
		saveFunc: func(ctx context.Context, settings *model.Settings) error {
			return model.NewInvalidRequestError("プロンプトテンプレートは必須です")
		},
	}
	h := NewSettingsHandler(service)

	body := []byte(`{"prompt_template":"","newsletter_template":"t","default_newsletter_title":"Title"}`)
	req := newAuthedRequest(http.MethodPut, "/api/settings", "user-1", "", body)
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
