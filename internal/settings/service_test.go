package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/newsdesk/internal/model"
)

// mockSettingsRepo はテスト用の設定リポジトリ。
type mockSettingsRepo struct {
	findByUserIDFn func(ctx context.Context, userID string) (*model.Settings, error)
	upsertFn       func(ctx context.Context, settings *model.Settings) error
}

func (m *mockSettingsRepo) FindByUserID(ctx context.Context, userID string) (*model.Settings, error) {
	return m.findByUserIDFn(ctx, userID)
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *model.Settings) error {
	return m.upsertFn(ctx, settings)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestService_Get_ReturnsDefaultsWhenMissing は設定行未作成時にデフォルト値が返ることをテストする。
func TestService_Get_ReturnsDefaultsWhenMissing(t *testing.T) {
	repo := &mockSettingsRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.Settings, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, testLogger())

	got, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PromptTemplate != DefaultPromptTemplate {
		t.Error("expected default prompt template")
	}
	if got.DefaultNewsletterTitle != "The Week In R&D Tax" {
		t.Errorf("DefaultNewsletterTitle = %q", got.DefaultNewsletterTitle)
	}
	if got.NewsletterExamples == nil || len(got.NewsletterExamples) != 0 {
		t.Errorf("NewsletterExamples = %v, want empty slice", got.NewsletterExamples)
	}
}

// TestService_Get_ReturnsStoredSettings は保存済み設定が優先されることをテストする。
func TestService_Get_ReturnsStoredSettings(t *testing.T) {
	repo := &mockSettingsRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.Settings, error) {
			return &model.Settings{
				UserID:                 userID,
				PromptTemplate:         "カスタムプロンプト",
				NewsletterTemplate:     "カスタムテンプレート",
				DefaultNewsletterTitle: "週刊ニュース",
				NewsletterExamples:     []string{"過去号"},
			}, nil
		},
	}
	svc := NewService(repo, testLogger())

	got, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PromptTemplate != "カスタムプロンプト" {
		t.Errorf("PromptTemplate = %q", got.PromptTemplate)
	}
	if len(got.NewsletterExamples) != 1 {
		t.Errorf("NewsletterExamples = %v", got.NewsletterExamples)
	}
}

// TestService_Save_Validation は必須項目の検証をテストする。
func TestService_Save_Validation(t *testing.T) {
	svc := NewService(&mockSettingsRepo{}, testLogger())

	tests := []struct {
		name     string
		settings *model.Settings
	}{
		{"ユーザーIDなし", &model.Settings{PromptTemplate: "p", NewsletterTemplate: "t", DefaultNewsletterTitle: "d"}},
		{"プロンプトなし", &model.Settings{UserID: "u", NewsletterTemplate: "t", DefaultNewsletterTitle: "d"}},
		{"テンプレートなし", &model.Settings{UserID: "u", PromptTemplate: "p", DefaultNewsletterTitle: "d"}},
		{"タイトルなし", &model.Settings{UserID: "u", PromptTemplate: "p", NewsletterTemplate: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Save(context.Background(), tt.settings)
			apiErr, ok := err.(*model.APIError)
			if !ok {
				t.Fatalf("error type = %T, want *model.APIError", err)
			}
			if apiErr.Code != model.ErrCodeInvalidRequest {
				t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

// TestService_Save_RepoError は保存失敗がREMOTE_WRITE_ERRORになることをテストする。
func TestService_Save_RepoError(t *testing.T) {
	repo := &mockSettingsRepo{
		upsertFn: func(ctx context.Context, settings *model.Settings) error {
			return errors.New("connection reset")
		},
	}
	svc := NewService(repo, testLogger())

	err := svc.Save(context.Background(), Defaults("user-1"))
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeRemoteWriteError {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeRemoteWriteError)
	}
}
