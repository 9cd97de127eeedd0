// Package settings はニュースレター生成設定の読み書きを提供する。
package settings

import (
	"context"
	"log/slog"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// DefaultPromptTemplate は生成プロンプトの初期値。
const DefaultPromptTemplate = `You are an expert in R&D tax relief. Create a professional newsletter summarizing the following R&D tax news items. Use a conversational yet professional tone. Focus on the implications for tax advisors and accountants. Include a brief introduction paragraph before the main content. Format the content using markdown.`

// DefaultNewsletterTemplate はニュースレター構成テンプレートの初期値。
const DefaultNewsletterTemplate = `# R&D Tax Weekly Update

[Introduction paragraph will go here]

## Latest Updates

[Main content will go here organized by topic]

## Key Takeaways

- [Bullet points summarizing main points]

---
*Want to discuss how these changes might affect your R&D tax claims? Let's connect.*`

// DefaultNewsletterTitle はニュースレタータイトルの初期値。
const DefaultNewsletterTitle = "The Week In R&D Tax"

// Service はユーザー設定の取得と保存を提供する。
type Service struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repo repository.SettingsRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Defaults は初期値が設定されたSettingsを返す。
func Defaults(userID string) *model.Settings {
	return &model.Settings{
		UserID:                 userID,
		PromptTemplate:         DefaultPromptTemplate,
		NewsletterTemplate:     DefaultNewsletterTemplate,
		DefaultNewsletterTitle: DefaultNewsletterTitle,
		NewsletterExamples:     []string{},
	}
}

// Get はユーザーの設定を返す。設定行が未作成の場合はデフォルト値を返す。
// デフォルト値の返却は保存を伴わない。初回の明示的な保存まで行は作られない。
func (s *Service) Get(ctx context.Context, userID string) (*model.Settings, error) {
	stored, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewRemoteReadError("設定")
	}
	if stored == nil {
		return Defaults(userID), nil
	}
	return stored, nil
}

// Save は設定を検証してUPSERTする。
func (s *Service) Save(ctx context.Context, settings *model.Settings) error {
	if settings.UserID == "" {
		return model.NewInvalidRequestError("ユーザーIDが指定されていません")
	}
	if settings.PromptTemplate == "" {
		return model.NewInvalidRequestError("プロンプトテンプレートが空です")
	}
	if settings.NewsletterTemplate == "" {
		return model.NewInvalidRequestError("ニュースレターテンプレートが空です")
	}
	if settings.DefaultNewsletterTitle == "" {
		return model.NewInvalidRequestError("デフォルトタイトルが空です")
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		s.logger.ErrorContext(ctx, "設定の保存に失敗しました", "user_id", settings.UserID, "error", err)
		return model.NewRemoteWriteError("設定")
	}
	return nil
}
