// Package newsletter はニュースレターの生成・編集・管理を提供する。
package newsletter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// Generator はニュースレター本文を生成するLLMインターフェース。
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// FactProvider は「この日の出来事」の歴史的事実を導出するインターフェース。
type FactProvider interface {
	OnThisDay(ctx context.Context, date time.Time) (string, error)
}

// SettingsProvider はユーザー設定の取得インターフェース。
type SettingsProvider interface {
	Get(ctx context.Context, userID string) (*model.Settings, error)
}

// Service はニュースレターの生成とCRUDを提供する。
type Service struct {
	newsletters repository.NewsletterRepository
	sources     repository.ContentSourceRepository
	settings    SettingsProvider
	generator   Generator
	facts       FactProvider
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// SetMetrics はメトリクス収集を有効化する。未設定の場合は記録を行わない。
func (s *Service) SetMetrics(m metrics.MetricsCollector) {
	s.metrics = m
}

// NewService はServiceを生成する。factsはnilでもよく、その場合は事実の挿入を行わない。
func NewService(
	newsletters repository.NewsletterRepository,
	sources repository.ContentSourceRepository,
	settings SettingsProvider,
	generator Generator,
	facts FactProvider,
	logger *slog.Logger,
) *Service {
	return &Service{
		newsletters: newsletters,
		sources:     sources,
		settings:    settings,
		generator:   generator,
		facts:       facts,
		logger:      logger,
		now:         time.Now,
	}
}

// generateUserPrompt は生成リクエストのユーザーメッセージ。
const generateUserPrompt = "Generate a newsletter based on the provided template and news items."

// GenerateFromSources は選択済み素材からニュースレターを生成して保存する。
//
// 手順: 選択済み素材の読み取り → 設定の読み取り → 事実の導出（任意）→
// LLM生成 → タイトル導出 → 保存 → 選択フラグのリセット。
// 選択フラグのリセットは保存成功後にのみ、生成に使用した素材に限定して行われる。
// 生成または保存が失敗した場合、選択状態は一切変更されない。
func (s *Service) GenerateFromSources(ctx context.Context, userID string, targetDate *time.Time) (*model.Newsletter, error) {
	selected, err := s.sources.ListSelected(ctx)
	if err != nil {
		return nil, model.NewRemoteReadError("選択済み素材")
	}
	if len(selected) == 0 {
		return nil, model.NewEmptySelectionError()
	}

	// リセット対象は生成開始時点のスナップショットに限定する
	sourceIDs := make([]string, len(selected))
	items := make([]model.NewsItem, len(selected))
	for i, source := range selected {
		sourceIDs[i] = source.ID
		items[i] = source.ToNewsItem()
	}

	userSettings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	if targetDate != nil {
		today = *targetDate
	}

	// 事実の導出失敗は生成を妨げない
	fact := ""
	if s.facts != nil {
		fact, err = s.facts.OnThisDay(ctx, today)
		if err != nil {
			s.logger.WarnContext(ctx, "歴史的事実の導出に失敗しました", "error", err)
			fact = ""
		}
	}

	system := composeSystemPrompt(userSettings, items, fact)
	start := time.Now()
	content, err := s.generator.Complete(ctx, system, generateUserPrompt)
	if s.metrics != nil {
		s.metrics.RecordLLMLatency("generate", time.Since(start))
	}
	if err != nil {
		s.recordGenerationFailure("llm")
		return nil, model.NewGenerationError(err.Error())
	}
	if strings.TrimSpace(content) == "" {
		s.recordGenerationFailure("empty")
		return nil, model.NewGenerationError("生成結果が空です")
	}

	newsletter := &model.Newsletter{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     WeekTitle(userSettings.DefaultNewsletterTitle, today),
		Content:   content,
		Items:     items,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.newsletters.Create(ctx, newsletter); err != nil {
		s.recordGenerationFailure("persist")
		return nil, model.NewRemoteWriteError("ニュースレター")
	}

	// ベストエフォート。失敗しても生成済みニュースレターは有効で、次回生成時に再選択し直せる
	if err := s.sources.ResetSelected(ctx, sourceIDs); err != nil {
		s.logger.WarnContext(ctx, "選択フラグのリセットに失敗しました", "newsletter_id", newsletter.ID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordGenerationSuccess()
	}
	return newsletter, nil
}

// recordGenerationFailure は生成失敗をメトリクスに記録する。
func (s *Service) recordGenerationFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordGenerationFailure(reason)
	}
}

// composeSystemPrompt は設定・素材・事実からシステムプロンプトを合成する。
func composeSystemPrompt(settings *model.Settings, items []model.NewsItem, fact string) string {
	var sb strings.Builder
	sb.WriteString(settings.PromptTemplate)
	sb.WriteString("\n\nTemplate:\n")
	sb.WriteString(settings.NewsletterTemplate)

	if len(settings.NewsletterExamples) > 0 {
		sb.WriteString("\n\nPrevious newsletters for style reference:\n")
		for i, example := range settings.NewsletterExamples {
			fmt.Fprintf(&sb, "\n--- Example %d ---\n%s\n", i+1, example)
		}
	}

	if fact != "" {
		sb.WriteString("\n\nInclude this historical fact in the introduction:\n")
		sb.WriteString(fact)
	}

	sb.WriteString("\n\nNews Items:\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "Title: %s\nDescription: %s\nSource: %s\n\n", item.Title, item.Description, item.Source)
	}
	return sb.String()
}

// List はユーザーのニュースレター一覧を新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.Newsletter, error) {
	newsletters, err := s.newsletters.ListByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewRemoteReadError("ニュースレター一覧")
	}
	return newsletters, nil
}

// Get は指定IDのニュースレターを返す。他ユーザーの所有分は見つからない扱いになる。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Newsletter, error) {
	newsletter, err := s.newsletters.FindByID(ctx, id)
	if err != nil {
		return nil, model.NewRemoteReadError("ニュースレター")
	}
	if newsletter == nil || newsletter.UserID != userID {
		return nil, model.NewNewsletterNotFoundError(id)
	}
	return newsletter, nil
}

// Create は手動作成のニュースレターを保存する。
func (s *Service) Create(ctx context.Context, userID, title, content, sourceURL string, items []model.NewsItem) (*model.Newsletter, error) {
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルが空です")
	}

	newsletter := &model.Newsletter{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		SourceURL: sourceURL,
		Items:     items,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if err := s.newsletters.Create(ctx, newsletter); err != nil {
		return nil, model.NewRemoteWriteError("ニュースレター")
	}
	return newsletter, nil
}

// Update はタイトルと本文を更新する。itemsスナップショットは生成時の来歴として変更されない。
func (s *Service) Update(ctx context.Context, userID, id, title, content string) (*model.Newsletter, error) {
	newsletter, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if title != "" {
		newsletter.Title = title
	}
	newsletter.Content = content
	newsletter.UpdatedAt = s.now()

	if err := s.newsletters.Update(ctx, newsletter); err != nil {
		if apiErr, ok := err.(*model.APIError); ok {
			return nil, apiErr
		}
		return nil, model.NewRemoteWriteError("ニュースレター")
	}
	return newsletter, nil
}

// Delete は指定IDのニュースレターを削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.newsletters.DeleteByID(ctx, id); err != nil {
		return model.NewRemoteWriteError("ニュースレター")
	}
	return nil
}
