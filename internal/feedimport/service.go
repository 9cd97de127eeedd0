// Package feedimport はRSS/Atomフィードからの素材取り込みを提供する。
//
// フィードはその場で1回取得・パースされ、記事がコンテンツ素材として保存される。
// 既に同一URLの素材が存在する記事はスキップされる。
package feedimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
	"github.com/hitoshi/newsdesk/internal/security"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxFetchSize = 5 * 1024 * 1024
	// maxItemsPerImport は1回の取り込みで保存する記事数の上限。
	maxItemsPerImport = 50
)

// Result は1回の取り込みの結果サマリ。
type Result struct {
	FeedTitle string `json:"feed_title"`
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
}

// Service はフィードからの素材取り込みを提供する。
type Service struct {
	sources      repository.ContentSourceRepository
	guard        security.SSRFGuardService
	sanitizer    security.ContentSanitizerService
	client       *http.Client
	maxFetchSize int64
	logger       *slog.Logger
	metrics      metrics.MetricsCollector
	now          func() time.Time
}

// SetMetrics はメトリクス収集を有効化する。未設定の場合は記録を行わない。
func (s *Service) SetMetrics(m metrics.MetricsCollector) {
	s.metrics = m
}

// NewService はServiceを生成する。
// fetchTimeoutとmaxFetchSizeはフィード取得の上限で、0以下の場合はデフォルトが使われる。
func NewService(
	sources repository.ContentSourceRepository,
	guard security.SSRFGuardService,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
	fetchTimeout time.Duration,
	maxFetchSize int64,
) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if maxFetchSize <= 0 {
		maxFetchSize = defaultMaxFetchSize
	}
	return &Service{
		sources:      sources,
		guard:        guard,
		sanitizer:    sanitizer,
		client:       guard.NewSafeClient(fetchTimeout, maxFetchSize),
		maxFetchSize: maxFetchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// FromFeed はフィードURLから記事を取り込み、新規素材として保存する。
//
// URLがフィード本体ではなくHTMLページだった場合は、head内のlink要素から
// フィードURLの自動検出を試みる。
func (s *Service) FromFeed(ctx context.Context, feedURL string) (*Result, error) {
	if err := s.guard.ValidateURL(feedURL); err != nil {
		s.logger.WarnContext(ctx, "フィードURLがSSRFポリシーによりブロックされました", "url", feedURL, "error", err)
		return nil, model.NewSSRFBlockedError()
	}

	body, contentType, err := s.fetch(ctx, feedURL)
	if err != nil {
		return nil, model.NewFeedParseError(err.Error())
	}

	if !isFeedContent(contentType, body) {
		discovered := discoverFeedURL(body, feedURL)
		if discovered == "" {
			return nil, model.NewFeedParseError("フィードを検出できませんでした")
		}
		if err := s.guard.ValidateURL(discovered); err != nil {
			s.logger.WarnContext(ctx, "検出されたフィードURLがSSRFポリシーによりブロックされました", "url", discovered, "error", err)
			return nil, model.NewSSRFBlockedError()
		}
		s.logger.InfoContext(ctx, "HTMLページからフィードを自動検出しました", "page_url", feedURL, "feed_url", discovered)

		body, _, err = s.fetch(ctx, discovered)
		if err != nil {
			return nil, model.NewFeedParseError(err.Error())
		}
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, model.NewFeedParseError("フィードの解析に失敗しました: " + err.Error())
	}

	result := &Result{FeedTitle: feed.Title}
	now := s.now()

	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		if result.Imported >= maxItemsPerImport {
			break
		}

		// 既存素材との重複はURLで判定する
		if item.Link != "" {
			existing, err := s.sources.FindByURL(ctx, item.Link)
			if err != nil {
				return result, model.NewRemoteReadError("既存素材")
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}

		source := &model.ContentSource{
			ID:          uuid.New().String(),
			ContentDate: itemDate(item, now),
			Source:      model.SourceRSS,
			Title:       s.sanitizer.Sanitize(item.Title),
			Description: s.sanitizer.Sanitize(itemDescription(item)),
			Author:      itemAuthor(item),
			URL:         item.Link,
			Metadata:    map[string]string{"feed_title": feed.Title},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.sources.Create(ctx, source); err != nil {
			s.logger.ErrorContext(ctx, "フィード記事の保存に失敗しました", "url", item.Link, "error", err)
			return result, model.NewRemoteWriteError("フィード記事")
		}
		result.Imported++
	}

	if s.metrics != nil && result.Imported > 0 {
		s.metrics.RecordSourcesImported(result.Imported)
	}

	s.logger.InfoContext(ctx, "フィードの取り込みが完了しました",
		"feed_url", feedURL,
		"feed_title", feed.Title,
		"imported", result.Imported,
		"skipped", result.Skipped,
	)
	return result, nil
}

// fetch はURLを取得してボディとContent-Typeを返す。
func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "newsdesk/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("フィードがステータス%dを返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFetchSize))
	if err != nil {
		return nil, "", fmt.Errorf("フィードの読み取りに失敗しました: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// itemDate は記事の日時を返す。公開日時→更新日時→現在時刻の順で使用する。
func itemDate(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return fallback
}

// itemDescription は記事の概要を返す。DescriptionがなければContentを使用する。
func itemDescription(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}
	return item.Content
}

// itemAuthor は記事の著者名を返す。
func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return item.Authors[0].Name
	}
	return ""
}
