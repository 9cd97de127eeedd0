// Package extract はURLからのコンテンツ抽出を提供する。
//
// 抽出は2段階で行われる。まずSSRF防止付きクライアントでページを取得して
// テキストに縮約し、次にLLMでタイトル・概要・著者を構造化抽出する。
// 取得・抽出の失敗と、抽出成功後の保存失敗は区別してエラーを返す。
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
	"github.com/hitoshi/newsdesk/internal/security"
)

const (
	defaultFetchTimeout = 30 * time.Second
	// defaultMaxFetchSize は取得するページの最大サイズのデフォルト。
	defaultMaxFetchSize = 2 * 1024 * 1024
	// maxContentChars はLLMに渡すテキストの最大文字数。
	maxContentChars = 12000
)

// extractSystemPrompt はページ内容の構造化抽出を指示するシステムプロンプト。
const extractSystemPrompt = `You are an expert at extracting and summarising content from web pages, specialising in R&D tax-related content.

Your task is to analyse the provided page content and return a structured response in the following format EXACTLY:

{
  "title": "The main article title, or for LinkedIn posts, the author's name",
  "description": "A 2-3 sentence summary focusing on key points and R&D tax implications",
  "author": "The content author's name (if available)"
}

Guidelines:
- For LinkedIn posts, use the author's name as the title
- For articles, use the main headline as the title (without any prefixes or domain info)
- Keep descriptions focused and concise
- Only include the author field if explicitly stated in the content
- Return ONLY the JSON response, no additional text
- Use British English in your response (en-gb)`

// Extractor はページ内容の構造化抽出を行うLLMインターフェース。
type Extractor interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Service はURLからのコンテンツ抽出と保存を提供する。
type Service struct {
	sources      repository.ContentSourceRepository
	extractor    Extractor
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
// fetchTimeoutとmaxFetchSizeはページ取得の上限で、0以下の場合はデフォルトが使われる。
func NewService(
	sources repository.ContentSourceRepository,
	extractor Extractor,
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
		extractor:    extractor,
		guard:        guard,
		sanitizer:    sanitizer,
		client:       guard.NewSafeClient(fetchTimeout, maxFetchSize),
		maxFetchSize: maxFetchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// extractedContent はLLMの構造化抽出結果。
type extractedContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// FromURL はURLからコンテンツを抽出して新規素材として保存する。
//
// 取得または抽出の失敗はEXTRACTION_FAILED、抽出成功後の保存失敗は
// PERSIST_FAILEDとして区別される。後者は部分的な失敗であり、
// 呼び出し元は再試行を案内できる。
func (s *Service) FromURL(ctx context.Context, rawURL string) (*model.ContentSource, error) {
	parsed, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateURL(rawURL); err != nil {
		s.logger.WarnContext(ctx, "URLがSSRFポリシーによりブロックされました", "url", rawURL, "error", err)
		return nil, model.NewSSRFBlockedError()
	}

	text, err := s.fetchText(ctx, rawURL)
	if err != nil {
		s.recordFailure("fetch")
		return nil, model.NewExtractionError(err.Error())
	}

	content, err := s.extractContent(ctx, rawURL, text)
	if err != nil {
		s.recordFailure("llm")
		return nil, err
	}

	now := s.now()
	source := &model.ContentSource{
		ID:          uuid.New().String(),
		ContentDate: now,
		Source:      ClassifySource(rawURL),
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(content.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(content.Description)),
		Author:      strings.TrimSpace(s.sanitizer.Sanitize(content.Author)),
		URL:         rawURL,
		Metadata:    map[string]string{"domain": parsed.Hostname()},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if source.Title == "" {
		s.recordFailure("empty_title")
		return nil, model.NewExtractionError("タイトルを抽出できませんでした")
	}

	if err := s.sources.Create(ctx, source); err != nil {
		s.logger.ErrorContext(ctx, "抽出済みコンテンツの保存に失敗しました", "url", rawURL, "error", err)
		s.recordFailure("persist")
		return nil, model.NewPersistError()
	}

	if s.metrics != nil {
		s.metrics.RecordExtractionSuccess(string(source.Source))
		s.metrics.RecordSourcesImported(1)
	}
	return source, nil
}

// recordFailure は抽出失敗をメトリクスに記録する。
func (s *Service) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordExtractionFailure(reason)
	}
}

// fetchText はページを取得して本文テキストに縮約する。
func (s *Service) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "newsdesk/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ページがステータス%dを返しました", resp.StatusCode)
	}

	text := ReduceHTML(io.LimitReader(resp.Body, s.maxFetchSize))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ページから本文テキストを取得できませんでした")
	}
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}
	return text, nil
}

// extractContent はLLMでタイトル・概要・著者を抽出する。
func (s *Service) extractContent(ctx context.Context, rawURL, text string) (*extractedContent, error) {
	user := fmt.Sprintf("URL: %s\n\nPage Content: %s", rawURL, text)
	start := time.Now()
	response, err := s.extractor.CompleteJSON(ctx, extractSystemPrompt, user)
	if s.metrics != nil {
		s.metrics.RecordLLMLatency("extract", time.Since(start))
	}
	if err != nil {
		return nil, model.NewExtractionError(err.Error())
	}

	var content extractedContent
	if err := json.Unmarshal([]byte(response), &content); err != nil {
		return nil, model.NewExtractionError("抽出結果の形式が不正です")
	}
	return &content, nil
}

// validateURL はURLの形式を検証する。
func validateURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, model.NewInvalidURLError("URLが空です")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.NewInvalidURLError("URLを解析できません")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, model.NewInvalidURLError("http:// または https:// で始まる必要があります")
	}
	if parsed.Hostname() == "" {
		return nil, model.NewInvalidURLError("ホスト名がありません")
	}
	return parsed, nil
}

// ClassifySource はURLから収集元種別を判定する。
// LinkedInのニュースレターURLと検索経由のURLを区別し、それ以外はgoogleとする。
func ClassifySource(rawURL string) model.SourceType {
	if strings.Contains(rawURL, "linkedin.com") {
		if strings.Contains(rawURL, "/newsletter/") {
			return model.SourceLinkedInNewsletter
		}
		return model.SourceLinkedInSearch
	}
	return model.SourceGoogle
}

// ReduceHTML はHTMLから表示テキストのみを抽出する。
// script/style/noscript配下のテキストは除外され、空白は1つに圧縮される。
func ReduceHTML(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	var sb strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

// isSkippedTag はテキスト抽出から除外するタグかを判定する。
func isSkippedTag(name string) bool {
	switch name {
	case "script", "style", "noscript":
		return true
	}
	return false
}
