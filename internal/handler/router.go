package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/middleware"
)

// HealthChecker はデータベース接続の死活確認インターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// コンテンツ素材
	CurationService   CurationServiceInterface
	ExtractService    ExtractServiceInterface
	FeedImportService FeedImportServiceInterface

	// スプレッドシート
	SheetService SheetServiceInterface

	// ニュースレター
	NewsletterService NewsletterServiceInterface

	// ユーザー設定
	SettingsService SettingsServiceInterface

	// メトリクス
	MetricsGatherer prometheus.Gatherer
	Metrics         metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）、/health、/metrics はセッションミドルウェアの外に配置する。
// LLM呼び出しを伴う取り込み・生成系エンドポイントには取り込み専用レート制限を追加適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	sourceHandler := NewSourceHandler(deps.CurationService, deps.ExtractService, deps.FeedImportService)
	sheetHandler := NewSheetHandler(deps.SheetService)
	newsletterHandler := NewNewsletterHandler(deps.NewsletterService)
	settingsHandler := NewSettingsHandler(deps.SettingsService)
	editorHandler := NewEditorHandler()

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		ingest := deps.RateLimiter.IngestionMiddleware()

		// コンテンツ素材管理
		r.Route("/api/content-sources", func(r chi.Router) {
			r.Get("/", sourceHandler.ListSources)
			r.Post("/bulk-delete", sourceHandler.BulkDelete)

			// LLM抽出・フィード取り込みは取り込み専用レート制限を追加
			r.With(ingest).Post("/from-url", sourceHandler.ExtractFromURL)
			r.With(ingest).Post("/from-feed", sourceHandler.ImportFromFeed)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/selection", sourceHandler.UpdateSelection)
				r.Put("/archive", sourceHandler.UpdateArchive)
			})
		})

		// スプレッドシート取り込み
		r.With(ingest).Post("/api/sheets/parse", sheetHandler.Parse)

		// ニュースレター管理
		r.Route("/api/newsletters", func(r chi.Router) {
			r.Get("/", newsletterHandler.List)
			r.Post("/", newsletterHandler.Create)

			// 生成はLLM呼び出しを伴うため取り込み専用レート制限を追加
			r.With(ingest).Post("/generate", newsletterHandler.Generate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", newsletterHandler.Get)
				r.Patch("/", newsletterHandler.Update)
				r.Delete("/", newsletterHandler.Delete)
			})
		})

		// ユーザー設定
		r.Route("/api/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.Get)
			r.Put("/", settingsHandler.Update)
		})

		// Markdownエディタ支援
		r.Post("/api/editor/markdown", editorHandler.ApplyMarkdown)
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// checkerが指定されている場合はDB接続の死活も確認する。
// GET /health
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
