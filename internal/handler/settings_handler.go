package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
)

// SettingsServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type SettingsServiceInterface interface {
	// Get はユーザーの設定を取得する。未保存の場合はデフォルト値を返す。
	Get(ctx context.Context, userID string) (*model.Settings, error)
	// Save は設定を検証して保存する。
	Save(ctx context.Context, settings *model.Settings) error
}

// SettingsHandler はユーザー設定のHTTPハンドラー。
type SettingsHandler struct {
	service SettingsServiceInterface
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(service SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// settingsPayload は設定の取得・更新で共用するJSON表現。
type settingsPayload struct {
	PromptTemplate         string   `json:"prompt_template"`
	NewsletterTemplate     string   `json:"newsletter_template"`
	DefaultNewsletterTitle string   `json:"default_newsletter_title"`
	NewsletterExamples     []string `json:"newsletter_examples"`
}

// Get はユーザーの設定を返す。
// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	settings, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	examples := settings.NewsletterExamples
	if examples == nil {
		examples = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settingsPayload{
		PromptTemplate:         settings.PromptTemplate,
		NewsletterTemplate:     settings.NewsletterTemplate,
		DefaultNewsletterTitle: settings.DefaultNewsletterTitle,
		NewsletterExamples:     examples,
	})
}

// Update はユーザーの設定を保存する。
// PUT /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	settings := &model.Settings{
		UserID:                 userID,
		PromptTemplate:         req.PromptTemplate,
		NewsletterTemplate:     req.NewsletterTemplate,
		DefaultNewsletterTitle: req.DefaultNewsletterTitle,
		NewsletterExamples:     req.NewsletterExamples,
	}

	if err := h.service.Save(r.Context(), settings); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
