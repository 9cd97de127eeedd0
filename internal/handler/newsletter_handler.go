package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
)

// NewsletterServiceInterface はニュースレターハンドラーが必要とするサービスインターフェース。
type NewsletterServiceInterface interface {
	// GenerateFromSources は選択済み素材からニュースレターを生成して保存する。
	GenerateFromSources(ctx context.Context, userID string, targetDate *time.Time) (*model.Newsletter, error)
	// List はユーザーのニュースレター一覧を新しい順で返す。
	List(ctx context.Context, userID string) ([]model.Newsletter, error)
	// Get は指定IDのニュースレターを取得する。
	Get(ctx context.Context, userID, id string) (*model.Newsletter, error)
	// Create はニュースレターを手動作成する。
	Create(ctx context.Context, userID, title, content, sourceURL string, items []model.NewsItem) (*model.Newsletter, error)
	// Update はタイトルと本文を更新する。Itemsスナップショットは変更されない。
	Update(ctx context.Context, userID, id, title, content string) (*model.Newsletter, error)
	// Delete は指定IDのニュースレターを削除する。
	Delete(ctx context.Context, userID, id string) error
}

// NewsletterHandler はニュースレター管理のHTTPハンドラー。
type NewsletterHandler struct {
	service NewsletterServiceInterface
}

// NewNewsletterHandler はNewsletterHandlerを生成する。
func NewNewsletterHandler(service NewsletterServiceInterface) *NewsletterHandler {
	return &NewsletterHandler{service: service}
}

// newsletterResponse はニュースレターのAPIレスポンス。
type newsletterResponse struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	SourceURL string           `json:"source_url,omitempty"`
	Items     []model.NewsItem `json:"items,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// generateRequest はニュースレター生成リクエストのボディ。
type generateRequest struct {
	// TargetDate は週タイトルの基準日（RFC3339）。省略時は現在日時。
	TargetDate *time.Time `json:"target_date,omitempty"`
}

// createNewsletterRequest はニュースレター手動作成リクエストのボディ。
type createNewsletterRequest struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	SourceURL string           `json:"source_url"`
	Items     []model.NewsItem `json:"items"`
}

// updateNewsletterRequest はニュースレター更新リクエストのボディ。
type updateNewsletterRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generate は選択済み素材からニュースレターを生成する。
// POST /api/newsletters/generate
func (h *NewsletterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	var req generateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidBodyError(w)
			return
		}
	}

	newsletter, err := h.service.GenerateFromSources(r.Context(), userID, req.TargetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toNewsletterResponse(newsletter))
}

// List はニュースレター一覧を返す。
// GET /api/newsletters
func (h *NewsletterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	newsletters, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]newsletterResponse, 0, len(newsletters))
	for i := range newsletters {
		resp = append(resp, toNewsletterResponse(&newsletters[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Get はニュースレター詳細を返す。
// GET /api/newsletters/:id
func (h *NewsletterHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	newsletter, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toNewsletterResponse(newsletter))
}

// Create はニュースレターを手動作成する。
// POST /api/newsletters
func (h *NewsletterHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	var req createNewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Title == "" || req.Content == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("タイトルと本文は必須です"))
		return
	}

	newsletter, err := h.service.Create(r.Context(), userID, req.Title, req.Content, req.SourceURL, req.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toNewsletterResponse(newsletter))
}

// Update はニュースレターのタイトルと本文を更新する。
// PATCH /api/newsletters/:id
func (h *NewsletterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	var req updateNewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.Title == "" || req.Content == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("タイトルと本文は必須です"))
		return
	}

	newsletter, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toNewsletterResponse(newsletter))
}

// Delete はニュースレターを削除する。
// DELETE /api/newsletters/:id
func (h *NewsletterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedError(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toNewsletterResponse はmodel.NewsletterからAPIレスポンスに変換する。
func toNewsletterResponse(n *model.Newsletter) newsletterResponse {
	return newsletterResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		SourceURL: n.SourceURL,
		Items:     n.Items,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
