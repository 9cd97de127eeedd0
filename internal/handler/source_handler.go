package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/feedimport"
	"github.com/hitoshi/newsdesk/internal/model"
)

// CurationServiceInterface はコンテンツ素材ハンドラーが必要とするサービスインターフェース。
type CurationServiceInterface interface {
	// ListSources はフィルタ条件に一致する素材を返す。
	ListSources(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error)
	// ToggleSelection は素材の選択フラグを更新する。
	ToggleSelection(ctx context.Context, id string, selected bool) error
	// SetArchived は素材のアーカイブフラグを更新する。
	SetArchived(ctx context.Context, id string, archived bool) error
	// DeleteSources は複数の素材を一括削除する。
	DeleteSources(ctx context.Context, ids []string) error
}

// ExtractServiceInterface はURLからの素材抽出インターフェース。
type ExtractServiceInterface interface {
	FromURL(ctx context.Context, rawURL string) (*model.ContentSource, error)
}

// FeedImportServiceInterface はRSS/Atomフィードからの素材取り込みインターフェース。
type FeedImportServiceInterface interface {
	FromFeed(ctx context.Context, feedURL string) (*feedimport.Result, error)
}

// SourceHandler はコンテンツ素材管理のHTTPハンドラー。
type SourceHandler struct {
	curation CurationServiceInterface
	extract  ExtractServiceInterface
	feeds    FeedImportServiceInterface
}

// NewSourceHandler はSourceHandlerを生成する。
func NewSourceHandler(curation CurationServiceInterface, extract ExtractServiceInterface, feeds FeedImportServiceInterface) *SourceHandler {
	return &SourceHandler{
		curation: curation,
		extract:  extract,
		feeds:    feeds,
	}
}

// sourceResponse はコンテンツ素材のAPIレスポンス。
type sourceResponse struct {
	ID          string            `json:"id"`
	ContentDate time.Time         `json:"content_date"`
	Source      string            `json:"source"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Author      string            `json:"author,omitempty"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Selected    bool              `json:"selected"`
	Archived    bool              `json:"archived"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// selectionRequest は選択フラグ更新リクエストのボディ。
type selectionRequest struct {
	Selected bool `json:"selected"`
}

// archiveRequest はアーカイブフラグ更新リクエストのボディ。
type archiveRequest struct {
	Archived bool `json:"archived"`
}

// bulkDeleteRequest は一括削除リクエストのボディ。
type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// urlRequest はURL指定リクエストのボディ。
type urlRequest struct {
	URL string `json:"url"`
}

// importResultResponse はフィード取り込み結果のAPIレスポンス。
type importResultResponse struct {
	FeedTitle string `json:"feed_title"`
	Imported  int    `json:"imported"`
	Skipped   int    `json:"skipped"`
}

// ListSources は素材一覧を返す。
// GET /api/content-sources?source=rss&include_archived=true
func (h *SourceHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	filter := model.SourceFilter{
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	// 未知の種別はunknownに正規化され、結果は空になる
	if src := r.URL.Query().Get("source"); src != "" {
		filter.Source = model.NormalizeSourceType(src)
	}

	sources, err := h.curation.ListSources(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]sourceResponse, 0, len(sources))
	for i := range sources {
		resp = append(resp, toSourceResponse(&sources[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateSelection は素材の選択フラグを更新する。
// PUT /api/content-sources/:id/selection
func (h *SourceHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if err := h.curation.ToggleSelection(r.Context(), id, req.Selected); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateArchive は素材のアーカイブフラグを更新する。
// PUT /api/content-sources/:id/archive
func (h *SourceHandler) UpdateArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if err := h.curation.SetArchived(r.Context(), id, req.Archived); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete は複数の素材を一括削除する。
// POST /api/content-sources/bulk-delete
func (h *SourceHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if err := h.curation.DeleteSources(r.Context(), req.IDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExtractFromURL はURLからコンテンツを抽出して素材として登録する。
// POST /api/content-sources/from-url
func (h *SourceHandler) ExtractFromURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("URLが空です"))
		return
	}

	source, err := h.extract.FromURL(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSourceResponse(source))
}

// ImportFromFeed はRSS/Atomフィードから素材を取り込む。
// POST /api/content-sources/from-feed
func (h *SourceHandler) ImportFromFeed(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("フィードURLが空です"))
		return
	}

	result, err := h.feeds.FromFeed(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(importResultResponse{
		FeedTitle: result.FeedTitle,
		Imported:  result.Imported,
		Skipped:   result.Skipped,
	})
}

// toSourceResponse はmodel.ContentSourceからAPIレスポンスに変換する。
func toSourceResponse(source *model.ContentSource) sourceResponse {
	return sourceResponse{
		ID:          source.ID,
		ContentDate: source.ContentDate,
		Source:      string(source.Source),
		Title:       source.Title,
		Description: source.Description,
		Author:      source.Author,
		URL:         source.URL,
		Metadata:    source.Metadata,
		Selected:    source.Selected,
		Archived:    source.Archived,
		CreatedAt:   source.CreatedAt,
		UpdatedAt:   source.UpdatedAt,
	}
}
