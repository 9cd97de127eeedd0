package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdesk/internal/model"
)

// SheetServiceInterface はスプレッドシートハンドラーが必要とするサービスインターフェース。
type SheetServiceInterface interface {
	// Parse はスプレッドシートURLからニュース項目を読み取る。
	Parse(ctx context.Context, rawURL string) ([]model.NewsItem, error)
}

// SheetHandler はスプレッドシート取り込みのHTTPハンドラー。
type SheetHandler struct {
	service SheetServiceInterface
}

// NewSheetHandler はSheetHandlerを生成する。
func NewSheetHandler(service SheetServiceInterface) *SheetHandler {
	return &SheetHandler{service: service}
}

// parseSheetResponse はシート解析結果のAPIレスポンス。
type parseSheetResponse struct {
	Items []model.NewsItem `json:"items"`
}

// Parse はスプレッドシートからニュース項目を読み取って返す。
// 項目は永続化されず、クライアント側での選択・編集を経て利用される。
// POST /api/sheets/parse
func (h *SheetHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidURLError("スプレッドシートURLが空です"))
		return
	}

	items, err := h.service.Parse(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(parseSheetResponse{Items: items})
}
