package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newsdesk/internal/markdown"
	"github.com/hitoshi/newsdesk/internal/model"
)

// EditorHandler はMarkdownエディタ支援のHTTPハンドラー。
// 書式の適用・解除ロジックをサーバー側で一元管理する。
type EditorHandler struct{}

// NewEditorHandler はEditorHandlerを生成する。
func NewEditorHandler() *EditorHandler {
	return &EditorHandler{}
}

// markdownRequest は書式適用リクエストのボディ。
// Textは選択範囲のテキストで、書式が適用済みの場合は解除される。
type markdownRequest struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

// markdownResponse は書式適用結果のAPIレスポンス。
type markdownResponse struct {
	Text string `json:"text"`
}

// ApplyMarkdown は選択テキストにMarkdown書式を適用または解除する。
// POST /api/editor/markdown
func (h *EditorHandler) ApplyMarkdown(w http.ResponseWriter, r *http.Request) {
	var req markdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyError(w)
		return
	}

	if !markdown.KnownAction(req.Action) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("未対応の書式アクションです: "+req.Action))
		return
	}

	result := markdown.Apply(req.Text, markdown.Action(req.Action))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markdownResponse{Text: result})
}
