// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, newsletter, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeRemoteReadError        = "REMOTE_READ_ERROR"
	ErrCodeRemoteWriteError       = "REMOTE_WRITE_ERROR"
	ErrCodeExtractionFailed       = "EXTRACTION_FAILED"
	ErrCodePersistFailed          = "PERSIST_FAILED"
	ErrCodeGenerationFailed       = "GENERATION_FAILED"
	ErrCodeEmptySelection         = "EMPTY_SELECTION"
	ErrCodeInvalidURL             = "INVALID_URL"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeSSRFBlocked            = "SSRF_BLOCKED"
	ErrCodeSheetParseFailed       = "SHEET_PARSE_FAILED"
	ErrCodeFeedParseFailed        = "FEED_PARSE_FAILED"
	ErrCodeSourceNotFound         = "SOURCE_NOT_FOUND"
	ErrCodeNewsletterNotFound     = "NEWSLETTER_NOT_FOUND"
)

// NewAuthenticationRequiredError は未認証エラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewRemoteReadError はデータサービスからの読み取り失敗エラーを生成する。
func NewRemoteReadError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteReadError,
		Message:  fmt.Sprintf("%sの取得に失敗しました。", what),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRemoteWriteError はデータサービスへの書き込み失敗エラーを生成する。
func NewRemoteWriteError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeRemoteWriteError,
		Message:  fmt.Sprintf("%sの保存に失敗しました。", what),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewExtractionError はURLコンテンツの抽出失敗エラーを生成する。
func NewExtractionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExtractionFailed,
		Message:  fmt.Sprintf("URLからのコンテンツ抽出に失敗しました: %s", reason),
		Category: "content",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewPersistError は抽出成功後の保存失敗エラーを生成する。
// 抽出自体は成功しているため、呼び出し元は再試行を案内できる。
func NewPersistError() *APIError {
	return &APIError{
		Code:     ErrCodePersistFailed,
		Message:  "抽出したコンテンツの保存に失敗しました。",
		Category: "content",
		Action:   "抽出は成功しています。もう一度保存をお試しください。",
	}
}

// NewGenerationError はニュースレター生成失敗エラーを生成する。
func NewGenerationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  fmt.Sprintf("ニュースレターの生成に失敗しました: %s", reason),
		Category: "newsletter",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmptySelectionError は選択済み素材が存在しない状態での生成要求エラーを生成する。
func NewEmptySelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptySelection,
		Message:  "ニュースレターに含める素材が選択されていません。",
		Category: "validation",
		Action:   "素材を1件以上選択してから生成してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewInvalidRequestError は不正なリクエストエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewSheetParseError はスプレッドシートの読み取り失敗エラーを生成する。
func NewSheetParseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSheetParseFailed,
		Message:  fmt.Sprintf("スプレッドシートの読み取りに失敗しました: %s", reason),
		Category: "content",
		Action:   "Google SheetsのURLと共有設定を確認してください。",
	}
}

// NewFeedParseError はフィードの解析失敗エラーを生成する。
func NewFeedParseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedParseFailed,
		Message:  fmt.Sprintf("フィードの解析に失敗しました: %s", reason),
		Category: "content",
		Action:   "有効なRSS/AtomフィードのURLかどうか確認してください。",
	}
}

// NewSourceNotFoundError はコンテンツ素材未検出エラーを生成する。
func NewSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツ素材が見つかりません: %s", sourceID),
		Category: "content",
		Action:   "素材IDを確認してください。",
	}
}

// NewNewsletterNotFoundError はニュースレター未検出エラーを生成する。
func NewNewsletterNotFoundError(newsletterID string) *APIError {
	return &APIError{
		Code:     ErrCodeNewsletterNotFound,
		Message:  fmt.Sprintf("指定されたニュースレターが見つかりません: %s", newsletterID),
		Category: "newsletter",
		Action:   "ニュースレターIDを確認してください。",
	}
}
