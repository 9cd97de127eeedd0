// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/newsdesk/internal/model"
)

// ContentSourceRepository はコンテンツ素材の永続化インターフェース。
type ContentSourceRepository interface {
	// List はフィルタ条件に一致する素材をcontent_date昇順で返す。
	// IncludeArchivedがfalseの場合、アーカイブ済みの素材は除外される。
	List(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error)

	// ListSelected はselected=trueの素材をcontent_date昇順で返す。
	ListSelected(ctx context.Context) ([]model.ContentSource, error)

	// FindByID は指定IDの素材を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ContentSource, error)

	// FindByURL はURLで素材を検索する。見つからない場合はnilを返す。
	// フィード取り込み時の重複判定に使用する。
	FindByURL(ctx context.Context, url string) (*model.ContentSource, error)

	// Create は新規素材を作成する。
	Create(ctx context.Context, source *model.ContentSource) error

	// UpdateSelected は1件の選択フラグを更新する。
	// 対象IDが存在しない場合はエラーを返す。
	UpdateSelected(ctx context.Context, id string, selected bool) error

	// UpdateArchived は1件のアーカイブフラグを更新する。
	// 対象IDが存在しない場合はエラーを返す。
	UpdateArchived(ctx context.Context, id string, archived bool) error

	// DeleteByIDs はIDセットによる一括削除を行う。
	// 単一のDELETE文で実行されるため、失敗時はどのIDも削除されない。
	DeleteByIDs(ctx context.Context, ids []string) error

	// ResetSelected は指定IDセットの選択フラグをfalseに戻す。
	// ニュースレター生成の最終ステップで、生成に使用したIDに限定して呼ばれる。
	ResetSelected(ctx context.Context, ids []string) error
}

// NewsletterRepository はニュースレターの永続化インターフェース。
type NewsletterRepository interface {
	// ListByUserID はユーザーのニュースレター一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.Newsletter, error)

	// FindByID は指定IDのニュースレターを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Newsletter, error)

	// Create は新規ニュースレターを作成する。
	Create(ctx context.Context, newsletter *model.Newsletter) error

	// Update はタイトルと本文を更新する。itemsスナップショットは変更しない。
	Update(ctx context.Context, newsletter *model.Newsletter) error

	// DeleteByID は指定IDのニュースレターを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SettingsRepository はユーザー設定の永続化インターフェース。
type SettingsRepository interface {
	// FindByUserID はユーザーの設定行を取得する。未作成の場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Settings, error)

	// Upsert は設定を冪等にUPSERTする。
	// NewsletterExamplesが空の場合はNULLとして永続化される。
	Upsert(ctx context.Context, settings *model.Settings) error
}

// SessionRepository はセッションデータの読み取りインターフェース。
// セッションの作成は外部の認証サービスが行う。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する（ログアウト）。
	DeleteByID(ctx context.Context, id string) error
}

// UserRepository はユーザーデータの読み取りインターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}
