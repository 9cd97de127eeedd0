// Package model はドメインモデルを定義する。
package model

import "time"

// ContentSource は外部フィードやWebページから収集されたコンテンツ素材を表す。
// ニュースレター生成の入力候補としてキュレーション画面に表示される。
type ContentSource struct {
	ID          string
	ContentDate time.Time // 一覧の並び順に使用する日時
	Source      SourceType
	Title       string
	Description string // Markdown（省略可）
	Author      string
	URL         string
	Metadata    map[string]string // 収集元ドメイン等の自由なキーバリュー
	Selected    bool              // 次回ニュースレターに含める永続フラグ
	Archived    bool              // ソフト削除フラグ
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SourceType はコンテンツ素材の収集元種別を表す。
// スキーマ変更ではなく慣習で新しい種別が追加されるため、
// 未知の値も保持できるよう文字列型とする。
type SourceType string

const (
	// SourceGoogle は一般的なWebページから収集された素材。
	SourceGoogle SourceType = "google"
	// SourceLinkedInNewsletter はLinkedInニュースレターから収集された素材。
	SourceLinkedInNewsletter SourceType = "linkedin_newsletter"
	// SourceLinkedInSearch はLinkedIn検索結果から収集された素材。
	SourceLinkedInSearch SourceType = "linkedin_search"
	// SourceRSS はRSS/Atomフィードから取り込まれた素材。
	SourceRSS SourceType = "rss"
	// SourceSheet はスプレッドシート経由で取り込まれた素材。
	SourceSheet SourceType = "sheet"
	// SourceUnknown は分類できなかった素材。
	SourceUnknown SourceType = "unknown"
)

// knownSourceTypes は既知の収集元種別のセット。
var knownSourceTypes = map[SourceType]bool{
	SourceGoogle:             true,
	SourceLinkedInNewsletter: true,
	SourceLinkedInSearch:     true,
	SourceRSS:                true,
	SourceSheet:              true,
}

// NormalizeSourceType は収集元種別を既知の値に正規化する。
// 未知の値はSourceUnknownを返す。空文字列もSourceUnknownとして扱う。
func NormalizeSourceType(s string) SourceType {
	st := SourceType(s)
	if knownSourceTypes[st] {
		return st
	}
	return SourceUnknown
}

// SourceFilter はコンテンツ素材一覧の取得条件を表す。
type SourceFilter struct {
	// Source が空でない場合、その収集元種別のみに絞り込む。
	Source SourceType
	// IncludeArchived がtrueの場合、アーカイブ済みの素材も含める。
	IncludeArchived bool
}

// NewsItem はニュースレター生成の入力となる一時的な投影モデル。
// 単独では永続化されず、Newsletterのitemsスナップショットとしてのみ保存される。
type NewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	Selected    bool   `json:"selected"`
}

// ToNewsItem はContentSourceを生成入力用のNewsItemに投影する。
func (c *ContentSource) ToNewsItem() NewsItem {
	return NewsItem{
		Title:       c.Title,
		Description: c.Description,
		Source:      string(c.Source),
		URL:         c.URL,
		Selected:    c.Selected,
	}
}
