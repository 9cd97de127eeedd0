// Package model はドメインモデルを定義する。
package model

import "time"

// Newsletter は生成されたニュースレター本文とその来歴を表す。
// Contentはユーザーの明示的な編集または再生成以外では変更されない。
// Itemsは生成時に使用した素材の凍結スナップショットであり、再導出されない。
type Newsletter struct {
	ID        string
	UserID    string
	Title     string
	Content   string // Markdown本文
	SourceURL string // 省略可（シート由来の場合の元URL等）
	Items     []NewsItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settings はユーザーごとのニュースレター生成設定を表す。
// ユーザーにつき1行で、初回読み込み時にはデフォルト値が返される。
type Settings struct {
	UserID                 string
	PromptTemplate         string
	NewsletterTemplate     string
	DefaultNewsletterTitle string
	// NewsletterExamples は文体の参考として生成プロンプトに含める過去号の本文。
	// 空の場合はNULLとして永続化され、読み込み時は空スライスになる。
	NewsletterExamples []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
