package curation

import "github.com/hitoshi/newsdesk/internal/model"

// FilterBySource は素材を収集元種別で絞り込む。空指定は全件を返す。
// 一覧のフィルタ切り替えはキャッシュ済みコレクションへの適用のみで完結し、
// 切り替えごとの再取得は発生しない。
func FilterBySource(sources []model.ContentSource, source model.SourceType) []model.ContentSource {
	if source == "" {
		return sources
	}
	out := make([]model.ContentSource, 0, len(sources))
	for _, s := range sources {
		if s.Source == source {
			out = append(out, s)
		}
	}
	return out
}
