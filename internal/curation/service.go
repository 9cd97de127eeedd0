// Package curation はコンテンツ素材の一覧・選択・アーカイブ・削除を提供する。
//
// 読み取りはキャッシュ経由のリードスルーで行い、書き込みは楽観的更新
// （キャッシュへ即時反映→永続化→確定/巻き戻し）で行う。サーバーのデータが常に正であり、
// 巻き戻しが発生した場合はNotifier経由で利用者に通知される。
package curation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// Notifier は楽観的更新の結果を利用者に通知するインターフェース。
type Notifier interface {
	// Notify は severity（"info" または "error"）とメッセージを通知する。
	Notify(ctx context.Context, severity, message string)
}

// SlogNotifier はslogに通知を書き出すNotifier実装。
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier はSlogNotifierを生成する。
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

// Notify は通知をログに記録する。
func (n *SlogNotifier) Notify(ctx context.Context, severity, message string) {
	if severity == "error" {
		n.logger.ErrorContext(ctx, "ユーザー通知", "message", message)
		return
	}
	n.logger.InfoContext(ctx, "ユーザー通知", "message", message)
}

// Service はコンテンツ素材のキュレーション操作を提供する。
type Service struct {
	repo     repository.ContentSourceRepository
	cache    *cache.Store[model.ContentSource]
	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	knownKeys map[cache.Key]struct{}
}

// NewService はServiceを生成する。
func NewService(repo repository.ContentSourceRepository, store *cache.Store[model.ContentSource], notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     store,
		notifier:  notifier,
		logger:    logger,
		knownKeys: make(map[cache.Key]struct{}),
	}
}

// keyFor はアーカイブ可視性をキャッシュキーに変換する。
// キャッシュはソース種別で絞り込む前のコレクションを保持するため、
// キーはアーカイブ可視性ごとにのみ分かれる。
func keyFor(includeArchived bool) cache.Key {
	return cache.Key(fmt.Sprintf("sources:all:%t", includeArchived))
}

// ListSources はフィルタ条件に一致する素材を返す。
// キャッシュが新鮮な場合はキャッシュから、そうでない場合はリポジトリから再取得する。
// ソース種別の絞り込みはキャッシュ済みコレクションに対してメモリ内で行われるため、
// フィルタ切り替えで再取得は発生しない。
// 再取得中にミューテーションが走った場合、古い応答は破棄され楽観的状態が優先される。
func (s *Service) ListSources(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
	key := keyFor(filter.IncludeArchived)
	s.rememberKey(key)

	if items, ok := s.cache.Fresh(key); ok {
		return FilterBySource(items, filter.Source), nil
	}

	version := s.cache.Version(key)
	sources, err := s.repo.List(ctx, model.SourceFilter{IncludeArchived: filter.IncludeArchived})
	if err != nil {
		// 再取得に失敗してもキャッシュ済みの状態があればそれを返す
		if items, ok := s.cache.Items(key); ok {
			s.logger.WarnContext(ctx, "素材一覧の再取得に失敗したためキャッシュを返します", "error", err)
			return FilterBySource(items, filter.Source), nil
		}
		return nil, model.NewRemoteReadError("コンテンツ素材一覧")
	}

	if !s.cache.Fill(key, sources, version) {
		// 取得中にミューテーションが確定したため、楽観的状態を返す
		if items, ok := s.cache.Items(key); ok {
			return FilterBySource(items, filter.Source), nil
		}
	}
	return FilterBySource(sources, filter.Source), nil
}

// ListSelected は選択済みの素材をcontent_date昇順で返す。キャッシュは経由しない。
func (s *Service) ListSelected(ctx context.Context) ([]model.ContentSource, error) {
	sources, err := s.repo.ListSelected(ctx)
	if err != nil {
		return nil, model.NewRemoteReadError("選択済み素材")
	}
	return sources, nil
}

// AddSource は新規素材を保存し、関連するキャッシュを無効化する。
func (s *Service) AddSource(ctx context.Context, source *model.ContentSource) error {
	if err := s.repo.Create(ctx, source); err != nil {
		return model.NewRemoteWriteError("コンテンツ素材")
	}
	s.invalidateAll()
	return nil
}

// ToggleSelection は1件の選択フラグを楽観的に更新する。
// キャッシュへ即時反映したうえで永続化し、失敗時は開始時点の状態へ巻き戻す。
func (s *Service) ToggleSelection(ctx context.Context, id string, selected bool) error {
	mut := s.cache.Begin(s.keys()...)
	s.patchAll(mut, func(items []model.ContentSource) []model.ContentSource {
		for i := range items {
			if items[i].ID == id {
				items[i].Selected = selected
			}
		}
		return items
	})

	if err := s.repo.UpdateSelected(ctx, id, selected); err != nil {
		mut.Rollback()
		if apiErr, ok := err.(*model.APIError); ok {
			return apiErr
		}
		s.notifier.Notify(ctx, "error", "選択状態の更新に失敗しました。表示を元に戻しました。")
		return model.NewRemoteWriteError("選択状態")
	}

	mut.Commit()
	return nil
}

// SetArchived は1件のアーカイブフラグを楽観的に更新する。
// アーカイブ時はアーカイブ非表示のビューから即時に取り除かれる。
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) error {
	mut := s.cache.Begin(s.keys()...)
	for _, key := range s.keys() {
		includeArchived := keyIncludesArchived(key)
		mut.Patch(key, func(items []model.ContentSource) []model.ContentSource {
			out := items[:0]
			for _, item := range items {
				if item.ID == id {
					item.Archived = archived
					if archived && !includeArchived {
						continue
					}
				}
				out = append(out, item)
			}
			return out
		})
	}

	if err := s.repo.UpdateArchived(ctx, id, archived); err != nil {
		mut.Rollback()
		if apiErr, ok := err.(*model.APIError); ok {
			return apiErr
		}
		s.notifier.Notify(ctx, "error", "アーカイブ状態の更新に失敗しました。表示を元に戻しました。")
		return model.NewRemoteWriteError("アーカイブ状態")
	}

	mut.Commit()
	return nil
}

// DeleteSources はIDセットの素材を楽観的に一括削除する。
// 削除は単一操作として全件成功または全件失敗し、失敗時は全件が表示に復元される。
func (s *Service) DeleteSources(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return model.NewInvalidRequestError("削除対象のIDが指定されていません")
	}

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	mut := s.cache.Begin(s.keys()...)
	s.patchAll(mut, func(items []model.ContentSource) []model.ContentSource {
		out := items[:0]
		for _, item := range items {
			if _, deleted := idSet[item.ID]; deleted {
				continue
			}
			out = append(out, item)
		}
		return out
	})

	if err := s.repo.DeleteByIDs(ctx, ids); err != nil {
		mut.Rollback()
		s.notifier.Notify(ctx, "error", "素材の削除に失敗しました。表示を元に戻しました。")
		return model.NewRemoteWriteError("コンテンツ素材")
	}

	mut.Commit()
	return nil
}

// rememberKey は使用されたキャッシュキーを記録する。
func (s *Service) rememberKey(key cache.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownKeys[key] = struct{}{}
}

// keys は記録済みのキャッシュキー一覧を返す。
func (s *Service) keys() []cache.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]cache.Key, 0, len(s.knownKeys))
	for key := range s.knownKeys {
		keys = append(keys, key)
	}
	return keys
}

// patchAll は記録済みの全キーに同じパッチを適用する。
func (s *Service) patchAll(mut *cache.Mutation[model.ContentSource], fn func(items []model.ContentSource) []model.ContentSource) {
	for _, key := range s.keys() {
		mut.Patch(key, fn)
	}
}

// invalidateAll は記録済みの全キーをstaleにする。
func (s *Service) invalidateAll() {
	for _, key := range s.keys() {
		s.cache.Invalidate(key)
	}
}

// keyIncludesArchived はキーがアーカイブ込みのビューを表すかを判定する。
func keyIncludesArchived(key cache.Key) bool {
	const suffix = ":true"
	k := string(key)
	return len(k) >= len(suffix) && k[len(k)-len(suffix):] == suffix
}
