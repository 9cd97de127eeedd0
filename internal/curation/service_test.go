package curation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/model"
)

// mockContentSourceRepo はテスト用のコンテンツ素材リポジトリ。
type mockContentSourceRepo struct {
	listFn           func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error)
	listSelectedFn   func(ctx context.Context) ([]model.ContentSource, error)
	findByIDFn       func(ctx context.Context, id string) (*model.ContentSource, error)
	findByURLFn      func(ctx context.Context, url string) (*model.ContentSource, error)
	createFn         func(ctx context.Context, source *model.ContentSource) error
	updateSelectedFn func(ctx context.Context, id string, selected bool) error
	updateArchivedFn func(ctx context.Context, id string, archived bool) error
	deleteByIDsFn    func(ctx context.Context, ids []string) error
	resetSelectedFn  func(ctx context.Context, ids []string) error
}

func (m *mockContentSourceRepo) List(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
	return m.listFn(ctx, filter)
}

func (m *mockContentSourceRepo) ListSelected(ctx context.Context) ([]model.ContentSource, error) {
	return m.listSelectedFn(ctx)
}

func (m *mockContentSourceRepo) FindByID(ctx context.Context, id string) (*model.ContentSource, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockContentSourceRepo) FindByURL(ctx context.Context, url string) (*model.ContentSource, error) {
	return m.findByURLFn(ctx, url)
}

func (m *mockContentSourceRepo) Create(ctx context.Context, source *model.ContentSource) error {
	return m.createFn(ctx, source)
}

func (m *mockContentSourceRepo) UpdateSelected(ctx context.Context, id string, selected bool) error {
	return m.updateSelectedFn(ctx, id, selected)
}

func (m *mockContentSourceRepo) UpdateArchived(ctx context.Context, id string, archived bool) error {
	return m.updateArchivedFn(ctx, id, archived)
}

func (m *mockContentSourceRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	return m.deleteByIDsFn(ctx, ids)
}

func (m *mockContentSourceRepo) ResetSelected(ctx context.Context, ids []string) error {
	return m.resetSelectedFn(ctx, ids)
}

// mockNotifier は通知を記録するNotifier。
type mockNotifier struct {
	notifications []string
}

func (n *mockNotifier) Notify(ctx context.Context, severity, message string) {
	n.notifications = append(n.notifications, severity+": "+message)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testSources() []model.ContentSource {
	return []model.ContentSource{
		{ID: "s1", Title: "記事1", Source: model.SourceGoogle},
		{ID: "s2", Title: "記事2", Source: model.SourceLinkedInSearch},
		{ID: "s3", Title: "記事3", Source: model.SourceGoogle},
	}
}

// TestService_ListSources_CachesResult は2回目の読み取りがリポジトリに到達しないことをテストする。
func TestService_ListSources_CachesResult(t *testing.T) {
	calls := 0
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			calls++
			return testSources(), nil
		},
	}
	svc := NewService(repo, cache.NewStore[model.ContentSource](), &mockNotifier{}, testLogger())

	filter := model.SourceFilter{}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	sources, err := svc.ListSources(context.Background(), filter)
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("repository List called %d times, want 1", calls)
	}
	if len(sources) != 3 {
		t.Errorf("len(sources) = %d, want 3", len(sources))
	}
}

// TestService_ListSources_FilterSwitchServedFromCache はソース種別の切り替えが
// キャッシュ済みコレクションへのメモリ内絞り込みで完結し、
// 切り替えごとにリポジトリへ再取得が走らないことをテストする。
func TestService_ListSources_FilterSwitchServedFromCache(t *testing.T) {
	calls := 0
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			calls++
			if filter.Source != "" {
				t.Errorf("repository received source filter %q, want unfiltered fetch", filter.Source)
			}
			return testSources(), nil
		},
	}
	svc := NewService(repo, cache.NewStore[model.ContentSource](), &mockNotifier{}, testLogger())

	wantCounts := map[model.SourceType]int{
		"":                         3,
		model.SourceGoogle:         2,
		model.SourceLinkedInSearch: 1,
	}
	for _, src := range []model.SourceType{"", model.SourceGoogle, model.SourceLinkedInSearch} {
		sources, err := svc.ListSources(context.Background(), model.SourceFilter{Source: src})
		if err != nil {
			t.Fatalf("ListSources(source=%q) error = %v", src, err)
		}
		if len(sources) != wantCounts[src] {
			t.Errorf("ListSources(source=%q) = %d items, want %d", src, len(sources), wantCounts[src])
		}
		for _, s := range sources {
			if src != "" && s.Source != src {
				t.Errorf("ListSources(source=%q) returned item with source %q", src, s.Source)
			}
		}
	}

	if calls != 1 {
		t.Errorf("repository List called %d times across filter switches, want 1", calls)
	}
}

// TestService_ListSources_RepoError はキャッシュが空の状態での取得失敗をテストする。
func TestService_ListSources_RepoError(t *testing.T) {
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(repo, cache.NewStore[model.ContentSource](), &mockNotifier{}, testLogger())

	_, err := svc.ListSources(context.Background(), model.SourceFilter{})
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeRemoteReadError {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeRemoteReadError)
	}
}

// TestService_ToggleSelection_Success は永続化成功後にキャッシュがstaleになることをテストする。
func TestService_ToggleSelection_Success(t *testing.T) {
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			return testSources(), nil
		},
		updateSelectedFn: func(ctx context.Context, id string, selected bool) error {
			return nil
		},
	}
	store := cache.NewStore[model.ContentSource]()
	svc := NewService(repo, store, &mockNotifier{}, testLogger())

	filter := model.SourceFilter{}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatal(err)
	}

	if err := svc.ToggleSelection(context.Background(), "s2", true); err != nil {
		t.Fatalf("ToggleSelection() error = %v", err)
	}

	// 楽観的状態は即時反映されている
	items, ok := store.Items(keyFor(filter.IncludeArchived))
	if !ok {
		t.Fatal("expected cached items")
	}
	if !items[1].Selected {
		t.Error("expected s2 to be selected in cache")
	}
	// コミット後はstale
	if _, ok := store.Fresh(keyFor(filter.IncludeArchived)); ok {
		t.Error("expected cache to be stale after commit")
	}
}

// TestService_ToggleSelection_RollbackOnFailure は永続化失敗時の巻き戻しと通知をテストする。
func TestService_ToggleSelection_RollbackOnFailure(t *testing.T) {
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			return testSources(), nil
		},
		updateSelectedFn: func(ctx context.Context, id string, selected bool) error {
			return errors.New("write timeout")
		},
	}
	store := cache.NewStore[model.ContentSource]()
	notifier := &mockNotifier{}
	svc := NewService(repo, store, notifier, testLogger())

	filter := model.SourceFilter{}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatal(err)
	}

	err := svc.ToggleSelection(context.Background(), "s2", true)
	if err == nil {
		t.Fatal("expected error")
	}

	// キャッシュは開始時点に巻き戻っている
	items, _ := store.Items(keyFor(filter.IncludeArchived))
	if items[1].Selected {
		t.Error("expected s2 selection to be rolled back")
	}
	if len(notifier.notifications) != 1 {
		t.Errorf("notifications = %v, want 1 error notification", notifier.notifications)
	}
}

// TestService_SetArchived_RemovesFromActiveView はアーカイブ時に
// アーカイブ非表示ビューから即時に取り除かれることをテストする。
func TestService_SetArchived_RemovesFromActiveView(t *testing.T) {
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			return testSources(), nil
		},
		updateArchivedFn: func(ctx context.Context, id string, archived bool) error {
			return nil
		},
	}
	store := cache.NewStore[model.ContentSource]()
	svc := NewService(repo, store, &mockNotifier{}, testLogger())

	active := model.SourceFilter{}
	all := model.SourceFilter{IncludeArchived: true}
	if _, err := svc.ListSources(context.Background(), active); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListSources(context.Background(), all); err != nil {
		t.Fatal(err)
	}

	if err := svc.SetArchived(context.Background(), "s1", true); err != nil {
		t.Fatalf("SetArchived() error = %v", err)
	}

	items, _ := store.Items(keyFor(active.IncludeArchived))
	if len(items) != 2 {
		t.Errorf("active view has %d items, want 2", len(items))
	}
	items, _ = store.Items(keyFor(all.IncludeArchived))
	if len(items) != 3 {
		t.Fatalf("archived-inclusive view has %d items, want 3", len(items))
	}
	if !items[0].Archived {
		t.Error("expected s1 to be flagged archived in archived-inclusive view")
	}
}

// TestService_DeleteSources_RollbackRestoresAll は一括削除失敗時に
// 全件が表示に復元されることをテストする。
func TestService_DeleteSources_RollbackRestoresAll(t *testing.T) {
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			return testSources(), nil
		},
		deleteByIDsFn: func(ctx context.Context, ids []string) error {
			return errors.New("deadlock detected")
		},
	}
	store := cache.NewStore[model.ContentSource]()
	notifier := &mockNotifier{}
	svc := NewService(repo, store, notifier, testLogger())

	filter := model.SourceFilter{}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatal(err)
	}

	err := svc.DeleteSources(context.Background(), []string{"s1", "s3"})
	if err == nil {
		t.Fatal("expected error")
	}

	items, _ := store.Items(keyFor(filter.IncludeArchived))
	if len(items) != 3 {
		t.Errorf("items = %d, want all 3 restored after rollback", len(items))
	}
}

// TestService_DeleteSources_EmptyIDs は空のID指定が検証エラーになることをテストする。
func TestService_DeleteSources_EmptyIDs(t *testing.T) {
	svc := NewService(&mockContentSourceRepo{}, cache.NewStore[model.ContentSource](), &mockNotifier{}, testLogger())

	err := svc.DeleteSources(context.Background(), nil)
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// TestService_AddSource_InvalidatesCache は追加後に一覧が再取得されることをテストする。
func TestService_AddSource_InvalidatesCache(t *testing.T) {
	calls := 0
	repo := &mockContentSourceRepo{
		listFn: func(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
			calls++
			return testSources(), nil
		},
		createFn: func(ctx context.Context, source *model.ContentSource) error {
			return nil
		},
	}
	svc := NewService(repo, cache.NewStore[model.ContentSource](), &mockNotifier{}, testLogger())

	filter := model.SourceFilter{}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddSource(context.Background(), &model.ContentSource{ID: "s4", Title: "新規"}); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if _, err := svc.ListSources(context.Background(), filter); err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Errorf("repository List called %d times, want 2 (cache invalidated)", calls)
	}
}
