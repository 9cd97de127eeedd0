// Package cache はクエリ条件をキーとするコレクションキャッシュと、
// 楽観的更新（スナップショット→パッチ→コミット/ロールバック）のプロトコルを提供する。
//
// サーバーが正であり、キャッシュは常に再検証可能な複製にすぎない。
// ミューテーション開始時にキーのバージョンを進めることで、開始前に発行された
// 再取得（Fill）の古い応答が新しい楽観的状態を上書きすることを防ぐ。
package cache

import "sync"

// Key はキャッシュエントリを識別するクエリキー。
type Key string

// entry は1つのクエリキーに対するキャッシュ状態を保持する。
type entry[T any] struct {
	items   []T
	loaded  bool   // 一度でもFillが成功したか
	fresh   bool   // 次の読み取りで再検証が不要か
	version uint64 // Begin/Fillの整合性判定に使うバージョン
}

// Store はキー付きコレクションキャッシュ。
// すべての操作はスレッドセーフで、返却されるスライスは内部状態のコピーである。
type Store[T any] struct {
	mu      sync.Mutex
	entries map[Key]*entry[T]
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entries: make(map[Key]*entry[T]),
	}
}

// Fresh は再検証不要なキャッシュ済みコレクションを返す。
// 未ロードまたはstaleの場合は(nil, false)を返し、呼び出し元が再取得する。
func (s *Store[T]) Fresh(key Key) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded || !e.fresh {
		return nil, false
	}
	return cloneSlice(e.items), true
}

// Items は鮮度を問わずキャッシュ済みコレクションを返す。
// 楽観的パッチ適用後の表示用読み取りに使用する。
func (s *Store[T]) Items(key Key) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.loaded {
		return nil, false
	}
	return cloneSlice(e.items), true
}

// Version はキーの現在バージョンを返す。
// 再取得の開始前に取得し、Fillに渡すことで古い応答を検出する。
func (s *Store[T]) Version(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(key).version
}

// Fill は再取得結果をキャッシュに格納する。
// versionが現在値と一致しない場合、取得開始後にミューテーションが走っており
// 応答は古いため破棄してfalseを返す。
func (s *Store[T]) Fill(key Key, items []T, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	if e.version != version {
		return false
	}
	e.items = cloneSlice(items)
	e.loaded = true
	e.fresh = true
	return true
}

// Invalidate はキーをstaleにする。次の読み取りはサーバーに対して再検証する。
func (s *Store[T]) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.fresh = false
	}
}

// Begin は楽観的ミューテーションを開始する。
// 各キーのスナップショットを取り、バージョンを進めて進行中の再取得を無効化する。
func (s *Store[T]) Begin(keys ...Key) *Mutation[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Mutation[T]{
		store: s,
		snaps: make(map[Key]snapshot[T], len(keys)),
	}
	for _, key := range keys {
		e := s.ensure(key)
		e.version++
		m.snaps[key] = snapshot[T]{
			items:  cloneSlice(e.items),
			loaded: e.loaded,
			fresh:  e.fresh,
		}
	}
	return m
}

// ensure はキーのエントリを取得または作成する。呼び出し元がロックを保持すること。
func (s *Store[T]) ensure(key Key) *entry[T] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[T]{}
		s.entries[key] = e
	}
	return e
}

// snapshot はミューテーション開始時点のエントリ状態。
type snapshot[T any] struct {
	items  []T
	loaded bool
	fresh  bool
}

// Mutation は1回の楽観的ミューテーションのライフサイクルを表す。
// 状態遷移は pending → committed または pending → rolledBack の一方向のみ。
type Mutation[T any] struct {
	store *Store[T]
	snaps map[Key]snapshot[T]
	done  bool
}

// Patch はキャッシュ済みコレクションに楽観的な編集を即時適用する。
// 未ロードのキーには適用するものがないため何もしない。
func (m *Mutation[T]) Patch(key Key, fn func(items []T) []T) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	e, ok := m.store.entries[key]
	if !ok || !e.loaded {
		return
	}
	e.items = fn(cloneSlice(e.items))
}

// Commit はミューテーションを確定し、各キーをstaleにする。
// 書き込みはID単位で冪等なため、次回読み取り時の再検証で最終的な整合が取れる。
func (m *Mutation[T]) Commit() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.done {
		return
	}
	m.done = true
	for key := range m.snaps {
		if e, ok := m.store.entries[key]; ok {
			e.fresh = false
		}
	}
}

// Rollback は各キーをミューテーション開始時点のスナップショットに復元する。
// ネットワーク書き込みの失敗時に呼び出され、1レンダリングサイクル以内に
// 表示が巻き戻ることを保証する。
func (m *Mutation[T]) Rollback() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.done {
		return
	}
	m.done = true
	for key, snap := range m.snaps {
		e := m.store.ensure(key)
		e.items = cloneSlice(snap.items)
		e.loaded = snap.loaded
		e.fresh = snap.fresh
	}
}

// cloneSlice はスライスの浅いコピーを返す。nilはnilのまま返す。
func cloneSlice[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
