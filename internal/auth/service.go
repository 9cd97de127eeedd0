// Package auth はセッション検証とログアウト処理を提供する。
//
// セッションの発行（ログイン）は外部の認証サービスが行い、
// 本アプリケーションは共有のsessionsテーブルを参照して検証のみ行う。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// Service はセッション検証サービス。
type Service struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(sessions repository.SessionRepository, users repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// FindByID は指定IDの有効なセッションを取得する。
// 期限切れまたは未存在の場合はnilを返す。
// middleware.SessionFinderを満たす。
func (s *Service) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions.FindByID(ctx, id)
}

// Logout はセッションを削除する。
// セッションが存在しない場合もエラーにしない（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	s.logger.Info("session deleted", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションIDから現在のログインユーザーを取得する。
// セッションが無効、またはユーザーが存在しない場合はエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, model.NewAuthenticationRequiredError()
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthenticationRequiredError()
	}

	return user, nil
}
