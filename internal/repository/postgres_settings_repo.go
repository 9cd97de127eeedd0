package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用したユーザー設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// FindByUserID はユーザーの設定行を取得する。未作成の場合はnilを返す。
func (r *PostgresSettingsRepo) FindByUserID(ctx context.Context, userID string) (*model.Settings, error) {
	settings := &model.Settings{}
	var examples pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, prompt_template, newsletter_template, default_newsletter_title,
		        newsletter_examples, created_at, updated_at
		 FROM user_settings
		 WHERE user_id = $1`,
		userID,
	).Scan(
		&settings.UserID, &settings.PromptTemplate, &settings.NewsletterTemplate,
		&settings.DefaultNewsletterTitle, &examples,
		&settings.CreatedAt, &settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザー設定の取得に失敗しました: %w", err)
	}

	// NULLカラムは空スライスとして返す
	settings.NewsletterExamples = []string(examples)
	if settings.NewsletterExamples == nil {
		settings.NewsletterExamples = []string{}
	}
	return settings, nil
}

// Upsert は設定を冪等にUPSERTする。NewsletterExamplesが空の場合はNULLとして永続化する。
func (r *PostgresSettingsRepo) Upsert(ctx context.Context, settings *model.Settings) error {
	var examples interface{}
	if len(settings.NewsletterExamples) > 0 {
		examples = pq.Array(settings.NewsletterExamples)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, prompt_template, newsletter_template,
		                            default_newsletter_title, newsletter_examples, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 ON CONFLICT (user_id) DO UPDATE SET
		     prompt_template = EXCLUDED.prompt_template,
		     newsletter_template = EXCLUDED.newsletter_template,
		     default_newsletter_title = EXCLUDED.default_newsletter_title,
		     newsletter_examples = EXCLUDED.newsletter_examples,
		     updated_at = now()`,
		settings.UserID, settings.PromptTemplate, settings.NewsletterTemplate,
		settings.DefaultNewsletterTitle, examples,
	)
	if err != nil {
		return fmt.Errorf("ユーザー設定の保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
