package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresNewsletterRepo はPostgreSQLを使用したニュースレターリポジトリ。
type PostgresNewsletterRepo struct {
	db *sql.DB
}

// NewPostgresNewsletterRepo はPostgresNewsletterRepoを生成する。
func NewPostgresNewsletterRepo(db *sql.DB) *PostgresNewsletterRepo {
	return &PostgresNewsletterRepo{db: db}
}

const newsletterColumns = `id, user_id, title, content, source_url, items, created_at, updated_at`

// ListByUserID はユーザーのニュースレター一覧をcreated_at降順で返す。
func (r *PostgresNewsletterRepo) ListByUserID(ctx context.Context, userID string) ([]model.Newsletter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+newsletterColumns+`
		 FROM newsletters
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ニュースレター一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var newsletters []model.Newsletter
	for rows.Next() {
		newsletter, err := scanNewsletter(rows)
		if err != nil {
			return nil, fmt.Errorf("ニュースレター行の読み取りに失敗しました: %w", err)
		}
		newsletters = append(newsletters, *newsletter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ニュースレター一覧の走査に失敗しました: %w", err)
	}
	return newsletters, nil
}

// FindByID は指定IDのニュースレターを取得する。見つからない場合はnilを返す。
func (r *PostgresNewsletterRepo) FindByID(ctx context.Context, id string) (*model.Newsletter, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE id = $1`,
		id,
	)

	newsletter, err := scanNewsletter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ニュースレターの取得に失敗しました: %w", err)
	}
	return newsletter, nil
}

// Create は新規ニュースレターを作成する。
func (r *PostgresNewsletterRepo) Create(ctx context.Context, newsletter *model.Newsletter) error {
	items, err := marshalItems(newsletter.Items)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO newsletters (id, user_id, title, content, source_url, items, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		newsletter.ID, newsletter.UserID, newsletter.Title, newsletter.Content,
		nullString(newsletter.SourceURL), items,
		newsletter.CreatedAt, newsletter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ニュースレターの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はタイトルと本文を更新する。itemsスナップショットは生成時のまま変更しない。
func (r *PostgresNewsletterRepo) Update(ctx context.Context, newsletter *model.Newsletter) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE newsletters SET title = $2, content = $3, updated_at = now() WHERE id = $1`,
		newsletter.ID, newsletter.Title, newsletter.Content,
	)
	if err != nil {
		return fmt.Errorf("ニュースレターの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ニュースレター更新の結果確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.NewNewsletterNotFoundError(newsletter.ID)
	}
	return nil
}

// DeleteByID は指定IDのニュースレターを削除する。
func (r *PostgresNewsletterRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM newsletters WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ニュースレターの削除に失敗しました: %w", err)
	}
	return nil
}

// scanNewsletter は1行をNewsletterに読み取る。
func scanNewsletter(row rowScanner) (*model.Newsletter, error) {
	newsletter := &model.Newsletter{}
	var sourceURL sql.NullString
	var items []byte

	err := row.Scan(
		&newsletter.ID, &newsletter.UserID, &newsletter.Title, &newsletter.Content,
		&sourceURL, &items,
		&newsletter.CreatedAt, &newsletter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	newsletter.SourceURL = nullStringValue(sourceURL)

	if len(items) > 0 {
		if err := json.Unmarshal(items, &newsletter.Items); err != nil {
			return nil, fmt.Errorf("itemsスナップショットの読み取りに失敗しました: %w", err)
		}
	}

	return newsletter, nil
}

// marshalItems は素材スナップショットをJSONBカラム用に変換する。
func marshalItems(items []model.NewsItem) (interface{}, error) {
	if len(items) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("itemsスナップショットの変換に失敗しました: %w", err)
	}
	return data, nil
}

// compile-time interface check
var _ NewsletterRepository = (*PostgresNewsletterRepo)(nil)
