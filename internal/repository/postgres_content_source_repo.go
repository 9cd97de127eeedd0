package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresContentSourceRepo はPostgreSQLを使用したコンテンツ素材リポジトリ。
type PostgresContentSourceRepo struct {
	db *sql.DB
}

// NewPostgresContentSourceRepo はPostgresContentSourceRepoを生成する。
func NewPostgresContentSourceRepo(db *sql.DB) *PostgresContentSourceRepo {
	return &PostgresContentSourceRepo{db: db}
}

// sourceColumns はcontent_sourcesテーブルのSELECT対象カラム。
const sourceColumns = `id, content_date, source, title, description, author, url,
	        metadata, selected, archived, created_at, updated_at`

// List はフィルタ条件に一致する素材をcontent_date昇順で返す。
func (r *PostgresContentSourceRepo) List(ctx context.Context, filter model.SourceFilter) ([]model.ContentSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM content_sources`

	var args []interface{}
	argIndex := 1

	where := ""
	if !filter.IncludeArchived {
		where = " WHERE archived = false"
	}
	if filter.Source != "" {
		if where == "" {
			where = fmt.Sprintf(" WHERE source = $%d", argIndex)
		} else {
			where += fmt.Sprintf(" AND source = $%d", argIndex)
		}
		args = append(args, string(filter.Source))
		argIndex++
	}

	query += where + " ORDER BY content_date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ素材一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanContentSources(rows)
}

// ListSelected はselected=trueの素材をcontent_date昇順で返す。
func (r *PostgresContentSourceRepo) ListSelected(ctx context.Context) ([]model.ContentSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sourceColumns+`
		 FROM content_sources
		 WHERE selected = true AND archived = false
		 ORDER BY content_date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("選択済み素材の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanContentSources(rows)
}

// FindByID は指定IDの素材を取得する。見つからない場合はnilを返す。
func (r *PostgresContentSourceRepo) FindByID(ctx context.Context, id string) (*model.ContentSource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM content_sources WHERE id = $1`,
		id,
	)

	source, err := scanContentSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コンテンツ素材の取得に失敗しました: %w", err)
	}
	return source, nil
}

// FindByURL はURLで素材を検索する。見つからない場合はnilを返す。
func (r *PostgresContentSourceRepo) FindByURL(ctx context.Context, url string) (*model.ContentSource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM content_sources WHERE url = $1`,
		url,
	)

	source, err := scanContentSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによるコンテンツ素材の検索に失敗しました: %w", err)
	}
	return source, nil
}

// Create は新規素材を作成する。
func (r *PostgresContentSourceRepo) Create(ctx context.Context, source *model.ContentSource) error {
	metadata, err := marshalMetadata(source.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO content_sources (id, content_date, source, title, description, author, url,
		                              metadata, selected, archived, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		source.ID, source.ContentDate, string(source.Source), source.Title,
		nullString(source.Description), nullString(source.Author), nullString(source.URL),
		metadata, source.Selected, source.Archived,
		source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コンテンツ素材の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateSelected は1件の選択フラグを更新する。対象IDが存在しない場合はエラーを返す。
func (r *PostgresContentSourceRepo) UpdateSelected(ctx context.Context, id string, selected bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content_sources SET selected = $2, updated_at = now() WHERE id = $1`,
		id, selected,
	)
	if err != nil {
		return fmt.Errorf("選択フラグの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("選択フラグ更新の結果確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.NewSourceNotFoundError(id)
	}
	return nil
}

// UpdateArchived は1件のアーカイブフラグを更新する。対象IDが存在しない場合はエラーを返す。
func (r *PostgresContentSourceRepo) UpdateArchived(ctx context.Context, id string, archived bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content_sources SET archived = $2, updated_at = now() WHERE id = $1`,
		id, archived,
	)
	if err != nil {
		return fmt.Errorf("アーカイブフラグの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("アーカイブフラグ更新の結果確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.NewSourceNotFoundError(id)
	}
	return nil
}

// DeleteByIDs はIDセットによる一括削除を行う。
// 単一のDELETE文で実行されるため、失敗時はどのIDも削除されない。
func (r *PostgresContentSourceRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM content_sources WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("コンテンツ素材の一括削除に失敗しました: %w", err)
	}
	return nil
}

// ResetSelected は指定IDセットの選択フラグをfalseに戻す。
func (r *PostgresContentSourceRepo) ResetSelected(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE content_sources SET selected = false, updated_at = now() WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("選択フラグのリセットに失敗しました: %w", err)
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanContentSource は1行をContentSourceに読み取る。
func scanContentSource(row rowScanner) (*model.ContentSource, error) {
	source := &model.ContentSource{}
	var sourceType string
	var description, author, url sql.NullString
	var metadata []byte

	err := row.Scan(
		&source.ID, &source.ContentDate, &sourceType, &source.Title,
		&description, &author, &url,
		&metadata, &source.Selected, &source.Archived,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	source.Source = model.SourceType(sourceType)
	source.Description = nullStringValue(description)
	source.Author = nullStringValue(author)
	source.URL = nullStringValue(url)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &source.Metadata); err != nil {
			return nil, fmt.Errorf("metadataの読み取りに失敗しました: %w", err)
		}
	}

	return source, nil
}

// scanContentSources は複数行をContentSourceスライスに読み取る。
func scanContentSources(rows *sql.Rows) ([]model.ContentSource, error) {
	var sources []model.ContentSource
	for rows.Next() {
		source, err := scanContentSource(rows)
		if err != nil {
			return nil, fmt.Errorf("コンテンツ素材行の読み取りに失敗しました: %w", err)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コンテンツ素材一覧の走査に失敗しました: %w", err)
	}
	return sources, nil
}

// marshalMetadata はメタデータマップをJSONBカラム用に変換する。
// 空マップはNULLとして保存する。
func marshalMetadata(metadata map[string]string) (interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("metadataの変換に失敗しました: %w", err)
	}
	return data, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ContentSourceRepository = (*PostgresContentSourceRepo)(nil)
