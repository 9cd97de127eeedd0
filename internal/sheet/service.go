// Package sheet はGoogleスプレッドシートからの素材一括取り込みを提供する。
//
// 読み取り対象のシートは公開（リンクを知っている全員が閲覧可）であることを
// 前提とし、APIキーによる読み取り専用アクセスを行う。1行目はヘッダとして
// スキップされ、A列=タイトル、B列=概要、C列=収集元として解釈される。
package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/hitoshi/newsdesk/internal/model"
)

// readRange は読み取り対象のセル範囲。ヘッダ行を除くA〜C列すべて。
const readRange = "A2:C"

// sheetIDPattern はスプレッドシートURLからIDを抽出するパターン。
var sheetIDPattern = regexp.MustCompile(`spreadsheets/d/([a-zA-Z0-9-_]+)`)

// ValuesReader はシートのセル範囲読み取りインターフェース。
type ValuesReader interface {
	Read(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error)
}

// googleValuesReader はSheets APIを使用するValuesReader実装。
type googleValuesReader struct {
	apiKey string
}

// NewGoogleValuesReader はAPIキー認証のValuesReaderを生成する。
func NewGoogleValuesReader(apiKey string) ValuesReader {
	return &googleValuesReader{apiKey: apiKey}
}

// Read は指定スプレッドシートのセル範囲を読み取る。
func (r *googleValuesReader) Read(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error) {
	service, err := sheets.NewService(ctx, option.WithAPIKey(r.apiKey))
	if err != nil {
		return nil, fmt.Errorf("Sheetsサービスの作成に失敗しました: %w", err)
	}

	resp, err := service.Spreadsheets.Values.Get(spreadsheetID, cellRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("シートの読み取りに失敗しました: %w", err)
	}
	return resp.Values, nil
}

// Service はスプレッドシートからの素材取り込みを提供する。
type Service struct {
	reader ValuesReader
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(reader ValuesReader, logger *slog.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// ExtractSheetID はスプレッドシートURLからIDを抽出する。
func ExtractSheetID(rawURL string) (string, bool) {
	match := sheetIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Parse はスプレッドシートURLから素材候補の一覧を読み取る。
// 行はそのまま返され、保存は呼び出し元の判断に委ねられる。
func (s *Service) Parse(ctx context.Context, rawURL string) ([]model.NewsItem, error) {
	sheetID, ok := ExtractSheetID(rawURL)
	if !ok {
		return nil, model.NewInvalidURLError("GoogleスプレッドシートのURLではありません")
	}

	// APIキー未設定でreaderが与えられていない場合は取り込み不可
	if s.reader == nil {
		return nil, model.NewSheetParseError("スプレッドシート連携が設定されていません")
	}

	rows, err := s.reader.Read(ctx, sheetID, readRange)
	if err != nil {
		s.logger.ErrorContext(ctx, "シートの読み取りに失敗しました", "sheet_id", sheetID, "error", err)
		return nil, model.NewSheetParseError(err.Error())
	}

	items := make([]model.NewsItem, 0, len(rows))
	for _, row := range rows {
		item := model.NewsItem{
			Title:       cellString(row, 0),
			Description: cellString(row, 1),
			Source:      cellString(row, 2),
			Selected:    false,
		}
		// タイトルのない行はシート上の空行として無視する
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// cellString は行の指定列を文字列として取り出す。列が存在しない場合は空文字列。
func cellString(row []interface{}, index int) string {
	if index >= len(row) {
		return ""
	}
	s, ok := row[index].(string)
	if !ok {
		return fmt.Sprintf("%v", row[index])
	}
	return s
}
