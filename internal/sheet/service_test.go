package sheet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/newsdesk/internal/model"
)

// mockValuesReader はテスト用のシート読み取りクライアント。
type mockValuesReader struct {
	readFn func(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error)
}

func (m *mockValuesReader) Read(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error) {
	return m.readFn(ctx, spreadsheetID, cellRange)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestExtractSheetID はURLからのID抽出をテストする。
func TestExtractSheetID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{
			"標準的なURL",
			"https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0",
			"1AbC-dEf_123",
			true,
		},
		{
			"共有リンク",
			"https://docs.google.com/spreadsheets/d/xyz789/view",
			"xyz789",
			true,
		},
		{"シート以外のURL", "https://docs.google.com/document/d/abc/edit", "", false},
		{"無関係なURL", "https://example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractSheetID(tt.url)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("ExtractSheetID(%s) = (%q, %t), want (%q, %t)", tt.url, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

// TestService_Parse_Success は行から素材候補への変換をテストする。
func TestService_Parse_Success(t *testing.T) {
	reader := &mockValuesReader{
		readFn: func(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error) {
			if spreadsheetID != "sheet-1" {
				t.Errorf("spreadsheetID = %s, want sheet-1", spreadsheetID)
			}
			if cellRange != "A2:C" {
				t.Errorf("cellRange = %s, want A2:C", cellRange)
			}
			return [][]interface{}{
				{"記事1", "説明1", "google"},
				{"記事2", "説明2"}, // C列なし
				{"", "", ""},      // 空行
				{"記事3"},
			}, nil
		},
	}
	svc := NewService(reader, testLogger())

	items, err := svc.Parse(context.Background(), "https://docs.google.com/spreadsheets/d/sheet-1/edit")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3 (empty row skipped)", len(items))
	}
	if items[0].Title != "記事1" || items[0].Description != "説明1" || items[0].Source != "google" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Source != "" {
		t.Errorf("items[1].Source = %q, want empty for missing column", items[1].Source)
	}
	for _, item := range items {
		if item.Selected {
			t.Error("imported items must start unselected")
		}
	}
}

// TestService_Parse_InvalidURL はシート以外のURLの拒否をテストする。
func TestService_Parse_InvalidURL(t *testing.T) {
	svc := NewService(&mockValuesReader{}, testLogger())

	_, err := svc.Parse(context.Background(), "https://example.com/not-a-sheet")
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidURL {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeInvalidURL)
	}
}

// TestService_Parse_ReadFailure は読み取り失敗がSHEET_PARSE_FAILEDになることをテストする。
func TestService_Parse_ReadFailure(t *testing.T) {
	reader := &mockValuesReader{
		readFn: func(ctx context.Context, spreadsheetID, cellRange string) ([][]interface{}, error) {
			return nil, errors.New("permission denied")
		},
	}
	svc := NewService(reader, testLogger())

	_, err := svc.Parse(context.Background(), "https://docs.google.com/spreadsheets/d/sheet-1/edit")
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSheetParseFailed {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeSheetParseFailed)
	}
}
