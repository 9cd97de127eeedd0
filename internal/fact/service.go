// Package fact は「この日の出来事」の歴史的事実の導出を提供する。
//
// 導出は2段階のLLM呼び出しで行われる。まずモデルに検索関数を提示して
// 検索対象の日付を決めさせ、Web検索の結果を渡して事実を構成させる。
// ニュースレターの導入文に彩りを添える補助機能であり、失敗しても
// 生成フロー全体は継続される。
package fact

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newsdesk/internal/llm"
)

// searchToolName はモデルに提示する検索関数の名前。
const searchToolName = "search_historical_events"

// searchToolParameters は検索関数のJSONスキーマ。
var searchToolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"date": {
			"type": "string",
			"description": "The date to search for in format \"month day\""
		}
	},
	"required": ["date"]
}`)

// composeSystemPrompt は検索結果から事実を構成させるシステムプロンプト。
const composeSystemPrompt = `You are a technology historian specializing in breakthrough innovations. Create a concise and engaging fact about a significant technological achievement that occurred on this day in history. Focus specifically on:

1. First successful demonstrations of new technologies
2. Groundbreaking patent grants
3. Major scientific or engineering breakthroughs
4. Launch of revolutionary products or systems
5. Key discoveries that enabled future innovations

Include the specific year and, if relevant, the names of key inventors or researchers. Aim to highlight concrete achievements rather than general historical events.`

// ChatClient は事実の導出に使用するLLMインターフェース。
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Message, error)
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service は歴史的事実の導出を提供する。
type Service struct {
	llm      ChatClient
	searcher Searcher
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client ChatClient, searcher Searcher, logger *slog.Logger) *Service {
	return &Service{llm: client, searcher: searcher, logger: logger}
}

// OnThisDay は指定日に起きた技術史的な出来事の事実を導出する。
func (s *Service) OnThisDay(ctx context.Context, date time.Time) (string, error) {
	day := date.Format("January 2")

	// フェーズ1: モデルに検索対象の日付を決めさせる
	prompt := fmt.Sprintf("Today is %s. Find a significant technological breakthrough, invention, or scientific discovery that happened on this day. Focus on concrete achievements like first successful demonstrations, patent grants, or research breakthroughs.", day)
	msg, err := s.llm.Chat(ctx,
		[]llm.Message{{Role: "user", Content: prompt}},
		[]llm.Tool{{
			Name:        searchToolName,
			Description: "Search for historical events that occurred on a specific date",
			Parameters:  searchToolParameters,
		}},
	)
	if err != nil {
		return "", fmt.Errorf("検索日付の決定に失敗しました: %w", err)
	}
	if len(msg.ToolCalls) == 0 {
		return "", fmt.Errorf("モデルが検索関数を呼び出しませんでした")
	}

	var args struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal([]byte(msg.ToolCalls[0].Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("検索引数の読み取りに失敗しました: %w", err)
	}
	if args.Date == "" {
		args.Date = day
	}

	// フェーズ2: 検索結果から事実を構成させる
	results, err := s.searcher.SearchHistoricalEvents(ctx, args.Date)
	if err != nil {
		return "", fmt.Errorf("出来事の検索に失敗しました: %w", err)
	}

	resultsJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("検索結果の変換に失敗しました: %w", err)
	}

	user := fmt.Sprintf("Here are the search results for historical events on %s:\n\n%s", day, resultsJSON)
	fact, err := s.llm.Complete(ctx, composeSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("事実の構成に失敗しました: %w", err)
	}
	return fact, nil
}
