// Package llm はOpenAI Chat Completions APIのクライアントを提供する。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint はOpenAI Chat Completions APIのエンドポイント。
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Message は会話の1メッセージを表す。
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall はモデルが要求した関数呼び出しを表す。
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// Tool はモデルに提示する関数定義。
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Client はOpenAI APIのHTTPクライアント。
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient はClientを生成する。endpointが空の場合はDefaultEndpointを使用する。
func NewClient(apiKey, model, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Tools          []toolDef       `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type toolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete はシステムプロンプトとユーザープロンプトから平文の応答を取得する。
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// CompleteJSON はJSONモードで応答を取得する。応答は必ず有効なJSONオブジェクトになる。
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	msg, err := c.chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil, &responseFormat{Type: "json_object"})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// Chat は関数定義付きの会話を1ターン進め、アシスタントメッセージを返す。
// モデルが関数呼び出しを選択した場合、返却メッセージのToolCallsに内容が入る。
func (c *Client) Chat(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	defs := make([]toolDef, len(tools))
	for i, tool := range tools {
		defs[i].Type = "function"
		defs[i].Function.Name = tool.Name
		defs[i].Function.Description = tool.Description
		defs[i].Function.Parameters = tool.Parameters
	}
	return c.chat(ctx, messages, defs, nil)
}

// chat はChat Completions APIを1回呼び出す。
func (c *Client) chat(ctx context.Context, messages []Message, tools []toolDef, format *responseFormat) (*Message, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       messages,
		Tools:          tools,
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("OpenAI APIがステータス%dを返しました: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("応答の読み取りに失敗しました: %w", err)
	}
	if cr.Error != nil {
		return nil, fmt.Errorf("OpenAI APIエラー: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI APIの応答が空です")
	}
	return &cr.Choices[0].Message, nil
}
