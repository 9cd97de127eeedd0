package fact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// googleSearchEndpoint はGoogle Custom Search JSON APIのエンドポイント。
const googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// SearchResult はWeb検索の1件の結果。
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher は歴史的な出来事のWeb検索インターフェース。
type Searcher interface {
	// SearchHistoricalEvents は "month day" 形式の日付で出来事を検索する。
	SearchHistoricalEvents(ctx context.Context, date string) ([]SearchResult, error)
}

// GoogleSearcher はGoogle Custom Search APIを使用するSearcher実装。
type GoogleSearcher struct {
	apiKey   string
	cx       string
	endpoint string
	client   *http.Client
}

// NewGoogleSearcher はGoogleSearcherを生成する。endpointが空の場合は本番APIを使用する。
func NewGoogleSearcher(apiKey, cx, endpoint string) *GoogleSearcher {
	if endpoint == "" {
		endpoint = googleSearchEndpoint
	}
	return &GoogleSearcher{
		apiKey:   apiKey,
		cx:       cx,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// searchResponse はCustom Search APIの応答のうち使用する部分。
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

// SearchHistoricalEvents は指定日の技術史的な出来事を検索する。
func (s *GoogleSearcher) SearchHistoricalEvents(ctx context.Context, date string) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("key", s.apiKey)
	query.Set("cx", s.cx)
	query.Set("q", fmt.Sprintf(`"on this day" "%s" technology research development invention patent`, date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("検索リクエストの作成に失敗しました: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("検索APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("検索APIがステータス%dを返しました: %s", resp.StatusCode, string(b))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("検索結果の読み取りに失敗しました: %w", err)
	}

	results := make([]SearchResult, len(sr.Items))
	for i, item := range sr.Items {
		results[i] = SearchResult{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		}
	}
	return results, nil
}
