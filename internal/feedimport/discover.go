package feedimport

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedCandidate はHTMLページから検出されたフィード候補。
type feedCandidate struct {
	url    string
	isAtom bool
}

// feedContentTypes はフィードとして直接認識するContent-Type。
var feedContentTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// isFeedContent はレスポンスがRSS/Atomフィード本体かを判定する。
// Content-Typeがフィード固有の場合はそのまま採用し、それ以外はボディの
// 先頭部分からルート要素を推定する。
func isFeedContent(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	if feedContentTypes[strings.ToLower(mediaType)] {
		return true
	}

	// 先頭4KBにXMLプロローグとルート要素が含まれる前提で判定する
	prefix := body
	if len(prefix) > 4096 {
		prefix = prefix[:4096]
	}
	head := strings.ToLower(string(prefix))

	if strings.Contains(head, "<rss") || strings.Contains(head, "<rdf:rdf") {
		return true
	}
	return strings.Contains(head, "<feed") && strings.Contains(head, "http://www.w3.org/2005/atom")
}

// discoverFeedURL はHTMLページのheadからrel="alternate"のフィードリンクを検出し、
// 最適な候補のURLを返す。見つからない場合は空文字列を返す。
// 候補は 同一ホスト > Atom > 先頭 の優先順位で選択される。
func discoverFeedURL(htmlBody []byte, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	candidates := collectFeedLinks(htmlBody, base)
	if len(candidates) == 0 {
		return ""
	}

	pageHost := base.Hostname()
	bestIdx := 0
	bestScore := -1
	for i, c := range candidates {
		score := 0
		if u, err := url.Parse(c.url); err == nil && u.Hostname() == pageHost {
			score += 100
		}
		if c.isAtom {
			score += 10
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return candidates[bestIdx].url
}

// collectFeedLinks はhead内のlink要素からフィード候補を収集する。
// 相対URLはページURLを基準に絶対URLへ解決される。
func collectFeedLinks(htmlBody []byte, base *url.URL) []feedCandidate {
	var candidates []feedCandidate

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)

			// bodyに入ったら探索を打ち切る
			if tag == "body" {
				return candidates
			}
			if tag != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}
			if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			candidates = append(candidates, feedCandidate{
				url:    base.ResolveReference(ref).String(),
				isAtom: linkType == "application/atom+xml",
			})
		}
	}
}
