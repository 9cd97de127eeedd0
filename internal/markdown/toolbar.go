// Package markdown はエディタツールバーのMarkdown整形ロジックを提供する。
//
// 各アクションはトグルとして動作する。選択テキストが既にその書式を持つ場合は
// 書式を外し、持たない場合は書式を付与する。リスト系は行単位で適用される。
package markdown

import (
	"regexp"
	"strings"
)

// Action はツールバーの整形アクションを表す。
type Action string

const (
	ActionBold       Action = "bold"
	ActionItalic     Action = "italic"
	ActionHeading1   Action = "heading1"
	ActionHeading2   Action = "heading2"
	ActionHeading3   Action = "heading3"
	ActionBulletList Action = "bulletList"
	ActionNumberList Action = "numberList"
	ActionQuote      Action = "quote"
	ActionCode       Action = "code"
	ActionLink       Action = "link"
	ActionImage      Action = "image"
	ActionDivider    Action = "divider"
)

// formatPatterns は各書式の検出パターン。
// キャプチャグループが書式を外した後の素のテキストになる。
var formatPatterns = map[Action]*regexp.Regexp{
	ActionBold:       regexp.MustCompile(`^\*\*(.*)\*\*$`),
	ActionItalic:     regexp.MustCompile(`^\*(.*)\*$`),
	ActionHeading1:   regexp.MustCompile(`^# (.*)$`),
	ActionHeading2:   regexp.MustCompile(`^## (.*)$`),
	ActionHeading3:   regexp.MustCompile(`^### (.*)$`),
	ActionBulletList: regexp.MustCompile(`^- (.*)$`),
	ActionNumberList: regexp.MustCompile(`^\d+\. (.*)$`),
	ActionQuote:      regexp.MustCompile(`^> (.*)$`),
	ActionCode:       regexp.MustCompile("^`(.*)`$"),
	ActionLink:       regexp.MustCompile(`^\[(.*)\]\(.*\)$`),
	ActionImage:      regexp.MustCompile(`^!\[(.*)\]\(.*\)$`),
}

var (
	bulletLinePattern = regexp.MustCompile(`^- `)
	numberLinePattern = regexp.MustCompile(`^\d+\. `)
)

// KnownAction は指定文字列が既知のアクションかを返す。
func KnownAction(action string) bool {
	if Action(action) == ActionDivider {
		return true
	}
	_, ok := formatPatterns[Action(action)]
	return ok
}

// Apply は選択テキストにアクションを適用した置換テキストを返す。
// 未知のアクションの場合はテキストをそのまま返す。
func Apply(text string, action Action) string {
	// 区切り線は選択テキストを置き換える固定の挿入
	if action == ActionDivider {
		return "\n---\n"
	}

	// リスト系は複数行選択に対して行単位でトグルする
	if action == ActionBulletList || action == ActionNumberList {
		prefix := "- "
		pattern := bulletLinePattern
		if action == ActionNumberList {
			prefix = "1. "
			pattern = numberLinePattern
		}

		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if pattern.MatchString(line) {
				lines[i] = pattern.ReplaceAllString(line, "")
			} else {
				lines[i] = prefix + line
			}
		}
		return strings.Join(lines, "\n")
	}

	pattern, ok := formatPatterns[action]
	if !ok {
		return text
	}

	if match := pattern.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	return wrap(text, action)
}

// wrap はテキストに書式を付与する。
func wrap(text string, action Action) string {
	switch action {
	case ActionBold:
		return "**" + text + "**"
	case ActionItalic:
		return "*" + text + "*"
	case ActionHeading1:
		return "# " + text
	case ActionHeading2:
		return "## " + text
	case ActionHeading3:
		return "### " + text
	case ActionQuote:
		return "> " + text
	case ActionCode:
		return "`" + text + "`"
	case ActionLink:
		return "[" + text + "](url)"
	case ActionImage:
		return "![" + text + "](url)"
	}
	return text
}
