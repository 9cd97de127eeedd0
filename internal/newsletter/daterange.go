package newsletter

import (
	"fmt"
	"time"
)

// ReportingWeek はタイトルに使用する報告対象週（月曜〜日曜）を返す。
// 今日が土曜または日曜の場合は今週、それ以外の曜日は前週を対象とする。
// 平日の生成は直前に完了した週を振り返るという運用に合わせたルール。
func ReportingWeek(today time.Time) (start, end time.Time) {
	// 月曜=0 になるようにオフセットを計算する（time.WeekdayはSunday=0）
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)

	if today.Weekday() != time.Saturday && today.Weekday() != time.Sunday {
		monday = monday.AddDate(0, 0, -7)
	}

	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, today.Location())
	return monday, monday.AddDate(0, 0, 6)
}

// FormatRange は週の範囲を表示用文字列に整形する。
// 同一月内は "1-7 Jan"、月をまたぐ場合は "29 Jan-4 Feb" の形式になる。
func FormatRange(start, end time.Time) string {
	if start.Month() == end.Month() {
		return fmt.Sprintf("%d-%d %s", start.Day(), end.Day(), start.Format("Jan"))
	}
	return fmt.Sprintf("%d %s-%d %s", start.Day(), start.Format("Jan"), end.Day(), end.Format("Jan"))
}

// WeekTitle はデフォルトタイトルと報告対象週からニュースレタータイトルを導出する。
func WeekTitle(defaultTitle string, today time.Time) string {
	start, end := ReportingWeek(today)
	return fmt.Sprintf("%s %s", defaultTitle, FormatRange(start, end))
}
