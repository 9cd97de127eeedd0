package newsletter

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// TestReportingWeek は曜日ごとの報告対象週の決定をテストする。
func TestReportingWeek(t *testing.T) {
	tests := []struct {
		name      string
		today     time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			// 平日は前週を対象とする
			name:      "水曜日は前週",
			today:     date(2024, time.January, 10),
			wantStart: date(2024, time.January, 1),
			wantEnd:   date(2024, time.January, 7),
		},
		{
			name:      "月曜日は前週",
			today:     date(2024, time.January, 8),
			wantStart: date(2024, time.January, 1),
			wantEnd:   date(2024, time.January, 7),
		},
		{
			name:      "金曜日は前週",
			today:     date(2024, time.January, 12),
			wantStart: date(2024, time.January, 1),
			wantEnd:   date(2024, time.January, 7),
		},
		{
			// 土日は進行中の週を対象とする
			name:      "土曜日は今週",
			today:     date(2024, time.January, 13),
			wantStart: date(2024, time.January, 8),
			wantEnd:   date(2024, time.January, 14),
		},
		{
			name:      "日曜日は今週",
			today:     date(2024, time.January, 14),
			wantStart: date(2024, time.January, 8),
			wantEnd:   date(2024, time.January, 14),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := ReportingWeek(tt.today)
			if start.Year() != tt.wantStart.Year() || start.Month() != tt.wantStart.Month() || start.Day() != tt.wantStart.Day() {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if end.Year() != tt.wantEnd.Year() || end.Month() != tt.wantEnd.Month() || end.Day() != tt.wantEnd.Day() {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
			if start.Weekday() != time.Monday {
				t.Errorf("start weekday = %v, want Monday", start.Weekday())
			}
			if end.Weekday() != time.Sunday {
				t.Errorf("end weekday = %v, want Sunday", end.Weekday())
			}
		})
	}
}

// TestFormatRange は同一月内と月またぎの整形をテストする。
func TestFormatRange(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  string
	}{
		{"同一月内", date(2024, time.January, 1), date(2024, time.January, 7), "1-7 Jan"},
		{"月またぎ", date(2024, time.January, 29), date(2024, time.February, 4), "29 Jan-4 Feb"},
		{"年末年始", date(2023, time.December, 25), date(2023, time.December, 31), "25-31 Dec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRange(tt.start, tt.end); got != tt.want {
				t.Errorf("FormatRange() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestWeekTitle はタイトル導出をテストする。
func TestWeekTitle(t *testing.T) {
	got := WeekTitle("The Week In R&D Tax", date(2024, time.January, 10))
	want := "The Week In R&D Tax 1-7 Jan"
	if got != want {
		t.Errorf("WeekTitle() = %q, want %q", got, want)
	}
}
