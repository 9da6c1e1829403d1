// Package history は視聴履歴の日付グループ化と相対日付表示を提供する。
package history

import (
	"fmt"
	"time"

	"github.com/hitoshi/nebulastream/internal/model"
)

// グループのラベル
const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
)

// dateLabelLayout は2日以上前のグループのラベル形式。
const dateLabelLayout = "January 2, 2006"

// Group は同じ日に視聴した履歴のまとまり。
type Group struct {
	Label string               `json:"label"`
	Items []*model.HistoryItem `json:"items"`
}

// GroupByDate は視聴日時でグループ化する。グループは最初に現れた順に並び、
// グループ内の順序は入力の順序を保つ。日付の判定はnowのタイムゾーンで行う。
func GroupByDate(items []*model.HistoryItem, now time.Time) []Group {
	loc := now.Location()
	today := truncateDay(now)
	yesterday := today.AddDate(0, 0, -1)

	var groups []Group
	index := make(map[string]int)
	for _, item := range items {
		if item == nil {
			continue
		}
		day := truncateDay(item.WatchedAt.In(loc))

		var label string
		switch {
		case day.Equal(today):
			label = LabelToday
		case day.Equal(yesterday):
			label = LabelYesterday
		default:
			label = day.Format(dateLabelLayout)
		}

		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatRelative はtからnowまでの経過を "N days ago" などの形式で返す。
// 経過日数は24時間単位の切り捨てで数え、週・月・年は切り上げる。
func FormatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	days := int(diff / (24 * time.Hour))

	switch {
	case days == 0:
		return LabelToday
	case days == 1:
		return LabelYesterday
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", ceilDiv(days, 7))
	case days < 365:
		return fmt.Sprintf("%d months ago", ceilDiv(days, 30))
	default:
		return fmt.Sprintf("%d years ago", ceilDiv(days, 365))
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
