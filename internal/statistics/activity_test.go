package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/at-ishikawa/spacedrep/internal/progress"
)

func reviewLog(itemID string, quality int, date string) progress.ReviewLog {
	return progress.ReviewLog{
		LearnerID:  "alice",
		ItemID:     itemID,
		Kind:       progress.LogKindReview,
		Quality:    &quality,
		OccurredAt: mustParseDate(date),
	}
}

func progressLog(itemID string, minutes int, date string) progress.ReviewLog {
	return progress.ReviewLog{
		LearnerID:    "alice",
		ItemID:       itemID,
		Kind:         progress.LogKindProgress,
		StudyMinutes: &minutes,
		OccurredAt:   mustParseDate(date),
	}
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculateActivity(t *testing.T) {
	logs := []progress.ReviewLog{
		reviewLog("a", 4, "2025-01-05"),
		reviewLog("a", 1, "2025-01-06"),
		reviewLog("b", 5, "2025-01-20"),
		progressLog("b", 25, "2025-01-20"),
		reviewLog("a", 2, "2025-02-01"),
		reviewLog("a", 5, "2024-12-31"),
		{LearnerID: "alice", ItemID: "c", Kind: progress.LogKindReview},
	}

	tests := []struct {
		name  string
		year  int
		month int
		want  Activity
	}{
		{
			name: "all periods newest first",
			want: Activity{
				Periods: []PeriodActivity{
					{Period: "2025-02", Reviews: 1, ReviewsUnique: 1, Lapses: 1, LapsesUnique: 1},
					{Period: "2025-01", Reviews: 3, ReviewsUnique: 2, Lapses: 1, LapsesUnique: 1, MinutesStudied: 25},
					{Period: "2024-12", Reviews: 1, ReviewsUnique: 1},
				},
				Reviews:        5,
				ReviewsUnique:  2,
				Lapses:         2,
				LapsesUnique:   1,
				MinutesStudied: 25,
			},
		},
		{
			name: "year filter",
			year: 2024,
			want: Activity{
				Periods:       []PeriodActivity{{Period: "2024-12", Reviews: 1, ReviewsUnique: 1}},
				Reviews:       1,
				ReviewsUnique: 1,
			},
		},
		{
			name:  "month filter without matches",
			year:  2025,
			month: 3,
			want:  Activity{Periods: []PeriodActivity{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateActivity(logs, tt.year, tt.month))
		})
	}
}
