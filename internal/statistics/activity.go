package statistics

import (
	"fmt"
	"sort"

	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

// PeriodActivity holds review activity for one month.
type PeriodActivity struct {
	Period         string `json:"period"` // "2025-01"
	Reviews        int    `json:"reviews"`
	ReviewsUnique  int    `json:"reviews_unique"`
	Lapses         int    `json:"lapses"` // reviews below the passing quality
	LapsesUnique   int    `json:"lapses_unique"`
	MinutesStudied int    `json:"minutes_studied"`
}

// Activity holds per-month activity, newest first, and totals.
type Activity struct {
	Periods        []PeriodActivity `json:"periods"`
	Reviews        int              `json:"reviews"`
	ReviewsUnique  int              `json:"reviews_unique"`
	Lapses         int              `json:"lapses"`
	LapsesUnique   int              `json:"lapses_unique"`
	MinutesStudied int              `json:"minutes_studied"`
}

type periodData struct {
	reviews        int
	reviewsUnique  map[string]struct{}
	lapses         int
	lapsesUnique   map[string]struct{}
	minutesStudied int
}

// CalculateActivity groups review logs by month.
// year and month filter the logs; 0 means no filter.
func CalculateActivity(logs []progress.ReviewLog, year, month int) Activity {
	stats := make(map[string]*periodData)
	globalReviews := make(map[string]struct{})
	globalLapses := make(map[string]struct{})

	for _, l := range logs {
		if l.OccurredAt.IsZero() {
			continue
		}
		if !matchesFilter(l.OccurredAt.Year(), int(l.OccurredAt.Month()), year, month) {
			continue
		}

		period := fmt.Sprintf("%d-%02d", l.OccurredAt.Year(), int(l.OccurredAt.Month()))
		data := ensurePeriodExists(stats, period)
		key := l.LearnerID + "/" + l.ItemID

		if l.StudyMinutes != nil {
			data.minutesStudied += *l.StudyMinutes
		}
		if l.Kind != progress.LogKindReview || l.Quality == nil {
			continue
		}
		data.reviews++
		data.reviewsUnique[key] = struct{}{}
		globalReviews[key] = struct{}{}
		if *l.Quality < schedule.PassingQuality {
			data.lapses++
			data.lapsesUnique[key] = struct{}{}
			globalLapses[key] = struct{}{}
		}
	}

	return buildActivity(stats, globalReviews, globalLapses)
}

func ensurePeriodExists(stats map[string]*periodData, period string) *periodData {
	if stats[period] == nil {
		stats[period] = &periodData{
			reviewsUnique: make(map[string]struct{}),
			lapsesUnique:  make(map[string]struct{}),
		}
	}
	return stats[period]
}

func matchesFilter(logYear, logMonth, filterYear, filterMonth int) bool {
	if filterYear == 0 {
		return true
	}
	if logYear != filterYear {
		return false
	}
	if filterMonth == 0 {
		return true
	}
	return logMonth == filterMonth
}

func buildActivity(stats map[string]*periodData, globalReviews, globalLapses map[string]struct{}) Activity {
	result := Activity{
		Periods:       make([]PeriodActivity, 0, len(stats)),
		ReviewsUnique: len(globalReviews),
		LapsesUnique:  len(globalLapses),
	}
	for period, data := range stats {
		result.Periods = append(result.Periods, PeriodActivity{
			Period:         period,
			Reviews:        data.reviews,
			ReviewsUnique:  len(data.reviewsUnique),
			Lapses:         data.lapses,
			LapsesUnique:   len(data.lapsesUnique),
			MinutesStudied: data.minutesStudied,
		})
		result.Reviews += data.reviews
		result.Lapses += data.lapses
		result.MinutesStudied += data.minutesStudied
	}

	// Newest first
	sort.Slice(result.Periods, func(i, j int) bool {
		return result.Periods[i].Period > result.Periods[j].Period
	})
	return result
}
