// Package statistics summarizes schedule records and review activity.
package statistics

import (
	"time"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const (
	// UpcomingWindow is the horizon of Summary.DueSoon.
	UpcomingWindow = 7 * 24 * time.Hour
	// MatureIntervalDays is the interval from which an item counts as mature.
	MatureIntervalDays = 21
)

// Summary describes the state of a set of schedule records at a point in time.
type Summary struct {
	Total               int     `json:"total"`
	NotStarted          int     `json:"not_started"`
	InProgress          int     `json:"in_progress"`
	Completed           int     `json:"completed"`
	DueNow              int     `json:"due_now"`
	DueSoon             int     `json:"due_soon"` // due after asOf, within UpcomingWindow
	Mature              int     `json:"mature"`
	Reviews             int     `json:"reviews"`
	MeanEasinessFactor  float64 `json:"mean_easiness_factor"`
	MeanCompletion      float64 `json:"mean_completion"`
	TotalMinutesStudied int     `json:"total_minutes_studied"`
}

// Summarize computes a Summary of records as of asOf.
func Summarize(records []schedule.Record, asOf time.Time) Summary {
	var s Summary
	var efSum float64
	var completionSum int
	for _, r := range records {
		s.Total++
		switch r.Status {
		case schedule.StatusInProgress:
			s.InProgress++
		case schedule.StatusCompleted:
			s.Completed++
		default:
			s.NotStarted++
		}

		if r.DueAt != nil {
			if !r.DueAt.After(asOf) {
				s.DueNow++
			} else if !r.DueAt.After(asOf.Add(UpcomingWindow)) {
				s.DueSoon++
			}
		}
		if r.IntervalDays >= MatureIntervalDays {
			s.Mature++
		}
		s.Reviews += r.ReviewCount
		s.TotalMinutesStudied += r.TimeStudiedTotal
		efSum += r.EasinessFactor
		completionSum += r.PercentageCompletion
	}

	if s.Total > 0 {
		s.MeanEasinessFactor = efSum / float64(s.Total)
		s.MeanCompletion = float64(completionSum) / float64(s.Total)
	}
	return s
}
