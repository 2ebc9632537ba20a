package schedule

import (
	"fmt"
	"time"
)

// ProgressUpdate carries the caller-supplied progress fields. Nil fields are
// left unchanged.
type ProgressUpdate struct {
	Status         *Status
	Percentage     *int
	MinutesStudied *int
}

// Validate checks every present field.
func (u ProgressUpdate) Validate() error {
	if u.Status != nil && !u.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
	}
	if u.Percentage != nil && (*u.Percentage < 0 || *u.Percentage > 100) {
		return fmt.Errorf("%w: %d (must be between 0 and 100)", ErrInvalidPercentage, *u.Percentage)
	}
	if u.MinutesStudied != nil && *u.MinutesStudied < 0 {
		return fmt.Errorf("%w: %d (must not be negative)", ErrInvalidStudyTime, *u.MinutesStudied)
	}
	return nil
}

// ApplyProgress records caller-driven progress. It never touches the
// scheduling fields (easiness factor, interval, review count, due date).
// Minutes studied are added to the running total. The record is left
// untouched when the update is invalid.
func (r *Record) ApplyProgress(u ProgressUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Percentage != nil {
		r.PercentageCompletion = *u.Percentage
	}
	if u.MinutesStudied != nil {
		r.TimeStudiedTotal += *u.MinutesStudied
	}
	reviewedAt := now
	r.LastReviewedAt = &reviewedAt
	return nil
}
