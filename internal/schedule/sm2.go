package schedule

import (
	"fmt"
	"math"
	"time"
)

// UpdateEasinessFactor returns the easiness factor after a successful review
// of the given quality. The raw SM-2 value is computed first and then clamped.
func UpdateEasinessFactor(ef float64, quality int) float64 {
	if ef == 0 {
		ef = DefaultEasinessFactor
	}

	q := float64(quality)
	delta := 0.1 - (5-q)*(0.08+(5-q)*0.02)

	return clampEasinessFactor(ef + delta)
}

// CalculateNextInterval returns the interval in days after a review.
// reviewCount is the count after the current review has been applied.
// The stored integer interval is the basis for the next multiplication.
// The result never exceeds MaxIntervalDays.
func CalculateNextInterval(lastInterval int, ef float64, quality int, reviewCount int) int {
	if quality < PassingQuality {
		return MinIntervalDays
	}

	switch reviewCount {
	case 1:
		return 1
	case 2:
		return 6
	default:
		if lastInterval < MinIntervalDays {
			lastInterval = MinIntervalDays
		}
		next := math.Ceil(float64(lastInterval) * ef)
		if next >= MaxIntervalDays {
			return MaxIntervalDays
		}
		if next < MinIntervalDays {
			return MinIntervalDays
		}
		return int(next)
	}
}

// ValidateQuality returns ErrInvalidQuality when quality is outside [0,5].
func ValidateQuality(quality int) error {
	if quality < MinQuality || quality > MaxQuality {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidQuality, quality, MinQuality, MaxQuality)
	}
	return nil
}

// ApplyReview updates the record with a review of the given quality at now.
//
// A failed recall (quality < 3) resets the interval and review count but
// keeps the easiness factor, clamped into bounds. A successful recall increments the review
// count, recomputes the easiness factor and grows the interval.
// The record is left untouched when quality is invalid.
func (r *Record) ApplyReview(quality int, now time.Time) error {
	if err := ValidateQuality(quality); err != nil {
		return err
	}

	if r.EasinessFactor == 0 {
		r.EasinessFactor = DefaultEasinessFactor
	}
	r.EasinessFactor = clampEasinessFactor(r.EasinessFactor)

	r.LastQuality = quality
	if quality < PassingQuality {
		r.IntervalDays = MinIntervalDays
		r.ReviewCount = 1
	} else {
		r.ReviewCount++
		r.EasinessFactor = UpdateEasinessFactor(r.EasinessFactor, quality)
		r.IntervalDays = CalculateNextInterval(r.IntervalDays, r.EasinessFactor, quality, r.ReviewCount)
	}

	due := now.AddDate(0, 0, r.IntervalDays)
	reviewedAt := now
	r.DueAt = &due
	r.LastReviewedAt = &reviewedAt
	return nil
}

func clampEasinessFactor(ef float64) float64 {
	return math.Max(MinEasinessFactor, math.Min(MaxEasinessFactor, ef))
}
