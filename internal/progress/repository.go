// Package progress stores schedule records and the review log.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

//go:generate mockgen -source=repository.go -destination=../mocks/progress/mock_repository.go -package=mock_progress

var (
	// ErrNotFound is returned when no record exists for a (learner, item) pair.
	ErrNotFound = errors.New("schedule record not found")
	// ErrVersionConflict is returned by Save when the stored version differs
	// from the version the record was loaded with.
	ErrVersionConflict = errors.New("schedule record was modified concurrently")
)

// Repository persists schedule records.
//
// Save performs a compare-and-swap on Record.Version: a record with version
// zero is inserted, any other record is updated only when the stored version
// still matches. On success the record's version is incremented.
type Repository interface {
	Get(ctx context.Context, learnerID, itemID string) (*schedule.Record, error)
	ListByLearner(ctx context.Context, learnerID string) ([]schedule.Record, error)
	ListAll(ctx context.Context) ([]schedule.Record, error)
	Save(ctx context.Context, record *schedule.Record) error
	BatchUpsert(ctx context.Context, records []*schedule.Record) error
}

// LogRepository persists the review log.
type LogRepository interface {
	Append(ctx context.Context, log *ReviewLog) error
	ListByItem(ctx context.Context, learnerID, itemID string) ([]ReviewLog, error)
}

// LogKind tells which operation produced a review log entry.
type LogKind string

const (
	LogKindReview   LogKind = "review"
	LogKindProgress LogKind = "progress"
)

// ReviewLog is one applied review or progress event together with the
// resulting schedule, in the order they were applied.
type ReviewLog struct {
	ID             string    `db:"id" yaml:"id" json:"id"`
	LearnerID      string    `db:"learner_id" yaml:"learner_id" json:"learner_id"`
	ItemID         string    `db:"item_id" yaml:"item_id" json:"item_id"`
	Kind           LogKind   `db:"kind" yaml:"kind" json:"kind"`
	Quality        *int      `db:"quality" yaml:"quality,omitempty" json:"quality,omitempty"`
	Status         *string   `db:"status" yaml:"status,omitempty" json:"status,omitempty"`
	Percentage     *int      `db:"percentage" yaml:"percentage,omitempty" json:"percentage,omitempty"`
	StudyMinutes   *int      `db:"study_minutes" yaml:"study_minutes,omitempty" json:"study_minutes,omitempty"`
	OccurredAt     time.Time `db:"occurred_at" yaml:"occurred_at" json:"occurred_at"`
	IntervalDays   int       `db:"interval_days" yaml:"interval_days" json:"interval_days"`
	EasinessFactor float64   `db:"easiness_factor" yaml:"easiness_factor" json:"easiness_factor"`
}

var recordColumns = []string{
	"learner_id", "item_id", "status", "percentage_completion", "last_quality",
	"review_count", "interval_days", "easiness_factor", "due_at", "last_reviewed_at",
	"time_studied_total", "version",
}

var logColumns = []string{
	"id", "learner_id", "item_id", "kind", "quality", "status", "percentage",
	"study_minutes", "occurred_at", "interval_days", "easiness_factor",
}

func recordArgs(r *schedule.Record, version int64) []interface{} {
	return []interface{}{
		r.LearnerID, r.ItemID, string(r.Status), r.PercentageCompletion, r.LastQuality,
		r.ReviewCount, r.IntervalDays, r.EasinessFactor, r.DueAt, r.LastReviewedAt,
		r.TimeStudiedTotal, version,
	}
}

func logArgs(l *ReviewLog) []interface{} {
	return []interface{}{
		l.ID, l.LearnerID, l.ItemID, string(l.Kind), l.Quality, l.Status, l.Percentage,
		l.StudyMinutes, l.OccurredAt, l.IntervalDays, l.EasinessFactor,
	}
}

func normalizeAll(records []schedule.Record) []schedule.Record {
	for i := range records {
		records[i].Normalize()
	}
	return records
}
