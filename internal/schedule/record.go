// Package schedule implements the review scheduling core: the per-item
// schedule record, the SM-2 update applied after each review, and the due
// queue ordering. Everything here is pure computation over values supplied
// by the caller; nothing reads the wall clock or performs I/O.
package schedule

import (
	"fmt"
	"time"
)

// Status is the caller-driven learning status of an item.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

const (
	DefaultEasinessFactor = 2.5
	MinEasinessFactor     = 1.3
	MaxEasinessFactor     = 3.0

	MinQuality = 0
	MaxQuality = 5
	// PassingQuality is the lowest quality counted as a successful recall.
	PassingQuality = 3

	MinIntervalDays = 1
	// MaxIntervalDays caps the interval at 100 years so that due dates stay
	// within the range every storage backend and JSON can represent.
	MaxIntervalDays = 36500
)

// Record is the scheduling state of one (learner, item) pair.
type Record struct {
	LearnerID            string     `json:"learner_id" yaml:"learner_id" db:"learner_id"`
	ItemID               string     `json:"item_id" yaml:"item_id" db:"item_id"`
	Status               Status     `json:"status" yaml:"status" db:"status"`
	PercentageCompletion int        `json:"percentage_completion" yaml:"percentage_completion" db:"percentage_completion"`
	LastQuality          int        `json:"last_quality" yaml:"last_quality" db:"last_quality"`
	ReviewCount          int        `json:"review_count" yaml:"review_count" db:"review_count"`
	IntervalDays         int        `json:"interval_days" yaml:"interval_days" db:"interval_days"`
	EasinessFactor       float64    `json:"easiness_factor" yaml:"easiness_factor" db:"easiness_factor"`
	DueAt                *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty" db:"due_at"`
	LastReviewedAt       *time.Time `json:"last_reviewed_at,omitempty" yaml:"last_reviewed_at,omitempty" db:"last_reviewed_at"`
	TimeStudiedTotal     int        `json:"time_studied_total" yaml:"time_studied_total" db:"time_studied_total"`

	// Version is bumped by storage on every successful save and is used for
	// compare-and-swap updates. Zero means the record was never persisted.
	Version int64 `json:"version" yaml:"version" db:"version"`
}

// NewRecord returns the default record for a pair that has never been reviewed.
func NewRecord(learnerID, itemID string) *Record {
	return &Record{
		LearnerID:      learnerID,
		ItemID:         itemID,
		Status:         StatusNotStarted,
		IntervalDays:   MinIntervalDays,
		EasinessFactor: DefaultEasinessFactor,
	}
}

// Key identifies a record.
type Key struct {
	LearnerID string
	ItemID    string
}

func (k Key) String() string {
	return k.LearnerID + "/" + k.ItemID
}

// Key returns the identifying key of the record.
func (r *Record) Key() Key {
	return Key{LearnerID: r.LearnerID, ItemID: r.ItemID}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.DueAt != nil {
		t := *r.DueAt
		c.DueAt = &t
	}
	if r.LastReviewedAt != nil {
		t := *r.LastReviewedAt
		c.LastReviewedAt = &t
	}
	return &c
}

// Validate checks the record invariants. It is meant for records coming
// from outside the engine, e.g. rows written by an older schema.
func (r *Record) Validate() error {
	if r.EasinessFactor < MinEasinessFactor || r.EasinessFactor > MaxEasinessFactor {
		return fmt.Errorf("%w: %v", ErrEasinessOutOfRange, r.EasinessFactor)
	}
	if r.IntervalDays < MinIntervalDays || r.IntervalDays > MaxIntervalDays {
		return fmt.Errorf("%w: %d", ErrIntervalOutOfRange, r.IntervalDays)
	}
	if r.ReviewCount < 0 {
		return fmt.Errorf("%w: review_count %d", ErrCorruptRecord, r.ReviewCount)
	}
	if r.TimeStudiedTotal < 0 {
		return fmt.Errorf("%w: time_studied_total %d", ErrCorruptRecord, r.TimeStudiedTotal)
	}
	if r.PercentageCompletion < 0 || r.PercentageCompletion > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidPercentage, r.PercentageCompletion)
	}
	if r.LastQuality < MinQuality || r.LastQuality > MaxQuality {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, r.LastQuality)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	return nil
}

// Normalize brings a persisted record back within the invariants and
// reports whether anything changed. Storage adapters call it on read.
func (r *Record) Normalize() bool {
	changed := false
	if r.EasinessFactor == 0 {
		r.EasinessFactor = DefaultEasinessFactor
		changed = true
	}
	if ef := clampEasinessFactor(r.EasinessFactor); ef != r.EasinessFactor {
		r.EasinessFactor = ef
		changed = true
	}
	if r.IntervalDays < MinIntervalDays {
		r.IntervalDays = MinIntervalDays
		changed = true
	}
	if r.IntervalDays > MaxIntervalDays {
		r.IntervalDays = MaxIntervalDays
		changed = true
	}
	if r.ReviewCount < 0 {
		r.ReviewCount = 0
		changed = true
	}
	if r.TimeStudiedTotal < 0 {
		r.TimeStudiedTotal = 0
		changed = true
	}
	if r.Status == "" {
		r.Status = StatusNotStarted
		changed = true
	}
	return changed
}
