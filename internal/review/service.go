// Package review applies reviews and progress updates to stored schedule records.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/at-ishikawa/spacedrep/internal/lock"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
	"github.com/at-ishikawa/spacedrep/internal/statistics"
)

const (
	defaultMaxRetries = 3
	retryDelay        = 10 * time.Millisecond
)

// Submission is one review of an item by a learner.
type Submission struct {
	LearnerID string `json:"learner_id" validate:"required,max=191"`
	ItemID    string `json:"item_id" validate:"required,max=191"`
	Quality   int    `json:"quality"`
	// OccurredAt defaults to the current time when zero.
	OccurredAt   time.Time `json:"occurred_at,omitempty"`
	StudyMinutes *int      `json:"study_minutes,omitempty"`
}

// ProgressSubmission is a caller-driven progress update of an item.
type ProgressSubmission struct {
	LearnerID    string    `json:"learner_id" validate:"required,max=191"`
	ItemID       string    `json:"item_id" validate:"required,max=191"`
	Status       *string   `json:"status,omitempty"`
	Percentage   *int      `json:"percentage,omitempty"`
	StudyMinutes *int      `json:"study_minutes,omitempty"`
	OccurredAt   time.Time `json:"occurred_at,omitempty"`
}

// Stats is the statistics of one learner.
type Stats struct {
	LearnerID string              `json:"learner_id"`
	AsOf      time.Time           `json:"as_of"`
	Summary   statistics.Summary  `json:"summary"`
	Activity  statistics.Activity `json:"activity"`
}

// Service serializes updates per (learner, item) and persists them with
// optimistic concurrency.
type Service struct {
	records    progress.Repository
	logs       progress.LogRepository
	locker     lock.Locker
	validator  *requestValidator
	maxRetries uint
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxRetries sets how many times a save is retried after a version conflict.
func WithMaxRetries(n uint) Option {
	return func(s *Service) { s.maxRetries = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the review log id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service. locker may be nil, in which case an
// in-process lock is used.
func NewService(records progress.Repository, logs progress.LogRepository, locker lock.Locker, opts ...Option) (*Service, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, fmt.Errorf("newRequestValidator() > %w", err)
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}

	s := &Service{
		records:    records,
		logs:       logs,
		locker:     locker,
		validator:  v,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitReview applies a review and returns the saved record.
func (s *Service) SubmitReview(ctx context.Context, sub Submission) (*schedule.Record, error) {
	if err := s.validator.Struct(sub); err != nil {
		return nil, err
	}
	if err := schedule.ValidateQuality(sub.Quality); err != nil {
		return nil, progressFieldError(err)
	}
	update := schedule.ProgressUpdate{MinutesStudied: sub.StudyMinutes}
	if err := update.Validate(); err != nil {
		return nil, progressFieldError(err)
	}

	occurredAt := s.occurredAt(sub.OccurredAt)
	quality := sub.Quality
	record, err := s.update(ctx, sub.LearnerID, sub.ItemID, func(r *schedule.Record) error {
		if sub.StudyMinutes != nil {
			if err := r.ApplyProgress(update, occurredAt); err != nil {
				return err
			}
		}
		return r.ApplyReview(quality, occurredAt)
	})
	if err != nil {
		return nil, err
	}

	s.appendLog(ctx, record, &progress.ReviewLog{
		Kind:         progress.LogKindReview,
		Quality:      &quality,
		StudyMinutes: sub.StudyMinutes,
		OccurredAt:   occurredAt,
	})
	s.logger.Debug("review applied",
		zap.Stringer("key", record.Key()),
		zap.Int("quality", quality),
		zap.Int("interval_days", record.IntervalDays),
		zap.Float64("easiness_factor", record.EasinessFactor),
	)
	return record, nil
}

// UpdateProgress applies a progress update and returns the saved record.
func (s *Service) UpdateProgress(ctx context.Context, sub ProgressSubmission) (*schedule.Record, error) {
	if err := s.validator.Struct(sub); err != nil {
		return nil, err
	}
	update := schedule.ProgressUpdate{
		Percentage:     sub.Percentage,
		MinutesStudied: sub.StudyMinutes,
	}
	if sub.Status != nil {
		status := schedule.Status(*sub.Status)
		update.Status = &status
	}
	if err := update.Validate(); err != nil {
		return nil, progressFieldError(err)
	}

	occurredAt := s.occurredAt(sub.OccurredAt)
	record, err := s.update(ctx, sub.LearnerID, sub.ItemID, func(r *schedule.Record) error {
		return r.ApplyProgress(update, occurredAt)
	})
	if err != nil {
		return nil, err
	}

	s.appendLog(ctx, record, &progress.ReviewLog{
		Kind:         progress.LogKindProgress,
		Status:       sub.Status,
		Percentage:   sub.Percentage,
		StudyMinutes: sub.StudyMinutes,
		OccurredAt:   occurredAt,
	})
	return record, nil
}

// DueItems returns the learner's records due at or before asOf, soonest first.
func (s *Service) DueItems(ctx context.Context, learnerID string, asOf time.Time) ([]schedule.Record, error) {
	if learnerID == "" {
		return nil, fieldError("learner_id", ErrInvalidRequest)
	}
	records, err := s.records.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}
	return schedule.ItemsDue(records, asOf), nil
}

// Replay rebuilds a record from its review log. The result matches the
// stored record unless the log is incomplete.
func (s *Service) Replay(ctx context.Context, learnerID, itemID string) (*schedule.Record, error) {
	logs, err := s.logs.ListByItem(ctx, learnerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("load review logs(%s/%s): %w", learnerID, itemID, err)
	}

	record := schedule.NewRecord(learnerID, itemID)
	for _, l := range logs {
		if err := replayLog(record, l); err != nil {
			return nil, fmt.Errorf("replay log %s: %w", l.ID, err)
		}
	}
	return record, nil
}

func replayLog(record *schedule.Record, l progress.ReviewLog) error {
	switch l.Kind {
	case progress.LogKindReview:
		if l.Quality == nil {
			return fmt.Errorf("%w: review log without quality", schedule.ErrCorruptRecord)
		}
		if l.StudyMinutes != nil {
			if err := record.ApplyProgress(schedule.ProgressUpdate{MinutesStudied: l.StudyMinutes}, l.OccurredAt); err != nil {
				return err
			}
		}
		return record.ApplyReview(*l.Quality, l.OccurredAt)
	case progress.LogKindProgress:
		update := schedule.ProgressUpdate{
			Percentage:     l.Percentage,
			MinutesStudied: l.StudyMinutes,
		}
		if l.Status != nil {
			status := schedule.Status(*l.Status)
			update.Status = &status
		}
		return record.ApplyProgress(update, l.OccurredAt)
	default:
		return fmt.Errorf("%w: unknown log kind %q", schedule.ErrCorruptRecord, l.Kind)
	}
}

// Stats summarizes a learner's records and review activity.
func (s *Service) Stats(ctx context.Context, learnerID string, asOf time.Time) (*Stats, error) {
	if learnerID == "" {
		return nil, fieldError("learner_id", ErrInvalidRequest)
	}
	records, err := s.records.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule records(%s): %w", learnerID, err)
	}

	var logs []progress.ReviewLog
	for _, r := range records {
		itemLogs, err := s.logs.ListByItem(ctx, learnerID, r.ItemID)
		if err != nil {
			return nil, fmt.Errorf("load review logs(%s): %w", r.Key(), err)
		}
		logs = append(logs, itemLogs...)
	}

	return &Stats{
		LearnerID: learnerID,
		AsOf:      asOf,
		Summary:   statistics.Summarize(records, asOf),
		Activity:  statistics.CalculateActivity(logs, 0, 0),
	}, nil
}

// update loads the record, applies mutate to a copy and saves it, retrying on
// version conflicts. mutate must be deterministic since it may run more than once.
func (s *Service) update(ctx context.Context, learnerID, itemID string, mutate func(*schedule.Record) error) (*schedule.Record, error) {
	key := schedule.Key{LearnerID: learnerID, ItemID: itemID}
	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	var saved *schedule.Record
	err = retry.Do(
		func() error {
			current, err := s.records.Get(ctx, learnerID, itemID)
			if errors.Is(err, progress.ErrNotFound) {
				current = schedule.NewRecord(learnerID, itemID)
			} else if err != nil {
				return fmt.Errorf("load schedule record(%s): %w", key, err)
			}

			next := current.Clone()
			if err := mutate(next); err != nil {
				return progressFieldError(err)
			}
			if err := s.records.Save(ctx, next); err != nil {
				return fmt.Errorf("save schedule record(%s): %w", key, err)
			}
			saved = next
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.maxRetries+1),
		retry.Delay(retryDelay),
		retry.MaxJitter(retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, progress.ErrVersionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("retrying after version conflict",
				zap.Stringer("key", key),
				zap.Uint("attempt", n+1),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// appendLog records an applied event. The record is already saved at this
// point, so errors are only logged.
func (s *Service) appendLog(ctx context.Context, record *schedule.Record, entry *progress.ReviewLog) {
	entry.ID = s.newID()
	entry.LearnerID = record.LearnerID
	entry.ItemID = record.ItemID
	entry.IntervalDays = record.IntervalDays
	entry.EasinessFactor = record.EasinessFactor
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append review log",
			zap.Stringer("key", record.Key()),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err),
		)
	}
}

func (s *Service) occurredAt(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}
