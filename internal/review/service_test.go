package review

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/spacedrep/internal/lock"
	mock_lock "github.com/at-ishikawa/spacedrep/internal/mocks/lock"
	mock_progress "github.com/at-ishikawa/spacedrep/internal/mocks/progress"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func newTestService(t *testing.T, records progress.Repository, logs progress.LogRepository, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "log-1" }),
	}, opts...)
	s, err := NewService(records, logs, lock.NewKeyedMutex(), opts...)
	require.NoError(t, err)
	return s
}

func saveWithVersion(_ context.Context, r *schedule.Record) error {
	r.Version++
	return nil
}

func TestService_SubmitReview(t *testing.T) {
	existing := &schedule.Record{
		LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusInProgress,
		LastQuality: 5, ReviewCount: 1, IntervalDays: 1, EasinessFactor: 2.6, Version: 1,
	}

	tests := []struct {
		name       string
		submission Submission
		setup      func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository)
		want       *schedule.Record
		wantErr    error
		wantErrMsg string
		wantField  string
	}{
		{
			name:       "first review creates the record",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 5},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(nil, progress.ErrNotFound)
				records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveWithVersion)
				logs.EXPECT().Append(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, l *progress.ReviewLog) error {
						assert.Equal(t, "log-1", l.ID)
						assert.Equal(t, progress.LogKindReview, l.Kind)
						assert.Equal(t, 5, *l.Quality)
						assert.Nil(t, l.StudyMinutes)
						assert.Equal(t, testNow, l.OccurredAt)
						assert.Equal(t, 1, l.IntervalDays)
						assert.InDelta(t, 2.6, l.EasinessFactor, 1e-9)
						return nil
					})
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusNotStarted,
				LastQuality: 5, ReviewCount: 1, IntervalDays: 1, EasinessFactor: 2.6,
				DueAt: timePtr(testNow.AddDate(0, 0, 1)), LastReviewedAt: timePtr(testNow), Version: 1,
			},
		},
		{
			name: "second review with study minutes",
			submission: Submission{
				LearnerID: "alice", ItemID: "word-1", Quality: 4,
				OccurredAt: testNow.AddDate(0, 0, 1), StudyMinutes: intPtr(15),
			},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(existing.Clone(), nil)
				records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveWithVersion)
				logs.EXPECT().Append(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, l *progress.ReviewLog) error {
						assert.Equal(t, 15, *l.StudyMinutes)
						return nil
					})
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusInProgress,
				LastQuality: 4, ReviewCount: 2, IntervalDays: 6, EasinessFactor: 2.6, TimeStudiedTotal: 15,
				DueAt:          timePtr(testNow.AddDate(0, 0, 7)),
				LastReviewedAt: timePtr(testNow.AddDate(0, 0, 1)), Version: 2,
			},
		},
		{
			name:       "retries after a version conflict",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 2},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				gomock.InOrder(
					records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(existing.Clone(), nil),
					records.EXPECT().Save(gomock.Any(), gomock.Any()).Return(progress.ErrVersionConflict),
					records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(existing.Clone(), nil),
					records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveWithVersion),
				)
				logs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusInProgress,
				LastQuality: 2, ReviewCount: 1, IntervalDays: 1, EasinessFactor: 2.6,
				DueAt: timePtr(testNow.AddDate(0, 0, 1)), LastReviewedAt: timePtr(testNow), Version: 2,
			},
		},
		{
			name:       "gives up after max retries",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 3},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(existing.Clone(), nil).Times(3)
				records.EXPECT().Save(gomock.Any(), gomock.Any()).Return(progress.ErrVersionConflict).Times(3)
			},
			wantErr: progress.ErrVersionConflict,
		},
		{
			name:       "append failure does not fail the review",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 0},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(nil, progress.ErrNotFound)
				records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveWithVersion)
				logs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(fmt.Errorf("disk full"))
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusNotStarted,
				LastQuality: 0, ReviewCount: 1, IntervalDays: 1, EasinessFactor: 2.5,
				DueAt: timePtr(testNow.AddDate(0, 0, 1)), LastReviewedAt: timePtr(testNow), Version: 1,
			},
		},
		{
			name:       "storage error is returned",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 4},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(nil, fmt.Errorf("connection refused"))
			},
			wantErrMsg: "connection refused",
		},
		{
			name:       "invalid quality",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 6},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    schedule.ErrInvalidQuality,
			wantField:  "quality",
		},
		{
			name:       "negative study minutes",
			submission: Submission{LearnerID: "alice", ItemID: "word-1", Quality: 4, StudyMinutes: intPtr(-1)},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    schedule.ErrInvalidStudyTime,
			wantField:  "study_minutes",
		},
		{
			name:       "missing learner id",
			submission: Submission{ItemID: "word-1", Quality: 4},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    ErrInvalidRequest,
			wantField:  "learner_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			records := mock_progress.NewMockRepository(ctrl)
			logs := mock_progress.NewMockLogRepository(ctrl)
			tt.setup(records, logs)

			s := newTestService(t, records, logs, WithMaxRetries(2))
			got, err := s.SubmitReview(context.Background(), tt.submission)
			if tt.wantErrMsg != "" {
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.False(t, IsInvalidArgument(err))
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantField != "" {
					var verr *ValidationError
					require.ErrorAs(t, err, &verr)
					assert.Equal(t, tt.wantField, verr.Violations[0].Field)
					assert.True(t, IsInvalidArgument(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_SubmitReview_LockNotAcquired(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock_progress.NewMockRepository(ctrl)
	logs := mock_progress.NewMockLogRepository(ctrl)
	locker := mock_lock.NewMockLocker(ctrl)
	locker.EXPECT().Lock(gomock.Any(), "alice/word-1").Return(nil, lock.ErrNotAcquired)

	s, err := NewService(records, logs, locker)
	require.NoError(t, err)

	_, err = s.SubmitReview(context.Background(), Submission{LearnerID: "alice", ItemID: "word-1", Quality: 4})
	assert.ErrorIs(t, err, lock.ErrNotAcquired)
	assert.False(t, IsInvalidArgument(err))
}

func TestService_UpdateProgress(t *testing.T) {
	tests := []struct {
		name       string
		submission ProgressSubmission
		setup      func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository)
		want       *schedule.Record
		wantErr    error
		wantField  string
	}{
		{
			name: "completes an item without touching the schedule",
			submission: ProgressSubmission{
				LearnerID: "alice", ItemID: "word-1",
				Status: strPtr("completed"), Percentage: intPtr(100), StudyMinutes: intPtr(20),
			},
			setup: func(records *mock_progress.MockRepository, logs *mock_progress.MockLogRepository) {
				records.EXPECT().Get(gomock.Any(), "alice", "word-1").Return(&schedule.Record{
					LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusInProgress,
					ReviewCount: 2, IntervalDays: 6, EasinessFactor: 2.6, TimeStudiedTotal: 10, Version: 3,
				}, nil)
				records.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveWithVersion)
				logs.EXPECT().Append(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, l *progress.ReviewLog) error {
						assert.Equal(t, progress.LogKindProgress, l.Kind)
						assert.Nil(t, l.Quality)
						assert.Equal(t, "completed", *l.Status)
						assert.Equal(t, 100, *l.Percentage)
						assert.Equal(t, 6, l.IntervalDays)
						return nil
					})
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusCompleted, PercentageCompletion: 100,
				ReviewCount: 2, IntervalDays: 6, EasinessFactor: 2.6, TimeStudiedTotal: 30,
				LastReviewedAt: timePtr(testNow), Version: 4,
			},
		},
		{
			name:       "unknown status",
			submission: ProgressSubmission{LearnerID: "alice", ItemID: "word-1", Status: strPtr("done")},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    schedule.ErrInvalidStatus,
			wantField:  "status",
		},
		{
			name:       "percentage above 100",
			submission: ProgressSubmission{LearnerID: "alice", ItemID: "word-1", Percentage: intPtr(101)},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    schedule.ErrInvalidPercentage,
			wantField:  "percentage",
		},
		{
			name:       "missing item id",
			submission: ProgressSubmission{LearnerID: "alice"},
			setup:      func(*mock_progress.MockRepository, *mock_progress.MockLogRepository) {},
			wantErr:    ErrInvalidRequest,
			wantField:  "item_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			records := mock_progress.NewMockRepository(ctrl)
			logs := mock_progress.NewMockLogRepository(ctrl)
			tt.setup(records, logs)

			got, err := newTestService(t, records, logs).UpdateProgress(context.Background(), tt.submission)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Violations[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_DueItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock_progress.NewMockRepository(ctrl)
	records.EXPECT().ListByLearner(gomock.Any(), "alice").Return([]schedule.Record{
		{LearnerID: "alice", ItemID: "c", DueAt: timePtr(testNow.AddDate(0, 0, 1))},
		{LearnerID: "alice", ItemID: "b", DueAt: timePtr(testNow)},
		{LearnerID: "alice", ItemID: "a", DueAt: timePtr(testNow.AddDate(0, 0, -2))},
		{LearnerID: "alice", ItemID: "d"},
	}, nil)

	s := newTestService(t, records, mock_progress.NewMockLogRepository(ctrl))
	got, err := s.DueItems(context.Background(), "alice", testNow)
	require.NoError(t, err)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.ItemID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	_, err = s.DueItems(context.Background(), "", testNow)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestService_Replay(t *testing.T) {
	tests := []struct {
		name    string
		logs    []progress.ReviewLog
		want    *schedule.Record
		wantErr error
	}{
		{
			name: "applies reviews and progress in order",
			logs: []progress.ReviewLog{
				{ID: "1", Kind: progress.LogKindReview, Quality: intPtr(5), OccurredAt: testNow},
				{ID: "2", Kind: progress.LogKindReview, Quality: intPtr(5), StudyMinutes: intPtr(10), OccurredAt: testNow.AddDate(0, 0, 1)},
				{ID: "3", Kind: progress.LogKindProgress, Status: strPtr("in_progress"), Percentage: intPtr(40), OccurredAt: testNow.AddDate(0, 0, 2)},
				{ID: "4", Kind: progress.LogKindReview, Quality: intPtr(5), OccurredAt: testNow.AddDate(0, 0, 7)},
			},
			want: &schedule.Record{
				LearnerID: "alice", ItemID: "word-1", Status: schedule.StatusInProgress, PercentageCompletion: 40,
				LastQuality: 5, ReviewCount: 3, IntervalDays: 17, EasinessFactor: 2.8, TimeStudiedTotal: 10,
				DueAt:          timePtr(testNow.AddDate(0, 0, 24)),
				LastReviewedAt: timePtr(testNow.AddDate(0, 0, 7)),
			},
		},
		{
			name: "review without quality is corrupt",
			logs: []progress.ReviewLog{
				{ID: "1", Kind: progress.LogKindReview, OccurredAt: testNow},
			},
			wantErr: schedule.ErrCorruptRecord,
		},
		{
			name: "unknown kind is corrupt",
			logs: []progress.ReviewLog{
				{ID: "1", Kind: "import", OccurredAt: testNow},
			},
			wantErr: schedule.ErrCorruptRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			logs := mock_progress.NewMockLogRepository(ctrl)
			logs.EXPECT().ListByItem(gomock.Any(), "alice", "word-1").Return(tt.logs, nil)

			got, err := newTestService(t, mock_progress.NewMockRepository(ctrl), logs).
				Replay(context.Background(), "alice", "word-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.EasinessFactor, got.EasinessFactor, 1e-9)
			got.EasinessFactor = tt.want.EasinessFactor
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ReplayMatchesStoredRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	records := progress.NewYAMLRepository(dir)
	logs := progress.NewYAMLLogRepository(dir + "/logs")

	var ids int
	s, err := NewService(records, logs, nil, WithIDGenerator(func() string {
		ids++
		return fmt.Sprintf("log-%d", ids)
	}))
	require.NoError(t, err)

	at := testNow
	for i, q := range []int{5, 4, 1, 3, 5, 5} {
		_, err := s.SubmitReview(ctx, Submission{LearnerID: "alice", ItemID: "word-1", Quality: q, OccurredAt: at, StudyMinutes: intPtr(i)})
		require.NoError(t, err)
		at = at.AddDate(0, 0, 3)
	}
	_, err = s.UpdateProgress(ctx, ProgressSubmission{LearnerID: "alice", ItemID: "word-1", Status: strPtr("completed"), Percentage: intPtr(100), OccurredAt: at})
	require.NoError(t, err)

	stored, err := records.Get(ctx, "alice", "word-1")
	require.NoError(t, err)
	replayed, err := s.Replay(ctx, "alice", "word-1")
	require.NoError(t, err)

	replayed.Version = stored.Version
	assert.Equal(t, stored, replayed)
}

func TestService_ReplayWithBackdatedSubmission(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	records := progress.NewYAMLRepository(dir)
	logs := progress.NewYAMLLogRepository(dir + "/logs")

	var ids int
	s, err := NewService(records, logs, nil, WithIDGenerator(func() string {
		ids++
		return fmt.Sprintf("log-%d", ids)
	}))
	require.NoError(t, err)

	_, err = s.SubmitReview(ctx, Submission{LearnerID: "alice", ItemID: "word-1", Quality: 5, OccurredAt: testNow.AddDate(0, 0, 10)})
	require.NoError(t, err)
	_, err = s.SubmitReview(ctx, Submission{LearnerID: "alice", ItemID: "word-1", Quality: 0, OccurredAt: testNow})
	require.NoError(t, err)

	stored, err := records.Get(ctx, "alice", "word-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReviewCount)
	assert.Equal(t, 1, stored.IntervalDays)

	replayed, err := s.Replay(ctx, "alice", "word-1")
	require.NoError(t, err)
	replayed.Version = stored.Version
	assert.Equal(t, stored, replayed)
}

func TestService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	records := mock_progress.NewMockRepository(ctrl)
	logs := mock_progress.NewMockLogRepository(ctrl)

	records.EXPECT().ListByLearner(gomock.Any(), "alice").Return([]schedule.Record{
		{LearnerID: "alice", ItemID: "a", Status: schedule.StatusInProgress, ReviewCount: 1, IntervalDays: 1, EasinessFactor: 2.6, DueAt: timePtr(testNow)},
		{LearnerID: "alice", ItemID: "b", Status: schedule.StatusCompleted, IntervalDays: 30, EasinessFactor: 2.4},
	}, nil)
	logs.EXPECT().ListByItem(gomock.Any(), "alice", "a").Return([]progress.ReviewLog{
		{LearnerID: "alice", ItemID: "a", Kind: progress.LogKindReview, Quality: intPtr(5), OccurredAt: testNow.AddDate(0, 0, -1)},
	}, nil)
	logs.EXPECT().ListByItem(gomock.Any(), "alice", "b").Return(nil, nil)

	got, err := newTestService(t, records, logs).Stats(context.Background(), "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, 1, got.Summary.DueNow)
	assert.Equal(t, 1, got.Summary.Mature)
	assert.Equal(t, 1, got.Activity.Reviews)
	require.Len(t, got.Activity.Periods, 1)
	assert.Equal(t, "2025-02", got.Activity.Periods[0].Period)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
