package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/spacedrep/internal/config"
	"github.com/at-ishikawa/spacedrep/internal/lock"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/review"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
	"github.com/at-ishikawa/spacedrep/internal/server"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func newRemote(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	service, err := review.NewService(
		progress.NewYAMLRepository(dir),
		progress.NewYAMLLogRepository(filepath.Join(dir, "logs")),
		nil,
		review.WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(server.NewRouter(server.NewReviewHandler(service, nil), config.CORSConfig{}, nil))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newRemote(t)

	record, err := c.SubmitReview(ctx, review.Submission{LearnerID: "alice", ItemID: "word-1", Quality: 4, OccurredAt: testNow})
	require.NoError(t, err)
	assert.Equal(t, 1, record.IntervalDays)
	assert.Equal(t, int64(1), record.Version)

	record, err = c.UpdateProgress(ctx, review.ProgressSubmission{
		LearnerID: "alice", ItemID: "word-1", Status: strPtr("in_progress"), Percentage: intPtr(40), StudyMinutes: intPtr(15),
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusInProgress, record.Status)
	assert.Equal(t, 40, record.PercentageCompletion)
	assert.Equal(t, 15, record.TimeStudiedTotal)

	due, err := c.DueItems(ctx, "alice", testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "word-1", due[0].ItemID)

	due, err = c.DueItems(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	stats, err := c.Stats(ctx, "alice", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Summary.Total)
	assert.Equal(t, 1, stats.Summary.InProgress)
	assert.Equal(t, 15, stats.Summary.TotalMinutesStudied)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newRemote(t)

	_, err := c.SubmitReview(ctx, review.Submission{LearnerID: "alice", ItemID: "word-1", Quality: 6})
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))
	assert.ErrorIs(t, err, review.ErrInvalidRequest)

	var remoteErr *Error
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "invalid_argument", remoteErr.Code)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
}

func TestError_Unwrap(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{code: "invalid_argument", want: review.ErrInvalidRequest},
		{code: "aborted", want: progress.ErrVersionConflict},
		{code: "unavailable", want: lock.ErrNotAcquired},
		{code: "internal", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &Error{Code: tt.code}
			assert.Equal(t, tt.want, err.Unwrap())
		})
	}
}

func TestClient_NonConnectErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).DueItems(context.Background(), "alice", testNow)
	var remoteErr *Error
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "unknown", remoteErr.Code)
	assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
}
