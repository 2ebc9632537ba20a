// Package client calls a remote review server over the Connect unary JSON protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resty.dev/v3"

	apiv1 "github.com/at-ishikawa/spacedrep/internal/api/v1"
	"github.com/at-ishikawa/spacedrep/internal/lock"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/review"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

const connectProtocolVersion = "1"

// Error is an error returned by the server.
type Error struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the Connect code back to the local sentinel, so callers can
// handle remote and local errors the same way.
func (e *Error) Unwrap() error {
	switch e.Code {
	case "invalid_argument":
		return review.ErrInvalidRequest
	case "aborted":
		return progress.ErrVersionConflict
	case "unavailable":
		return lock.ErrNotAcquired
	}
	return nil
}

// Client is a remote review.Service.
type Client struct {
	httpClient *resty.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Connect-Protocol-Version", connectProtocolVersion)
	return &Client{httpClient: client}
}

func (c *Client) Close() error {
	return c.httpClient.Close()
}

func (c *Client) call(ctx context.Context, procedure string, request any, result any) error {
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(result).
		Post(procedure)
	if err != nil {
		return fmt.Errorf("httpClient.Post(%s) > %w", procedure, err)
	}
	if response.IsError() {
		remoteErr := &Error{StatusCode: response.StatusCode()}
		if err := json.Unmarshal([]byte(response.String()), remoteErr); err != nil || remoteErr.Code == "" {
			remoteErr.Code = "unknown"
			remoteErr.Message = response.String()
		}
		return fmt.Errorf("call %s: %w", procedure, remoteErr)
	}
	return nil
}

// SubmitReview applies a review on the server.
func (c *Client) SubmitReview(ctx context.Context, sub review.Submission) (*schedule.Record, error) {
	request := apiv1.SubmitReviewRequest{
		LearnerID:    sub.LearnerID,
		ItemID:       sub.ItemID,
		Quality:      sub.Quality,
		StudyMinutes: sub.StudyMinutes,
	}
	if !sub.OccurredAt.IsZero() {
		request.OccurredAt = &sub.OccurredAt
	}
	var result apiv1.SubmitReviewResponse
	if err := c.call(ctx, apiv1.ReviewServiceSubmitReviewProcedure, request, &result); err != nil {
		return nil, err
	}
	return &result.Record, nil
}

// UpdateProgress applies a progress update on the server.
func (c *Client) UpdateProgress(ctx context.Context, sub review.ProgressSubmission) (*schedule.Record, error) {
	request := apiv1.UpdateProgressRequest{
		LearnerID:    sub.LearnerID,
		ItemID:       sub.ItemID,
		Status:       sub.Status,
		Percentage:   sub.Percentage,
		StudyMinutes: sub.StudyMinutes,
	}
	if !sub.OccurredAt.IsZero() {
		request.OccurredAt = &sub.OccurredAt
	}
	var result apiv1.UpdateProgressResponse
	if err := c.call(ctx, apiv1.ReviewServiceUpdateProgressProcedure, request, &result); err != nil {
		return nil, err
	}
	return &result.Record, nil
}

// DueItems lists the learner's due items on the server.
func (c *Client) DueItems(ctx context.Context, learnerID string, asOf time.Time) ([]schedule.Record, error) {
	var result apiv1.ListDueResponse
	request := apiv1.ListDueRequest{LearnerID: learnerID, AsOf: &asOf}
	if err := c.call(ctx, apiv1.ReviewServiceListDueProcedure, request, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Stats fetches the learner's statistics from the server.
func (c *Client) Stats(ctx context.Context, learnerID string, asOf time.Time) (*review.Stats, error) {
	var result apiv1.GetStatsResponse
	request := apiv1.GetStatsRequest{LearnerID: learnerID, AsOf: &asOf}
	if err := c.call(ctx, apiv1.ReviewServiceGetStatsProcedure, request, &result); err != nil {
		return nil, err
	}
	return &review.Stats{
		LearnerID: result.LearnerID,
		AsOf:      result.AsOf,
		Summary:   result.Summary,
		Activity:  result.Activity,
	}, nil
}

// IsRemoteError reports whether err came from the server.
func IsRemoteError(err error) bool {
	var remoteErr *Error
	return errors.As(err, &remoteErr)
}
