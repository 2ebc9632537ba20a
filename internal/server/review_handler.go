// Package server provides Connect RPC handlers for the review service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"

	apiv1 "github.com/at-ishikawa/spacedrep/internal/api/v1"
	"github.com/at-ishikawa/spacedrep/internal/lock"
	"github.com/at-ishikawa/spacedrep/internal/logging"
	"github.com/at-ishikawa/spacedrep/internal/progress"
	"github.com/at-ishikawa/spacedrep/internal/review"
	"github.com/at-ishikawa/spacedrep/internal/schedule"
)

//go:generate mockgen -source=review_handler.go -destination=../mocks/server/mock_review_handler.go -package=mock_server

// Reviewer is the part of review.Service the handler serves.
type Reviewer interface {
	SubmitReview(ctx context.Context, sub review.Submission) (*schedule.Record, error)
	UpdateProgress(ctx context.Context, sub review.ProgressSubmission) (*schedule.Record, error)
	DueItems(ctx context.Context, learnerID string, asOf time.Time) ([]schedule.Record, error)
	Stats(ctx context.Context, learnerID string, asOf time.Time) (*review.Stats, error)
}

// ReviewHandler serves the review procedures.
type ReviewHandler struct {
	reviewer Reviewer
	now      func() time.Time
	logger   *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewer Reviewer, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewer: reviewer,
		now:      time.Now,
		logger:   logging.OrNop(logger),
	}
}

// Register mounts every procedure on mux.
func (h *ReviewHandler) Register(mux interface {
	Handle(pattern string, handler http.Handler)
}, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(apiv1.JSONCodec{})}, opts...)
	mux.Handle(apiv1.ReviewServiceSubmitReviewProcedure,
		connect.NewUnaryHandler(apiv1.ReviewServiceSubmitReviewProcedure, h.SubmitReview, opts...))
	mux.Handle(apiv1.ReviewServiceUpdateProgressProcedure,
		connect.NewUnaryHandler(apiv1.ReviewServiceUpdateProgressProcedure, h.UpdateProgress, opts...))
	mux.Handle(apiv1.ReviewServiceListDueProcedure,
		connect.NewUnaryHandler(apiv1.ReviewServiceListDueProcedure, h.ListDue, opts...))
	mux.Handle(apiv1.ReviewServiceGetStatsProcedure,
		connect.NewUnaryHandler(apiv1.ReviewServiceGetStatsProcedure, h.GetStats, opts...))
}

// SubmitReview applies one review.
func (h *ReviewHandler) SubmitReview(
	ctx context.Context,
	req *connect.Request[apiv1.SubmitReviewRequest],
) (*connect.Response[apiv1.SubmitReviewResponse], error) {
	sub := review.Submission{
		LearnerID:    req.Msg.LearnerID,
		ItemID:       req.Msg.ItemID,
		Quality:      req.Msg.Quality,
		StudyMinutes: req.Msg.StudyMinutes,
	}
	if req.Msg.OccurredAt != nil {
		sub.OccurredAt = *req.Msg.OccurredAt
	}

	record, err := h.reviewer.SubmitReview(ctx, sub)
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&apiv1.SubmitReviewResponse{Record: *record}), nil
}

// UpdateProgress applies a progress update.
func (h *ReviewHandler) UpdateProgress(
	ctx context.Context,
	req *connect.Request[apiv1.UpdateProgressRequest],
) (*connect.Response[apiv1.UpdateProgressResponse], error) {
	sub := review.ProgressSubmission{
		LearnerID:    req.Msg.LearnerID,
		ItemID:       req.Msg.ItemID,
		Status:       req.Msg.Status,
		Percentage:   req.Msg.Percentage,
		StudyMinutes: req.Msg.StudyMinutes,
	}
	if req.Msg.OccurredAt != nil {
		sub.OccurredAt = *req.Msg.OccurredAt
	}

	record, err := h.reviewer.UpdateProgress(ctx, sub)
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&apiv1.UpdateProgressResponse{Record: *record}), nil
}

// ListDue returns the learner's due items, soonest first.
func (h *ReviewHandler) ListDue(
	ctx context.Context,
	req *connect.Request[apiv1.ListDueRequest],
) (*connect.Response[apiv1.ListDueResponse], error) {
	items, err := h.reviewer.DueItems(ctx, req.Msg.LearnerID, h.asOf(req.Msg.AsOf))
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	if items == nil {
		items = []schedule.Record{}
	}
	return connect.NewResponse(&apiv1.ListDueResponse{Items: items}), nil
}

// GetStats returns the learner's statistics.
func (h *ReviewHandler) GetStats(
	ctx context.Context,
	req *connect.Request[apiv1.GetStatsRequest],
) (*connect.Response[apiv1.GetStatsResponse], error) {
	stats, err := h.reviewer.Stats(ctx, req.Msg.LearnerID, h.asOf(req.Msg.AsOf))
	if err != nil {
		return nil, h.toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&apiv1.GetStatsResponse{
		LearnerID: stats.LearnerID,
		AsOf:      stats.AsOf,
		Summary:   stats.Summary,
		Activity:  stats.Activity,
	}), nil
}

func (h *ReviewHandler) asOf(t *time.Time) time.Time {
	if t == nil {
		return h.now()
	}
	return *t
}

func (h *ReviewHandler) toConnectError(procedure string, err error) *connect.Error {
	switch {
	case review.IsInvalidArgument(err):
		return invalidArgument(err)
	case errors.Is(err, progress.ErrVersionConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	h.logger.Error("request failed", zap.String("procedure", procedure), zap.Error(err))
	return connect.NewError(connect.CodeInternal, fmt.Errorf("internal error: %w", err))
}

func invalidArgument(err error) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)

	var fieldViolations []*errdetails.BadRequest_FieldViolation
	var valErr *review.ValidationError
	if errors.As(err, &valErr) {
		for _, v := range valErr.Violations {
			fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.Field,
				Description: v.Description,
			})
		}
	} else {
		fieldViolations = append(fieldViolations, &errdetails.BadRequest_FieldViolation{
			Description: err.Error(),
		})
	}
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: fieldViolations,
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
