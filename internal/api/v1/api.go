// Package apiv1 defines the messages and procedures of the review RPC API.
package apiv1

import (
	"time"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
	"github.com/at-ishikawa/spacedrep/internal/statistics"
)

const ReviewServiceName = "spacedrep.v1.ReviewService"

const (
	ReviewServiceSubmitReviewProcedure   = "/" + ReviewServiceName + "/SubmitReview"
	ReviewServiceUpdateProgressProcedure = "/" + ReviewServiceName + "/UpdateProgress"
	ReviewServiceListDueProcedure        = "/" + ReviewServiceName + "/ListDue"
	ReviewServiceGetStatsProcedure       = "/" + ReviewServiceName + "/GetStats"
)

type SubmitReviewRequest struct {
	LearnerID    string     `json:"learner_id"`
	ItemID       string     `json:"item_id"`
	Quality      int        `json:"quality"`
	StudyMinutes *int       `json:"study_minutes,omitempty"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
}

type SubmitReviewResponse struct {
	Record schedule.Record `json:"record"`
}

type UpdateProgressRequest struct {
	LearnerID    string     `json:"learner_id"`
	ItemID       string     `json:"item_id"`
	Status       *string    `json:"status,omitempty"`
	Percentage   *int       `json:"percentage,omitempty"`
	StudyMinutes *int       `json:"study_minutes,omitempty"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
}

type UpdateProgressResponse struct {
	Record schedule.Record `json:"record"`
}

type ListDueRequest struct {
	LearnerID string `json:"learner_id"`
	// AsOf defaults to the server time.
	AsOf *time.Time `json:"as_of,omitempty"`
}

type ListDueResponse struct {
	Items []schedule.Record `json:"items"`
}

type GetStatsRequest struct {
	LearnerID string     `json:"learner_id"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

type GetStatsResponse struct {
	LearnerID string              `json:"learner_id"`
	AsOf      time.Time           `json:"as_of"`
	Summary   statistics.Summary  `json:"summary"`
	Activity  statistics.Activity `json:"activity"`
}
