package services

import (
	"context"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
)

// ===== REQUEST / RESPONSE TYPES =====

type StartAttemptRequest struct {
	QuizID     string  `json:"quiz_id" validate:"required,uuid"`
	ScheduleID *string `json:"schedule_id" validate:"omitempty,uuid"`
}

type SaveAnswersRequest struct {
	Answers models.AnswersPayload `json:"answers" validate:"required"`
}

type SaveAnswersResponse struct {
	AttemptVersion int `json:"attempt_version"`
}

type FinishAttemptResponse struct {
	Score            int     `json:"score"`
	MaxScore         int     `json:"max_score"`
	ScheduleID       string  `json:"schedule_id"`
	QuizName         string  `json:"quiz_name"`
	AnswersAvailable bool    `json:"answers_available"`
	EndReason        string  `json:"end_reason"`
	FinishedAt       *string `json:"finished_at,omitempty"`
}

type AttemptResponse struct {
	*models.Attempt
	TimeRemaining *int `json:"time_remaining,omitempty"`
	CanSave       bool `json:"can_save"`
}

// ===== SERVICE INTERFACES =====

// AttemptService implements the server half of the attempt lifecycle: the
// save, finalize and fetch endpoints the player runtime calls.
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	GetByID(ctx context.Context, id string, studentID string) (*AttemptResponse, error)
	List(ctx context.Context, filters repositories.AttemptFilters, studentID string) ([]*models.Attempt, int64, error)

	SaveAnswers(ctx context.Context, attemptID string, req *SaveAnswersRequest, studentID string) (*SaveAnswersResponse, error)
	Finish(ctx context.Context, attemptID string, studentID string) (*FinishAttemptResponse, error)

	TimeRemaining(ctx context.Context, attemptID string, studentID string) (int, error)
	HandleTimeout(ctx context.Context, attemptID string) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// QuizService is the read-side quiz surface: the quizzes available to play
// and the per-quiz attempt statistics, plus a seeding hook for environments
// without an upstream authoring service.
type QuizService interface {
	List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error)
	GetStats(ctx context.Context, quizID string) (*repositories.AttemptStats, error)
	Seed(ctx context.Context, quizzes []*models.Quiz) (int, error)
}
