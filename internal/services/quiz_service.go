package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
)

type quizService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger) QuizService {
	return &quizService{
		repo:   repo,
		logger: logger,
	}
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	quizzes, total, err := s.repo.Quiz().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, total, nil
}

// GetStats aggregates attempt outcomes for one quiz, for the classroom
// teacher's results view.
func (s *quizService) GetStats(ctx context.Context, quizID string) (*repositories.AttemptStats, error) {
	if _, err := s.repo.Quiz().GetByID(ctx, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	stats, err := s.repo.Attempt().GetStats(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute quiz stats: %w", err)
	}
	return stats, nil
}

// Seed inserts the given quiz snapshots if they are not already present and
// returns how many were created. Quizzes are authored upstream; this only
// backfills local environments that have no authoring service to pull from.
func (s *quizService) Seed(ctx context.Context, quizzes []*models.Quiz) (int, error) {
	created := 0
	for _, quiz := range quizzes {
		_, err := s.repo.Quiz().GetByID(ctx, quiz.ID)
		if err == nil {
			continue
		}
		if !repositories.IsNotFoundError(err) {
			return created, fmt.Errorf("failed to check quiz %s: %w", quiz.ID, err)
		}
		if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
			return created, fmt.Errorf("failed to seed quiz %s: %w", quiz.ID, err)
		}
		s.logger.Info("Seeded quiz", "quiz_id", quiz.ID, "name", quiz.Name)
		created++
	}
	return created, nil
}
