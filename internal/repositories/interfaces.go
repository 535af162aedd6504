package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	QuizID    *string              `json:"quiz_id"`
	StudentID *string              `json:"student_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "started_at", "score"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type QuizFilters struct {
	Type      *models.QuizType `json:"type"`
	CreatedBy *string          `json:"created_by"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	SortBy    string           `json:"sort_by"`
	SortOrder string           `json:"sort_order"`
}

// ===== STATISTICS STRUCTS =====

type AttemptStats struct {
	TotalAttempts    int                          `json:"total_attempts"`
	StatusBreakdown  map[models.AttemptStatus]int `json:"status_breakdown"`
	AverageScore     float64                      `json:"average_score"`
	CompletionRate   float64                      `json:"completion_rate"`
	AverageTimeSpent int                          `json:"average_time_spent"`
}

// ===== REPOSITORY INTERFACES =====

// QuizRepository provides read access to quiz snapshots.
type QuizRepository interface {
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	GetByIDWithDetails(ctx context.Context, id string) (*models.Quiz, error) // Include items, entries
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
	Create(ctx context.Context, quiz *models.Quiz) error
}

// AttemptRepository persists attempts and their answer snapshots.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id string) (*models.Attempt, error)
	GetByIDWithQuiz(ctx context.Context, id string) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error

	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
	GetActiveAttempt(ctx context.Context, studentID, quizID string) (*models.Attempt, error)
	GetExpiredAttempts(ctx context.Context, cutoff time.Time) ([]*models.Attempt, error)

	// SaveAnswers replaces the stored payload and bumps the attempt version
	// in one statement, returning the new version.
	SaveAnswers(ctx context.Context, id string, answers []byte) (int, error)

	GetStats(ctx context.Context, quizID string) (*AttemptStats, error)
}

// Repository aggregates the per-entity repositories.
type Repository interface {
	Quiz() QuizRepository
	Attempt() AttemptRepository
}

// IsNotFoundError reports whether err is the database's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
