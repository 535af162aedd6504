package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithQuiz(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Quiz").
		Preload("Quiz.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_items.\"order\" ASC")
		}).
		Preload("Quiz.Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("crossword_entries.number ASC")
		}).
		First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.Attempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, studentID, quizID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ? AND status = ?", studentID, quizID, models.AttemptStatusInProgress).
		Order("started_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetExpiredAttempts(ctx context.Context, cutoff time.Time) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	// Rapid quizzes derive their deadline from the sum of per-item limits,
	// everything else from total_time_limit. Untimed attempts never expire.
	err := a.db.WithContext(ctx).
		Joins("JOIN quizzes ON quizzes.id = attempts.quiz_id").
		Joins("LEFT JOIN (SELECT quiz_id, SUM(time_limit) AS item_total FROM quiz_items GROUP BY quiz_id) item_limits ON item_limits.quiz_id = quizzes.id").
		Where("attempts.status = ?", models.AttemptStatusInProgress).
		Where(
			"(quizzes.type <> ? AND quizzes.total_time_limit > 0 AND attempts.started_at + make_interval(secs => quizzes.total_time_limit) < ?)"+
				" OR (quizzes.type = ? AND COALESCE(item_limits.item_total, 0) > 0 AND attempts.started_at + make_interval(secs => item_limits.item_total) < ?)",
			models.QuizTypeRapid, cutoff, models.QuizTypeRapid, cutoff,
		).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// SaveAnswers replaces the stored payload and bumps attempt_version
// atomically; concurrent saves serialize on the row and each gets a distinct
// version.
func (a *AttemptPostgreSQL) SaveAnswers(ctx context.Context, id string, answers []byte) (int, error) {
	var version int
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Attempt{}).
			Where("id = ? AND status = ?", id, models.AttemptStatusInProgress).
			Updates(map[string]interface{}{
				"answers":         answers,
				"attempt_version": gorm.Expr("attempt_version + 1"),
				"updated_at":      time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Attempt{}).
			Select("attempt_version").
			Where("id = ?", id).
			Scan(&version).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (a *AttemptPostgreSQL) GetStats(ctx context.Context, quizID string) (*repositories.AttemptStats, error) {
	stats := &repositories.AttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}

	var rows []struct {
		Status models.AttemptStatus
		Count  int
	}
	if err := a.db.WithContext(ctx).Model(&models.Attempt{}).
		Select("status, count(*) as count").
		Where("quiz_id = ?", quizID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalAttempts += row.Count
	}

	var avg struct {
		AvgScore float64
		AvgTime  float64
	}
	err := a.db.WithContext(ctx).Model(&models.Attempt{}).
		Select("coalesce(avg(score), 0) as avg_score, coalesce(avg(extract(epoch from finished_at - started_at)), 0) as avg_time").
		Where("quiz_id = ? AND status <> ?", quizID, models.AttemptStatusInProgress).
		Scan(&avg).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	stats.AverageScore = avg.AvgScore
	stats.AverageTimeSpent = int(avg.AvgTime)

	finished := stats.StatusBreakdown[models.AttemptStatusFinished] + stats.StatusBreakdown[models.AttemptStatusTimedOut]
	if stats.TotalAttempts > 0 {
		stats.CompletionRate = float64(finished) / float64(stats.TotalAttempts)
	}
	return stats, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}
