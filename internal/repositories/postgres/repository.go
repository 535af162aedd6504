package postgres

import (
	"github.com/classquiz/attempt-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db      *gorm.DB
	quiz    repositories.QuizRepository
	attempt repositories.AttemptRepository
}

// NewRepository builds the gorm-backed repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:      db,
		quiz:    NewQuizPostgreSQL(db),
		attempt: NewAttemptPostgreSQL(db),
	}
}

func (r *repository) Quiz() repositories.QuizRepository {
	return r.quiz
}

func (r *repository) Attempt() repositories.AttemptRepository {
	return r.attempt
}
