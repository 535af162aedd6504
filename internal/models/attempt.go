package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusFinished   AttemptStatus = "finished"
	AttemptStatusTimedOut   AttemptStatus = "timed_out"
)

type AttemptEndReason string

const (
	AttemptEndReasonSubmitted AttemptEndReason = "submitted"
	AttemptEndReasonTimeout   AttemptEndReason = "timeout"
)

// Attempt is one student's run at one quiz version. StartedAt is set by the
// server when the attempt is created and is the only time reference clients
// may trust; AttemptVersion is bumped on every answers save and returned to
// the client, which never sends it back (the server is the authority).
type Attempt struct {
	ID         string        `json:"id" gorm:"primaryKey;size:36"`
	QuizID     string        `json:"quiz_id" gorm:"not null;size:36;index"`
	ScheduleID *string       `json:"schedule_id" gorm:"size:36;index"`
	StudentID  string        `json:"student_id" gorm:"not null;size:255;index"`
	Status     AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	StartedAt  time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time `json:"finished_at"`

	AttemptVersion int `json:"attempt_version" gorm:"default:1"`

	// Answers is the full item-id -> answer-value snapshot, replaced wholesale
	// by every save after merging with the stored payload.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	Score     *int              `json:"score"`
	MaxScore  *int              `json:"max_score"`
	EndReason *AttemptEndReason `json:"end_reason"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Quiz Quiz `json:"quiz" gorm:"foreignKey:QuizID;references:ID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Deadline returns the wall-clock instant the attempt expires, or nil for
// untimed quizzes. Rapid quizzes expire after the sum of per-item limits.
func (a *Attempt) Deadline(quiz *Quiz) *time.Time {
	limit := quiz.TotalTimeLimit
	if quiz.Type == QuizTypeRapid {
		limit = 0
		for _, item := range quiz.Items {
			limit += item.TimeLimit
		}
	}
	if limit <= 0 {
		return nil
	}
	deadline := a.StartedAt.Add(time.Duration(limit) * time.Second)
	return &deadline
}

// Expired reports whether the attempt's deadline has passed at the given
// instant.
func (a *Attempt) Expired(quiz *Quiz, now time.Time) bool {
	deadline := a.Deadline(quiz)
	return deadline != nil && now.After(*deadline)
}
